package configs

import (
	"fmt"
	"strings"
)

type NamespaceType string

const (
	NEWNET    NamespaceType = "NEWNET"
	NEWPID    NamespaceType = "NEWPID"
	NEWNS     NamespaceType = "NEWNS"
	NEWUTS    NamespaceType = "NEWUTS"
	NEWIPC    NamespaceType = "NEWIPC"
	NEWUSER   NamespaceType = "NEWUSER"
	NEWCGROUP NamespaceType = "NEWCGROUP"
)

// nsNames maps a namespace type to the file name used for it under
// /proc/<pid>/ns, which is also the default record name.
var nsNames = map[NamespaceType]string{
	NEWNET:    "net",
	NEWPID:    "pid",
	NEWNS:     "mnt",
	NEWUTS:    "uts",
	NEWIPC:    "ipc",
	NEWUSER:   "user",
	NEWCGROUP: "cgroup",
}

// NsName returns the short name for a namespace type, or "" if the type is
// unknown.
func NsName(t NamespaceType) string {
	return nsNames[t]
}

// NamespaceTypes returns all supported namespace types.
func NamespaceTypes() []NamespaceType {
	return []NamespaceType{
		NEWUSER,
		NEWIPC,
		NEWUTS,
		NEWNET,
		NEWPID,
		NEWNS,
		NEWCGROUP,
	}
}

// ParseNamespaceType accepts either a short name ("net") or a type constant
// ("NEWNET").
func ParseNamespaceType(s string) (NamespaceType, error) {
	types := NamespaceTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		if s == NsName(t) || s == string(t) {
			return t, nil
		}
		names = append(names, NsName(t))
	}
	return "", fmt.Errorf("unknown namespace type %q (want one of %s)", s, strings.Join(names, ", "))
}

// Namespace defines configuration for each namespace.  It specifies an
// alternate path that is able to be joined via setns.
//
// Name is the key the namespace is tracked under by a container. An empty
// Name falls back to the short name of Type. A namespace with an empty Type
// is a bookkeeping entry only.
type Namespace struct {
	Type NamespaceType `json:"type,omitempty"`
	Name string        `json:"name,omitempty"`
	Path string        `json:"path,omitempty"`
}

// RecordName returns the name the namespace is registered under.
func (n Namespace) RecordName() string {
	if n.Name != "" {
		return n.Name
	}
	return NsName(n.Type)
}

type Namespaces []Namespace

func (n *Namespaces) index(t NamespaceType) int {
	for i, ns := range *n {
		if ns.Type == t {
			return i
		}
	}
	return -1
}

func (n *Namespaces) Contains(t NamespaceType) bool {
	return n.index(t) != -1
}

// Add appends a namespace of type t unless one is already present.
func (n *Namespaces) Add(t NamespaceType, path string) {
	if i := n.index(t); i != -1 {
		(*n)[i].Path = path
		return
	}
	*n = append(*n, Namespace{Type: t, Path: path})
}
