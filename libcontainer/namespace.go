package libcontainer

import (
	"sync"

	"github.com/nsrun/nsrun/libcontainer/configs"
)

// Namespace is a named record of one isolation dimension a container
// tracks. It carries identity only; joining or creating the namespace is
// left to the caller.
//
// A Namespace is created standalone, is owned by at most one Container once
// added to it, and is released when that container removes it or is
// destroyed. Name, Type and Path never change.
type Namespace struct {
	name string
	typ  configs.NamespaceType
	path string

	mu       sync.Mutex
	owner    *Container
	released bool
}

type NamespaceOpt func(*Namespace)

// WithType sets the kernel namespace type the record stands for.
func WithType(t configs.NamespaceType) NamespaceOpt {
	return func(ns *Namespace) { ns.typ = t }
}

// WithPath sets the path of an existing namespace to join, such as
// /proc/<pid>/ns/net.
func WithPath(path string) NamespaceOpt {
	return func(ns *Namespace) { ns.path = path }
}

// NewNamespace returns an unowned namespace record. The name must not be
// empty.
func NewNamespace(name string, opts ...NamespaceOpt) (*Namespace, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	ns := &Namespace{name: name}
	for _, opt := range opts {
		opt(ns)
	}
	return ns, nil
}

func (ns *Namespace) Name() string { return ns.name }

func (ns *Namespace) Type() configs.NamespaceType { return ns.typ }

func (ns *Namespace) Path() string { return ns.path }

// Owner returns the ID of the container holding the record, or "" when the
// record is unowned or released.
func (ns *Namespace) Owner() string {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.owner == nil {
		return ""
	}
	return ns.owner.id
}

// Released reports whether the record's owner has let go of it. A released
// record cannot be added to any container.
func (ns *Namespace) Released() bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.released
}

// Config returns the persisted form of the record.
func (ns *Namespace) Config() configs.Namespace {
	return configs.Namespace{
		Type: ns.typ,
		Name: ns.name,
		Path: ns.path,
	}
}

func (ns *Namespace) claim(c *Container) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.released {
		return ErrNamespaceReleased
	}
	if ns.owner != nil {
		return ErrNamespaceOwned
	}
	ns.owner = c
	return nil
}

func (ns *Namespace) release() {
	ns.mu.Lock()
	ns.owner = nil
	ns.released = true
	ns.mu.Unlock()
}
