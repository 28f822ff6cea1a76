package libcontainer

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nsrun/nsrun/libcontainer/configs"
	"github.com/sirupsen/logrus"
)

// Container owns a set of uniquely named namespace records.
//
// A Container is either live or destroyed. Once Destroy has been called every
// method except ID, Config and Destroy returns ErrDestroyed.
type Container struct {
	id      string
	config  *configs.Config
	created time.Time
	// root is the state directory the container is persisted under, or ""
	// for containers that only live in memory.
	root string

	mu         sync.RWMutex
	namespaces map[string]*Namespace
	// order keeps insertion order for listing.
	order     []string
	destroyed bool
}

func newContainer(id string, config *configs.Config) *Container {
	if config == nil {
		config = &configs.Config{}
	}
	return &Container{
		id:         id,
		config:     config,
		created:    time.Now().UTC(),
		namespaces: make(map[string]*Namespace),
	}
}

// New returns a live in-memory container with one namespace record for each
// entry of config.Namespaces. A nil config yields an empty container.
func New(id string, config *configs.Config) (*Container, error) {
	c := newContainer(id, config)
	if err := c.addAll(c.config.Namespaces); err != nil {
		return nil, err
	}
	return c, nil
}

// addAll registers one record per entry. On failure the records it already
// added are removed and released again.
func (c *Container) addAll(nss []configs.Namespace) (err error) {
	var added []string
	defer func() {
		if err == nil {
			return
		}
		for _, name := range added {
			_ = c.RemoveNamespace(name)
		}
	}()
	for _, n := range nss {
		ns, err := NewNamespace(n.RecordName(), WithType(n.Type), WithPath(n.Path))
		if err != nil {
			return fmt.Errorf("namespace %+v: %w", n, err)
		}
		if err := c.AddNamespace(ns); err != nil {
			return err
		}
		added = append(added, ns.name)
	}
	return nil
}

func (c *Container) ID() string { return c.id }

func (c *Container) Config() configs.Config { return *c.config }

// AddNamespace transfers ownership of ns to the container. Names are unique
// within a container: adding a second record under an existing name fails
// with ErrDuplicateName and leaves the first record in place. A container
// tracks at most one record per kernel namespace type (ErrDuplicateType).
func (c *Container) AddNamespace(ns *Namespace) error {
	if ns == nil {
		return ErrInvalidName
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if _, ok := c.namespaces[ns.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, ns.name)
	}
	if ns.typ != "" {
		for _, other := range c.namespaces {
			if other.typ == ns.typ {
				return fmt.Errorf("%w: %s is tracked as %q", ErrDuplicateType, ns.typ, other.name)
			}
		}
	}
	if err := ns.claim(c); err != nil {
		return fmt.Errorf("namespace %q: %w", ns.name, err)
	}
	c.namespaces[ns.name] = ns
	c.order = append(c.order, ns.name)
	logrus.WithFields(logrus.Fields{
		"container": c.id,
		"namespace": ns.name,
		"type":      ns.typ,
	}).Debug("namespace added")
	return nil
}

// Lookup returns the record registered under name. A missing name is not an
// error: Lookup returns nil, nil. The record stays owned by the container.
func (c *Container) Lookup(name string) (*Namespace, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}
	return c.namespaces[name], nil
}

// RemoveNamespace releases the record registered under name.
func (c *Container) RemoveNamespace(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	ns, ok := c.namespaces[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNamespaceNotFound, name)
	}
	delete(c.namespaces, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	ns.release()
	logrus.WithFields(logrus.Fields{
		"container": c.id,
		"namespace": name,
	}).Debug("namespace removed")
	return nil
}

// Namespaces returns the container's records in the order they were added.
func (c *Container) Namespaces() ([]*Namespace, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}
	nss := make([]*Namespace, 0, len(c.order))
	for _, name := range c.order {
		nss = append(nss, c.namespaces[name])
	}
	return nss, nil
}

// Destroy releases every namespace record and, for persisted containers,
// removes the state directory. No action is taken if the container is
// already destroyed.
func (c *Container) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	for _, name := range c.order {
		c.namespaces[name].release()
	}
	c.namespaces = nil
	c.order = nil
	c.destroyed = true
	logrus.WithField("container", c.id).Debug("container destroyed")

	if c.root == "" {
		return nil
	}
	if err := os.RemoveAll(c.stateDir()); err != nil {
		return fmt.Errorf("unable to remove container state: %w", err)
	}
	return nil
}

// State describes a container as persisted on disk.
type State struct {
	Version    int                 `json:"version"`
	ID         string              `json:"id"`
	Created    time.Time           `json:"created"`
	Config     configs.Config      `json:"config"`
	Namespaces []configs.Namespace `json:"namespaces"`
}

// State returns a snapshot of the container.
func (c *Container) State() (*State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}
	s := &State{
		Version:    stateVersion,
		ID:         c.id,
		Created:    c.created,
		Config:     *c.config,
		Namespaces: make([]configs.Namespace, 0, len(c.order)),
	}
	for _, name := range c.order {
		s.Namespaces = append(s.Namespaces, c.namespaces[name].Config())
	}
	return s, nil
}
