package libcontainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/nsrun/nsrun/libcontainer/configs"
	"github.com/nsrun/nsrun/libcontainer/configs/validate"
	"github.com/nsrun/nsrun/libcontainer/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	stateFilename = "state.json"
	lockFilename  = ".lock"
	stateVersion  = 1
)

var idRegex = regexp.MustCompile(`^[\w+-\.]+$`)

func validateID(id string) error {
	if !idRegex.MatchString(id) || utils.CleanPath(id) != id || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Create validates config, builds a container from it and persists its state
// under root/id.
func Create(root, id string, config *configs.Config) (*Container, error) {
	if root == "" {
		return nil, errors.New("root not set")
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config must not be nil")
	}
	if err := validate.Validate(config); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o711); err != nil {
		return nil, err
	}

	unlock, err := lockRoot(root, unix.LOCK_EX)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stateDir := filepath.Join(root, id)
	if _, err := os.Stat(stateDir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExist, id)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	c, err := New(id, config)
	if err != nil {
		return nil, err
	}
	c.root = root
	if err := os.Mkdir(stateDir, 0o711); err != nil {
		return nil, err
	}
	if err := c.Save(); err != nil {
		_ = os.RemoveAll(stateDir)
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"id": id, "root": root}).Debug("container created")
	return c, nil
}

// Load rebuilds the container persisted under root/id.
func Load(root, id string) (*Container, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	unlock, err := lockRoot(root, unix.LOCK_SH)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, id)
		}
		return nil, err
	}
	defer unlock()
	return load(root, id)
}

func load(root, id string) (*Container, error) {
	f, err := os.Open(filepath.Join(root, id, stateFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, id)
		}
		return nil, err
	}
	defer f.Close()

	var state State
	if err := json.NewDecoder(f).Decode(&state); err != nil {
		return nil, fmt.Errorf("unable to decode state of %s: %w", id, err)
	}
	if state.Version != stateVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, state.Version)
	}
	if state.ID != id {
		return nil, fmt.Errorf("state of %s belongs to %q", id, state.ID)
	}

	config := state.Config
	c := newContainer(id, &config)
	c.created = state.Created
	c.root = root
	if err := c.addAll(state.Namespaces); err != nil {
		return nil, fmt.Errorf("corrupt state of %s: %w", id, err)
	}
	return c, nil
}

// Update loads root/id, hands it to fn and saves the result, holding the
// root lock throughout so concurrent updates do not lose writes. If fn
// destroys the container nothing is saved.
func Update(root, id string, fn func(*Container) error) error {
	if err := validateID(id); err != nil {
		return err
	}
	unlock, err := lockRoot(root, unix.LOCK_EX)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotExist, id)
		}
		return err
	}
	defer unlock()

	c, err := load(root, id)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	c.mu.RLock()
	destroyed := c.destroyed
	c.mu.RUnlock()
	if destroyed {
		return nil
	}
	return c.Save()
}

// List returns the IDs of all containers persisted under root, sorted.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), stateFilename)); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Save writes the container's state to disk. It is a no-op for containers
// that were not created through Create or Load.
func (c *Container) Save() error {
	state, err := c.State()
	if err != nil {
		return err
	}
	if c.root == "" {
		return nil
	}
	return utils.AtomicWriteJSON(filepath.Join(c.stateDir(), stateFilename), state, 0o600)
}

func (c *Container) stateDir() string {
	return filepath.Join(c.root, c.id)
}

// lockRoot takes an flock on root/.lock and returns the function releasing it.
func lockRoot(root string, how int) (func(), error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(root, lockFilename), os.O_CREATE|os.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, err
	}
	for {
		err = unix.Flock(int(f.Fd()), how)
		//nolint:errorlint // unix errors are bare
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		f.Close()
		return nil, os.NewSyscallError("flock", err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
