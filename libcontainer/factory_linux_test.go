package libcontainer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nsrun/nsrun/libcontainer/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *configs.Config {
	return &configs.Config{
		Rootfs:   t.TempDir(),
		Hostname: "web",
		Namespaces: configs.Namespaces{
			{Type: configs.NEWUTS},
			{Type: configs.NEWNET},
			{Name: "my_namespace"},
		},
	}
}

func TestCreateAndLoad(t *testing.T) {
	root := t.TempDir()
	c, err := Create(root, "web", testConfig(t))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "web", stateFilename))

	loaded, err := Load(root, "web")
	require.NoError(t, err)
	assert.Equal(t, c.ID(), loaded.ID())
	assert.Equal(t, "web", loaded.Config().Hostname)

	ns, err := loaded.Lookup("my_namespace")
	require.NoError(t, err)
	require.NotNil(t, ns)
	assert.Equal(t, "web", ns.Owner())

	want, err := c.State()
	require.NoError(t, err)
	got, err := loaded.State()
	require.NoError(t, err)
	assert.Equal(t, want.Namespaces, got.Namespaces)
	assert.True(t, want.Created.Equal(got.Created))
}

func TestCreateExisting(t *testing.T) {
	root := t.TempDir()
	_, err := Create(root, "web", testConfig(t))
	require.NoError(t, err)
	_, err = Create(root, "web", testConfig(t))
	assert.ErrorIs(t, err, ErrExist)
}

func TestCreateInvalid(t *testing.T) {
	root := t.TempDir()
	for _, id := range []string{"", "..", "a/b", "a b"} {
		_, err := Create(root, id, testConfig(t))
		assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
	}

	config := testConfig(t)
	config.Rootfs = filepath.Join(root, "missing")
	_, err := Create(root, "web", config)
	assert.Error(t, err)

	ids, err := List(root)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir(), "nope")
	assert.ErrorIs(t, err, ErrNotExist)

	_, err = Load(filepath.Join(t.TempDir(), "no-root"), "nope")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLoadBadVersion(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "web"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "web", stateFilename), []byte(`{"version":99,"id":"web"}`), 0o600))
	_, err := Load(root, "web")
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestUpdate(t *testing.T) {
	root := t.TempDir()
	_, err := Create(root, "web", testConfig(t))
	require.NoError(t, err)

	err = Update(root, "web", func(c *Container) error {
		ns, err := NewNamespace("extra", WithType(configs.NEWIPC))
		if err != nil {
			return err
		}
		return c.AddNamespace(ns)
	})
	require.NoError(t, err)

	err = Update(root, "web", func(c *Container) error {
		ns, err := NewNamespace("extra")
		if err != nil {
			return err
		}
		return c.AddNamespace(ns)
	})
	assert.ErrorIs(t, err, ErrDuplicateName)

	c, err := Load(root, "web")
	require.NoError(t, err)
	ns, err := c.Lookup("extra")
	require.NoError(t, err)
	require.NotNil(t, ns)
	assert.Equal(t, configs.NEWIPC, ns.Type())
}

func TestConcurrentUpdate(t *testing.T) {
	root := t.TempDir()
	_, err := Create(root, "web", testConfig(t))
	require.NoError(t, err)

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			assert.NoError(t, Update(root, "web", func(c *Container) error {
				ns, err := NewNamespace(name)
				if err != nil {
					return err
				}
				return c.AddNamespace(ns)
			}))
		}(name)
	}
	wg.Wait()

	c, err := Load(root, "web")
	require.NoError(t, err)
	nss, err := c.Namespaces()
	require.NoError(t, err)
	assert.Len(t, nss, 3+len(names))
}

func TestDestroyRemovesState(t *testing.T) {
	root := t.TempDir()
	_, err := Create(root, "web", testConfig(t))
	require.NoError(t, err)
	_, err = Create(root, "db", testConfig(t))
	require.NoError(t, err)

	ids, err := List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web"}, ids)

	require.NoError(t, Update(root, "web", func(c *Container) error {
		return c.Destroy()
	}))
	assert.NoDirExists(t, filepath.Join(root, "web"))

	ids, err = List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"db"}, ids)

	_, err = Load(root, "web")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestSaveInMemory(t *testing.T) {
	c, err := New("mem", nil)
	require.NoError(t, err)
	assert.NoError(t, c.Save())
	require.NoError(t, c.Destroy())
	assert.ErrorIs(t, c.Save(), ErrDestroyed)
}
