package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nsrun/nsrun/libcontainer/cgroups/systemd"
	"github.com/nsrun/nsrun/libcontainer/configs"
)

type check func(config *configs.Config) error

// isRunningSystemd is swapped out by tests.
var isRunningSystemd = systemd.IsRunningSystemd

func Validate(config *configs.Config) error {
	checks := []check{
		rootfs,
		namespaces,
		hostname,
		ports,
		cgroups,
	}
	for _, c := range checks {
		if err := c(config); err != nil {
			return err
		}
	}
	return nil
}

// rootfs validates if the rootfs is an absolute path and is not a symlink
// to the container's root filesystem.
func rootfs(config *configs.Config) error {
	if _, err := os.Stat(config.Rootfs); err != nil {
		return fmt.Errorf("invalid rootfs: %w", err)
	}
	cleaned, err := filepath.Abs(config.Rootfs)
	if err != nil {
		return fmt.Errorf("invalid rootfs: %w", err)
	}
	if cleaned, err = filepath.EvalSymlinks(cleaned); err != nil {
		return fmt.Errorf("invalid rootfs: %w", err)
	}
	if filepath.Clean(config.Rootfs) != cleaned {
		return errors.New("invalid rootfs: not an absolute path, or a symlink")
	}
	return nil
}

// namespaces checks that every entry resolves to a unique, non-empty record
// name and that no namespace type is requested twice.
func namespaces(config *configs.Config) error {
	types := make(map[configs.NamespaceType]struct{})
	names := make(map[string]struct{})
	for _, ns := range config.Namespaces {
		if ns.Type != "" {
			if configs.NsName(ns.Type) == "" {
				return fmt.Errorf("namespace %q: unknown type %s", ns.Name, ns.Type)
			}
			if _, ok := types[ns.Type]; ok {
				return fmt.Errorf("duplicate namespace type %s", ns.Type)
			}
			types[ns.Type] = struct{}{}
		}
		if ns.Path != "" && !filepath.IsAbs(ns.Path) {
			return fmt.Errorf("namespace %q: path %q is not absolute", ns.RecordName(), ns.Path)
		}
		name := ns.RecordName()
		if name == "" {
			return errors.New("namespace without a type must have a name")
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("duplicate namespace name %q", name)
		}
		names[name] = struct{}{}
	}
	return nil
}

func hostname(config *configs.Config) error {
	if config.Hostname != "" && !config.Namespaces.Contains(configs.NEWUTS) {
		return errors.New("unable to set hostname without a private UTS namespace")
	}
	return nil
}

func ports(config *configs.Config) error {
	if len(config.PortMappings) == 0 {
		return nil
	}
	if !config.Namespaces.Contains(configs.NEWNET) {
		return errors.New("unable to forward ports without a private network namespace")
	}
	seen := make(map[string]struct{})
	for _, pm := range config.PortMappings {
		if pm.HostPort == 0 || pm.ContainerPort == 0 {
			return fmt.Errorf("invalid port mapping %s", pm)
		}
		key := fmt.Sprintf("%d/%s", pm.HostPort, pm.Protocol)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("host port %s is mapped more than once", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func cgroups(config *configs.Config) error {
	c := config.Cgroups
	if c == nil {
		return nil
	}
	if r := c.Resources; r != nil {
		if r.Memory < 0 {
			return errors.New("invalid memory limit: must not be negative")
		}
		if r.CpuQuota != 0 && r.CpuPeriod == 0 {
			return errors.New("invalid cpu limit: quota requires a period")
		}
	}
	if c.Systemd && !isRunningSystemd() {
		return errors.New("systemd not running on this host, cannot use systemd cgroups manager")
	}
	return nil
}
