package configs

import (
	systemdDbus "github.com/coreos/go-systemd/v22/dbus"
)

type Cgroup struct {
	// Name specifies the name of the cgroup
	Name string `json:"name,omitempty"`

	// Parent specifies the name of parent of cgroup or slice
	Parent string `json:"parent,omitempty"`

	// Path specifies the path to cgroups that are created and/or joined by the container.
	// The path is assumed to be relative to the host system cgroup mountpoint.
	Path string `json:"path"`

	// Resources contains various cgroups settings to apply
	*Resources `json:"resources,omitempty"`

	// Systemd tells if systemd should be used to manage cgroups.
	Systemd bool `json:"systemd,omitempty"`

	// SystemdProps are any additional properties for systemd,
	// derived from org.systemd.property.xxx annotations.
	// Ignored unless systemd is used for managing cgroups.
	SystemdProps []systemdDbus.Property `json:"-"`

	// Rootless tells if rootless cgroups should be used.
	Rootless bool `json:"rootless,omitempty"`
}

type Resources struct {
	// Memory limit (in bytes)
	Memory int64 `json:"memory,omitempty"`

	// CPU hardcap limit (in usecs). Allowed cpu time in a given period.
	CpuQuota int64 `json:"cpu_quota,omitempty"`

	// CPU period to be used for hardcapping (in usecs). 0 to use system default.
	CpuPeriod uint64 `json:"cpu_period,omitempty"`
}
