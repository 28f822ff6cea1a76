package systemd

import (
	"os"
	"strings"
	"sync"

	systemdDbus "github.com/coreos/go-systemd/v22/dbus"
	dbus "github.com/godbus/dbus/v5"
	"github.com/nsrun/nsrun/libcontainer/configs"
)

var (
	isRunningSystemdOnce sync.Once
	isRunningSystemd     bool
)

func IsRunningSystemd() bool {
	isRunningSystemdOnce.Do(func() {
		fi, err := os.Lstat("/run/systemd/system")
		isRunningSystemd = err == nil && fi.IsDir()
	})
	return isRunningSystemd
}

func newProp(name string, units interface{}) systemdDbus.Property {
	return systemdDbus.Property{
		Name:  name,
		Value: dbus.MakeVariant(units),
	}
}

// UnitName returns the transient unit a container's cgroup maps to. Names
// that already carry a ".slice" suffix are used as is.
func UnitName(c *configs.Cgroup) string {
	if strings.HasSuffix(c.Name, ".slice") {
		return c.Name
	}
	return "nsrun-" + c.Name + ".scope"
}

// UnitProperties returns the properties a transient systemd unit would be
// started with for c.
func UnitProperties(c *configs.Cgroup) []systemdDbus.Property {
	var (
		slice      = "system.slice"
		properties []systemdDbus.Property
	)
	if c.Parent != "" {
		slice = c.Parent
	}

	properties = append(properties, systemdDbus.PropDescription("nsrun container "+c.Name))

	if strings.HasSuffix(UnitName(c), ".slice") {
		// If we create a slice, the parent is defined via a Wants=.
		properties = append(properties, systemdDbus.PropWants(slice))
	} else {
		// Otherwise it's a scope, which we put into a Slice=.
		properties = append(properties, systemdDbus.PropSlice(slice))
		properties = append(properties, newProp("Delegate", true))
	}

	// Always enable accounting, this gets us the same behaviour as the fs implementation,
	// plus the kernel has some problems with joining the memory cgroup at a later time.
	properties = append(properties,
		newProp("MemoryAccounting", true),
		newProp("CPUAccounting", true),
		newProp("TasksAccounting", true),
		newProp("DefaultDependencies", false),
	)

	if r := c.Resources; r != nil {
		if r.Memory > 0 {
			properties = append(properties, newProp("MemoryMax", uint64(r.Memory)))
		}
		if r.CpuQuota > 0 && r.CpuPeriod > 0 {
			properties = append(properties, newProp("CPUQuotaPerSecUSec", cpuQuotaPerSecUSec(r.CpuQuota, r.CpuPeriod)))
		}
	}

	return append(properties, c.SystemdProps...)
}

// systemd converts CPUQuotaPerSecUSec to a percentage with 1% granularity,
// so round up to the next 10ms.
func cpuQuotaPerSecUSec(quota int64, period uint64) uint64 {
	v := uint64(quota) * 1000000 / period
	if v%10000 != 0 {
		v = (v/10000 + 1) * 10000
	}
	return v
}
