package configs

import (
	"fmt"
	"strconv"
	"strings"
)

// PortMapping forwards HostPort on the host to ContainerPort inside the
// container's network namespace.
type PortMapping struct {
	HostPort      uint16 `json:"host_port"`
	ContainerPort uint16 `json:"container_port"`
	Protocol      string `json:"protocol"`
}

func (p PortMapping) String() string {
	return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
}

// ParsePortMapping parses "host:container" with an optional "/tcp" or "/udp"
// suffix. The protocol defaults to tcp.
func ParsePortMapping(s string) (PortMapping, error) {
	pm := PortMapping{Protocol: "tcp"}
	ports := s
	if i := strings.IndexByte(s, '/'); i != -1 {
		ports, pm.Protocol = s[:i], strings.ToLower(s[i+1:])
	}
	switch pm.Protocol {
	case "tcp", "udp":
	default:
		return PortMapping{}, fmt.Errorf("invalid port mapping %q: unsupported protocol %q", s, pm.Protocol)
	}
	host, container, ok := strings.Cut(ports, ":")
	if !ok {
		return PortMapping{}, fmt.Errorf("invalid port mapping %q: expected host:container", s)
	}
	hp, err := parsePort(host)
	if err != nil {
		return PortMapping{}, fmt.Errorf("invalid port mapping %q: %w", s, err)
	}
	cp, err := parsePort(container)
	if err != nil {
		return PortMapping{}, fmt.Errorf("invalid port mapping %q: %w", s, err)
	}
	pm.HostPort, pm.ContainerPort = hp, cp
	return pm, nil
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("bad port %q", s)
	}
	if n == 0 {
		return 0, fmt.Errorf("port must be non-zero")
	}
	return uint16(n), nil
}
