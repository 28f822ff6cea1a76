package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/nsrun/nsrun/libcontainer/cgroups"
	"github.com/nsrun/nsrun/libcontainer/configs"
	"github.com/nsrun/nsrun/libcontainer/specconv"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/urfave/cli"
)

var createCommand = cli.Command{
	Name:  "create",
	Usage: "create a container",
	ArgsUsage: `[container-id]

Where "<container-id>" is your name for the instance of the container. The
name must be unique under --root. A random ID is generated when it is
omitted.`,
	Description: `The create command records a container either from a bundle, a directory
with a specification file named "` + specConfig + `" and a root filesystem, or
from a root filesystem given with --rootfs.

Each --namespace value is either a namespace kind (pid, net, ipc, uts, mnt,
user, cgroup), a kind with a name (eth0=net), or any other name, which is
tracked as a plain record. Without a kind the default set of namespaces is
used.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "bundle, b",
			Value: "",
			Usage: `path to the root of the bundle directory`,
		},
		cli.StringFlag{
			Name:  "rootfs",
			Usage: "path to the container's root filesystem, required without --bundle",
		},
		cli.StringFlag{
			Name:  "hostname",
			Usage: "hostname of the container, requires a uts namespace",
		},
		cli.StringFlag{
			Name:  "memory, m",
			Usage: "memory limit, e.g. 256M",
		},
		cli.StringFlag{
			Name:  "cpu",
			Usage: "number of CPUs, e.g. 0.5",
		},
		cli.StringSliceFlag{
			Name:  "port, p",
			Usage: "forward a host port into the container (host:container[/tcp|udp])",
		},
		cli.StringSliceFlag{
			Name:  "namespace, n",
			Usage: "namespace to track (kind, name=kind, or name)",
		},
	},
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 1, maxArgs); err != nil {
			return err
		}
		id := context.Args().First()
		if id == "" {
			id = uuid.NewString()
		}
		nss, err := namespaceFlags(context)
		if err != nil {
			return err
		}
		spec, err := setupSpec(context, nss)
		if err != nil {
			return err
		}
		ports, err := portFlags(context)
		if err != nil {
			return err
		}
		container, err := createContainer(context, id, spec, nss, ports)
		if err != nil {
			return err
		}
		fmt.Fprintln(context.App.Writer, container.ID())
		return nil
	},
}

// setupSpec builds the OCI spec the container is created from: the bundle's
// config.json when --bundle is given, the default spec otherwise, with flags
// applied on top.
func setupSpec(context *cli.Context, nss []configs.Namespace) (*specs.Spec, error) {
	var spec *specs.Spec
	if bundle := context.String("bundle"); bundle != "" {
		if err := os.Chdir(bundle); err != nil {
			return nil, err
		}
		s, err := loadSpec(specConfig)
		if err != nil {
			return nil, err
		}
		spec = s
	} else {
		if !context.IsSet("rootfs") {
			return nil, fmt.Errorf("either --bundle or --rootfs must be given")
		}
		spec = specconv.Example()
		spec.Hostname = getDefaults(context).Hostname
		spec.Linux.Namespaces = nil
	}
	if spec.Linux == nil {
		spec.Linux = &specs.Linux{}
	}

	if context.IsSet("rootfs") {
		spec.Root = &specs.Root{Path: context.String("rootfs")}
	}
	if context.IsSet("hostname") {
		spec.Hostname = context.String("hostname")
	}

	var typed []specs.LinuxNamespace
	for _, ns := range nss {
		if ns.Type == "" {
			continue
		}
		typed = append(typed, specs.LinuxNamespace{Type: linuxNamespaceType(ns.Type)})
	}
	if len(typed) > 0 {
		spec.Linux.Namespaces = typed
	}

	if err := setupResources(context, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func setupResources(context *cli.Context, spec *specs.Spec) error {
	if !context.IsSet("memory") && !context.IsSet("cpu") {
		return nil
	}
	if spec.Linux.Resources == nil {
		spec.Linux.Resources = &specs.LinuxResources{}
	}
	r := spec.Linux.Resources
	if context.IsSet("memory") {
		limit, err := cgroups.ParseMemory(context.String("memory"))
		if err != nil {
			return err
		}
		r.Memory = &specs.LinuxMemory{Limit: &limit}
	}
	if context.IsSet("cpu") {
		quota, period, err := cgroups.ParseCPUs(context.String("cpu"))
		if err != nil {
			return err
		}
		r.CPU = &specs.LinuxCPU{Quota: &quota, Period: &period}
	}
	return nil
}

// namespaceFlags parses --namespace, falling back to the configured defaults
// when no kernel namespace kind is named.
func namespaceFlags(context *cli.Context) ([]configs.Namespace, error) {
	var nss []configs.Namespace
	typed := false
	for _, s := range context.StringSlice("namespace") {
		ns, err := parseNamespaceFlag(s)
		if err != nil {
			return nil, err
		}
		typed = typed || ns.Type != ""
		nss = append(nss, ns)
	}
	if typed || context.String("bundle") != "" {
		return nss, nil
	}
	for _, s := range getDefaults(context).Namespaces {
		ns, err := parseNamespaceFlag(s)
		if err != nil {
			return nil, fmt.Errorf("default namespaces: %w", err)
		}
		nss = append(nss, ns)
	}
	return nss, nil
}

func parseNamespaceFlag(s string) (configs.Namespace, error) {
	if s == "" {
		return configs.Namespace{}, fmt.Errorf("namespace must not be empty")
	}
	if name, kind, ok := strings.Cut(s, "="); ok {
		t, err := configs.ParseNamespaceType(kind)
		if err != nil {
			return configs.Namespace{}, err
		}
		if name == "" {
			return configs.Namespace{}, fmt.Errorf("invalid namespace %q: empty name", s)
		}
		return configs.Namespace{Type: t, Name: name}, nil
	}
	if t, err := configs.ParseNamespaceType(s); err == nil {
		return configs.Namespace{Type: t}, nil
	}
	return configs.Namespace{Name: s}, nil
}

func portFlags(context *cli.Context) ([]configs.PortMapping, error) {
	var ports []configs.PortMapping
	for _, s := range context.StringSlice("port") {
		pm, err := configs.ParsePortMapping(s)
		if err != nil {
			return nil, err
		}
		ports = append(ports, pm)
	}
	return ports, nil
}

var linuxNamespaceTypes = map[configs.NamespaceType]specs.LinuxNamespaceType{
	configs.NEWPID:    specs.PIDNamespace,
	configs.NEWNET:    specs.NetworkNamespace,
	configs.NEWNS:     specs.MountNamespace,
	configs.NEWUSER:   specs.UserNamespace,
	configs.NEWIPC:    specs.IPCNamespace,
	configs.NEWUTS:    specs.UTSNamespace,
	configs.NEWCGROUP: specs.CgroupNamespace,
}

func linuxNamespaceType(t configs.NamespaceType) specs.LinuxNamespaceType {
	return linuxNamespaceTypes[t]
}
