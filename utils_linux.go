package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nsrun/nsrun/libcontainer"
	"github.com/nsrun/nsrun/libcontainer/cgroups/systemd"
	"github.com/nsrun/nsrun/libcontainer/configs"
	"github.com/nsrun/nsrun/libcontainer/specconv"
	"github.com/opencontainers/runc/libcontainer/userns"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var errEmptyID = errors.New("container id cannot be empty")

const (
	exactArgs = iota
	maxArgs
)

func checkArgs(context *cli.Context, expected, checkType int) error {
	var err error
	cmdName := context.Command.Name
	switch checkType {
	case exactArgs:
		if context.NArg() != expected {
			err = fmt.Errorf("%s: %q requires exactly %d argument(s)", context.App.Name, cmdName, expected)
		}
	case maxArgs:
		if context.NArg() > expected {
			err = fmt.Errorf("%s: %q requires a maximum of %d argument(s)", context.App.Name, cmdName, expected)
		}
	}

	if err != nil {
		fmt.Fprintf(context.App.Writer, "Incorrect Usage.\n\n")
		_ = cli.ShowCommandHelp(context, cmdName)
		return err
	}
	return nil
}

func logrusToStderr() bool {
	l, ok := logrus.StandardLogger().Out.(*os.File)
	return ok && l.Fd() == os.Stderr.Fd()
}

// fatal prints the error's details if it is a libcontainer specific error type
// then exits the program with an exit status of 1.
func fatal(err error) {
	// Make sure the error is written to the logger.
	logrus.Error(err)
	if !logrusToStderr() {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

// reviseRootDir makes sure the root directory is an absolute path.
func reviseRootDir(context *cli.Context) error {
	root := context.GlobalString("root")
	if root == "" {
		return errors.New("option --root argument should not be set to empty")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return context.GlobalSet("root", root)
}

// shouldHonorXDGRuntimeDir reports whether the state directory should live
// under $XDG_RUNTIME_DIR, which is the case for unprivileged users.
func shouldHonorXDGRuntimeDir() bool {
	if os.Getenv("XDG_RUNTIME_DIR") == "" {
		return false
	}
	if os.Geteuid() != 0 {
		return true
	}
	if !userns.RunningInUserNS() {
		// euid == 0 , in the initial ns (i.e. the real root)
		// in this case, we should use /run/nsrun and ignore
		// $XDG_RUNTIME_DIR (e.g. /run/user/0) for backward
		// compatibility.
		return false
	}
	// euid = 0, in a userns.
	u, ok := os.LookupEnv("USER")
	return !ok || u != "root"
}

func shouldUseRootlessCgroupManager(context *cli.Context) (bool, error) {
	switch b := context.GlobalString("rootless"); b {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "auto", "":
		return os.Geteuid() != 0 || userns.RunningInUserNS(), nil
	default:
		return false, fmt.Errorf("invalid --rootless value %q", b)
	}
}

// getContainer returns the container named by the first argument.
func getContainer(context *cli.Context) (*libcontainer.Container, error) {
	id := context.Args().First()
	if id == "" {
		return nil, errEmptyID
	}
	return libcontainer.Load(context.GlobalString("root"), id)
}

func createContainer(context *cli.Context, id string, spec *specs.Spec, nss []configs.Namespace, ports []configs.PortMapping) (*libcontainer.Container, error) {
	rootless, err := shouldUseRootlessCgroupManager(context)
	if err != nil {
		return nil, err
	}
	config, err := specconv.CreateLibcontainerConfig(&specconv.CreateOpts{
		CgroupName:       id,
		Spec:             spec,
		UseSystemdCgroup: context.GlobalBool("systemd-cgroup"),
		PortMappings:     ports,
	})
	if err != nil {
		return nil, err
	}
	config.Cgroups.Rootless = rootless
	nameNamespaces(config, nss)

	if config.Cgroups.Systemd {
		logrus.WithFields(logrus.Fields{
			"unit":       systemd.UnitName(config.Cgroups),
			"properties": systemd.UnitProperties(config.Cgroups),
		}).Debug("systemd unit")
	}
	return libcontainer.Create(context.GlobalString("root"), id, config)
}

// nameNamespaces carries the names given with --namespace over to the
// converted config, and appends the entries that have no kernel type.
func nameNamespaces(config *configs.Config, nss []configs.Namespace) {
	for _, ns := range nss {
		if ns.Type == "" {
			config.Namespaces = append(config.Namespaces, ns)
			continue
		}
		if ns.Name == "" {
			continue
		}
		for i := range config.Namespaces {
			if config.Namespaces[i].Type == ns.Type {
				config.Namespaces[i].Name = ns.Name
			}
		}
	}
}
