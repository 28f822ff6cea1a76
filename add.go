package main

import (
	"fmt"
	"path/filepath"

	"github.com/nsrun/nsrun/libcontainer"
	"github.com/nsrun/nsrun/libcontainer/configs"
	"github.com/urfave/cli"
)

var addCommand = cli.Command{
	Name:  "add",
	Usage: "add a namespace to a container",
	ArgsUsage: `<container-id> <namespace-name>

The name must not already be in use by the container.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "type, t",
			Usage: "namespace kind (pid, net, ipc, uts, mnt, user, cgroup)",
		},
		cli.StringFlag{
			Name:  "path",
			Usage: "path of an existing namespace to join, e.g. /proc/1/ns/net",
		},
	},
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 2, exactArgs); err != nil {
			return err
		}
		var opts []libcontainer.NamespaceOpt
		if kind := context.String("type"); kind != "" {
			t, err := configs.ParseNamespaceType(kind)
			if err != nil {
				return err
			}
			opts = append(opts, libcontainer.WithType(t))
		}
		if path := context.String("path"); path != "" {
			if !filepath.IsAbs(path) {
				return fmt.Errorf("namespace path %q is not absolute", path)
			}
			opts = append(opts, libcontainer.WithPath(path))
		}
		ns, err := libcontainer.NewNamespace(context.Args().Get(1), opts...)
		if err != nil {
			return err
		}
		return libcontainer.Update(context.GlobalString("root"), context.Args().First(), func(c *libcontainer.Container) error {
			return c.AddNamespace(ns)
		})
	},
}
