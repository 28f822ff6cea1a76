package main

import (
	"github.com/nsrun/nsrun/libcontainer"
	"github.com/urfave/cli"
)

var removeCommand = cli.Command{
	Name:      "rm",
	Usage:     "remove a namespace from a container",
	ArgsUsage: `<container-id> <namespace-name>`,
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 2, exactArgs); err != nil {
			return err
		}
		return libcontainer.Update(context.GlobalString("root"), context.Args().First(), func(c *libcontainer.Container) error {
			return c.RemoveNamespace(context.Args().Get(1))
		})
	},
}
