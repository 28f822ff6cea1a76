package main

import (
	"errors"

	"github.com/nsrun/nsrun/libcontainer"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var deleteCommand = cli.Command{
	Name:  "delete",
	Usage: "delete a container and release its namespaces",
	ArgsUsage: `<container-id>

Where "<container-id>" is the name for the instance of the container.`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "force, f",
			Usage: "do not fail if the container does not exist",
		},
	},
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 1, exactArgs); err != nil {
			return err
		}
		id := context.Args().First()
		err := libcontainer.Update(context.GlobalString("root"), id, func(c *libcontainer.Container) error {
			return c.Destroy()
		})
		if errors.Is(err, libcontainer.ErrNotExist) && context.Bool("force") {
			logrus.WithField("id", id).Debug("container does not exist, ignoring")
			return nil
		}
		return err
	},
}
