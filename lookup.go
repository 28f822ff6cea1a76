package main

import (
	"fmt"

	"github.com/urfave/cli"
)

var lookupCommand = cli.Command{
	Name:  "lookup",
	Usage: "check whether a container tracks a namespace",
	ArgsUsage: `<container-id> <namespace-name>

Prints "Namespace '<namespace-name>' found!" and exits 0 if the container has a
namespace of that name, or prints "Namespace not found." and exits 1.`,
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 2, exactArgs); err != nil {
			return err
		}
		container, err := getContainer(context)
		if err != nil {
			return err
		}
		ns, err := container.Lookup(context.Args().Get(1))
		if err != nil {
			return err
		}
		if ns == nil {
			fmt.Fprintln(context.App.Writer, "Namespace not found.")
			return cli.NewExitError("", 1)
		}
		fmt.Fprintf(context.App.Writer, "Namespace '%s' found!\n", ns.Name())
		return nil
	},
}
