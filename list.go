package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nsrun/nsrun/libcontainer"
	"github.com/nsrun/nsrun/libcontainer/utils"
	"github.com/urfave/cli"
)

const formatOptions = `table or json`

// containerSummary is the list output for one container.
type containerSummary struct {
	ID         string    `json:"id"`
	Rootfs     string    `json:"rootfs"`
	Namespaces []string  `json:"namespaces"`
	Created    time.Time `json:"created"`
}

var listCommand = cli.Command{
	Name:  "list",
	Usage: "lists containers kept under the root directory",
	ArgsUsage: `

Where the given root is specified via the global option "--root"
(default: "/run/nsrun").`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "format, f",
			Value: "table",
			Usage: `select one of: ` + formatOptions,
		},
		cli.BoolFlag{
			Name:  "quiet, q",
			Usage: "display only container IDs",
		},
	},
	Action: func(context *cli.Context) error {
		if err := checkArgs(context, 0, exactArgs); err != nil {
			return err
		}
		s, err := getContainers(context)
		if err != nil {
			return err
		}

		w := context.App.Writer
		if context.Bool("quiet") {
			for _, item := range s {
				fmt.Fprintln(w, item.ID)
			}
			return nil
		}

		switch context.String("format") {
		case "table":
			tw := tabwriter.NewWriter(w, 12, 1, 3, ' ', 0)
			fmt.Fprint(tw, "ID\tROOTFS\tNAMESPACES\tCREATED\n")
			for _, item := range s {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					item.ID,
					item.Rootfs,
					strings.Join(item.Namespaces, ","),
					item.Created.Format(time.RFC3339Nano))
			}
			return tw.Flush()
		case "json":
			if s == nil {
				s = []containerSummary{}
			}
			return utils.WriteJSON(w, s)
		default:
			return fmt.Errorf("invalid format option %q", context.String("format"))
		}
	},
}

func getContainers(context *cli.Context) ([]containerSummary, error) {
	root := context.GlobalString("root")
	ids, err := libcontainer.List(root)
	if err != nil {
		return nil, err
	}
	var s []containerSummary
	for _, id := range ids {
		c, err := libcontainer.Load(root, id)
		if errors.Is(err, libcontainer.ErrNotExist) {
			// The container was deleted since it was listed.
			continue
		}
		if err != nil {
			return nil, err
		}
		state, err := c.State()
		if err != nil {
			return nil, err
		}
		var names []string
		for _, ns := range state.Namespaces {
			names = append(names, ns.Name)
		}
		s = append(s, containerSummary{
			ID:         state.ID,
			Rootfs:     state.Config.Rootfs,
			Namespaces: names,
			Created:    state.Created,
		})
	}
	return s, nil
}
