package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	imagespecs "github.com/opencontainers/image-spec/specs-go"
	"github.com/opencontainers/runc/libcontainer/seccomp"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// version and gitCommit are set at build time with -ldflags "-X main.version=...".
var (
	version   = "unknown"
	gitCommit = ""
)

const (
	specConfig = "config.json"
	usage      = `keep track of the namespaces of containers

nsrun records, for each container, the namespaces it isolates (mount, PID,
network, ...) under unique names, together with the rootfs, hostname,
resource limits and port mappings requested for it. State is kept in the
directory given by --root.

To create a container from a root filesystem:

    # nsrun create --rootfs ./alpine-rootfs --memory 256M --cpu 0.5 --hostname web web

To check that a namespace is tracked:

    # nsrun lookup web net`
)

func main() {
	root := "/run/nsrun"
	xdgDirUsed := false
	xdgRuntimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if xdgRuntimeDir != "" && shouldHonorXDGRuntimeDir() {
		root = xdgRuntimeDir + "/nsrun"
		xdgDirUsed = true
	}

	app := newApp(root, xdgDirUsed)
	// If the command returns an error, cli takes upon itself to print
	// the error on cli.ErrWriter and exit.
	// Use our own writer here to ensure the log gets sent to the right location.
	cli.ErrWriter = &FatalWriter{cli.ErrWriter}
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

// newApp builds the nsrun application. root is the default state directory;
// xdgDirUsed marks it as living under $XDG_RUNTIME_DIR.
func newApp(root string, xdgDirUsed bool) *cli.App {
	app := cli.NewApp()
	app.Name = "nsrun"
	app.Usage = usage

	v := []string{version}

	if gitCommit != "" {
		v = append(v, "commit: "+gitCommit)
	}
	v = append(v, "spec: "+specs.Version)
	v = append(v, "image-spec: "+imagespecs.Version)
	v = append(v, "go: "+runtime.Version())
	major, minor, micro := seccomp.Version()
	if major+minor+micro > 0 {
		v = append(v, fmt.Sprintf("libseccomp: %d.%d.%d", major, minor, micro))
	}
	app.Version = strings.Join(v, "\n")

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "set the log file to write nsrun logs to (default is '/dev/stderr')",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "set the log format ('text' (default), or 'json')",
		},
		cli.StringFlag{
			Name:  "root",
			Value: root,
			Usage: "root directory for storage of container state (this should be located in tmpfs)",
		},
		cli.StringFlag{
			Name:  "config",
			Value: "",
			Usage: "defaults file (default is nsrun.yaml in ., $HOME/.nsrun or /etc/nsrun)",
		},
		cli.BoolFlag{
			Name:  "systemd-cgroup",
			Usage: "enable systemd cgroup support, the container's cgroup is recorded as a transient systemd unit",
		},
		cli.StringFlag{
			Name:  "rootless",
			Value: "auto",
			Usage: "ignore cgroup permission errors ('true', 'false', or 'auto')",
		},
	}
	app.Commands = []cli.Command{
		addCommand,
		createCommand,
		deleteCommand,
		listCommand,
		lookupCommand,
		removeCommand,
		specCommand,
		stateCommand,
	}
	app.Before = func(context *cli.Context) error {
		d, err := loadDefaults(context.GlobalString("config"))
		if err != nil {
			return err
		}
		if err := d.apply(context); err != nil {
			return err
		}
		app.Metadata = map[string]interface{}{defaultsKey: d}
		// reviseRootDir marks root as set, so look before it runs.
		rootSet := context.IsSet("root")
		if err := reviseRootDir(context); err != nil {
			return err
		}
		if err := configLogrus(context); err != nil {
			return err
		}
		if !rootSet && xdgDirUsed {
			return setupXDGRoot(root)
		}
		return nil
	}
	return app
}

// setupXDGRoot creates the state directory under $XDG_RUNTIME_DIR. According
// to the XDG specification, we need to set anything in XDG_RUNTIME_DIR to
// have a sticky bit if we don't want it to get auto-pruned.
func setupXDGRoot(root string) error {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("the path in $XDG_RUNTIME_DIR must be writable by the user: %w", err)
	}
	if err := os.Chmod(root, os.FileMode(0o700)|os.ModeSticky); err != nil {
		return fmt.Errorf("you should check permission of the path in $XDG_RUNTIME_DIR: %w", err)
	}
	return nil
}

type FatalWriter struct {
	cliErrWriter io.Writer
}

func (f *FatalWriter) Write(p []byte) (n int, err error) {
	logrus.Error(string(p))
	if !logrusToStderr() {
		return f.cliErrWriter.Write(p)
	}
	return len(p), nil
}

func configLogrus(context *cli.Context) error {
	if context.GlobalBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
		// Shorten function and file names reported by the logger, by
		// trimming common "github.com/nsrun/nsrun" prefix.
		// This is only done for text formatter.
		_, file, _, _ := runtime.Caller(0)
		prefix := filepath.Dir(file) + "/"
		logrus.SetFormatter(&logrus.TextFormatter{
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				function := strings.TrimPrefix(f.Function, prefix) + "()"
				fileLine := strings.TrimPrefix(f.File, prefix) + ":" + strconv.Itoa(f.Line)
				return function, fileLine
			},
		})
	}

	switch f := context.GlobalString("log-format"); f {
	case "":
		// do nothing
	case "text":
		// do nothing
	case "json":
		logrus.SetFormatter(new(logrus.JSONFormatter))
	default:
		return errors.New("invalid log-format: " + f)
	}

	if file := context.GlobalString("log"); file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o644)
		if err != nil {
			return err
		}
		logrus.SetOutput(f)
	}

	return nil
}
