package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/urfave/cli"
)

const defaultsKey = "defaults"

// defaults are the settings read from nsrun.yaml and NSRUN_* environment
// variables. Flags given on the command line take precedence.
type defaults struct {
	Root string `mapstructure:"root"`
	Log  struct {
		Format string `mapstructure:"format"`
		Debug  bool   `mapstructure:"debug"`
	} `mapstructure:"log"`
	// Namespaces are the --namespace values used by create when none are
	// given.
	Namespaces []string `mapstructure:"namespaces"`
	Hostname   string   `mapstructure:"hostname"`
}

func loadDefaults(configPath string) (*defaults, error) {
	v := viper.New()

	v.SetDefault("root", "")
	v.SetDefault("log.format", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("namespaces", []string{"pid", "net", "ipc", "uts", "mnt"})
	v.SetDefault("hostname", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("nsrun")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.nsrun")
		v.AddConfigPath("/etc/nsrun")
	}
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read defaults: %w", err)
		}
	}

	v.SetEnvPrefix("NSRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var d defaults
	if err := v.Unmarshal(&d); err != nil {
		return nil, fmt.Errorf("unable to parse defaults: %w", err)
	}
	return &d, nil
}

// apply sets the global flags that were not given explicitly.
func (d *defaults) apply(context *cli.Context) error {
	set := func(name, value string) error {
		if value == "" || context.IsSet(name) {
			return nil
		}
		return context.GlobalSet(name, value)
	}
	if err := set("root", d.Root); err != nil {
		return err
	}
	if err := set("log-format", d.Log.Format); err != nil {
		return err
	}
	if d.Log.Debug {
		return set("debug", strconv.FormatBool(true))
	}
	return nil
}

func getDefaults(context *cli.Context) *defaults {
	if d, ok := context.App.Metadata[defaultsKey].(*defaults); ok {
		return d
	}
	d, err := loadDefaults("")
	if err != nil {
		return &defaults{}
	}
	return d
}
