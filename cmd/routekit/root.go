package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/routekit"
	"github.com/felixgeelhaar/routekit/resolve"
)

// rootOptions holds the flags shared by all subcommands
type rootOptions struct {
	tablePath  string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "routekit",
		Short:        "Inspect and simulate navigations over a route table",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.tablePath, "table", "t", "", "Route table file (YAML)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Router config file (TOML)")

	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newSimulateCmd(opts))
	return cmd
}

// config loads the router configuration, or the defaults without --config
func (o *rootOptions) config() (routekit.Config, error) {
	if o.configPath == "" {
		return routekit.DefaultConfig(), nil
	}
	return routekit.LoadConfig(o.configPath)
}

// resolver builds a resolver over the --table file
func (o *rootOptions) resolver() (*resolve.Resolver, error) {
	if o.tablePath == "" {
		return nil, errors.New("--table is required")
	}
	table, err := resolve.LoadTableFile(o.tablePath)
	if err != nil {
		return nil, err
	}
	return resolve.New(table)
}
