package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/routekit"
	"github.com/felixgeelhaar/routekit/export"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var instructions []string

	var cmd *cobra.Command
	cmd = export.NewCommand(func() (map[string]export.Exporter, error) {
		res, err := opts.resolver()
		if err != nil {
			return nil, err
		}

		// Without -i every root route is exported with its defaults applied
		targets := instructions
		if len(targets) == 0 {
			for _, route := range res.Table().Routes {
				targets = append(targets, route.Name)
			}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		trees := make(map[string]export.Exporter, len(targets))
		for _, in := range targets {
			tree, err := res.Resolve(ctx, routekit.Instruction(in))
			if err != nil {
				return nil, &routekit.ResolutionError{Instruction: routekit.Instruction(in), Err: err}
			}
			trees[in] = export.NewTreeExporter(tree)
		}
		return trees, nil
	})

	cmd.Long = "Resolve instructions against the route table and export the resulting route trees."
	cmd.Flags().StringArrayVarP(&instructions, "instruction", "i", nil, "Instruction to resolve and export (repeatable, default: every root route)")
	return cmd
}
