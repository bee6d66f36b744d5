package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/routekit"
)

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var (
		refuse    []string
		redirects []string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:   "simulate INSTRUCTION...",
		Short: "Run navigations in order and log every hook invocation",
		Long: `Run navigations in order against the route table. Each navigation prints
its outcome and the committed tree; hook invocations are logged at debug
level to stderr.

Without --config the log level is debug. With --config the configured
log_level applies. --log-level overrides both.

Guards can be scripted: --refuse makes canLoad refuse a component and
--redirect component=instruction makes it redirect.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			switch {
			case cmd.Flags().Changed("log-level"):
				cfg.LogLevel = logLevel
			case opts.configPath == "":
				cfg.LogLevel = "debug"
			}
			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res, err := opts.resolver()
			if err != nil {
				return err
			}

			guard, err := newScriptedGuard(refuse, redirects)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			router, err := routekit.NewRouter(res, printActivator(out),
				routekit.WithConfig(cfg),
				routekit.WithLogger(logger),
				routekit.WithHooks(guard))
			if err != nil {
				return err
			}

			for _, in := range args {
				result, err := router.Navigate(cmd.Context(), routekit.Instruction(in))
				if err != nil {
					fmt.Fprintf(out, "%s: error: %v\n", in, err)
					continue
				}
				line := fmt.Sprintf("%s: %s -> %s", in, result.Outcome, result.Tree)
				if len(result.Redirects) > 0 {
					line += fmt.Sprintf(" (redirects: %v)", result.Redirects)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&refuse, "refuse", nil, "Components whose canLoad refuses")
	flags.StringArrayVar(&redirects, "redirect", nil, "component=instruction: redirect on canLoad")
	flags.StringVar(&logLevel, "log-level", "debug", "Log level (debug, info, warn, error)")
	return cmd
}

func printActivator(out io.Writer) routekit.Activator {
	return routekit.ActivatorFuncs{
		OnActivate: func(_ context.Context, n *routekit.RouteNode) error {
			fmt.Fprintf(out, "  activate %s\n", n.ID)
			return nil
		},
		OnDeactivate: func(_ context.Context, n *routekit.RouteNode) error {
			fmt.Fprintf(out, "  deactivate %s\n", n.ID)
			return nil
		},
	}
}

// scriptedGuard is a global hook taking part in every phase, so that the
// router logs each invocation. Its canLoad answers come from flags.
type scriptedGuard struct {
	refuse    map[string]bool
	redirects map[string]routekit.Instruction
}

func newScriptedGuard(refuse, redirects []string) (*scriptedGuard, error) {
	g := &scriptedGuard{
		refuse:    make(map[string]bool, len(refuse)),
		redirects: make(map[string]routekit.Instruction, len(redirects)),
	}
	for _, c := range refuse {
		g.refuse[c] = true
	}
	for _, r := range redirects {
		component, target, ok := strings.Cut(r, "=")
		if !ok || component == "" || target == "" {
			return nil, fmt.Errorf("invalid --redirect %q, want component=instruction", r)
		}
		g.redirects[component] = routekit.Instruction(target)
	}
	return g, nil
}

func (g *scriptedGuard) Name() string { return "simulate" }

func (g *scriptedGuard) CanUnload(context.Context, any, *routekit.RouteNode, *routekit.RouteNode) (routekit.Decision, error) {
	return routekit.Continue(), nil
}

func (g *scriptedGuard) CanLoad(_ context.Context, _ any, next, _ *routekit.RouteNode) (routekit.Decision, error) {
	if g.refuse[next.Component] {
		return routekit.Refuse(), nil
	}
	if target, ok := g.redirects[next.Component]; ok {
		return routekit.RedirectTo(target), nil
	}
	return routekit.Continue(), nil
}

func (g *scriptedGuard) Unloading(context.Context, any, *routekit.RouteNode, *routekit.RouteNode) error {
	return nil
}

func (g *scriptedGuard) Loading(context.Context, any, *routekit.RouteNode, *routekit.RouteNode) error {
	return nil
}
