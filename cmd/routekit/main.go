// Command routekit resolves, exports and simulates navigations over a route
// table file.
//
// Usage:
//
//	routekit --table routes.yaml export --format yaml -i 'users(7)'
//	routekit --table routes.yaml --config routekit.toml simulate home 'users(7)/posts'
//	routekit --table routes.yaml simulate --refuse admin --redirect admin=login admin
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
