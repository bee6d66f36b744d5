package routekit

import (
	"context"

	"github.com/felixgeelhaar/routekit/internal/hooks"
	"github.com/felixgeelhaar/routekit/internal/ir"
)

// Re-export route tree types from internal/ir for public API
type (
	// RouteNode is one routed component in a route tree
	RouteNode = ir.RouteNode
	// RouteTree is the hierarchy of routed components for one navigation state
	RouteTree = ir.RouteTree
	// NodeID uniquely identifies a node within a route tree
	NodeID = ir.NodeID
	// Instruction is a navigation target understood by a Resolver
	Instruction = ir.Instruction
	// Params holds route parameters
	Params = ir.Params
	// Phase is one of the four hook phases
	Phase = ir.Phase
	// Decision is the result of a guard hook
	Decision = ir.Decision
	// DecisionKind classifies a Decision
	DecisionKind = ir.DecisionKind
	// HookError reports a hook that returned an error or panicked
	HookError = hooks.HookError
	// ValidationError lists the problems found in a route tree
	ValidationError = ir.ValidationError
)

// Component capabilities. A routed component implements any subset.
type (
	CanUnloader = ir.CanUnloader
	CanLoader   = ir.CanLoader
	Unloader    = ir.Unloader
	Loader      = ir.Loader
)

// Global hook capabilities. A global hook implements any subset and
// receives the component instance of the node it runs for.
type (
	CanUnloadHook = ir.CanUnloadHook
	CanLoadHook   = ir.CanLoadHook
	UnloadingHook = ir.UnloadingHook
	LoadingHook   = ir.LoadingHook
	Named         = ir.Named
)

// Re-export constants
const (
	PhaseCanUnload = ir.PhaseCanUnload
	PhaseCanLoad   = ir.PhaseCanLoad
	PhaseUnloading = ir.PhaseUnloading
	PhaseLoading   = ir.PhaseLoading

	DecisionContinue = ir.DecisionContinue
	DecisionRefuse   = ir.DecisionRefuse
	DecisionRedirect = ir.DecisionRedirect

	DefaultViewport = ir.DefaultViewport
)

// Continue lets the navigation proceed
func Continue() Decision { return ir.Continue() }

// Refuse cancels the navigation
func Refuse() Decision { return ir.Refuse() }

// RedirectTo cancels the navigation and starts a new one for target
func RedirectTo(target Instruction) Decision { return ir.RedirectTo(target) }

// Allow maps a boolean guard answer onto Continue or Refuse
func Allow(ok bool) Decision { return ir.Allow(ok) }

// NewRouteTree creates an empty route tree
func NewRouteTree() *RouteTree { return ir.NewRouteTree() }

// NewRouteNode creates a detached route node. An empty viewport means
// DefaultViewport.
func NewRouteNode(viewport, component string, params Params, instance any) *RouteNode {
	return ir.NewRouteNode(viewport, component, params, instance)
}

// Resolver turns navigation instructions into candidate route trees.
//
// Resolve must return a tree the caller may own and mutate; it must not hand
// out the same tree twice. ResolveResidue materializes the children of a node
// whose Residue is set, once the node's component has loaded. The returned
// nodes are detached; the router attaches them.
type Resolver interface {
	Resolve(ctx context.Context, instruction Instruction) (*RouteTree, error)
	ResolveResidue(ctx context.Context, node *RouteNode) ([]*RouteNode, error)
}

// Activator is the component activation pipeline. Deactivate of a viewport's
// old occupant always completes before Activate of its replacement.
type Activator interface {
	Activate(ctx context.Context, node *RouteNode) error
	Deactivate(ctx context.Context, node *RouteNode) error
}

// ActivatorFuncs adapts two functions to Activator. Nil functions do nothing.
type ActivatorFuncs struct {
	OnActivate   func(ctx context.Context, node *RouteNode) error
	OnDeactivate func(ctx context.Context, node *RouteNode) error
}

// Activate implements Activator
func (a ActivatorFuncs) Activate(ctx context.Context, node *RouteNode) error {
	if a.OnActivate == nil {
		return nil
	}
	return a.OnActivate(ctx, node)
}

// Deactivate implements Activator
func (a ActivatorFuncs) Deactivate(ctx context.Context, node *RouteNode) error {
	if a.OnDeactivate == nil {
		return nil
	}
	return a.OnDeactivate(ctx, node)
}
