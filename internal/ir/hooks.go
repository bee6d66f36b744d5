package ir

import "context"

// Component capabilities. A routed component instance implements any subset.
type (
	// CanUnloader is implemented by components that guard their removal
	CanUnloader interface {
		CanUnload(ctx context.Context, next, current *RouteNode) (Decision, error)
	}
	// CanLoader is implemented by components that guard their addition
	CanLoader interface {
		CanLoad(ctx context.Context, next, current *RouteNode) (Decision, error)
	}
	// Unloader is implemented by components notified before deactivation
	Unloader interface {
		Unloading(ctx context.Context, next, current *RouteNode) error
	}
	// Loader is implemented by components notified after activation
	Loader interface {
		Loading(ctx context.Context, next, current *RouteNode) error
	}
)

// Global hook capabilities. Global hooks receive the component instance the
// hook runs for, which may be nil when the node has no instance.
type (
	// CanUnloadHook guards the removal of every component
	CanUnloadHook interface {
		CanUnload(ctx context.Context, component any, next, current *RouteNode) (Decision, error)
	}
	// CanLoadHook guards the addition of every component
	CanLoadHook interface {
		CanLoad(ctx context.Context, component any, next, current *RouteNode) (Decision, error)
	}
	// UnloadingHook is notified before every deactivation
	UnloadingHook interface {
		Unloading(ctx context.Context, component any, next, current *RouteNode) error
	}
	// LoadingHook is notified after every activation
	LoadingHook interface {
		Loading(ctx context.Context, component any, next, current *RouteNode) error
	}
)

// Named is implemented by hooks that want a stable name in logs
type Named interface {
	Name() string
}

// Capabilities is the set of phases an owner implements
type Capabilities uint8

// Has reports whether the set contains the phase
func (c Capabilities) Has(p Phase) bool {
	return c&(1<<uint(p)) != 0
}

// IsEmpty reports whether the owner implements no phase at all
func (c Capabilities) IsEmpty() bool {
	return c == 0
}

func (c Capabilities) with(p Phase) Capabilities {
	return c | 1<<uint(p)
}

// ComponentCapabilities resolves which component interfaces an instance satisfies
func ComponentCapabilities(instance any) Capabilities {
	var c Capabilities
	if instance == nil {
		return c
	}
	if _, ok := instance.(CanUnloader); ok {
		c = c.with(PhaseCanUnload)
	}
	if _, ok := instance.(CanLoader); ok {
		c = c.with(PhaseCanLoad)
	}
	if _, ok := instance.(Unloader); ok {
		c = c.with(PhaseUnloading)
	}
	if _, ok := instance.(Loader); ok {
		c = c.with(PhaseLoading)
	}
	return c
}

// HookCapabilities resolves which global hook interfaces a hook satisfies
func HookCapabilities(hook any) Capabilities {
	var c Capabilities
	if hook == nil {
		return c
	}
	if _, ok := hook.(CanUnloadHook); ok {
		c = c.with(PhaseCanUnload)
	}
	if _, ok := hook.(CanLoadHook); ok {
		c = c.with(PhaseCanLoad)
	}
	if _, ok := hook.(UnloadingHook); ok {
		c = c.with(PhaseUnloading)
	}
	if _, ok := hook.(LoadingHook); ok {
		c = c.with(PhaseLoading)
	}
	return c
}
