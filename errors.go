package routekit

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/routekit/internal/hooks"
)

var (
	// ErrNoCapabilities is returned by AddHook for a hook that implements no phase
	ErrNoCapabilities = hooks.ErrNoCapabilities
	// ErrHookPanic marks a hook failure caused by a recovered panic
	ErrHookPanic = hooks.ErrHookPanic
	// ErrNilResolver is returned by NewRouter without a resolver
	ErrNilResolver = errors.New("routekit: resolver is nil")
	// ErrNilActivator is returned by NewRouter without an activator
	ErrNilActivator = errors.New("routekit: activator is nil")
	// ErrUnknownRoute is returned by resolvers for instructions they cannot route
	ErrUnknownRoute = errors.New("routekit: unknown route")
	// ErrRedirectLimit is returned when a redirect chain exceeds Config.MaxRedirects
	ErrRedirectLimit = errors.New("routekit: redirect limit exceeded")
	// ErrReentrantNavigation is returned when a hook navigates the router that
	// is running it; hooks should return RedirectTo instead
	ErrReentrantNavigation = errors.New("routekit: navigation started from inside a running hook")
	// ErrInvalidState is returned for an illegal transition state change
	ErrInvalidState = errors.New("routekit: invalid transition state change")
)

// ResolutionError reports a resolver that could not produce a route tree
type ResolutionError struct {
	Instruction Instruction
	Err         error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("routekit: resolve %q: %v", string(e.Instruction), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ActivationError reports an Activator call that failed
type ActivationError struct {
	Op   string // "activate" or "deactivate"
	Node NodeID
	Err  error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("routekit: %s %s: %v", e.Op, e.Node, e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}
