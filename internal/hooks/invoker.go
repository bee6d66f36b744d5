package hooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/routekit/internal/ir"
)

// ErrHookPanic marks a hook failure caused by a recovered panic
var ErrHookPanic = errors.New("hook panicked")

// HookError reports a hook that returned an error or panicked
type HookError struct {
	Phase ir.Phase
	Node  ir.NodeID
	Hook  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("routekit: %s hook %s on %s: %v", e.Phase, e.Hook, e.Node, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// Invocation describes one completed hook call
type Invocation struct {
	Entry    Entry
	Decision ir.Decision
	Err      error
	Duration time.Duration
}

// Result is the outcome of running one node's chain for one phase
type Result struct {
	Decision ir.Decision
	Err      error
	Index    int // chain index of the deciding or failing entry, -1 if all continued
	Invoked  int // number of entries actually called
}

// Preempted reports whether the chain ended on a non-continue result
func (r Result) Preempted() bool {
	return r.Err != nil || !r.Decision.IsContinue()
}

// Invoker runs hook chains
type Invoker struct {
	// Observe, when set, is called after every hook call
	Observe func(Invocation)
}

// Invoke runs the entries strictly one at a time, in order. The first entry
// that refuses, redirects or fails ends the chain.
func (inv *Invoker) Invoke(ctx context.Context, entries []Entry) Result {
	result := Result{Decision: ir.Continue(), Index: -1}

	for i, e := range entries {
		start := time.Now()
		decision, err := call(ctx, e)
		result.Invoked++

		if inv != nil && inv.Observe != nil {
			inv.Observe(Invocation{
				Entry:    e,
				Decision: decision,
				Err:      err,
				Duration: time.Since(start),
			})
		}

		if err != nil {
			subject := e.Target.Subject(e.Phase)
			result.Err = &HookError{Phase: e.Phase, Node: subject.ID, Hook: e.OwnerName, Err: err}
			result.Index = i
			return result
		}
		if !decision.IsContinue() {
			result.Decision = decision
			result.Index = i
			return result
		}
	}

	return result
}

// call dispatches one entry to the interface its phase resolved to
func call(ctx context.Context, e Entry) (d ir.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = ir.Continue()
			err = fmt.Errorf("%w: %v", ErrHookPanic, r)
		}
	}()

	next, current := e.Target.Next, e.Target.Current

	if e.Global {
		switch e.Phase {
		case ir.PhaseCanUnload:
			return e.Owner.(ir.CanUnloadHook).CanUnload(ctx, e.Component, next, current)
		case ir.PhaseCanLoad:
			return e.Owner.(ir.CanLoadHook).CanLoad(ctx, e.Component, next, current)
		case ir.PhaseUnloading:
			return ir.Continue(), e.Owner.(ir.UnloadingHook).Unloading(ctx, e.Component, next, current)
		case ir.PhaseLoading:
			return ir.Continue(), e.Owner.(ir.LoadingHook).Loading(ctx, e.Component, next, current)
		}
	} else {
		switch e.Phase {
		case ir.PhaseCanUnload:
			return e.Owner.(ir.CanUnloader).CanUnload(ctx, next, current)
		case ir.PhaseCanLoad:
			return e.Owner.(ir.CanLoader).CanLoad(ctx, next, current)
		case ir.PhaseUnloading:
			return ir.Continue(), e.Owner.(ir.Unloader).Unloading(ctx, next, current)
		case ir.PhaseLoading:
			return ir.Continue(), e.Owner.(ir.Loader).Loading(ctx, next, current)
		}
	}

	return ir.Continue(), fmt.Errorf("unknown phase %d", e.Phase)
}
