package routekit

import "context"

type transitionKey struct{}

// TransitionInfo describes the transition a hook is running for
type TransitionInfo struct {
	ID          uint64
	Instruction Instruction
	Phase       Phase
	Redirects   int // number of redirects that led to this transition

	owner *Router
}

// TransitionFromContext returns the transition a hook runs for. It reports
// false outside of hook calls.
func TransitionFromContext(ctx context.Context) (TransitionInfo, bool) {
	info, ok := ctx.Value(transitionKey{}).(TransitionInfo)
	return info, ok
}

func withTransition(ctx context.Context, info TransitionInfo) context.Context {
	return context.WithValue(ctx, transitionKey{}, info)
}
