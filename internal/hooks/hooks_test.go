package hooks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/routekit/internal/ir"
)

type callLog struct {
	calls []string
}

type recordingHook struct {
	name     string
	log      *callLog
	decision ir.Decision
	err      error
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) CanLoad(_ context.Context, _ any, next, _ *ir.RouteNode) (ir.Decision, error) {
	h.log.calls = append(h.log.calls, fmt.Sprintf("%s.canLoad(%s)", h.name, next.Component))
	return h.decision, h.err
}

func (h *recordingHook) Loading(_ context.Context, _ any, next, _ *ir.RouteNode) error {
	h.log.calls = append(h.log.calls, fmt.Sprintf("%s.loading(%s)", h.name, next.Component))
	return h.err
}

type unloadOnlyHook struct{ log *callLog }

func (h *unloadOnlyHook) CanUnload(_ context.Context, _ any, _, current *ir.RouteNode) (ir.Decision, error) {
	h.log.calls = append(h.log.calls, "unloadOnly.canUnload("+current.Component+")")
	return ir.Continue(), nil
}

type recordingComponent struct {
	log      *callLog
	decision ir.Decision
}

func (c *recordingComponent) CanLoad(_ context.Context, next, _ *ir.RouteNode) (ir.Decision, error) {
	c.log.calls = append(c.log.calls, "component.canLoad("+next.Component+")")
	return c.decision, nil
}

type panickingComponent struct{}

func (panickingComponent) Loading(context.Context, *ir.RouteNode, *ir.RouteNode) error {
	panic("boom")
}

func register(t *testing.T, hooks ...any) []Registered {
	t.Helper()
	out := make([]Registered, 0, len(hooks))
	for i, h := range hooks {
		r, err := Register(h, i)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestRegister_NoCapabilities(t *testing.T) {
	_, err := Register(struct{}{}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCapabilities)
}

func TestRegister_Name(t *testing.T) {
	log := &callLog{}
	r, err := Register(&recordingHook{name: "H1", log: log}, 3)
	require.NoError(t, err)
	assert.Equal(t, "H1", r.Name)
	assert.Equal(t, 3, r.Order)

	r, err = Register(&unloadOnlyHook{log: log}, 0)
	require.NoError(t, err)
	assert.Equal(t, "*hooks.unloadOnlyHook", r.Name)
}

func TestChain_Order(t *testing.T) {
	log := &callLog{}
	globals := register(t,
		&recordingHook{name: "H1", log: log},
		&unloadOnlyHook{log: log},
		&recordingHook{name: "H2", log: log},
	)
	node := ir.NewRouteNode("", "foo", nil, &recordingComponent{log: log})

	entries := Chain(ir.PhaseCanLoad, globals, Target{Next: node})
	require.Len(t, entries, 3, "hooks without the phase are skipped")
	assert.Equal(t, "H1", entries[0].OwnerName)
	assert.Equal(t, "H2", entries[1].OwnerName)
	assert.Equal(t, "foo", entries[2].OwnerName)
	assert.False(t, entries[2].Global, "component hook comes last")

	// component without loading contributes nothing
	entries = Chain(ir.PhaseLoading, globals, Target{Next: node})
	require.Len(t, entries, 2)

	// no subject, no chain
	assert.Empty(t, Chain(ir.PhaseCanUnload, globals, Target{Next: node}))
}

func TestInvoke_RunsAllInOrder(t *testing.T) {
	log := &callLog{}
	globals := register(t,
		&recordingHook{name: "H1", log: log, decision: ir.Continue()},
		&recordingHook{name: "H2", log: log, decision: ir.Continue()},
	)
	node := ir.NewRouteNode("", "foo", nil, &recordingComponent{log: log, decision: ir.Continue()})

	var observed int
	inv := &Invoker{Observe: func(Invocation) { observed++ }}
	res := inv.Invoke(context.Background(), Chain(ir.PhaseCanLoad, globals, Target{Next: node}))

	assert.False(t, res.Preempted())
	assert.Equal(t, -1, res.Index)
	assert.Equal(t, 3, res.Invoked)
	assert.Equal(t, 3, observed)
	assert.Equal(t, []string{"H1.canLoad(foo)", "H2.canLoad(foo)", "component.canLoad(foo)"}, log.calls)
}

func TestInvoke_ShortCircuitsOnRefusal(t *testing.T) {
	log := &callLog{}
	globals := register(t,
		&recordingHook{name: "H1", log: log, decision: ir.Refuse()},
		&recordingHook{name: "H2", log: log, decision: ir.Continue()},
	)
	node := ir.NewRouteNode("", "foo", nil, &recordingComponent{log: log, decision: ir.Continue()})

	res := (&Invoker{}).Invoke(context.Background(), Chain(ir.PhaseCanLoad, globals, Target{Next: node}))

	assert.True(t, res.Preempted())
	assert.Equal(t, ir.DecisionRefuse, res.Decision.Kind)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, 1, res.Invoked)
	assert.Equal(t, []string{"H1.canLoad(foo)"}, log.calls)
}

func TestInvoke_ShortCircuitsOnRedirect(t *testing.T) {
	log := &callLog{}
	globals := register(t,
		&recordingHook{name: "H1", log: log, decision: ir.Continue()},
		&recordingHook{name: "H2", log: log, decision: ir.RedirectTo("login")},
	)
	node := ir.NewRouteNode("", "foo", nil, &recordingComponent{log: log, decision: ir.Continue()})

	res := (&Invoker{}).Invoke(context.Background(), Chain(ir.PhaseCanLoad, globals, Target{Next: node}))

	assert.Equal(t, ir.RedirectTo("login"), res.Decision)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, []string{"H1.canLoad(foo)", "H2.canLoad(foo)"}, log.calls)
}

func TestInvoke_ErrorBecomesHookError(t *testing.T) {
	log := &callLog{}
	cause := errors.New("denied by backend")
	globals := register(t,
		&recordingHook{name: "H1", log: log, err: cause},
		&recordingHook{name: "H2", log: log},
	)
	node := ir.NewRouteNode("", "foo", nil, nil)
	tree := ir.NewRouteTree()
	require.NoError(t, tree.AddRoot(node))

	res := (&Invoker{}).Invoke(context.Background(), Chain(ir.PhaseLoading, globals, Target{Next: node}))

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, cause)
	var hookErr *HookError
	require.ErrorAs(t, res.Err, &hookErr)
	assert.Equal(t, ir.PhaseLoading, hookErr.Phase)
	assert.Equal(t, ir.NodeID("foo@default"), hookErr.Node)
	assert.Equal(t, "H1", hookErr.Hook)
	assert.Equal(t, []string{"H1.loading(foo)"}, log.calls)
}

func TestInvoke_RecoversPanics(t *testing.T) {
	node := ir.NewRouteNode("", "boom", nil, panickingComponent{})

	res := (&Invoker{}).Invoke(context.Background(), Chain(ir.PhaseLoading, nil, Target{Next: node}))

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrHookPanic)
	assert.Contains(t, res.Err.Error(), "boom")
}

func TestInvoke_EmptyChain(t *testing.T) {
	res := (&Invoker{}).Invoke(context.Background(), nil)
	assert.False(t, res.Preempted())
	assert.Equal(t, 0, res.Invoked)
}
