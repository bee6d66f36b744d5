package routekit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal is a concurrency-safe call log
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
}

func (j *journal) entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = nil
}

// assertLevels checks the log in consecutive groups; order within a group is free
func assertLevels(t *testing.T, got []string, levels ...[]string) {
	t.Helper()
	total := 0
	for _, l := range levels {
		total += len(l)
	}
	require.Len(t, got, total, "log: %v", got)

	i := 0
	for n, l := range levels {
		assert.ElementsMatch(t, l, got[i:i+len(l)], "level %d of %v", n, got)
		i += len(l)
	}
}

// probe is a routed component that records every lifecycle call
type probe struct {
	name string
	log  *journal

	canUnload func(ctx context.Context) (Decision, error)
	canLoad   func(ctx context.Context) (Decision, error)
	unloading func(ctx context.Context) error
	loading   func(ctx context.Context) error
}

func newProbe(name string, log *journal) *probe {
	return &probe{name: name, log: log}
}

func (p *probe) CanUnload(ctx context.Context, _, current *RouteNode) (Decision, error) {
	p.log.add("%s.canUnload(%s)", p.name, current.Component)
	if p.canUnload != nil {
		return p.canUnload(ctx)
	}
	return Continue(), nil
}

func (p *probe) CanLoad(ctx context.Context, next, _ *RouteNode) (Decision, error) {
	p.log.add("%s.canLoad(%s)", p.name, next.Component)
	if p.canLoad != nil {
		return p.canLoad(ctx)
	}
	return Continue(), nil
}

func (p *probe) Unloading(ctx context.Context, _, current *RouteNode) error {
	p.log.add("%s.unloading(%s)", p.name, current.Component)
	if p.unloading != nil {
		return p.unloading(ctx)
	}
	return nil
}

func (p *probe) Loading(ctx context.Context, next, _ *RouteNode) error {
	p.log.add("%s.loading(%s)", p.name, next.Component)
	if p.loading != nil {
		return p.loading(ctx)
	}
	return nil
}

// globalHook records every phase for every component
type globalHook struct {
	name    string
	log     *journal
	canLoad func(next *RouteNode) Decision
}

func (h *globalHook) Name() string { return h.name }

func (h *globalHook) CanUnload(_ context.Context, _ any, _, current *RouteNode) (Decision, error) {
	h.log.add("%s.canUnload(%s)", h.name, current.Component)
	return Continue(), nil
}

func (h *globalHook) CanLoad(_ context.Context, _ any, next, _ *RouteNode) (Decision, error) {
	h.log.add("%s.canLoad(%s)", h.name, next.Component)
	if h.canLoad != nil {
		return h.canLoad(next), nil
	}
	return Continue(), nil
}

func (h *globalHook) Unloading(_ context.Context, _ any, _, current *RouteNode) error {
	h.log.add("%s.unloading(%s)", h.name, current.Component)
	return nil
}

func (h *globalHook) Loading(_ context.Context, _ any, next, _ *RouteNode) error {
	h.log.add("%s.loading(%s)", h.name, next.Component)
	return nil
}

// stubResolver serves prebuilt trees. Every Resolve builds a fresh tree.
type stubResolver struct {
	mu      sync.Mutex
	trees   map[Instruction]func() *TreeBuilder
	residue map[Instruction]func() []*RouteNode
	calls   int
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		trees:   make(map[Instruction]func() *TreeBuilder),
		residue: make(map[Instruction]func() []*RouteNode),
	}
}

func (s *stubResolver) route(instruction Instruction, build func() *TreeBuilder) *stubResolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees[instruction] = build
	return s
}

func (s *stubResolver) children(residue Instruction, build func() []*RouteNode) *stubResolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.residue[residue] = build
	return s
}

func (s *stubResolver) Resolve(_ context.Context, instruction Instruction) (*RouteTree, error) {
	s.mu.Lock()
	build := s.trees[instruction]
	s.calls++
	s.mu.Unlock()

	if build == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, string(instruction))
	}
	return build().Build()
}

func (s *stubResolver) ResolveResidue(_ context.Context, node *RouteNode) ([]*RouteNode, error) {
	s.mu.Lock()
	build := s.residue[node.Residue]
	s.mu.Unlock()

	if build == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoute, string(node.Residue))
	}
	return build(), nil
}

// activations records Activator calls
type activations struct {
	journal
	fail map[string]error // "activate:name" -> error
}

func (a *activations) Activate(_ context.Context, n *RouteNode) error {
	a.add("activate:%s", n.Component)
	return a.fail["activate:"+n.Component]
}

func (a *activations) Deactivate(_ context.Context, n *RouteNode) error {
	a.add("deactivate:%s", n.Component)
	return a.fail["deactivate:"+n.Component]
}

// eventLog collects router events
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

func (l *eventLog) count(t EventType) int {
	n := 0
	for _, et := range l.types() {
		if et == t {
			n++
		}
	}
	return n
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter builds a router with a quiet logger and an event log
func newTestRouter(t *testing.T, res Resolver, act Activator, opts ...Option) (*Router, *eventLog) {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	r, err := NewRouter(res, act, opts...)
	require.NoError(t, err)

	events := &eventLog{}
	r.Subscribe(events.handle)
	return r, events
}

// single returns a builder func for a one-node tree
func single(component string, instance any) func() *TreeBuilder {
	return func() *TreeBuilder {
		return NewTree().Node(component).Instance(instance).Done()
	}
}
