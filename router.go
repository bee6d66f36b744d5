package routekit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/felixgeelhaar/routekit/internal/hooks"
	"github.com/felixgeelhaar/routekit/internal/ir"
)

// Router runs navigations over a tree of routed components. At most one
// transition is active at a time; starting a navigation supersedes the
// active one.
type Router struct {
	resolver  Resolver
	activator Activator
	config    Config
	logger    *slog.Logger
	metrics   recorder
	events    *emitter

	hooksMu sync.RWMutex
	hooks   []hooks.Registered

	current atomic.Pointer[RouteTree]
	seq     atomic.Uint64

	mu     sync.Mutex
	active *Transition
	last   *Transition // most recently begun, settled or not
}

// Result describes how a navigation ended
type Result struct {
	// Outcome is the terminal state of the last transition in the redirect chain
	Outcome      TransitionState
	TransitionID uint64
	// Tree is the committed tree after the navigation settled
	Tree      *RouteTree
	Redirects []Instruction
	// Superseded is set when a newer navigation cancelled this one
	Superseded bool
}

// Committed reports whether the navigation committed a new tree
func (r *Result) Committed() bool {
	return r.Outcome == StateCommitted
}

type options struct {
	logger  *slog.Logger
	config  *Config
	hooks   []any
	initial *RouteTree
}

// Option configures a Router
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfig sets the router configuration
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = &c
	}
}

// WithHooks registers global hooks in the given order
func WithHooks(hs ...any) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hs...)
	}
}

// WithInitialTree sets the committed tree the router starts from. Its
// components are assumed to be active already.
func WithInitialTree(t *RouteTree) Option {
	return func(o *options) {
		o.initial = t
	}
}

// NewRouter creates a Router over a resolver and an activation pipeline
func NewRouter(resolver Resolver, activator Activator, opts ...Option) (*Router, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}
	if activator == nil {
		return nil, ErrNilActivator
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := DefaultConfig()
	if o.config != nil {
		cfg = *o.config
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("routekit: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "router")

	r := &Router{
		resolver:  resolver,
		activator: activator,
		config:    cfg,
		logger:    logger,
		metrics:   recorder{enabled: cfg.Metrics},
		events:    newEmitter(logger),
	}

	for _, h := range o.hooks {
		if err := r.AddHook(h); err != nil {
			return nil, err
		}
	}

	initial := o.initial
	if initial == nil {
		initial = ir.NewRouteTree()
	} else if verr := ir.Validate(initial); verr != nil {
		return nil, fmt.Errorf("routekit: initial tree: %w", verr)
	}
	r.current.Store(initial)

	return r, nil
}

// AddHook registers a global hook after all previously registered ones.
// The phases the hook takes part in are resolved here, once.
func (r *Router) AddHook(h any) error {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()

	reg, err := hooks.Register(h, len(r.hooks))
	if err != nil {
		return fmt.Errorf("routekit: %w", err)
	}
	r.hooks = append(r.hooks, reg)
	r.logger.Debug("hook registered", "hook", reg.Name, "order", reg.Order)
	return nil
}

// Current returns the committed route tree. The tree must not be mutated.
func (r *Router) Current() *RouteTree {
	return r.current.Load()
}

// Active returns the id of the running transition, if any
func (r *Router) Active() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return 0, false
	}
	return r.active.ID, true
}

// Subscribe registers an event handler for the given event types, or for all
// events when none are given. It returns the subscription id.
func (r *Router) Subscribe(handler EventHandler, types ...EventType) string {
	return r.events.subscribe(handler, types...)
}

// Unsubscribe removes a subscription. It reports whether the id was known.
func (r *Router) Unsubscribe(id string) bool {
	return r.events.unsubscribe(id)
}

// Load navigates to instruction. It returns true on commit and false when a
// hook refused or a newer navigation superseded this one. Redirects are
// followed transparently. Hook, activation and resolution failures, an
// exhausted redirect limit and a done ctx are returned as errors.
func (r *Router) Load(ctx context.Context, instruction Instruction) (bool, error) {
	res, err := r.Navigate(ctx, instruction)
	if err != nil {
		return false, err
	}
	return res.Committed(), nil
}

// Navigate is Load with the full result
func (r *Router) Navigate(ctx context.Context, instruction Instruction) (*Result, error) {
	if info, ok := TransitionFromContext(ctx); ok && info.owner == r {
		return nil, ErrReentrantNavigation
	}

	res := &Result{}
	next := instruction
	for {
		t, prev := r.begin(next, len(res.Redirects))
		if prev != nil {
			// The superseded transition rolls back before this one touches components
			select {
			case <-prev.Done():
			case <-ctx.Done():
				// Later navigations wait for prev through t
				t.after = prev.Done()
			}
		}

		v := r.execute(ctx, t)

		res.TransitionID = t.ID
		res.Outcome = v.state
		res.Superseded = v.superseded
		res.Tree = r.Current()

		switch v.state {
		case StateCommitted:
			return res, nil
		case StateRedirected:
			res.Redirects = append(res.Redirects, v.target)
			if len(res.Redirects) > r.config.MaxRedirects {
				err := fmt.Errorf("%w: %d redirects starting at %q", ErrRedirectLimit, r.config.MaxRedirects, string(instruction))
				r.logger.Warn("redirect limit exceeded", "instruction", string(instruction), "limit", r.config.MaxRedirects)
				r.events.emit(Event{
					Type:         EventNavigationError,
					TransitionID: t.ID,
					Instruction:  v.target,
					Err:          err,
				})
				res.Outcome = StateFailed
				return res, err
			}
			next = v.target
		default:
			return res, v.err
		}
	}
}

// begin makes a new transition the active one and cancels its predecessor.
// It returns the transition begun before t, which t must wait for even when
// that one is no longer active.
func (r *Router) begin(instruction Instruction, redirects int) (*Transition, *Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := newTransition(r.seq.Inc(), instruction, redirects, r.current.Load())
	if r.active != nil {
		r.active.cancel()
		r.logger.Debug("transition superseded", "transition", r.active.ID, "by", t.ID)
	}
	prev := r.last
	r.active = t
	r.last = t
	return t, prev
}

// commit swaps the committed tree if t is still the active transition
func (r *Router) commit(t *Transition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != t || t.Cancelled() {
		return false
	}
	if err := t.advance(StateCommitted); err != nil {
		r.logger.Error("commit refused", "transition", t.ID, "error", err)
		return false
	}
	r.current.Store(t.Target)
	return true
}

// execute runs one transition to its end and reports it
func (r *Router) execute(ctx context.Context, t *Transition) verdict {
	start := time.Now()
	ctx, span := startTransitionSpan(ctx, t)

	r.logger.Debug("transition started",
		"transition", t.ID,
		"instruction", string(t.Instruction),
		"redirects", t.Redirects)
	if !t.Cancelled() {
		r.events.emit(Event{Type: EventNavigationStart, TransitionID: t.ID, Instruction: t.Instruction})
	}

	v := newRunner(r, t, r.globals()).run(ctx)
	if v.state != StateCommitted && t.Cancelled() {
		// Superseded while deciding: whatever it decided is discarded
		v = verdict{state: StateCancelled, superseded: true}
	}

	r.settle(t, v)
	r.report(t, v)
	r.metrics.transition(v.state, time.Since(start))
	endSpan(span, v.err)

	t.finish()
	return v
}

func (r *Router) globals() []hooks.Registered {
	r.hooksMu.RLock()
	defer r.hooksMu.RUnlock()
	return append([]hooks.Registered(nil), r.hooks...)
}

// settle records the terminal state and releases the active slot
func (r *Router) settle(t *Transition, v verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.state != StateCommitted {
		if err := t.advance(v.state); err != nil {
			// Terminal states are reachable from every running state
			t.state.Store(int32(v.state))
		}
	}
	if r.active == t {
		r.active = nil
	}
}

func (r *Router) report(t *Transition, v verdict) {
	ev := Event{TransitionID: t.ID, Instruction: t.Instruction}
	switch {
	case v.superseded:
		r.logger.Debug("transition discarded", "transition", t.ID)
		return
	case v.state == StateCommitted:
		r.logger.Info("navigation committed", "transition", t.ID, "instruction", string(t.Instruction))
		ev.Type = EventNavigationEnd
	case v.state == StateRedirected:
		r.logger.Info("navigation redirected",
			"transition", t.ID,
			"instruction", string(t.Instruction),
			"target", string(v.target),
			"node", string(v.node))
		ev.Type = EventNavigationCancel
		ev.Redirect = v.target
	case v.state == StateCancelled:
		r.logger.Info("navigation cancelled",
			"transition", t.ID,
			"instruction", string(t.Instruction),
			"node", string(v.node))
		ev.Type = EventNavigationCancel
	default:
		r.logger.Error("navigation failed",
			"transition", t.ID,
			"instruction", string(t.Instruction),
			"error", v.err)
		ev.Type = EventNavigationError
		ev.Err = v.err
	}
	r.events.emit(ev)
}

// observe is called after every hook invocation
func (r *Router) observe(t *Transition, inv hooks.Invocation) {
	r.metrics.invocation(inv)
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	subject := inv.Entry.Target.Subject(inv.Entry.Phase)
	attrs := []any{
		"transition", t.ID,
		"phase", inv.Entry.Phase.String(),
		"hook", inv.Entry.OwnerName,
		"node", string(subject.ID),
		"decision", inv.Decision.String(),
		"duration", inv.Duration,
	}
	if inv.Err != nil {
		attrs = append(attrs, "error", inv.Err)
	}
	r.logger.Debug("hook invoked", attrs...)
}
