package routekit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"

	"github.com/felixgeelhaar/routekit/internal/hooks"
	"github.com/felixgeelhaar/routekit/internal/ir"
	"github.com/felixgeelhaar/routekit/internal/schedule"
)

// TransitionState is the lifecycle state of a transition
type TransitionState int32

const (
	StateCreated TransitionState = iota
	StateCanUnload
	StateCanLoad
	StateActivation
	StateCommitted
	StateCancelled
	StateRedirected
	StateFailed
)

// String returns the string representation of TransitionState
func (s TransitionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateCanUnload:
		return "canUnload"
	case StateCanLoad:
		return "canLoad"
	case StateActivation:
		return "activation"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	case StateRedirected:
		return "redirected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state ends a transition
func (s TransitionState) IsTerminal() bool {
	return s >= StateCommitted
}

// stateEdges lists the legal state changes. Load depths alternate between
// canLoad and activation.
var stateEdges = map[TransitionState][]TransitionState{
	StateCreated:    {StateCanUnload, StateCancelled, StateFailed},
	StateCanUnload:  {StateCanLoad, StateCancelled, StateRedirected, StateFailed},
	StateCanLoad:    {StateActivation, StateCancelled, StateRedirected, StateFailed},
	StateActivation: {StateCanLoad, StateCommitted, StateCancelled, StateRedirected, StateFailed},
}

func canMove(from, to TransitionState) bool {
	for _, s := range stateEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition is one navigation attempt
type Transition struct {
	ID          uint64
	Instruction Instruction
	Redirects   int        // redirects that led to this transition
	Source      *RouteTree // committed tree when the transition started
	Target      *RouteTree // candidate tree, grows as residue resolves

	state     atomic.Int32
	cancelled atomic.Bool
	done      chan struct{}
	after     <-chan struct{} // predecessor this transition stopped waiting for
}

func newTransition(id uint64, instruction Instruction, redirects int, source *RouteTree) *Transition {
	return &Transition{
		ID:          id,
		Instruction: instruction,
		Redirects:   redirects,
		Source:      source,
		done:        make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (t *Transition) State() TransitionState {
	return TransitionState(t.state.Load())
}

// Cancelled reports whether the transition was superseded
func (t *Transition) Cancelled() bool {
	return t.cancelled.Load()
}

// Done is closed once the transition and every transition begun before it
// have settled
func (t *Transition) Done() <-chan struct{} {
	return t.done
}

// finish closes done, after the predecessor if t gave up waiting for it
func (t *Transition) finish() {
	if t.after == nil {
		close(t.done)
		return
	}
	go func() {
		<-t.after
		close(t.done)
	}()
}

func (t *Transition) cancel() {
	t.cancelled.Store(true)
}

func (t *Transition) advance(to TransitionState) error {
	from := t.State()
	if from == to {
		return nil
	}
	if !canMove(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
	t.state.Store(int32(to))
	return nil
}

// verdict is how a transition ended
type verdict struct {
	state      TransitionState
	target     Instruction // redirect target
	err        error
	node       NodeID // node whose hook decided
	superseded bool
}

func verdictOf(out schedule.Outcome) verdict {
	switch out.Kind {
	case schedule.Redirect:
		return verdict{state: StateRedirected, target: out.Target, node: out.Node}
	case schedule.Fail:
		return verdict{state: StateFailed, err: out.Err, node: out.Node}
	default:
		return verdict{state: StateCancelled, node: out.Node}
	}
}

func failed(err error) verdict {
	return verdict{state: StateFailed, err: err}
}

type removal struct {
	node  *RouteNode // in the source tree
	next  *RouteNode // counterpart in the target tree, if any
	depth int
}

type touched struct {
	node  *RouteNode
	depth int
}

// runner drives one transition through its phases
type runner struct {
	router    *Router
	t         *Transition
	globals   []hooks.Registered
	invoker   *hooks.Invoker
	scheduler *schedule.Scheduler

	removals []removal
	pairs    map[*RouteNode]*RouteNode // added target node -> source counterpart
	pending  map[int][]*RouteNode      // added target nodes by depth
	maxDepth int
	unloaded bool

	mu          sync.Mutex
	activated   []touched
	deactivated []touched
}

func newRunner(r *Router, t *Transition, globals []hooks.Registered) *runner {
	x := &runner{
		router:   r,
		t:        t,
		globals:  globals,
		pairs:    make(map[*RouteNode]*RouteNode),
		pending:  make(map[int][]*RouteNode),
		maxDepth: -1,
	}
	x.invoker = &hooks.Invoker{Observe: func(inv hooks.Invocation) { r.observe(t, inv) }}
	x.scheduler = &schedule.Scheduler{OnLevel: func(depth int, nodes []ir.NodeID) {
		r.logger.Debug("level started",
			"transition", t.ID,
			"depth", depth,
			"nodes", len(nodes))
	}}
	return x
}

func (x *runner) run(ctx context.Context) verdict {
	if v, stop := x.checkpoint(ctx); stop {
		return v
	}
	target, err := x.router.resolver.Resolve(ctx, x.t.Instruction)
	if err != nil {
		return failed(&ResolutionError{Instruction: x.t.Instruction, Err: err})
	}
	if verr := ir.Validate(target); verr != nil {
		return failed(&ResolutionError{Instruction: x.t.Instruction, Err: verr})
	}
	x.t.Target = target

	if err := x.diff(ctx); err != nil {
		return failed(err)
	}

	if v, stop := x.checkpoint(ctx); stop {
		return v
	}
	if err := x.t.advance(StateCanUnload); err != nil {
		return failed(err)
	}
	if out := x.canUnload(ctx); !out.IsContinue() {
		return verdictOf(out)
	}

	if err := x.t.advance(StateCanLoad); err != nil {
		return failed(err)
	}
	for depth := 0; depth <= x.maxDepth; depth++ {
		frontier := x.pending[depth]
		if len(frontier) == 0 {
			continue
		}
		if v, stop := x.checkpoint(ctx); stop {
			return x.abort(ctx, v)
		}
		if err := x.t.advance(StateCanLoad); err != nil {
			return x.abort(ctx, failed(err))
		}
		if out := x.canLoad(ctx, depth, frontier); !out.IsContinue() {
			return x.abort(ctx, verdictOf(out))
		}
		if v, stop := x.checkpoint(ctx); stop {
			return x.abort(ctx, v)
		}
		if err := x.t.advance(StateActivation); err != nil {
			return x.abort(ctx, failed(err))
		}
		if err := x.unload(ctx); err != nil {
			return x.abort(ctx, failed(err))
		}
		if err := x.load(ctx, depth, frontier); err != nil {
			return x.abort(ctx, failed(err))
		}
		if err := x.materialize(ctx, depth, frontier); err != nil {
			return x.abort(ctx, failed(err))
		}
	}

	// Pure removals and no-op navigations never entered activation
	if x.t.State() != StateActivation {
		if v, stop := x.checkpoint(ctx); stop {
			return x.abort(ctx, v)
		}
		if err := x.t.advance(StateActivation); err != nil {
			return x.abort(ctx, failed(err))
		}
		if err := x.unload(ctx); err != nil {
			return x.abort(ctx, failed(err))
		}
	}

	if !x.router.commit(x.t) {
		return x.abort(ctx, verdict{state: StateCancelled, superseded: true})
	}
	return verdict{state: StateCommitted}
}

// checkpoint reports whether the transition must stop at a phase boundary
func (x *runner) checkpoint(ctx context.Context) (verdict, bool) {
	if x.t.Cancelled() {
		return verdict{state: StateCancelled, superseded: true}, true
	}
	if err := ctx.Err(); err != nil {
		return verdict{state: StateCancelled, err: err}, true
	}
	return verdict{}, false
}

// diff pairs source and target nodes viewport by viewport. Nodes routing the
// same component with the same params are unchanged: the target node adopts
// the source instance and the comparison descends. Everything else is a
// removal of the source subtree and an addition of the target subtree.
func (x *runner) diff(ctx context.Context) error {
	if err := x.diffLevel(ctx, "", "", 0); err != nil {
		return err
	}

	srcOrder := preorder(x.t.Source)
	sort.SliceStable(x.removals, func(i, j int) bool {
		return srcOrder[x.removals[i].node.ID] < srcOrder[x.removals[j].node.ID]
	})
	for depth := range x.pending {
		x.sortPending(depth)
	}
	return nil
}

func (x *runner) diffLevel(ctx context.Context, srcParent, tgtParent NodeID, depth int) error {
	src, tgt := x.t.Source, x.t.Target

	olds := src.ChildNodes(srcParent)
	news := tgt.ChildNodes(tgtParent)

	oldByViewport := make(map[string]*RouteNode, len(olds))
	for _, o := range olds {
		oldByViewport[o.Viewport] = o
	}
	newByViewport := make(map[string]*RouteNode, len(news))
	for _, n := range news {
		newByViewport[n.Viewport] = n
	}

	for _, o := range olds {
		if n := newByViewport[o.Viewport]; n != nil && o.SameContent(n) {
			continue
		}
		x.remove(o, newByViewport[o.Viewport], depth)
	}

	for _, n := range news {
		o := oldByViewport[n.Viewport]
		if o == nil || !o.SameContent(n) {
			x.add(n, o, depth)
			continue
		}

		n.WithInstance(o.Instance)
		if n.HasResidue() {
			// The component is already loaded, so its child routes are available now
			if err := x.attachResidue(ctx, n); err != nil {
				return err
			}
		}
		if err := x.diffLevel(ctx, o.ID, n.ID, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// remove records o and its descendants as removed, pairing children with
// the counterpart's children on the same viewport
func (x *runner) remove(o, counterpart *RouteNode, depth int) {
	x.removals = append(x.removals, removal{node: o, next: counterpart, depth: depth})
	for _, c := range x.t.Source.ChildNodes(o.ID) {
		var cc *RouteNode
		if counterpart != nil {
			cc = x.t.Target.ChildAt(counterpart.ID, c.Viewport)
		}
		x.remove(c, cc, depth+1)
	}
}

// add records n and its resolved descendants as pending load
func (x *runner) add(n, counterpart *RouteNode, depth int) {
	x.pairs[n] = counterpart
	x.pending[depth] = append(x.pending[depth], n)
	if depth > x.maxDepth {
		x.maxDepth = depth
	}
	for _, c := range x.t.Target.ChildNodes(n.ID) {
		x.add(c, x.sourceChild(counterpart, c.Viewport), depth+1)
	}
}

func (x *runner) sourceChild(parent *RouteNode, viewport string) *RouteNode {
	if parent == nil {
		return nil
	}
	return x.t.Source.ChildAt(parent.ID, viewport)
}

func (x *runner) sortPending(depth int) {
	order := preorder(x.t.Target)
	nodes := x.pending[depth]
	sort.SliceStable(nodes, func(i, j int) bool {
		return order[nodes[i].ID] < order[nodes[j].ID]
	})
}

// attachResidue resolves the child routes of n into the target tree
func (x *runner) attachResidue(ctx context.Context, n *RouteNode) error {
	children, err := x.router.resolver.ResolveResidue(ctx, n)
	if err != nil {
		return &ResolutionError{Instruction: n.Residue, Err: err}
	}
	n.Residue = ""
	for _, c := range children {
		if err := x.t.Target.AddChild(n.ID, c); err != nil {
			return &ResolutionError{Instruction: x.t.Instruction, Err: err}
		}
	}
	return nil
}

func (x *runner) hookContext(ctx context.Context, phase Phase) context.Context {
	return withTransition(ctx, TransitionInfo{
		ID:          x.t.ID,
		Instruction: x.t.Instruction,
		Phase:       phase,
		Redirects:   x.t.Redirects,
		owner:       x.router,
	})
}

func (x *runner) guard(phase Phase, node *RouteNode, target hooks.Target, depth int) schedule.Task {
	entries := hooks.Chain(phase, x.globals, target)
	return schedule.Task{
		Node:  node.ID,
		Depth: depth,
		Run: func(ctx context.Context) hooks.Result {
			return x.invoker.Invoke(ctx, entries)
		},
	}
}

// canUnload asks every removed node, deepest first. A depth that produced a
// non-continue result ends the phase.
func (x *runner) canUnload(ctx context.Context) schedule.Outcome {
	tasks := make([]schedule.Task, 0, len(x.removals))
	for _, r := range x.removals {
		tasks = append(tasks, x.guard(PhaseCanUnload, r.node, hooks.Target{Current: r.node, Next: r.next}, r.depth))
	}

	ctx, span := startPhaseSpan(ctx, PhaseCanUnload, -1, len(tasks))
	results := x.scheduler.Run(x.hookContext(ctx, PhaseCanUnload), tasks, schedule.LeafFirst, true)
	out := schedule.Resolve(results)
	endSpan(span, out.Err)
	return out
}

// canLoad asks every pending node of one depth concurrently
func (x *runner) canLoad(ctx context.Context, depth int, frontier []*RouteNode) schedule.Outcome {
	tasks := make([]schedule.Task, 0, len(frontier))
	for _, n := range frontier {
		tasks = append(tasks, x.guard(PhaseCanLoad, n, hooks.Target{Next: n, Current: x.pairs[n]}, depth))
	}

	ctx, span := startPhaseSpan(ctx, PhaseCanLoad, depth, len(tasks))
	results := x.scheduler.RunLevel(x.hookContext(ctx, PhaseCanLoad), tasks, 0)
	out := schedule.Resolve(results)
	endSpan(span, out.Err)
	return out
}

// unload runs unloading and deactivation over every removed node, deepest
// first, once per transition
func (x *runner) unload(ctx context.Context) error {
	if x.unloaded {
		return nil
	}
	x.unloaded = true
	if len(x.removals) == 0 {
		return nil
	}

	tasks := make([]schedule.Task, 0, len(x.removals))
	for _, r := range x.removals {
		entries := hooks.Chain(PhaseUnloading, x.globals, hooks.Target{Current: r.node, Next: r.next})
		tasks = append(tasks, schedule.Task{
			Node:  r.node.ID,
			Depth: r.depth,
			Run: func(ctx context.Context) hooks.Result {
				res := x.invoker.Invoke(ctx, entries)
				if res.Err != nil {
					return res
				}
				if err := x.router.activator.Deactivate(ctx, r.node); err != nil {
					return hooks.Result{Err: &ActivationError{Op: "deactivate", Node: r.node.ID, Err: err}, Index: -1}
				}
				x.record(&x.deactivated, r.node, r.depth)
				return res
			},
		})
	}

	ctx, span := startPhaseSpan(ctx, PhaseUnloading, -1, len(tasks))
	results := x.scheduler.Run(x.hookContext(ctx, PhaseUnloading), tasks, schedule.LeafFirst, true)
	out := schedule.Resolve(results)
	endSpan(span, out.Err)
	return out.Err
}

// load activates the pending nodes of one depth and runs their loading hooks
func (x *runner) load(ctx context.Context, depth int, frontier []*RouteNode) error {
	tasks := make([]schedule.Task, 0, len(frontier))
	for _, n := range frontier {
		entries := hooks.Chain(PhaseLoading, x.globals, hooks.Target{Next: n, Current: x.pairs[n]})
		tasks = append(tasks, schedule.Task{
			Node:  n.ID,
			Depth: depth,
			Run: func(ctx context.Context) hooks.Result {
				if err := x.router.activator.Activate(ctx, n); err != nil {
					return hooks.Result{Err: &ActivationError{Op: "activate", Node: n.ID, Err: err}, Index: -1}
				}
				x.record(&x.activated, n, depth)
				return x.invoker.Invoke(ctx, entries)
			},
		})
	}

	ctx, span := startPhaseSpan(ctx, PhaseLoading, depth, len(tasks))
	results := x.scheduler.RunLevel(x.hookContext(ctx, PhaseLoading), tasks, 0)
	out := schedule.Resolve(results)
	endSpan(span, out.Err)
	return out.Err
}

// materialize resolves the residue of freshly loaded nodes; the resolved
// children join the next depth
func (x *runner) materialize(ctx context.Context, depth int, frontier []*RouteNode) error {
	grew := false
	for _, n := range frontier {
		if !n.HasResidue() {
			continue
		}
		if err := x.attachResidue(ctx, n); err != nil {
			return err
		}
		for _, c := range x.t.Target.ChildNodes(n.ID) {
			x.add(c, x.sourceChild(x.pairs[n], c.Viewport), depth+1)
			grew = true
		}
	}
	if grew {
		x.sortPending(depth + 1)
	}
	return nil
}

func (x *runner) record(list *[]touched, n *RouteNode, depth int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	*list = append(*list, touched{node: n, depth: depth})
}

// abort undoes the activation work of this transition. Nodes it activated
// are deactivated deepest first, then removed nodes it deactivated are
// activated again shallowest first. Hooks are not run.
func (x *runner) abort(ctx context.Context, v verdict) verdict {
	if len(x.activated) == 0 && len(x.deactivated) == 0 {
		return v
	}
	// Rollback must run even when the caller's context is done
	ctx = context.WithoutCancel(ctx)

	activated := append([]touched(nil), x.activated...)
	sort.SliceStable(activated, func(i, j int) bool { return activated[i].depth > activated[j].depth })
	deactivated := append([]touched(nil), x.deactivated...)
	sort.SliceStable(deactivated, func(i, j int) bool { return deactivated[i].depth < deactivated[j].depth })

	var errs *multierror.Error
	for _, a := range activated {
		if err := x.router.activator.Deactivate(ctx, a.node); err != nil {
			errs = multierror.Append(errs, &ActivationError{Op: "deactivate", Node: a.node.ID, Err: err})
		}
	}
	for _, d := range deactivated {
		if err := x.router.activator.Activate(ctx, d.node); err != nil {
			errs = multierror.Append(errs, &ActivationError{Op: "activate", Node: d.node.ID, Err: err})
		}
	}

	x.router.logger.Debug("transition rolled back",
		"transition", x.t.ID,
		"deactivated", len(activated),
		"reactivated", len(deactivated))

	if err := errs.ErrorOrNil(); err != nil {
		if v.state == StateFailed {
			v.err = multierror.Append(v.err, err)
		} else {
			x.router.logger.Error("rollback failed", "transition", x.t.ID, "error", err)
		}
	}
	return v
}

// preorder numbers the nodes of a tree in traversal order
func preorder(t *RouteTree) map[NodeID]int {
	order := make(map[NodeID]int, t.Len())
	i := 0
	t.Walk(func(n *RouteNode, _ int) bool {
		order[n.ID] = i
		i++
		return true
	})
	return order
}
