// Package hooks resolves and runs the ordered hook chain of one route node.
package hooks

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/routekit/internal/ir"
)

// ErrNoCapabilities is returned when a global hook implements no phase
var ErrNoCapabilities = errors.New("hook implements no lifecycle phase")

// Registered is a global hook with its capabilities resolved at registration
type Registered struct {
	Hook  any
	Name  string
	Caps  ir.Capabilities
	Order int // registration position, the only tie-break between hooks
}

// Register resolves the capabilities of a global hook
func Register(hook any, order int) (Registered, error) {
	caps := ir.HookCapabilities(hook)
	if caps.IsEmpty() {
		return Registered{}, fmt.Errorf("%w: %T", ErrNoCapabilities, hook)
	}
	return Registered{
		Hook:  hook,
		Name:  ownerName(hook),
		Caps:  caps,
		Order: order,
	}, nil
}

// Target is the node context a chain runs for. For unload phases Current is
// the outgoing node and Next its replacement (if any); for load phases Next
// is the incoming node and Current the node it replaces (if any).
type Target struct {
	Next    *ir.RouteNode
	Current *ir.RouteNode
}

// Subject returns the node whose component the phase applies to
func (t Target) Subject(phase ir.Phase) *ir.RouteNode {
	if phase.IsUnload() {
		return t.Current
	}
	return t.Next
}

// Entry is one callable hook of a chain
type Entry struct {
	Phase     ir.Phase
	Owner     any
	OwnerName string
	Global    bool
	Component any // instance handed to global hooks
	Target    Target
}

// Chain returns the ordered entries for a node and phase: global hooks that
// declare the phase in registration order, then the component's own hook.
// Owners that do not implement the phase contribute nothing.
func Chain(phase ir.Phase, globals []Registered, target Target) []Entry {
	subject := target.Subject(phase)
	if subject == nil {
		return nil
	}

	entries := make([]Entry, 0, len(globals)+1)
	for _, g := range globals {
		if !g.Caps.Has(phase) {
			continue
		}
		entries = append(entries, Entry{
			Phase:     phase,
			Owner:     g.Hook,
			OwnerName: g.Name,
			Global:    true,
			Component: subject.Instance,
			Target:    target,
		})
	}

	if subject.Capabilities().Has(phase) {
		entries = append(entries, Entry{
			Phase:     phase,
			Owner:     subject.Instance,
			OwnerName: subject.Component,
			Global:    false,
			Component: subject.Instance,
			Target:    target,
		})
	}

	return entries
}

func ownerName(owner any) string {
	if n, ok := owner.(ir.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", owner)
}
