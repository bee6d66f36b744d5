package ir

import (
	"sort"
	"strings"
)

// Phase identifies one of the four hook phases of a navigation
type Phase int

const (
	// PhaseCanUnload asks outgoing components whether they may be removed
	PhaseCanUnload Phase = iota
	// PhaseCanLoad asks incoming components whether they may be added
	PhaseCanLoad
	// PhaseUnloading notifies outgoing components right before deactivation
	PhaseUnloading
	// PhaseLoading notifies incoming components right after activation
	PhaseLoading
)

// String returns the hook method name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseCanUnload:
		return "canUnload"
	case PhaseCanLoad:
		return "canLoad"
	case PhaseUnloading:
		return "unloading"
	case PhaseLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// IsGuard reports whether hooks of this phase may refuse or redirect
func (p Phase) IsGuard() bool {
	return p == PhaseCanUnload || p == PhaseCanLoad
}

// IsUnload reports whether the phase runs over outgoing nodes
func (p Phase) IsUnload() bool {
	return p == PhaseCanUnload || p == PhaseUnloading
}

// NodeID uniquely identifies a node within a route tree
type NodeID string

// Instruction is a navigation target understood by a route resolver
type Instruction string

// Params holds route parameters. A parameter that is declared but not
// provided is simply absent.
type Params map[string]string

// Get returns the value of a parameter and whether it is defined
func (p Params) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Equal reports whether both param sets hold the same keys and values
func (p Params) Equal(other Params) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns a copy of the params
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders params as k=v pairs sorted by key
func (p Params) String() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}

// DecisionKind classifies a guard hook result
type DecisionKind int

const (
	// DecisionContinue lets the navigation proceed
	DecisionContinue DecisionKind = iota
	// DecisionRefuse cancels the navigation
	DecisionRefuse
	// DecisionRedirect cancels the navigation and starts a new one
	DecisionRedirect
)

// String returns the string representation of DecisionKind
func (k DecisionKind) String() string {
	switch k {
	case DecisionContinue:
		return "continue"
	case DecisionRefuse:
		return "refuse"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of a guard hook
type Decision struct {
	Kind   DecisionKind
	Target Instruction // set when Kind is DecisionRedirect
}

// Continue returns a decision that lets the navigation proceed
func Continue() Decision {
	return Decision{Kind: DecisionContinue}
}

// Refuse returns a decision that cancels the navigation
func Refuse() Decision {
	return Decision{Kind: DecisionRefuse}
}

// RedirectTo returns a decision that replaces the navigation with target
func RedirectTo(target Instruction) Decision {
	return Decision{Kind: DecisionRedirect, Target: target}
}

// Allow maps a boolean guard answer onto Continue or Refuse
func Allow(ok bool) Decision {
	if ok {
		return Continue()
	}
	return Refuse()
}

// IsContinue reports whether the decision lets the navigation proceed
func (d Decision) IsContinue() bool {
	return d.Kind == DecisionContinue
}

// String returns a readable form of the decision
func (d Decision) String() string {
	if d.Kind == DecisionRedirect {
		return "redirect(" + string(d.Target) + ")"
	}
	return d.Kind.String()
}
