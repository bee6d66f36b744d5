package schedule

import (
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/felixgeelhaar/routekit/internal/ir"
)

// Kind is the aggregate decision of a phase
type Kind int

const (
	// Continue lets the transition proceed
	Continue Kind = iota
	// Cancel ends the transition without changes
	Cancel
	// Redirect ends the transition and starts a new one
	Redirect
	// Fail ends the transition because a hook failed
	Fail
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case Continue:
		return "continue"
	case Cancel:
		return "cancel"
	case Redirect:
		return "redirect"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome is the resolved decision of a phase
type Outcome struct {
	Kind     Kind
	Target   ir.Instruction // set for Redirect
	Err      error          // set for Fail
	Node     ir.NodeID      // node whose result decided the outcome
	Position int
}

// IsContinue reports whether the phase may be followed by the next one
func (o Outcome) IsContinue() bool {
	return o.Kind == Continue
}

// Resolve folds the results of a phase into one outcome. Failures win over
// everything and are aggregated. Otherwise the non-continue result with the
// lowest start position decides, regardless of completion order or kind.
func Resolve(results []Result) Outcome {
	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	var failed *multierror.Error
	var first *Result
	for i := range ordered {
		r := &ordered[i]
		if r.Err != nil {
			if failed == nil {
				first = r
			}
			failed = multierror.Append(failed, r.Err)
		}
	}
	if failed != nil {
		var err error = failed
		if len(failed.Errors) == 1 {
			err = failed.Errors[0]
		}
		return Outcome{Kind: Fail, Err: err, Node: first.Node, Position: first.Position}
	}

	for _, r := range ordered {
		if r.Decision.IsContinue() {
			continue
		}
		out := Outcome{Kind: Cancel, Node: r.Node, Position: r.Position}
		if r.Decision.Kind == ir.DecisionRedirect && r.Decision.Target != "" {
			out.Kind = Redirect
			out.Target = r.Decision.Target
		}
		return out
	}

	return Outcome{Kind: Continue, Position: -1}
}
