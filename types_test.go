package routekit

import (
	"context"
	"errors"
	"testing"
)

func TestPhase_ReExports(t *testing.T) {
	// Verify constants are properly re-exported
	phases := map[Phase]string{
		PhaseCanUnload: "canUnload",
		PhaseCanLoad:   "canLoad",
		PhaseUnloading: "unloading",
		PhaseLoading:   "loading",
	}
	for p, want := range phases {
		if p.String() != want {
			t.Errorf("expected %q, got %q", want, p.String())
		}
	}
}

func TestDecision_Constructors(t *testing.T) {
	if !Continue().IsContinue() {
		t.Error("expected Continue to continue")
	}
	if Refuse().Kind != DecisionRefuse {
		t.Errorf("expected refuse, got %v", Refuse().Kind)
	}
	if d := RedirectTo("login"); d.Kind != DecisionRedirect || d.Target != "login" {
		t.Errorf("unexpected redirect decision %+v", d)
	}
	if !Allow(true).IsContinue() || Allow(false).IsContinue() {
		t.Error("Allow should map true to continue and false to refuse")
	}
}

func TestNewRouteNode_DefaultViewport(t *testing.T) {
	n := NewRouteNode("", "home", Params{"id": "1"}, nil)
	if n.Viewport != DefaultViewport {
		t.Errorf("expected viewport %q, got %q", DefaultViewport, n.Viewport)
	}
	if n.String() != "home(id=1)" {
		t.Errorf("unexpected node string %q", n.String())
	}
}

func TestActivatorFuncs(t *testing.T) {
	var nilFuncs ActivatorFuncs
	if err := nilFuncs.Activate(context.Background(), nil); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := nilFuncs.Deactivate(context.Background(), nil); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	boom := errors.New("boom")
	var activated string
	funcs := ActivatorFuncs{
		OnActivate: func(_ context.Context, n *RouteNode) error {
			activated = n.Component
			return nil
		},
		OnDeactivate: func(context.Context, *RouteNode) error { return boom },
	}
	if err := funcs.Activate(context.Background(), NewRouteNode("", "home", nil, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activated != "home" {
		t.Errorf("expected 'home' activated, got %q", activated)
	}
	if err := funcs.Deactivate(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("cause")

	rerr := &ResolutionError{Instruction: "home", Err: cause}
	if !errors.Is(rerr, cause) {
		t.Error("ResolutionError should unwrap to its cause")
	}
	if rerr.Error() != `routekit: resolve "home": cause` {
		t.Errorf("unexpected message %q", rerr.Error())
	}

	aerr := &ActivationError{Op: "activate", Node: "home@default", Err: cause}
	if !errors.Is(aerr, cause) {
		t.Error("ActivationError should unwrap to its cause")
	}
	if aerr.Error() != "routekit: activate home@default: cause" {
		t.Errorf("unexpected message %q", aerr.Error())
	}
}
