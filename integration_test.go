package routekit_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/routekit"
	"github.com/felixgeelhaar/routekit/resolve"
)

const tableYAML = `
default: start
routes:
  - name: start
  - name: p-1
    children:
      - name: c-1
      - name: c-2
  - name: mail
    lazy: true
`

// redirector sends every navigation that reaches it somewhere else
type redirector struct {
	target routekit.Instruction
}

func (r redirector) CanLoad(context.Context, *routekit.RouteNode, *routekit.RouteNode) (routekit.Decision, error) {
	return routekit.RedirectTo(r.target), nil
}

// mailbox declares its child routes once loaded
type mailbox struct{}

func (mailbox) ChildRoutes() []*resolve.RouteConfig {
	return []*resolve.RouteConfig{
		{Name: "inbox"},
		{Name: "outbox", Params: []string{"page"}},
	}
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) activator() routekit.Activator {
	add := func(op string) func(context.Context, *routekit.RouteNode) error {
		return func(_ context.Context, n *routekit.RouteNode) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, op+":"+n.String())
			return nil
		}
	}
	return routekit.ActivatorFuncs{OnActivate: add("activate"), OnDeactivate: add("deactivate")}
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

func newRouter(t *testing.T, rec *recorder) (*routekit.Router, *resolve.Resolver) {
	t.Helper()
	table, err := resolve.LoadTable(strings.NewReader(tableYAML))
	require.NoError(t, err)
	res, err := resolve.New(table)
	require.NoError(t, err)

	res.Instance("start", redirector{target: "p-1/c-2"}).
		Instance("mail", mailbox{})

	r, err := routekit.NewRouter(res, rec.activator(),
		routekit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return r, res
}

func TestRouter_RedirectFromComponent(t *testing.T) {
	rec := &recorder{}
	r, _ := newRouter(t, rec)

	var cancels, failures int
	r.Subscribe(func(ev routekit.Event) {
		switch ev.Type {
		case routekit.EventNavigationCancel:
			cancels++
		case routekit.EventNavigationError:
			failures++
		}
	})

	ok, err := r.Load(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, cancels)
	assert.Zero(t, failures)
	assert.Equal(t, "p-1/c-2", r.Current().String())
	assert.Equal(t, []string{"activate:p-1", "activate:c-2"}, rec.take())
}

func TestRouter_ChildRoutesFromComponent(t *testing.T) {
	rec := &recorder{}
	r, _ := newRouter(t, rec)
	ctx := context.Background()

	ok, err := r.Load(ctx, "mail/outbox(3)")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mail/outbox(page=3)", r.Current().String())
	assert.Equal(t, []string{"activate:mail", "activate:outbox(page=3)"}, rec.take())

	ok, err = r.Load(ctx, "mail/inbox")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mail/inbox", r.Current().String())
	assert.Equal(t, []string{"deactivate:outbox(page=3)", "activate:inbox"}, rec.take())
}

func TestRouter_UnknownChildRoute(t *testing.T) {
	rec := &recorder{}
	r, _ := newRouter(t, rec)

	ok, err := r.Load(context.Background(), "mail/drafts")
	assert.False(t, ok)
	require.ErrorIs(t, err, routekit.ErrUnknownRoute)

	var rerr *routekit.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, routekit.Instruction("drafts"), rerr.Instruction)

	// mail was activated before its children failed to resolve
	assert.Equal(t, []string{"activate:mail", "deactivate:mail"}, rec.take())
	assert.Zero(t, r.Current().Len())
}
