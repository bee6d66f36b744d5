package resolve

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/felixgeelhaar/routekit"
	"github.com/felixgeelhaar/routekit/internal/parser"
)

// Factory creates the component instance for a resolved route
type Factory func(route *RouteConfig, params routekit.Params) any

// RouteProvider is implemented by components that declare their child
// routes themselves. The routes are only consulted once the component has
// loaded, so children of such a component always resolve lazily.
type RouteProvider interface {
	ChildRoutes() []*RouteConfig
}

// Resolver resolves instructions against a route table
type Resolver struct {
	table *Table

	mu        sync.RWMutex
	factories map[string]Factory
}

var _ routekit.Resolver = (*Resolver)(nil)

// New creates a Resolver over a validated table
func New(table *Table) (*Resolver, error) {
	if table == nil {
		return nil, fmt.Errorf("route table is nil")
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{
		table:     table,
		factories: make(map[string]Factory),
	}, nil
}

// Register sets the factory for a component name.
// Returns the resolver for method chaining.
func (r *Resolver) Register(component string, f Factory) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[component] = f
	return r
}

// Instance registers a factory that always returns v
func (r *Resolver) Instance(component string, v any) *Resolver {
	return r.Register(component, func(*RouteConfig, routekit.Params) any { return v })
}

// Table returns the route table
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve builds the route tree for an instruction. Children of lazy routes,
// and of routes without static children, are left as node residue.
func (r *Resolver) Resolve(ctx context.Context, instruction routekit.Instruction) (*routekit.RouteTree, error) {
	text := string(instruction)
	if text == "" {
		text = r.table.Default
	}

	segments, err := parser.ParseInstruction(text)
	if err != nil {
		return nil, err
	}

	tree := routekit.NewRouteTree()
	for _, seg := range segments {
		route := r.table.Find(seg.Name)
		if route == nil {
			return nil, fmt.Errorf("%w: %q", routekit.ErrUnknownRoute, seg.Name)
		}
		node, err := r.node(route, seg)
		if err != nil {
			return nil, err
		}
		if err := tree.AddRoot(node); err != nil {
			return nil, err
		}
		if err := r.children(ctx, tree, node, route, seg); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// ResolveResidue resolves the deferred children of a loaded node
func (r *Resolver) ResolveResidue(ctx context.Context, node *routekit.RouteNode) ([]*routekit.RouteNode, error) {
	segments, err := parser.ParseInstruction(string(node.Residue))
	if err != nil {
		return nil, err
	}

	routes := r.childRoutes(node)
	out := make([]*routekit.RouteNode, 0, len(segments))
	for _, seg := range segments {
		route := find(routes, seg.Name)
		if route == nil {
			return nil, fmt.Errorf("%w: %q under %s", routekit.ErrUnknownRoute, seg.Name, node.ID)
		}
		child, err := r.node(route, seg)
		if err != nil {
			return nil, err
		}
		// Grandchildren wait for the child to load in turn
		child.Residue = routekit.Instruction(parser.Format(r.childSegments(route, seg)))
		out = append(out, child)
	}
	return out, nil
}

// childRoutes returns the routes a node's residue resolves against: the
// component's own routes if it provides any, else the static children
func (r *Resolver) childRoutes(node *routekit.RouteNode) []*RouteConfig {
	if p, ok := node.Instance.(RouteProvider); ok {
		return p.ChildRoutes()
	}
	if route, ok := node.Route.(*RouteConfig); ok {
		return route.Children
	}
	return nil
}

// children attaches the child segments of seg under node, or defers them
func (r *Resolver) children(ctx context.Context, tree *routekit.RouteTree, node *routekit.RouteNode, route *RouteConfig, seg *parser.Segment) error {
	segments := r.childSegments(route, seg)
	if len(segments) == 0 {
		return nil
	}
	if route.Lazy || len(route.Children) == 0 {
		node.Residue = routekit.Instruction(parser.Format(segments))
		return nil
	}

	for _, cs := range segments {
		child := route.Child(cs.Name)
		if child == nil {
			return fmt.Errorf("%w: %q under %s", routekit.ErrUnknownRoute, cs.Name, node.ID)
		}
		cn, err := r.node(child, cs)
		if err != nil {
			return err
		}
		if err := tree.AddChild(node.ID, cn); err != nil {
			return err
		}
		if err := r.children(ctx, tree, cn, child, cs); err != nil {
			return err
		}
	}
	return nil
}

// childSegments returns the explicit children of seg, or the route default
func (r *Resolver) childSegments(route *RouteConfig, seg *parser.Segment) []*parser.Segment {
	if len(seg.Children) > 0 || route.Default == "" {
		return seg.Children
	}
	// Default was validated with the table
	segments, _ := parser.ParseInstruction(route.Default)
	return segments
}

// node creates the detached node for one segment
func (r *Resolver) node(route *RouteConfig, seg *parser.Segment) (*routekit.RouteNode, error) {
	params, err := bindParams(route, seg.Params)
	if err != nil {
		return nil, err
	}

	viewport := seg.Viewport
	if viewport == "" {
		viewport = route.Viewport
	}

	r.mu.RLock()
	factory := r.factories[route.ComponentName()]
	r.mu.RUnlock()

	var instance any
	if factory != nil {
		instance = factory(route, params)
	}

	node := routekit.NewRouteNode(viewport, route.ComponentName(), params, instance)
	node.Route = route
	return node, nil
}

// bindParams maps positional params onto declared names and rejects
// undeclared ones. Routes that declare no params accept any named param.
func bindParams(route *RouteConfig, raw map[string]string) (routekit.Params, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	declared := make(map[string]bool, len(route.Params))
	for _, p := range route.Params {
		declared[p] = true
	}

	params := make(routekit.Params, len(raw))
	for k, v := range raw {
		if i, err := strconv.Atoi(k); err == nil {
			if i >= len(route.Params) {
				return nil, fmt.Errorf("route %q: positional param %d not declared", route.Name, i)
			}
			k = route.Params[i]
		} else if len(declared) > 0 && !declared[k] {
			return nil, fmt.Errorf("route %q: unknown param %q", route.Name, k)
		}
		params[k] = v
	}
	return params, nil
}
