package ir

import (
	"fmt"
	"strings"
)

// DefaultViewport is the viewport name used when none is given
const DefaultViewport = "default"

// RouteNode represents one routed component in a route tree
type RouteNode struct {
	ID        NodeID
	Parent    NodeID      // Parent node ID (empty for root nodes)
	Viewport  string      // Named slot the component occupies
	Component string      // Component name
	Params    Params      // Route parameters
	Instance  any         // Component instance, may be nil
	Children  []NodeID    // Child node IDs in viewport order
	Residue   Instruction // Unresolved child instruction, resolved after loading
	Route     any         // Route configuration owned by the resolver

	caps Capabilities
}

// RouteTree is an ordered mapping from root viewport to root node. A tree
// that has been committed is never mutated.
type RouteTree struct {
	Roots []NodeID
	Nodes map[NodeID]*RouteNode
}

// NewRouteTree creates an empty RouteTree with initialized maps
func NewRouteTree() *RouteTree {
	return &RouteTree{
		Roots: nil,
		Nodes: make(map[NodeID]*RouteNode),
	}
}

// NewRouteNode creates a detached RouteNode. Component capabilities are
// resolved here, once, rather than on every hook invocation.
func NewRouteNode(viewport, component string, params Params, instance any) *RouteNode {
	if viewport == "" {
		viewport = DefaultViewport
	}
	return &RouteNode{
		Viewport:  viewport,
		Component: component,
		Params:    params.Clone(),
		Instance:  instance,
		caps:      ComponentCapabilities(instance),
	}
}

// MakeNodeID derives the ID of a node from its parent and position
func MakeNodeID(parent NodeID, viewport, component string) NodeID {
	segment := component + "@" + viewport
	if parent == "" {
		return NodeID(segment)
	}
	return NodeID(string(parent) + "/" + segment)
}

// Capabilities returns the phases the node's instance implements
func (n *RouteNode) Capabilities() Capabilities {
	return n.caps
}

// IsRoot returns true if the node has no parent
func (n *RouteNode) IsRoot() bool {
	return n.Parent == ""
}

// HasResidue returns true if the node's children are not yet resolved
func (n *RouteNode) HasResidue() bool {
	return n.Residue != ""
}

// SameContent reports whether two nodes route the same component with the
// same params in the same viewport
func (n *RouteNode) SameContent(other *RouteNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Viewport == other.Viewport &&
		n.Component == other.Component &&
		n.Params.Equal(other.Params)
}

// Detach returns a copy of the node without tree links. The instance is shared.
func (n *RouteNode) Detach() *RouteNode {
	return &RouteNode{
		Viewport:  n.Viewport,
		Component: n.Component,
		Params:    n.Params.Clone(),
		Instance:  n.Instance,
		Residue:   n.Residue,
		Route:     n.Route,
		caps:      n.caps,
	}
}

// WithInstance replaces the instance of a detached node and re-resolves capabilities
func (n *RouteNode) WithInstance(instance any) *RouteNode {
	n.Instance = instance
	n.caps = ComponentCapabilities(instance)
	return n
}

// String renders the node as component(params)@viewport
func (n *RouteNode) String() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(n.Component)
	if len(n.Params) > 0 {
		b.WriteByte('(')
		b.WriteString(n.Params.String())
		b.WriteByte(')')
	}
	if n.Viewport != DefaultViewport {
		b.WriteByte('@')
		b.WriteString(n.Viewport)
	}
	return b.String()
}

// AddRoot attaches a root node in the next viewport position
func (t *RouteTree) AddRoot(n *RouteNode) error {
	if t.Root(n.Viewport) != nil {
		return fmt.Errorf("viewport %q already occupied at root", n.Viewport)
	}
	n.Parent = ""
	n.ID = MakeNodeID("", n.Viewport, n.Component)
	n.Children = nil
	t.Nodes[n.ID] = n
	t.Roots = append(t.Roots, n.ID)
	return nil
}

// AddChild attaches n as the last child of parent
func (t *RouteTree) AddChild(parent NodeID, n *RouteNode) error {
	p := t.GetNode(parent)
	if p == nil {
		return fmt.Errorf("parent node %q not found", parent)
	}
	if t.ChildAt(parent, n.Viewport) != nil {
		return fmt.Errorf("viewport %q already occupied under %q", n.Viewport, parent)
	}
	n.Parent = parent
	n.ID = MakeNodeID(parent, n.Viewport, n.Component)
	n.Children = nil
	t.Nodes[n.ID] = n
	p.Children = append(p.Children, n.ID)
	return nil
}

// GetNode returns the node for the given ID, or nil if not found
func (t *RouteTree) GetNode(id NodeID) *RouteNode {
	if t == nil {
		return nil
	}
	return t.Nodes[id]
}

// Root returns the root node occupying viewport, or nil
func (t *RouteTree) Root(viewport string) *RouteNode {
	if t == nil {
		return nil
	}
	for _, id := range t.Roots {
		if n := t.Nodes[id]; n != nil && n.Viewport == viewport {
			return n
		}
	}
	return nil
}

// ChildAt returns the child of parent occupying viewport, or nil
func (t *RouteTree) ChildAt(parent NodeID, viewport string) *RouteNode {
	p := t.GetNode(parent)
	if p == nil {
		return nil
	}
	for _, id := range p.Children {
		if n := t.Nodes[id]; n != nil && n.Viewport == viewport {
			return n
		}
	}
	return nil
}

// ChildNodes returns the children of a node, or the roots for an empty ID
func (t *RouteTree) ChildNodes(parent NodeID) []*RouteNode {
	var ids []NodeID
	if parent == "" {
		ids = t.Roots
	} else if p := t.GetNode(parent); p != nil {
		ids = p.Children
	}
	out := make([]*RouteNode, 0, len(ids))
	for _, id := range ids {
		if n := t.Nodes[id]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes in the tree
func (t *RouteTree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Nodes)
}

// GetAncestors returns all ancestor node IDs from immediate parent to root
func (t *RouteTree) GetAncestors(id NodeID) []NodeID {
	var ancestors []NodeID
	current := t.GetNode(id)
	for current != nil && current.Parent != "" {
		ancestors = append(ancestors, current.Parent)
		current = t.GetNode(current.Parent)
	}
	return ancestors
}

// GetPath returns the full path from root to the given node
func (t *RouteTree) GetPath(id NodeID) []NodeID {
	ancestors := t.GetAncestors(id)
	// Reverse to get root-to-leaf order
	path := make([]NodeID, len(ancestors)+1)
	for i, a := range ancestors {
		path[len(ancestors)-1-i] = a
	}
	path[len(path)-1] = id
	return path
}

// Depth returns the distance of a node from the root level (roots are 0)
func (t *RouteTree) Depth(id NodeID) int {
	return len(t.GetAncestors(id))
}

// IsDescendantOf checks if id is a descendant of ancestor
func (t *RouteTree) IsDescendantOf(id, ancestor NodeID) bool {
	for _, a := range t.GetAncestors(id) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Walk visits every node in pre-order, roots and siblings in viewport order.
// Returning false from fn skips the node's descendants.
func (t *RouteTree) Walk(fn func(n *RouteNode, depth int) bool) {
	if t == nil {
		return
	}
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := t.Nodes[id]
		if n == nil {
			return
		}
		if !fn(n, depth) {
			return
		}
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	for _, root := range t.Roots {
		visit(root, 0)
	}
}

// Subtree returns the node and all its descendants in pre-order
func (t *RouteTree) Subtree(id NodeID) []*RouteNode {
	var out []*RouteNode
	var visit func(id NodeID)
	visit = func(id NodeID) {
		n := t.GetNode(id)
		if n == nil {
			return
		}
		out = append(out, n)
		for _, child := range n.Children {
			visit(child)
		}
	}
	visit(id)
	return out
}

// ContentEqual reports whether two trees route the same components with the
// same params into the same viewports. Instances are not compared.
func (t *RouteTree) ContentEqual(other *RouteTree) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t.Len() == 0 {
		return true
	}
	var equal func(a, b []*RouteNode) bool
	equal = func(a, b []*RouteNode) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].SameContent(b[i]) || a[i].Residue != b[i].Residue {
				return false
			}
			if !equal(t.ChildNodes(a[i].ID), other.ChildNodes(b[i].ID)) {
				return false
			}
		}
		return true
	}
	return equal(t.ChildNodes(""), other.ChildNodes(""))
}

// Clone returns a structural copy of the tree sharing component instances
func (t *RouteTree) Clone() *RouteTree {
	out := NewRouteTree()
	if t == nil {
		return out
	}
	out.Roots = append([]NodeID(nil), t.Roots...)
	for id, n := range t.Nodes {
		c := n.Detach()
		c.ID = n.ID
		c.Parent = n.Parent
		c.Children = append([]NodeID(nil), n.Children...)
		out.Nodes[id] = c
	}
	return out
}

// String renders the tree in instruction form: siblings joined by '+',
// children after '/', several children grouped in parentheses
func (t *RouteTree) String() string {
	if t == nil {
		return ""
	}
	var render func(nodes []*RouteNode) string
	render = func(nodes []*RouteNode) string {
		parts := make([]string, 0, len(nodes))
		for _, n := range nodes {
			s := n.String()
			children := t.ChildNodes(n.ID)
			switch {
			case len(children) == 1:
				s += "/" + render(children)
			case len(children) > 1:
				s += "/(" + render(children) + ")"
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "+")
	}
	return render(t.ChildNodes(""))
}
