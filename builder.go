package routekit

import (
	"github.com/felixgeelhaar/routekit/internal/ir"
)

// TreeBuilder provides a fluent API for constructing route trees
type TreeBuilder struct {
	roots []*NodeBuilder
}

// NodeBuilder provides a fluent API for constructing one route node
type NodeBuilder struct {
	tree      *TreeBuilder
	parent    *NodeBuilder // Parent node for nested nodes
	viewport  string
	component string
	params    Params
	instance  any
	residue   Instruction
	children  []*NodeBuilder
}

// NewTree creates a new TreeBuilder
func NewTree() *TreeBuilder {
	return &TreeBuilder{}
}

// Node starts building a root node for component in the default viewport
func (b *TreeBuilder) Node(component string) *NodeBuilder {
	nb := &NodeBuilder{
		tree:      b,
		component: component,
	}
	b.roots = append(b.roots, nb)
	return nb
}

// Build constructs the route tree and validates it
func (b *TreeBuilder) Build() (*RouteTree, error) {
	tree := ir.NewRouteTree()
	for _, nb := range b.roots {
		n := nb.node()
		if err := tree.AddRoot(n); err != nil {
			return nil, err
		}
		if err := buildChildren(tree, n.ID, nb); err != nil {
			return nil, err
		}
	}

	if err := ir.Validate(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// MustBuild is Build that panics on error
func (b *TreeBuilder) MustBuild() *RouteTree {
	tree, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tree
}

// buildChildren attaches the children of nb below parent
func buildChildren(tree *RouteTree, parent NodeID, nb *NodeBuilder) error {
	for _, cb := range nb.children {
		c := cb.node()
		if err := tree.AddChild(parent, c); err != nil {
			return err
		}
		if err := buildChildren(tree, c.ID, cb); err != nil {
			return err
		}
	}
	return nil
}

func (b *NodeBuilder) node() *RouteNode {
	n := ir.NewRouteNode(b.viewport, b.component, b.params, b.instance)
	n.Residue = b.residue
	return n
}

// --- NodeBuilder methods ---

// In places the node in a named viewport
func (b *NodeBuilder) In(viewport string) *NodeBuilder {
	b.viewport = viewport
	return b
}

// Param sets a route parameter
func (b *NodeBuilder) Param(name, value string) *NodeBuilder {
	if b.params == nil {
		b.params = make(Params)
	}
	b.params[name] = value
	return b
}

// Instance sets the component instance
func (b *NodeBuilder) Instance(v any) *NodeBuilder {
	b.instance = v
	return b
}

// Residue sets the child instruction resolved after the component loads
func (b *NodeBuilder) Residue(instruction Instruction) *NodeBuilder {
	b.residue = instruction
	return b
}

// Child starts building a nested child node in the default viewport
func (b *NodeBuilder) Child(component string) *NodeBuilder {
	child := &NodeBuilder{
		tree:      b.tree,
		parent:    b,
		component: component,
	}
	b.children = append(b.children, child)
	return child
}

// End completes a nested node and returns to the parent NodeBuilder.
// For a root node it returns nil; use Done instead.
func (b *NodeBuilder) End() *NodeBuilder {
	return b.parent
}

// Done completes the node definition and returns to the tree builder
func (b *NodeBuilder) Done() *TreeBuilder {
	return b.tree
}

// Build is a shortcut for Done().Build()
func (b *NodeBuilder) Build() (*RouteTree, error) {
	return b.tree.Build()
}
