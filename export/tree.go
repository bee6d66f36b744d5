// Package export provides exporters for converting route trees to external
// formats like JSON and YAML.
package export

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/routekit/internal/ir"
)

// TreeExporter converts a RouteTree to a serializable document
type TreeExporter struct {
	tree *ir.RouteTree
}

// NewTreeExporter creates a new exporter for the given route tree
func NewTreeExporter(tree *ir.RouteTree) *TreeExporter {
	return &TreeExporter{tree: tree}
}

// Document represents an exported route tree
type Document struct {
	Instruction string `json:"instruction" yaml:"instruction"`
	Nodes       int    `json:"nodes" yaml:"nodes"`
	Roots       []Node `json:"roots,omitempty" yaml:"roots,omitempty"`
}

// Node represents a single route node
type Node struct {
	ID        string            `json:"id" yaml:"id"`
	Component string            `json:"component" yaml:"component"`
	Viewport  string            `json:"viewport" yaml:"viewport"`
	Params    map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Residue   string            `json:"residue,omitempty" yaml:"residue,omitempty"`
	Children  []Node            `json:"children,omitempty" yaml:"children,omitempty"`
}

// Export converts the route tree to a Document
func (e *TreeExporter) Export() (*Document, error) {
	doc := &Document{
		Instruction: e.tree.String(),
		Nodes:       e.tree.Len(),
	}
	for _, root := range e.tree.ChildNodes("") {
		doc.Roots = append(doc.Roots, e.buildNode(root))
	}
	return doc, nil
}

// ExportJSON returns the route tree as a JSON string
func (e *TreeExporter) ExportJSON() (string, error) {
	doc, err := e.Export()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// ExportYAML returns the route tree as a YAML string
func (e *TreeExporter) ExportYAML() (string, error) {
	doc, err := e.Export()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// buildNode recursively builds the exported form of a node
func (e *TreeExporter) buildNode(n *ir.RouteNode) Node {
	node := Node{
		ID:        string(n.ID),
		Component: n.Component,
		Viewport:  n.Viewport,
		Residue:   string(n.Residue),
	}
	if len(n.Params) > 0 {
		node.Params = map[string]string(n.Params.Clone())
	}
	for _, child := range e.tree.ChildNodes(n.ID) {
		node.Children = append(node.Children, e.buildNode(child))
	}
	return node
}
