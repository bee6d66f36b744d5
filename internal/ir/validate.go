package ir

import (
	"fmt"
	"strings"
)

// ValidationIssue represents a single validation problem
type ValidationIssue struct {
	Code    string   // e.g., "DUPLICATE_VIEWPORT", "INVALID_PARENT"
	Message string   // Human-readable description
	Path    []string // e.g., ["nodes", "a1@$0", "children", "0"]
}

// String returns a human-readable representation of the issue
func (v ValidationIssue) String() string {
	if len(v.Path) > 0 {
		return fmt.Sprintf("[%s] %s (at %s)", v.Code, v.Message, strings.Join(v.Path, "."))
	}
	return fmt.Sprintf("[%s] %s", v.Code, v.Message)
}

// ValidationError contains all validation issues found during validation
type ValidationError struct {
	Issues []ValidationIssue
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0].String()
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("validation failed with %d issues:\n", len(e.Issues)))
	for i, issue := range e.Issues {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, issue.String()))
	}
	return b.String()
}

// AddIssue adds a validation issue to the error
func (e *ValidationError) AddIssue(code, message string, path ...string) {
	e.Issues = append(e.Issues, ValidationIssue{
		Code:    code,
		Message: message,
		Path:    path,
	})
}

// HasIssues returns true if there are any validation issues
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// HasCode returns true if any issue carries the given code
func (e *ValidationError) HasCode(code string) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// Validation error codes
const (
	ErrCodeNilTree           = "NIL_TREE"
	ErrCodeMissingRoot       = "MISSING_ROOT"
	ErrCodeRootHasParent     = "ROOT_HAS_PARENT"
	ErrCodeMissingComponent  = "MISSING_COMPONENT"
	ErrCodeMissingViewport   = "MISSING_VIEWPORT"
	ErrCodeDuplicateViewport = "DUPLICATE_VIEWPORT"
	ErrCodeInvalidParent     = "INVALID_PARENT"
	ErrCodeInvalidChild      = "INVALID_CHILD"
	ErrCodeIDMismatch        = "ID_MISMATCH"
	ErrCodeOrphanNode        = "ORPHAN_NODE"
	ErrCodeResidueChildren   = "RESIDUE_WITH_CHILDREN"
)

// Validate checks a route tree for structural errors
func Validate(t *RouteTree) *ValidationError {
	errs := &ValidationError{}

	if t == nil {
		errs.AddIssue(ErrCodeNilTree, "route tree is nil")
		return errs
	}

	reachable := make(map[NodeID]bool, len(t.Nodes))

	checkSiblings := func(ids []NodeID, parent NodeID, path []string) {
		seen := make(map[string]NodeID, len(ids))
		for i, id := range ids {
			childPath := append(append([]string(nil), path...), fmt.Sprintf("%d", i))
			n, ok := t.Nodes[id]
			if !ok {
				errs.AddIssue(ErrCodeInvalidChild,
					fmt.Sprintf("node '%s' not found", id),
					childPath...)
				continue
			}
			reachable[id] = true
			if n.Parent != parent {
				errs.AddIssue(ErrCodeInvalidParent,
					fmt.Sprintf("node '%s' has parent '%s', expected '%s'", id, n.Parent, parent),
					childPath...)
			}
			if prev, dup := seen[n.Viewport]; dup {
				errs.AddIssue(ErrCodeDuplicateViewport,
					fmt.Sprintf("viewport '%s' is occupied by both '%s' and '%s'", n.Viewport, prev, id),
					childPath...)
			}
			seen[n.Viewport] = id
		}
	}

	checkSiblings(t.Roots, "", []string{"roots"})

	for id, n := range t.Nodes {
		nodePath := []string{"nodes", string(id)}

		if n.Component == "" {
			errs.AddIssue(ErrCodeMissingComponent, "node has no component", nodePath...)
		}
		if n.Viewport == "" {
			errs.AddIssue(ErrCodeMissingViewport, "node has no viewport", nodePath...)
		}
		if n.ID != id {
			errs.AddIssue(ErrCodeIDMismatch,
				fmt.Sprintf("node is indexed as '%s' but carries ID '%s'", id, n.ID),
				nodePath...)
		}
		if n.HasResidue() && len(n.Children) > 0 {
			errs.AddIssue(ErrCodeResidueChildren,
				"node has both resolved children and unresolved residue",
				nodePath...)
		}

		if n.Parent != "" {
			if _, ok := t.Nodes[n.Parent]; !ok {
				errs.AddIssue(ErrCodeInvalidParent,
					fmt.Sprintf("parent node '%s' not found", n.Parent),
					nodePath...)
			}
		} else {
			isRoot := false
			for _, r := range t.Roots {
				if r == id {
					isRoot = true
					break
				}
			}
			if !isRoot {
				errs.AddIssue(ErrCodeMissingRoot,
					fmt.Sprintf("parentless node '%s' is not listed as a root", id),
					nodePath...)
			}
		}

		checkSiblings(n.Children, id, append(nodePath, "children"))
	}

	for _, r := range t.Roots {
		if n, ok := t.Nodes[r]; ok && n.Parent != "" {
			errs.AddIssue(ErrCodeRootHasParent,
				fmt.Sprintf("root node '%s' has parent '%s'", r, n.Parent),
				"roots", string(r))
		}
	}

	for id := range t.Nodes {
		if !reachable[id] {
			errs.AddIssue(ErrCodeOrphanNode,
				fmt.Sprintf("node '%s' is not reachable from any root", id),
				"nodes", string(id))
		}
	}

	if errs.HasIssues() {
		return errs
	}
	return nil
}
