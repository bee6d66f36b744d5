// Package resolve is a reference route resolver. It turns instruction
// strings into route trees using a route table declared in code, as a
// tagged struct, or in YAML.
package resolve

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/routekit/internal/parser"
)

// RouteTable is a marker type that must be embedded in a struct to define a
// route table using the reflection DSL.
//
// Use struct tags to configure the table:
//   - default:"instruction" - Instruction used when navigating to ""
//
// Example:
//
//	type AppRoutes struct {
//	    resolve.RouteTable `default:"home"`
//	    Home  resolve.Route
//	    Users UserRoutes `params:"id"`
//	}
type RouteTable struct{}

// Route is a marker type for a route without static children.
//
// Use struct tags to configure the route:
//   - name:"user" - Segment name in instructions (default: snake_case field name)
//   - component:"user-page" - Component name (default: the route name)
//   - viewport:"main" - Viewport used when the instruction names none
//   - params:"id,tab" - Declared params, in positional order
//   - lazy:"true" - Children are resolved only after the component loaded
//   - default:"profile" - Child instruction used when none is given
//
// Example:
//
//	Detail resolve.Route `params:"id" viewport:"main"`
type Route struct{}

// RouteGroup is a marker type for routes with static children. The children
// are the other fields of the struct that embeds it.
//
// Example:
//
//	type UserRoutes struct {
//	    resolve.RouteGroup `params:"id" default:"profile"`
//	    Profile  resolve.Route
//	    Settings resolve.Route
//	}
type RouteGroup struct{}

// RouteConfig configures one route
type RouteConfig struct {
	Name      string         `yaml:"name"`
	Component string         `yaml:"component,omitempty"`
	Viewport  string         `yaml:"viewport,omitempty"`
	Params    []string       `yaml:"params,omitempty"`
	Lazy      bool           `yaml:"lazy,omitempty"`
	Default   string         `yaml:"default,omitempty"`
	Children  []*RouteConfig `yaml:"children,omitempty"`
}

// ComponentName returns the component the route activates
func (c *RouteConfig) ComponentName() string {
	if c.Component != "" {
		return c.Component
	}
	return c.Name
}

// Child returns the child route with the given name, or nil
func (c *RouteConfig) Child(name string) *RouteConfig {
	return find(c.Children, name)
}

// Table is an ordered set of root routes
type Table struct {
	Default string         `yaml:"default,omitempty"`
	Routes  []*RouteConfig `yaml:"routes"`
}

// Find returns the root route with the given name, or nil
func (t *Table) Find(name string) *RouteConfig {
	return find(t.Routes, name)
}

// Validate checks route names and default instructions
func (t *Table) Validate() error {
	if _, err := parser.ParseInstruction(t.Default); err != nil {
		return fmt.Errorf("table default: %w", err)
	}
	return validateRoutes(t.Routes, "")
}

func validateRoutes(routes []*RouteConfig, parent string) error {
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		path := r.Name
		if parent != "" {
			path = parent + "/" + r.Name
		}
		if r.Name == "" {
			return fmt.Errorf("route under %q has no name", parent)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate route %q", path)
		}
		seen[r.Name] = true

		segs, err := parser.ParseInstruction(r.Name)
		if err != nil || len(segs) != 1 || segs[0].Name != r.Name {
			return fmt.Errorf("route %q: name contains a reserved character", path)
		}
		if _, err := parser.ParseInstruction(r.Default); err != nil {
			return fmt.Errorf("route %q default: %w", path, err)
		}
		if err := validateRoutes(r.Children, path); err != nil {
			return err
		}
	}
	return nil
}

func find(routes []*RouteConfig, name string) *RouteConfig {
	for _, r := range routes {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// FromStruct builds a Table from a struct definition using the reflection DSL.
//
// The struct T must embed RouteTable and define routes using Route fields or
// fields of struct types that embed RouteGroup.
//
// Example:
//
//	type AppRoutes struct {
//	    resolve.RouteTable `default:"home"`
//	    Home  resolve.Route
//	    Login resolve.Route `params:"next"`
//	}
//
//	table, err := resolve.FromStruct[AppRoutes]()
func FromStruct[T any]() (*Table, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	schema, err := parser.ParseTableStruct(t)
	if err != nil {
		return nil, fmt.Errorf("parse struct: %w", err)
	}

	table := &Table{Default: schema.Default}
	for _, rs := range schema.Routes {
		table.Routes = append(table.Routes, buildRouteFromSchema(rs))
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return table, nil
}

// buildRouteFromSchema recursively converts a parsed route schema.
func buildRouteFromSchema(schema *parser.RouteSchema) *RouteConfig {
	route := &RouteConfig{
		Name:      schema.Name,
		Component: schema.Component,
		Viewport:  schema.Viewport,
		Params:    schema.Params,
		Lazy:      schema.Lazy,
		Default:   schema.Default,
	}
	for _, child := range schema.Children {
		route.Children = append(route.Children, buildRouteFromSchema(child))
	}
	return route
}

// LoadTable decodes a YAML route table
func LoadTable(r io.Reader) (*Table, error) {
	var table Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("decode route table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadTableFile decodes a YAML route table file
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
