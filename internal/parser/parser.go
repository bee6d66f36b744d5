// Package parser provides reflection-based parsing for struct-defined route
// tables and the parser for navigation instruction strings.
package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// RouteSchema represents a parsed route definition.
type RouteSchema struct {
	Name      string
	Component string
	Viewport  string
	Params    []string
	Lazy      bool
	Default   string
	Children  []*RouteSchema
}

// TableSchema represents the complete parsed route table.
type TableSchema struct {
	Default string
	Routes  []*RouteSchema
}

// Marker type names for detection.
const (
	MarkerTable = "RouteTable"
	MarkerRoute = "Route"
	MarkerGroup = "RouteGroup"
)

// ParseTableStruct parses a struct type into a TableSchema.
// The struct must have an embedded RouteTable marker type.
func ParseTableStruct(t reflect.Type) (*TableSchema, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}

	schema := &TableSchema{}

	found := false
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && isMarkerType(field.Type, MarkerTable) {
			schema.Default = strings.TrimSpace(field.Tag.Get("default"))
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("struct must embed resolve.RouteTable")
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && isMarkerType(field.Type, MarkerTable) {
			continue
		}

		route, err := parseRouteField(field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if route != nil {
			schema.Routes = append(schema.Routes, route)
		}
	}

	if err := checkSiblings(schema.Routes); err != nil {
		return nil, err
	}
	return schema, nil
}

// parseRouteField parses a struct field into a RouteSchema.
func parseRouteField(field reflect.StructField) (*RouteSchema, error) {
	fieldType := field.Type
	if fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() != reflect.Struct {
		return nil, nil
	}

	if isMarkerType(fieldType, MarkerRoute) {
		return parseRouteTag(field.Name, field.Tag)
	}
	if hasEmbeddedMarker(fieldType, MarkerGroup) {
		return parseGroupStruct(field.Name, fieldType, field.Tag)
	}

	return nil, nil // Not a route field
}

// hasEmbeddedMarker reports whether a struct embeds the given marker.
func hasEmbeddedMarker(t reflect.Type, marker string) bool {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && isMarkerType(field.Type, marker) {
			return true
		}
	}
	return false
}

// parseGroupStruct parses a struct that embeds RouteGroup. Its non-marker
// fields are the child routes.
func parseGroupStruct(name string, t reflect.Type, parentTag reflect.StructTag) (*RouteSchema, error) {
	var markerTag reflect.StructTag
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && isMarkerType(field.Type, MarkerGroup) {
			markerTag = field.Tag
			break
		}
	}

	// Keys on the marker win over the same keys on the field
	route, err := parseRouteTag(name, tagSet{markerTag, parentTag})
	if err != nil {
		return nil, err
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			continue // Skip embedded marker
		}
		child, err := parseRouteField(field)
		if err != nil {
			return nil, fmt.Errorf("child %s: %w", field.Name, err)
		}
		if child != nil {
			route.Children = append(route.Children, child)
		}
	}

	if err := checkSiblings(route.Children); err != nil {
		return nil, fmt.Errorf("route %s: %w", route.Name, err)
	}
	return route, nil
}

// parseRouteTag parses route-level tags.
// Format: `name:"user" component:"user-page" viewport:"main" params:"id,tab" lazy:"true" default:"profile"`
func parseRouteTag(fieldName string, tag reflect.StructTag) (*RouteSchema, error) {
	route := &RouteSchema{
		Name:      strings.TrimSpace(tag.Get("name")),
		Component: strings.TrimSpace(tag.Get("component")),
		Viewport:  strings.TrimSpace(tag.Get("viewport")),
		Default:   strings.TrimSpace(tag.Get("default")),
	}
	if route.Name == "" {
		route.Name = toSnakeCase(fieldName)
	}
	if route.Component == "" {
		route.Component = route.Name
	}
	if err := checkName(route.Name); err != nil {
		return nil, err
	}

	if params := tag.Get("params"); params != "" {
		route.Params = splitTrim(params, ",")
	}

	if lazy := tag.Get("lazy"); lazy != "" {
		v, err := strconv.ParseBool(lazy)
		if err != nil {
			return nil, fmt.Errorf("invalid 'lazy' tag %q: %w", lazy, err)
		}
		route.Lazy = v
	}

	return route, nil
}

// checkSiblings rejects two routes with the same name under one parent.
func checkSiblings(routes []*RouteSchema) error {
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		if seen[r.Name] {
			return fmt.Errorf("duplicate route name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// checkName rejects names that would not survive the instruction grammar.
func checkName(name string) error {
	if strings.ContainsAny(name, reserved+" ") {
		return fmt.Errorf("route name %q contains a reserved character", name)
	}
	return nil
}

// isMarkerType checks if a type matches a marker type name.
func isMarkerType(t reflect.Type, markerName string) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name() == markerName
}

// toSnakeCase converts CamelCase to snake_case.
// Handles acronyms properly: HTTPStatus -> http_status, APIKeys -> api_keys.
func toSnakeCase(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder
	result.Grow(len(s) + 5)

	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'

		if i > 0 && isUpper {
			prevIsLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextIsLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'

			// camelCase boundary, or the end of an acronym (the 'S' in HTTPStatus)
			if prevIsLower || nextIsLower {
				result.WriteByte('_')
			}
		}

		if isUpper {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// splitTrim splits a string and trims whitespace from each part.
func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
