package design

import (
	"fmt"
	"strconv"

	"github.com/stackcanvas/engine/internal/catalog"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// Position is a 2D canvas coordinate. Stored positions are relative to
// the node's parent; top-level positions are absolute.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p shifted by q.
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p shifted by -q.
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is a node's fixed rendering extent. Only container nodes carry one.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an absolute rectangle on the canvas.
type Rect struct {
	Min Position
	Max Position
}

// Contains reports whether p falls inside r (edges inclusive).
func (r Rect) Contains(p Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Area returns the rectangle surface, used to break container ties.
func (r Rect) Area() float64 {
	return (r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y)
}

// Node is one placed service instance on the canvas.
type Node struct {
	ID         string                   `json:"id"`
	ServiceID  string                   `json:"service_id"`
	Position   Position                 `json:"position"`
	ParentID   string                   `json:"parent_id,omitempty"`
	Size       *Size                    `json:"size,omitempty"`
	ZIndex     int                      `json:"z_index,omitempty"`
	Properties map[string]PropertyValue `json:"properties,omitempty"`
}

// Edge wires two nodes. Source/Target are node ids.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a plain snapshot of the design, decoupled from any rendering
// library representation.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Children returns the direct children of the given node id.
func (g *Graph) Children(id string) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.ParentID == id {
			out = append(out, n)
		}
	}
	return out
}

// HasEdgeBetween reports whether an edge exists between a and b in
// either direction.
func (g *Graph) HasEdgeBetween(a, b string) bool {
	for _, e := range g.Edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return true
		}
	}
	return false
}

// PropertyValue is a tagged variant holding one node property.
// Exactly the field matching Kind carries the value.
type PropertyValue struct {
	Kind   catalog.PropertyKind `json:"kind"`
	Text   string               `json:"text,omitempty"`
	Number float64              `json:"number,omitempty"`
	Bool   bool                 `json:"bool,omitempty"`
}

// TextValue builds a text property value.
func TextValue(s string) PropertyValue {
	return PropertyValue{Kind: catalog.PropertyText, Text: s}
}

// SelectValue builds a select property value.
func SelectValue(s string) PropertyValue {
	return PropertyValue{Kind: catalog.PropertySelect, Text: s}
}

// NumberValue builds a numeric property value.
func NumberValue(f float64) PropertyValue {
	return PropertyValue{Kind: catalog.PropertyNumber, Number: f}
}

// BoolValue builds a boolean property value.
func BoolValue(b bool) PropertyValue {
	return PropertyValue{Kind: catalog.PropertyBoolean, Bool: b}
}

// String renders the value the way code generators and the properties
// panel display it.
func (v PropertyValue) String() string {
	switch v.Kind {
	case catalog.PropertyNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case catalog.PropertyBoolean:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// Matches checks the value against its schema: kind agreement plus
// option membership for selects.
func (v PropertyValue) Matches(spec catalog.PropertySpec) error {
	if v.Kind != spec.Kind {
		return appErr.Newf(appErr.CodeInvalid, "property %q expects %s, got %s", spec.Name, spec.Kind, v.Kind)
	}
	if spec.Kind == catalog.PropertySelect {
		for _, opt := range spec.Options {
			if opt == v.Text {
				return nil
			}
		}
		return appErr.Newf(appErr.CodeInvalid, "property %q: %q is not an allowed option", spec.Name, v.Text)
	}
	return nil
}

// DefaultValue converts a catalog default into a typed property value.
func DefaultValue(spec catalog.PropertySpec) (PropertyValue, error) {
	switch spec.Kind {
	case catalog.PropertyText, catalog.PropertySelect:
		s := ""
		if spec.Default != nil {
			s = fmt.Sprintf("%v", spec.Default)
		}
		return PropertyValue{Kind: spec.Kind, Text: s}, nil
	case catalog.PropertyNumber:
		switch n := spec.Default.(type) {
		case int:
			return NumberValue(float64(n)), nil
		case int64:
			return NumberValue(float64(n)), nil
		case float64:
			return NumberValue(n), nil
		case nil:
			return NumberValue(0), nil
		default:
			return PropertyValue{}, appErr.Newf(appErr.CodeInternal, "property %q: default %v is not a number", spec.Name, spec.Default)
		}
	case catalog.PropertyBoolean:
		b, ok := spec.Default.(bool)
		if !ok && spec.Default != nil {
			return PropertyValue{}, appErr.Newf(appErr.CodeInternal, "property %q: default %v is not a boolean", spec.Name, spec.Default)
		}
		return BoolValue(b), nil
	default:
		return PropertyValue{}, appErr.Newf(appErr.CodeInternal, "property %q: unknown kind %s", spec.Name, spec.Kind)
	}
}

// SeedProperties builds the initial property map for a new node from
// the catalog defaults.
func SeedProperties(def catalog.ServiceDefinition) (map[string]PropertyValue, error) {
	if len(def.Properties) == 0 {
		return nil, nil
	}
	props := make(map[string]PropertyValue, len(def.Properties))
	for _, spec := range def.Properties {
		v, err := DefaultValue(spec)
		if err != nil {
			return nil, err
		}
		props[spec.Name] = v
	}
	return props, nil
}
