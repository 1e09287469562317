// Package scene holds the drawable node tree of a design document.
//
// Nodes are a closed set of variants (Text, Image, Shape, Group and the
// translation overlay built on Group in package overlay) sharing the
// geometry and paint attributes of Base. Attributes can be read and written
// generically through Get/Set using the JSON attribute names of the document
// format, so the editor and the codec address them the same way.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the "type" tag of a node in the document JSON.
type Kind string

const (
	KindRect     Kind = "rect"
	KindCircle   Kind = "circle"
	KindEllipse  Kind = "ellipse"
	KindTriangle Kind = "triangle"
	KindLine     Kind = "line"
	KindText     Kind = "text"
	KindIText    Kind = "i-text"
	KindFText    Kind = "f-text"
	KindTextbox  Kind = "textbox"
	KindImage    Kind = "image"
	KindSVG      Kind = "svg"
	KindGroup    Kind = "group"
)

// IsText reports whether k is one of the text variants.
func (k Kind) IsText() bool {
	switch k {
	case KindText, KindIText, KindFText, KindTextbox:
		return true
	default:
		return false
	}
}

var (
	// ErrAttribute is returned by Set when the value has the wrong type for the key.
	ErrAttribute = errors.New("scene: invalid attribute value")
	// ErrEmptyGroup is returned when a group would end up without children.
	ErrEmptyGroup = errors.New("scene: group must have at least one child")
	// ErrNotChild is returned when removing a node that is not a direct child.
	ErrNotChild = errors.New("scene: node is not a child of the group")
)

// Node is a drawable unit of the scene tree.
type Node interface {
	Kind() Kind
	Attrs() *Base
	Get(key string) (any, bool)
	Set(key string, value any) error
}

// Container is a node owning an ordered child sequence.
type Container interface {
	Node
	Children() []Node
}

// Base carries the attributes common to every node.
// Rest keeps attributes the model does not interpret, verbatim.
type Base struct {
	Type        Kind
	ID          string
	Left        float64
	Top         float64
	Width       float64
	Height      float64
	Angle       float64
	ScaleX      float64
	ScaleY      float64
	OriginX     string
	OriginY     string
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
	Visible     bool
	Rest        map[string]json.RawMessage
}

// NewBase returns the editor defaults for a node of kind k.
func NewBase(k Kind) Base {
	return Base{
		Type:        k,
		ScaleX:      1,
		ScaleY:      1,
		OriginX:     "left",
		OriginY:     "top",
		Fill:        "rgb(0,0,0)",
		StrokeWidth: 1,
		Opacity:     1,
		Visible:     true,
		Rest:        map[string]json.RawMessage{},
	}
}

func (b *Base) Kind() Kind   { return b.Type }
func (b *Base) Attrs() *Base { return b }

// Get returns the attribute stored under key.
func (b *Base) Get(key string) (any, bool) {
	switch key {
	case "type":
		return string(b.Type), true
	case "id":
		return b.ID, b.ID != ""
	case "left":
		return b.Left, true
	case "top":
		return b.Top, true
	case "width":
		return b.Width, true
	case "height":
		return b.Height, true
	case "angle":
		return b.Angle, true
	case "scaleX":
		return b.ScaleX, true
	case "scaleY":
		return b.ScaleY, true
	case "originX":
		return b.OriginX, true
	case "originY":
		return b.OriginY, true
	case "fill":
		if b.Fill == "" {
			return b.rest(key)
		}
		return b.Fill, true
	case "stroke":
		if b.Stroke == "" {
			return b.rest(key)
		}
		return b.Stroke, true
	case "strokeWidth":
		return b.StrokeWidth, true
	case "opacity":
		return b.Opacity, true
	case "visible":
		return b.Visible, true
	}
	return b.rest(key)
}

func (b *Base) rest(key string) (any, bool) {
	raw, ok := b.Rest[key]
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Set writes the attribute stored under key.
// Keys the model does not know are kept as opaque JSON.
func (b *Base) Set(key string, value any) error {
	var err error
	switch key {
	case "type":
		return fmt.Errorf("%w: type is read-only", ErrAttribute)
	case "id":
		b.ID, err = toString(key, value)
	case "left":
		b.Left, err = toFloat(key, value)
	case "top":
		b.Top, err = toFloat(key, value)
	case "width":
		b.Width, err = toFloat(key, value)
	case "height":
		b.Height, err = toFloat(key, value)
	case "angle":
		b.Angle, err = toFloat(key, value)
	case "scaleX":
		b.ScaleX, err = toFloat(key, value)
	case "scaleY":
		b.ScaleY, err = toFloat(key, value)
	case "originX":
		b.OriginX, err = toString(key, value)
	case "originY":
		b.OriginY, err = toString(key, value)
	case "fill":
		return b.setPaint(key, &b.Fill, value)
	case "stroke":
		return b.setPaint(key, &b.Stroke, value)
	case "strokeWidth":
		b.StrokeWidth, err = toFloat(key, value)
	case "opacity":
		b.Opacity, err = toFloat(key, value)
	case "visible":
		b.Visible, err = toBool(key, value)
	default:
		return b.SetRaw(key, value)
	}
	return err
}

// setPaint stores color strings in dst and anything else (gradients, null) opaquely.
func (b *Base) setPaint(key string, dst *string, value any) error {
	if s, ok := value.(string); ok && s != "" {
		*dst = s
		delete(b.Rest, key)
		return nil
	}
	*dst = ""
	return b.SetRaw(key, value)
}

// SetRaw stores value as opaque JSON under key.
func (b *Base) SetRaw(key string, value any) error {
	raw, ok := value.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAttribute, key, err)
		}
	}
	if b.Rest == nil {
		b.Rest = map[string]json.RawMessage{}
	}
	b.Rest[key] = raw
	return nil
}

func toFloat(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrAttribute, key, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s wants a number, got %T", ErrAttribute, key, v)
}

func toBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s wants a bool, got %T", ErrAttribute, key, v)
	}
	return b, nil
}

func toString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s wants a string, got %T", ErrAttribute, key, v)
	}
	return s, nil
}

func cloneRest(rest map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(rest))
	for k, v := range rest {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
