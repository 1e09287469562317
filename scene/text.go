package scene

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Extra keys written by the translation service on text nodes.
const (
	ExtraFromText = "from_text"
	ExtraFromLang = "from_lan"
	ExtraToText   = "to_text"
	ExtraToLang   = "to_lan"
)

// UnknownSource is reported when a text node carries no source text.
const UnknownSource = "unknown"

// Text is a text node. Extra is never nil.
type Text struct {
	Base
	Text        string
	FontFamily  string
	FontSize    float64
	FontWeight  any
	FontStyle   string
	TextAlign   string
	LineHeight  float64
	CharSpacing float64
	Underline   bool
	Linethrough bool
	Overline    bool
	Styles      any
	Extra       map[string]any
}

// NewText returns a text node of kind k with the editor defaults.
func NewText(k Kind, content string) *Text {
	if !k.IsText() {
		k = KindText
	}
	return &Text{
		Base:       NewBase(k),
		Text:       content,
		FontSize:   40,
		FontWeight: "normal",
		FontStyle:  "normal",
		TextAlign:  "left",
		LineHeight: 1.16,
		Styles:     map[string]any{},
		Extra:      map[string]any{},
	}
}

// SplitByGrapheme reports the textbox option that wraps at any character
// instead of at word boundaries. The attribute itself stays opaque.
func (t *Text) SplitByGrapheme() bool {
	v, _ := t.Get("splitByGrapheme")
	b, _ := v.(bool)
	return b
}

// Bold reports whether the weight is bold or heavier.
func (t *Text) Bold() bool {
	switch w := t.FontWeight.(type) {
	case string:
		w = strings.ToLower(w)
		if w == "bold" || w == "bolder" {
			return true
		}
		n, err := strconv.Atoi(w)
		return err == nil && n >= 600
	case float64:
		return w >= 600
	}
	return false
}

// Italic reports whether the style is italic or oblique.
func (t *Text) Italic() bool {
	s := strings.ToLower(t.FontStyle)
	return s == "italic" || s == "oblique"
}

// FromText returns extra.from_text, or UnknownSource when missing.
func (t *Text) FromText() string { return t.extraString(ExtraFromText) }

// FromLang returns extra.from_lan, or UnknownSource when missing.
func (t *Text) FromLang() string { return t.extraString(ExtraFromLang) }

func (t *Text) extraString(key string) string {
	if s, ok := t.Extra[key].(string); ok && s != "" {
		return s
	}
	return UnknownSource
}

// Clone returns a deep copy of t.
func (t *Text) Clone() *Text {
	c := *t
	c.Base.Rest = cloneRest(t.Base.Rest)
	c.Extra = deepCopy(t.Extra).(map[string]any)
	c.Styles = deepCopy(t.Styles)
	return &c
}

// Get returns the attribute stored under key.
func (t *Text) Get(key string) (any, bool) {
	switch key {
	case "text":
		return t.Text, true
	case "fontFamily":
		return t.FontFamily, true
	case "fontSize":
		return t.FontSize, true
	case "fontWeight":
		return t.FontWeight, true
	case "fontStyle":
		return t.FontStyle, true
	case "textAlign":
		return t.TextAlign, true
	case "lineHeight":
		return t.LineHeight, true
	case "charSpacing":
		return t.CharSpacing, true
	case "underline":
		return t.Underline, true
	case "linethrough":
		return t.Linethrough, true
	case "overline":
		return t.Overline, true
	case "styles":
		return t.Styles, true
	case "extra":
		return t.Extra, true
	}
	return t.Base.Get(key)
}

// Set writes the attribute stored under key.
func (t *Text) Set(key string, value any) error {
	var err error
	switch key {
	case "text":
		t.Text, err = toString(key, value)
	case "fontFamily":
		t.FontFamily, err = toString(key, value)
	case "fontSize":
		t.FontSize, err = toFloat(key, value)
	case "fontWeight":
		switch value.(type) {
		case string:
			t.FontWeight = value
		default:
			var w float64
			w, err = toFloat(key, value)
			if err == nil {
				t.FontWeight = w
			}
		}
	case "fontStyle":
		t.FontStyle, err = toString(key, value)
	case "textAlign":
		t.TextAlign, err = toString(key, value)
	case "lineHeight":
		t.LineHeight, err = toFloat(key, value)
	case "charSpacing":
		t.CharSpacing, err = toFloat(key, value)
	case "underline":
		t.Underline, err = toBool(key, value)
	case "linethrough":
		t.Linethrough, err = toBool(key, value)
	case "overline":
		t.Overline, err = toBool(key, value)
	case "styles":
		t.Styles = value
	case "extra":
		var extra map[string]any
		if extra, err = toExtra(key, value); err == nil {
			t.Extra = extra
		}
	default:
		return t.Base.Set(key, value)
	}
	return err
}

func toExtra(key string, value any) (map[string]any, error) {
	switch m := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s wants an object, got %T", ErrAttribute, key, value)
}

// deepCopy copies JSON-shaped values.
func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	case json.RawMessage:
		return append(json.RawMessage(nil), x...)
	default:
		return v
	}
}
