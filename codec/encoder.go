package codec

import (
	"encoding/json"
	"fmt"

	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/scene"
)

var (
	baseKeys = []string{
		"left", "top", "width", "height", "angle", "scaleX", "scaleY",
		"originX", "originY", "strokeWidth", "opacity", "visible",
	}
	textKeys = []string{
		"text", "fontFamily", "fontSize", "fontWeight", "fontStyle", "textAlign",
		"lineHeight", "charSpacing", "underline", "linethrough", "overline", "styles", "extra",
	}
	imageKeys = []string{"src", "cropX", "cropY"}
)

// Encode returns the JSON object of n. Attributes the model does not
// interpret are emitted as they were decoded.
func Encode(n scene.Node) (map[string]any, error) {
	if n == nil {
		return nil, fmt.Errorf("codec: encode nil node")
	}
	b := n.Attrs()
	out := make(map[string]any, len(b.Rest)+len(baseKeys)+8)
	for k, v := range b.Rest {
		out[k] = v
	}
	out["type"] = string(n.Kind())
	if b.ID != "" {
		out["id"] = b.ID
	}
	put := func(keys ...string) {
		for _, k := range keys {
			if v, ok := n.Get(k); ok {
				out[k] = v
			}
		}
	}
	put(baseKeys...)
	encodePaint(out, b, "fill", b.Fill)
	encodePaint(out, b, "stroke", b.Stroke)

	switch v := n.(type) {
	case *scene.Text:
		put(textKeys...)
		if v.Extra == nil {
			out["extra"] = map[string]any{}
		}
	case *scene.Image:
		put(imageKeys...)
		if v.Kind() == scene.KindSVG && v.Colors != nil {
			out["colors"] = v.Colors
		}
	case *scene.Shape:
		put(scene.ShapeKeys(v.Kind())...)
	case *overlay.Node:
		objects, err := encodeList(v.Children())
		if err != nil {
			return nil, err
		}
		out["objects"] = objects
		key := overlay.Key
		if v.UsesLegacyKey() {
			key = overlay.LegacyKey
		}
		out[key] = v.Translatable()
	case *scene.Group:
		objects, err := encodeList(v.Children())
		if err != nil {
			return nil, err
		}
		out["objects"] = objects
	}
	return out, nil
}

// encodePaint writes a color string, or the opaque value kept in Rest, or null.
func encodePaint(out map[string]any, b *scene.Base, key, color string) {
	switch {
	case color != "":
		out[key] = color
	case b.Rest[key] != nil:
		out[key] = b.Rest[key]
	default:
		out[key] = nil
	}
}

func encodeList(nodes []scene.Node) ([]any, error) {
	out := make([]any, 0, len(nodes))
	for i, c := range nodes {
		obj, err := Encode(c)
		if err != nil {
			return nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// EncodeDocument serializes doc. Version, width, height and background are
// emitted when set or when the decoded source carried them.
func EncodeDocument(doc *scene.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("codec: encode nil document")
	}
	out := make(map[string]any, len(doc.Rest)+5)
	for k, v := range doc.Rest {
		out[k] = v
	}
	objects, err := encodeList(doc.Objects)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %w", err)
	}
	out["objects"] = objects
	emit := func(key string, value any, set bool) {
		if set || doc.Present[key] {
			out[key] = value
		}
	}
	emit("version", doc.Version, doc.Version != "")
	emit("width", doc.Width, doc.Width != 0)
	emit("height", doc.Height, doc.Height != 0)
	emit("background", doc.Background, doc.Background != "")
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("codec: encode document: %w", err)
	}
	return data, nil
}
