package codec

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/scene"
)

// ErrDecode is matched by every decoding failure.
var ErrDecode = errors.New("codec: decode failed")

// DecodeError reports where in the document decoding failed.
type DecodeError struct {
	// Path locates the node, e.g. objects[2].objects[0].
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("codec: decode: %v", e.Err)
	}
	return fmt.Sprintf("codec: decode %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrDecode and the cause.
func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// Assets resolves image and svg sources.
type Assets interface {
	Image(ctx context.Context, src string) (image.Image, error)
	SVG(ctx context.Context, src string, colors map[string]string, width, height int) (image.Image, error)
}

// Decoder builds scene trees from document JSON. A zero Decoder uses the
// built-in registry and leaves image sources unresolved.
type Decoder struct {
	Registry *Registry
	Assets   Assets
	Logger   *slog.Logger
}

func (d *Decoder) registry() *Registry {
	if d.Registry == nil {
		d.Registry = NewRegistry()
	}
	return d.Registry
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// Decode parses a document. It returns once every asset has been resolved.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*scene.Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if fields == nil {
		return nil, &DecodeError{Err: errors.New("document is not an object")}
	}
	d.registry()

	doc := scene.NewDocument()
	for key, raw := range fields {
		var err error
		switch key {
		case "objects":
			continue
		case "version":
			err = json.Unmarshal(raw, &doc.Version)
		case "width":
			err = json.Unmarshal(raw, &doc.Width)
		case "height":
			err = json.Unmarshal(raw, &doc.Height)
		case "background":
			var bg any
			if err = json.Unmarshal(raw, &bg); err == nil {
				if s, ok := bg.(string); ok {
					doc.Background = s
				} else {
					doc.Rest[key] = raw
				}
			}
		default:
			doc.Rest[key] = raw
		}
		if err != nil {
			return nil, &DecodeError{Path: key, Err: err}
		}
		if _, opaque := doc.Rest[key]; !opaque {
			doc.Present[key] = true
		}
	}

	var objects []json.RawMessage
	if raw, ok := fields["objects"]; ok {
		if err := json.Unmarshal(raw, &objects); err != nil {
			return nil, &DecodeError{Path: "objects", Err: err}
		}
	}
	nodes, err := d.decodeList(ctx, objects, "objects")
	if err != nil {
		return nil, err
	}
	doc.Objects = nodes
	d.logger().Debug("文档解码完成", "objects", len(nodes))
	return doc, nil
}

// DecodeAsync runs Decode in a new goroutine and calls onComplete with the result.
func (d *Decoder) DecodeAsync(ctx context.Context, data []byte, onComplete func(*scene.Document, error)) {
	go func() {
		onComplete(d.Decode(ctx, data))
	}()
}

// DecodeNode decodes a single node object.
func (d *Decoder) DecodeNode(ctx context.Context, raw json.RawMessage) (scene.Node, error) {
	d.registry()
	return d.decodeNode(ctx, raw, "")
}

// decodeList decodes sibling nodes concurrently and joins them in order.
// The first failure cancels the remaining siblings.
func (d *Decoder) decodeList(ctx context.Context, items []json.RawMessage, path string) ([]scene.Node, error) {
	out := make([]scene.Node, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range items {
		g.Go(func() error {
			n, err := d.decodeNode(gctx, raw, path+"["+strconv.Itoa(i)+"]")
			out[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Decoder) decodeNode(ctx context.Context, raw json.RawMessage, path string) (scene.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	var kind string
	if t, ok := fields["type"]; ok {
		if err := json.Unmarshal(t, &kind); err != nil {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("type: %w", err)}
		}
	}
	if kind == "" {
		return nil, &DecodeError{Path: path, Err: errors.New("missing type")}
	}
	fn, ok := d.Registry.Lookup(scene.Kind(kind))
	if !ok {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unknown type %q", kind)}
	}

	n, err := fn(ctx, d, Object{Kind: scene.Kind(kind), Path: path, Fields: fields})
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &DecodeError{Path: path, Err: err}
	}
	return n, nil
}

// children decodes the objects array of a container.
func (d *Decoder) children(ctx context.Context, obj Object) ([]scene.Node, error) {
	var items []json.RawMessage
	if raw, ok := obj.Fields["objects"]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("objects: %w", err)
		}
	}
	return d.decodeList(ctx, items, obj.Path+".objects")
}

// Persisted children already carry coordinates relative to their group, so
// groups are rebuilt pre-grouped.
func decodeGroup(ctx context.Context, d *Decoder, obj Object) (scene.Node, error) {
	children, err := d.children(ctx, obj)
	if err != nil {
		return nil, err
	}
	base := scene.NewBase(obj.Kind)
	if err := apply(&base, obj); err != nil {
		return nil, err
	}
	return scene.NewGroup(children, base, true)
}

func decodeOverlay(ctx context.Context, d *Decoder, obj Object) (scene.Node, error) {
	children, err := d.children(ctx, obj)
	if err != nil {
		return nil, err
	}
	base := scene.NewBase(obj.Kind)
	if err := apply(&base, obj, overlay.Key, overlay.LegacyKey); err != nil {
		return nil, err
	}

	// The first non-null toggle key drives the node; any other toggle key
	// stays opaque so it is written back unchanged.
	opts := overlay.Options{Base: base}
	chosen := ""
	for _, key := range []string{overlay.Key, overlay.LegacyKey} {
		raw, ok := obj.Fields[key]
		if !ok {
			continue
		}
		var v *bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if v != nil && chosen == "" {
			chosen = key
			opts.Translatable = v
			opts.LegacyKey = key == overlay.LegacyKey
			continue
		}
		opts.Base.Rest[key] = raw
	}
	return overlay.New(children, opts)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.SortedFunc(maps.Keys(m), cmp.Compare[string])
}

func contains(list []string, s string) bool {
	return slices.Contains(list, s)
}
