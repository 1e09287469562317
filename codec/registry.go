// Package codec converts between document JSON and the scene tree.
//
// Decoding resolves image and svg sources through an asset loader. Children
// of a group are decoded concurrently and joined before the group is built,
// so a caller either gets a complete tree or an error, never a partial one.
package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/scene"
)

// Object is one node's JSON object during decoding.
type Object struct {
	Kind   scene.Kind
	Path   string
	Fields map[string]json.RawMessage
}

// DecodeFunc builds a node from its JSON object.
type DecodeFunc func(ctx context.Context, d *Decoder, obj Object) (scene.Node, error)

// Registry maps node kinds to decode funcs.
type Registry struct {
	mu    sync.RWMutex
	kinds map[scene.Kind]DecodeFunc
}

// NewRegistry returns a registry with every built-in kind.
func NewRegistry() *Registry {
	r := &Registry{kinds: map[scene.Kind]DecodeFunc{}}
	for _, k := range []scene.Kind{scene.KindText, scene.KindIText, scene.KindFText, scene.KindTextbox} {
		r.Register(k, decodeText)
	}
	for _, k := range []scene.Kind{scene.KindRect, scene.KindCircle, scene.KindEllipse, scene.KindTriangle, scene.KindLine} {
		r.Register(k, decodeShape)
	}
	r.Register(scene.KindImage, decodeImage)
	r.Register(scene.KindSVG, decodeImage)
	r.Register(scene.KindGroup, decodeGroup)
	r.Register(overlay.Kind, decodeOverlay)
	return r
}

// Register installs fn for kind k, replacing any previous entry.
func (r *Registry) Register(k scene.Kind, fn DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k] = fn
}

// Lookup returns the decode func for k.
func (r *Registry) Lookup(k scene.Kind) (DecodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.kinds[k]
	return fn, ok
}

// skipped keys are consumed by the decode funcs themselves.
var skipped = map[string]bool{"type": true, "objects": true}

// apply sets every field of obj on n, in key order.
func apply(n scene.Node, obj Object, skip ...string) error {
	for _, key := range sortedKeys(obj.Fields) {
		if skipped[key] || contains(skip, key) {
			continue
		}
		var v any
		if err := json.Unmarshal(obj.Fields[key], &v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := n.Set(key, v); err != nil {
			// a null typed attribute means "use the default"
			if v == nil && errors.Is(err, scene.ErrAttribute) {
				continue
			}
			return err
		}
	}
	return nil
}

func decodeText(_ context.Context, _ *Decoder, obj Object) (scene.Node, error) {
	t := scene.NewText(obj.Kind, "")
	if err := apply(t, obj); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeShape(_ context.Context, _ *Decoder, obj Object) (scene.Node, error) {
	s := scene.NewShape(obj.Kind)
	if err := apply(s, obj); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeImage(ctx context.Context, d *Decoder, obj Object) (scene.Node, error) {
	img := scene.NewImage(obj.Kind, "")
	if err := apply(img, obj); err != nil {
		return nil, err
	}
	// sizes come from the document; check them before any bitmap is allocated
	w, h, err := scene.PixelSize(img.Width, img.Height, 0)
	if err != nil {
		return nil, err
	}
	if d.Assets == nil || img.Src == "" {
		return img, nil
	}

	var bitmap image.Image
	if img.Kind() == scene.KindSVG {
		bitmap, err = d.Assets.SVG(ctx, img.Src, img.Colors, w, h)
	} else {
		bitmap, err = d.Assets.Image(ctx, img.Src)
	}
	if err != nil {
		return nil, err
	}
	img.SetBitmap(bitmap)
	if img.Width == 0 && img.Height == 0 {
		w, h := img.NaturalSize()
		img.Width, img.Height = float64(w), float64(h)
	}
	return img, nil
}
