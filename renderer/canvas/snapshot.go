package canvasrenderer

import (
	"fmt"
	"image"
	"math"

	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/scene"
)

// Snapshot rasterizes n alone, cropped to its bounds. It implements
// overlay.Snapshotter and is used for covers.
func (r *Renderer) Snapshot(n scene.Node, opts overlay.SnapshotOptions) (*image.RGBA, error) {
	if n == nil {
		return nil, fmt.Errorf("截图节点为空")
	}
	box, err := r.bounds(n)
	if err != nil {
		return nil, err
	}
	if box.W <= 0 || box.H <= 0 {
		return nil, fmt.Errorf("节点 %s 没有可见区域", n.Kind())
	}
	mult := opts.Multiplier
	if mult <= 0 {
		mult = 1
	}
	if _, _, err := scene.PixelSize(box.W*mult, box.H*mult, 0); err != nil {
		return nil, fmt.Errorf("截图尺寸: %w", err)
	}
	s, err := r.NewSurface(box.W, box.H)
	if err != nil {
		return nil, err
	}
	d := &drawer{r: r, s: s, root: scene.Matrix{1, 0, 0, 1, -box.X, -box.Y}}
	if err := d.node(n, scene.Identity, 1); err != nil {
		return nil, err
	}
	img := s.Image(mult)
	if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
		b := img.Bounds()
		h := int(math.Max(1, math.Round(float64(b.Dy())*float64(opts.MaxWidth)/float64(b.Dx()))))
		img = scaleImage(img, opts.MaxWidth, h)
	}
	return img, nil
}

// bounds is scene.SubtreeBounds with unsized text measured first.
func (r *Renderer) bounds(n scene.Node) (scene.Rect, error) {
	b := *n.Attrs()
	if t, ok := n.(*scene.Text); ok && (b.Width <= 0 || b.Height <= 0) {
		tb, err := r.textBox(t, nil)
		if err != nil {
			return scene.Rect{}, err
		}
		if b.Width <= 0 {
			b.Width = tb.Width
		}
		if b.Height <= 0 {
			b.Height = tb.Height
		}
	}
	box := scene.Bounds(&b)
	c, ok := n.(scene.Container)
	if !ok {
		return box, nil
	}
	m := b.Transform()
	for _, child := range c.Children() {
		cb, err := r.bounds(child)
		if err != nil {
			return scene.Rect{}, err
		}
		box = box.Union(m.Box(cb))
	}
	return box, nil
}
