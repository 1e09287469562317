// Package overlay implements the translation overlay: a pre-grouped scene
// group pairing an erased background with translated text, gated by a
// translatable toggle. When translation is disabled the children are hidden
// and covers show a legible preview of the original text instead.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/ByLCY/pictrans/fonts"
	"github.com/ByLCY/pictrans/scene"
)

// Kind is the type tag of translation overlays.
const Kind scene.Kind = "d-pt-text"

// Attribute keys. LegacyKey is what older editors wrote.
const (
	Key       = "translatable"
	LegacyKey = "transable"
)

// Origin preview appearance.
const (
	PreviewPrefix   = "Original: "
	PreviewFill     = "rgb(160, 160, 160)"
	PreviewFontSize = 20
	PreviewFamily   = fonts.DefaultFamily
)

// ErrMissingTextChild is returned when no child is a text node.
var ErrMissingTextChild = errors.New("overlay: no text child")

// Options configures New. Translatable defaults to true when nil.
// A Base without a type is replaced by the editor defaults.
type Options struct {
	Base         scene.Base
	Translatable *bool
	// LegacyKey makes the node serialize its toggle under "transable".
	LegacyKey bool
}

// Node is a translation overlay.
type Node struct {
	*scene.Group

	primary      *scene.Text
	origin       *scene.Text
	translatable bool
	legacyKey    bool
}

var _ scene.Translatable = (*Node)(nil)

// New builds an overlay over children. Children keep their coordinates.
func New(children []scene.Node, opts Options) (*Node, error) {
	primary := findPrimary(children)
	if primary == nil {
		return nil, ErrMissingTextChild
	}
	origin := preview(primary)

	base := opts.Base
	if base.Type == "" {
		base = scene.NewBase(Kind)
	}
	base.Type = Kind
	group, err := scene.NewGroup(children, base, true)
	if err != nil {
		return nil, err
	}

	n := &Node{
		Group:        group,
		primary:      primary,
		origin:       origin,
		translatable: true,
		legacyKey:    opts.LegacyKey,
	}
	if opts.Translatable != nil {
		n.translatable = *opts.Translatable
	}
	n.sync()
	return n, nil
}

// findPrimary scans from the end for the last text child.
func findPrimary(children []scene.Node) *scene.Text {
	for i := len(children) - 1; i >= 0; i-- {
		if t, ok := children[i].(*scene.Text); ok && t.Kind().IsText() {
			return t
		}
	}
	return nil
}

func preview(primary *scene.Text) *scene.Text {
	p := primary.Clone()
	p.Text = PreviewPrefix + primary.FromText()
	p.Fill = PreviewFill
	delete(p.Rest, "fill")
	p.FontSize = PreviewFontSize
	p.FontFamily = PreviewFamily
	p.Left, p.Top = 0, 0
	p.Angle = 0
	p.Linethrough = true
	p.Visible = true
	return p
}

// sync sets every direct child's visibility to the toggle.
func (n *Node) sync() {
	for _, c := range n.Group.Children() {
		c.Attrs().Visible = n.translatable
	}
}

// Translatable reports the toggle.
func (n *Node) Translatable() bool { return n.translatable }

// SetTranslatable is Set("translatable", v).
func (n *Node) SetTranslatable(v bool) {
	_ = n.Set(Key, v)
}

// UsesLegacyKey reports whether the toggle serializes as "transable".
func (n *Node) UsesLegacyKey() bool { return n.legacyKey }

// Get returns the attribute stored under key.
func (n *Node) Get(key string) (any, bool) {
	if key == Key || key == LegacyKey {
		return n.translatable, true
	}
	return n.Group.Get(key)
}

// Set writes the attribute stored under key. Setting the toggle resyncs
// child visibility before returning.
func (n *Node) Set(key string, value any) error {
	if key != Key && key != LegacyKey {
		return n.Group.Set(key, value)
	}
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: %s wants a bool, got %T", scene.ErrAttribute, key, value)
	}
	n.translatable = v
	n.sync()
	return nil
}

// PrimaryText returns the primary text: the last text child at construction.
// It stays pinned to that node when children are added, and is the same node
// as the one in the child list.
func (n *Node) PrimaryText() *scene.Text { return n.primary }

// Origin returns the origin preview computed at construction.
func (n *Node) Origin() *scene.Text { return n.origin }

// Refresh recomputes the origin preview from the current primary text.
func (n *Node) Refresh() { n.origin = preview(n.primary) }

// Add appends a child and applies the current toggle to it.
func (n *Node) Add(c scene.Node) error {
	return n.Insert(n.Group.Len(), c)
}

// Insert places a child at index i and applies the current toggle to it.
func (n *Node) Insert(i int, c scene.Node) error {
	if err := n.Group.Insert(i, c); err != nil {
		return err
	}
	c.Attrs().Visible = n.translatable
	return nil
}

// Remove detaches a child. Removing the primary text hands the role to the
// last remaining text child and recomputes the origin preview from it; when
// no other text child is left it fails with ErrMissingTextChild.
func (n *Node) Remove(c scene.Node) error {
	if c != scene.Node(n.primary) {
		return n.Group.Remove(c)
	}
	rest := slices.DeleteFunc(n.Group.Children(), func(x scene.Node) bool { return x == c })
	next := findPrimary(rest)
	if next == nil {
		return ErrMissingTextChild
	}
	if err := n.Group.Remove(c); err != nil {
		return err
	}
	n.primary = next
	n.Refresh()
	return nil
}

// CoverSource returns the node a cover should show: the overlay itself when
// translatable, otherwise the origin preview alone.
func (n *Node) CoverSource() scene.Node {
	if n.translatable {
		return n
	}
	return n.origin
}

// SnapshotOptions controls cover rasterization.
type SnapshotOptions struct {
	// Multiplier scales the output; 0 means 1.
	Multiplier float64
	// MaxWidth downscales wider covers, keeping the aspect ratio; 0 means no limit.
	MaxWidth int
}

// Snapshotter rasterizes a single node.
type Snapshotter interface {
	Snapshot(n scene.Node, opts SnapshotOptions) (*image.RGBA, error)
}

// RenderCover rasterizes CoverSource with s.
func (n *Node) RenderCover(s Snapshotter, opts SnapshotOptions) (*image.RGBA, error) {
	return s.Snapshot(n.CoverSource(), opts)
}
