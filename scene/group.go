package scene

import (
	"encoding/json"
	"fmt"
)

// Group exclusively owns an ordered, non-empty sequence of children.
// Child coordinates are relative to the group center.
type Group struct {
	Base
	// PreGrouped records that the children already carried their final
	// coordinates at construction, so no renormalization happened.
	PreGrouped bool

	children []Node
}

// NewGroup builds a group over children.
//
// Without preGrouped the children are taken to be in parent coordinates:
// the group geometry becomes their union and each child is shifted so it is
// relative to the group center. With preGrouped the children are kept as
// they are; a zero group size is derived from them.
func NewGroup(children []Node, base Base, preGrouped bool) (*Group, error) {
	if len(children) == 0 {
		return nil, ErrEmptyGroup
	}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("scene: child %d is nil", i)
		}
	}
	if base.Type == "" {
		base.Type = KindGroup
	}
	if base.Rest == nil {
		base.Rest = map[string]json.RawMessage{}
	}
	g := &Group{Base: base, PreGrouped: preGrouped, children: append([]Node(nil), children...)}
	if preGrouped {
		if g.Width == 0 && g.Height == 0 {
			u := g.childrenBox()
			g.Width, g.Height = u.W, u.H
		}
		return g, nil
	}

	u := g.childrenBox()
	g.Left, g.Top = u.X, u.Y
	g.Width, g.Height = u.W, u.H
	g.Angle, g.ScaleX, g.ScaleY = 0, 1, 1
	g.OriginX, g.OriginY = "left", "top"
	cx, cy := u.X+u.W/2, u.Y+u.H/2
	for _, c := range g.children {
		a := c.Attrs()
		a.Left -= cx
		a.Top -= cy
	}
	return g, nil
}

func (g *Group) childrenBox() Rect {
	var u Rect
	for _, c := range g.children {
		u = u.Union(Bounds(c))
	}
	return u
}

// Children returns the child sequence in z-order (back to front).
// The slice is a copy; the nodes are shared.
func (g *Group) Children() []Node {
	return append([]Node(nil), g.children...)
}

// Len is the number of children.
func (g *Group) Len() int { return len(g.children) }

// Add appends n on top of the existing children.
func (g *Group) Add(n Node) error {
	return g.Insert(len(g.children), n)
}

// Insert places n at index i.
func (g *Group) Insert(i int, n Node) error {
	if n == nil {
		return fmt.Errorf("scene: cannot insert nil node")
	}
	if i < 0 || i > len(g.children) {
		return fmt.Errorf("scene: insert index %d out of range [0,%d]", i, len(g.children))
	}
	g.children = append(g.children, nil)
	copy(g.children[i+1:], g.children[i:])
	g.children[i] = n
	return nil
}

// Remove detaches n. Removing the last child fails with ErrEmptyGroup.
func (g *Group) Remove(n Node) error {
	for i, c := range g.children {
		if c != n {
			continue
		}
		if len(g.children) == 1 {
			return ErrEmptyGroup
		}
		g.children = append(g.children[:i], g.children[i+1:]...)
		return nil
	}
	return ErrNotChild
}

// Walk visits n and its descendants depth-first, parents before children.
func Walk(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	c, ok := n.(Container)
	if !ok {
		return nil
	}
	for _, child := range c.Children() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
