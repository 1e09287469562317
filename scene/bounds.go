package scene

import "math"

// Rect is an axis-aligned box.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 && r.H <= 0 }

// Union returns the smallest box containing r and o. Empty boxes are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1, y1 := math.Max(r.X+r.W, o.X+o.W), math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Matrix is an affine transform [a c e; b d f].
type Matrix [6]float64

// Identity is the identity transform.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Mul returns m·n (n applied first).
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Box returns the axis-aligned bounds of r after transformation.
func (m Matrix) Box(r Rect) Rect {
	xs := [4]float64{r.X, r.X + r.W, r.X + r.W, r.X}
	ys := [4]float64{r.Y, r.Y, r.Y + r.H, r.Y + r.H}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range xs {
		x, y := m.Apply(xs[i], ys[i])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func originFactor(origin string) float64 {
	switch origin {
	case "center":
		return 0.5
	case "right", "bottom":
		return 1
	default:
		return 0
	}
}

// Center is the node center in parent coordinates; left/top name the
// origin point and rotation happens around it.
func (b *Base) Center() (float64, float64) {
	w, h := b.Width*b.ScaleX, b.Height*b.ScaleY
	dx := (0.5 - originFactor(b.OriginX)) * w
	dy := (0.5 - originFactor(b.OriginY)) * h
	rad := b.Angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return b.Left + dx*cos - dy*sin, b.Top + dx*sin + dy*cos
}

// Transform maps local coordinates (centered on the node) to parent coordinates.
func (b *Base) Transform() Matrix {
	cx, cy := b.Center()
	sin, cos := math.Sincos(b.Angle * math.Pi / 180)
	return Matrix{cos * b.ScaleX, sin * b.ScaleX, -sin * b.ScaleY, cos * b.ScaleY, cx, cy}
}

// LocalBox is the untransformed content box, centered on the origin.
func (b *Base) LocalBox() Rect {
	return Rect{X: -b.Width / 2, Y: -b.Height / 2, W: b.Width, H: b.Height}
}

// Bounds returns the box of n in its parent's coordinates.
func Bounds(n Node) Rect {
	b := n.Attrs()
	return b.Transform().Box(b.LocalBox())
}

// SubtreeBounds returns Bounds(n) grown by every descendant.
func SubtreeBounds(n Node) Rect {
	r := Bounds(n)
	c, ok := n.(Container)
	if !ok {
		return r
	}
	m := n.Attrs().Transform()
	for _, child := range c.Children() {
		r = r.Union(m.Box(SubtreeBounds(child)))
	}
	return r
}
