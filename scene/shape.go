package scene

// Shape is a primitive drawn by the backend: rect, circle, ellipse, triangle or line.
type Shape struct {
	Base
	Rx     float64
	Ry     float64
	Radius float64
	X1     float64
	Y1     float64
	X2     float64
	Y2     float64
}

// NewShape returns a shape of kind k with the editor defaults.
func NewShape(k Kind) *Shape {
	return &Shape{Base: NewBase(k)}
}

// IsShape reports whether k is drawn by Shape.
func IsShape(k Kind) bool {
	switch k {
	case KindRect, KindCircle, KindEllipse, KindTriangle, KindLine:
		return true
	default:
		return false
	}
}

func (s *Shape) field(key string) *float64 {
	switch key {
	case "rx":
		return &s.Rx
	case "ry":
		return &s.Ry
	case "radius":
		return &s.Radius
	case "x1":
		return &s.X1
	case "y1":
		return &s.Y1
	case "x2":
		return &s.X2
	case "y2":
		return &s.Y2
	}
	return nil
}

// ShapeKeys lists the geometry attributes owned by shapes of kind k.
func ShapeKeys(k Kind) []string {
	switch k {
	case KindRect, KindEllipse:
		return []string{"rx", "ry"}
	case KindCircle:
		return []string{"radius"}
	case KindLine:
		return []string{"x1", "y1", "x2", "y2"}
	default:
		return nil
	}
}

func (s *Shape) owns(key string) bool {
	for _, k := range ShapeKeys(s.Type) {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the attribute stored under key.
func (s *Shape) Get(key string) (any, bool) {
	if s.owns(key) {
		return *s.field(key), true
	}
	return s.Base.Get(key)
}

// Set writes the attribute stored under key.
func (s *Shape) Set(key string, value any) error {
	if !s.owns(key) {
		return s.Base.Set(key, value)
	}
	v, err := toFloat(key, value)
	if err != nil {
		return err
	}
	*s.field(key) = v
	if s.Type == KindCircle && key == "radius" {
		s.Width, s.Height = 2*v, 2*v
	}
	return nil
}
