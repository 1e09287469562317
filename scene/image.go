package scene

import "image"

// Image is a bitmap node (kind "image") or a vector node rasterized on
// resolution (kind "svg"). The bitmap is resolved by the codec and is
// not part of the serialized form.
type Image struct {
	Base
	Src    string
	CropX  float64
	CropY  float64
	Colors map[string]string

	bitmap image.Image
}

// NewImage returns an image node of kind k (KindImage or KindSVG).
func NewImage(k Kind, src string) *Image {
	if k != KindSVG {
		k = KindImage
	}
	return &Image{Base: NewBase(k), Src: src}
}

// Bitmap returns the resolved pixels, or nil before resolution.
func (i *Image) Bitmap() image.Image { return i.bitmap }

// SetBitmap attaches resolved pixels.
func (i *Image) SetBitmap(img image.Image) { i.bitmap = img }

// NaturalSize is the pixel size of the resolved bitmap.
func (i *Image) NaturalSize() (int, int) {
	if i.bitmap == nil {
		return 0, 0
	}
	b := i.bitmap.Bounds()
	return b.Dx(), b.Dy()
}

// Get returns the attribute stored under key.
func (i *Image) Get(key string) (any, bool) {
	switch key {
	case "src":
		return i.Src, true
	case "cropX":
		return i.CropX, true
	case "cropY":
		return i.CropY, true
	case "colors":
		if i.Type != KindSVG {
			return nil, false
		}
		return i.Colors, true
	}
	return i.Base.Get(key)
}

// Set writes the attribute stored under key. Changing src drops the resolved bitmap.
func (i *Image) Set(key string, value any) error {
	var err error
	switch key {
	case "src":
		var src string
		if src, err = toString(key, value); err == nil && src != i.Src {
			i.Src = src
			i.bitmap = nil
		}
	case "cropX":
		i.CropX, err = toFloat(key, value)
	case "cropY":
		i.CropY, err = toFloat(key, value)
	case "colors":
		if i.Type != KindSVG {
			return i.Base.Set(key, value)
		}
		var m map[string]any
		if m, err = toExtra(key, value); err != nil {
			return err
		}
		colors := make(map[string]string, len(m))
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return toStringErr(key, v)
			}
			colors[k] = s
		}
		i.Colors = colors
		i.bitmap = nil
	default:
		return i.Base.Set(key, value)
	}
	return err
}

func toStringErr(key string, v any) error {
	_, err := toString(key, v)
	return err
}
