package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/pictrans/fonts"
	"github.com/ByLCY/pictrans/layout"
	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/paint"
	"github.com/ByLCY/pictrans/renderer"
	"github.com/ByLCY/pictrans/scene"
)

// Renderer draws scene documents via github.com/tdewolff/canvas and
// rasterizes them at one pixel per canvas unit.
type Renderer struct {
	fonts  *fonts.Registry
	logger *slog.Logger
}

var (
	_ renderer.Renderer     = (*Renderer)(nil)
	_ layout.Typesetter     = (*Renderer)(nil)
	_ layout.FamilyResolver = (*Renderer)(nil)
	_ overlay.Snapshotter   = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	// Fonts resolves font families. Nil means a registry holding only the
	// built-in default family.
	Fonts  *fonts.Registry
	Logger *slog.Logger
}

// NewRenderer creates a canvas-based renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	reg := opts.Fonts
	if reg == nil {
		reg = fonts.NewRegistry()
		if err := reg.RegisterDefault(); err != nil {
			return nil, err
		}
		reg.Seal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{fonts: reg, logger: logger}, nil
}

// Surface is a drawing target of fixed pixel size.
type Surface struct {
	c   *canvas.Canvas
	ctx *canvas.Context
}

// NewSurface allocates a width×height pixel surface.
func (r *Renderer) NewSurface(width, height float64) (*Surface, error) {
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("无效的画布尺寸 %gx%g", width, height)
	}
	if _, _, err := scene.PixelSize(width, height, 0); err != nil {
		return nil, fmt.Errorf("画布尺寸: %w", err)
	}
	c := canvas.New(width, height)
	return &Surface{c: c, ctx: canvas.NewContext(c)}, nil
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (float64, float64) { return s.c.W, s.c.H }

// Image rasterizes the surface; multiplier scales the pixel density.
func (s *Surface) Image(multiplier float64) *image.RGBA {
	if multiplier <= 0 {
		multiplier = 1
	}
	return rasterizer.Draw(s.c, canvas.DPMM(multiplier), canvas.DefaultColorSpace)
}

// WritePNG rasterizes the surface and encodes it straight into w.
func (s *Surface) WritePNG(w io.Writer) error {
	if err := png.Encode(w, s.Image(1)); err != nil {
		return fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return nil
}

// Render draws doc on a surface of the document size and writes a PNG.
func (r *Renderer) Render(doc *scene.Document, result *layout.Result, w io.Writer) error {
	if doc == nil {
		return fmt.Errorf("文档为空")
	}
	s, err := r.NewSurface(doc.Width, doc.Height)
	if err != nil {
		return err
	}
	if err := r.Draw(s, doc, result); err != nil {
		return err
	}
	return s.WritePNG(w)
}

// Draw paints the background then every visible object, back to front.
func (r *Renderer) Draw(s *Surface, doc *scene.Document, result *layout.Result) error {
	if doc == nil {
		return fmt.Errorf("文档为空")
	}
	if doc.Background != "" {
		bg, err := paint.Parse(doc.Background)
		if err != nil {
			r.logger.Warn("忽略无法解析的背景色", "background", doc.Background, "err", err)
		} else {
			s.ctx.ResetView()
			s.ctx.SetFillColor(bg)
			s.ctx.SetStrokeColor(canvas.Transparent)
			s.ctx.DrawPath(0, 0, canvas.Rectangle(s.c.W, s.c.H))
		}
	}
	d := &drawer{r: r, s: s, result: result}
	for _, n := range doc.Objects {
		if err := d.node(n, scene.Identity, 1); err != nil {
			return err
		}
	}
	return nil
}

// drawer carries per-surface state through a traversal.
type drawer struct {
	r      *Renderer
	s      *Surface
	result *layout.Result
	// root maps scene coordinates onto the surface (offset for snapshots).
	root scene.Matrix
}

func (d *drawer) node(n scene.Node, parent scene.Matrix, alpha float64) error {
	b := n.Attrs()
	if !b.Visible {
		return nil
	}
	alpha *= clamp01(b.Opacity)

	var tb *layout.TextBox
	box := *b
	if t, ok := n.(*scene.Text); ok {
		laid, err := d.r.textBox(t, d.result)
		if err != nil {
			return err
		}
		tb = &laid
		if box.Width <= 0 {
			box.Width = laid.Width
		}
		if box.Height <= 0 {
			box.Height = laid.Height
		}
	}
	m := parent.Mul(box.Transform())
	d.setView(m)

	switch v := n.(type) {
	case *scene.Text:
		if err := d.text(v, box, *tb, alpha); err != nil {
			return err
		}
	case *scene.Image:
		if err := d.image(v, box, alpha); err != nil {
			return err
		}
	case *scene.Shape:
		d.shape(v, box, alpha)
	case scene.Container:
		for _, c := range v.Children() {
			if err := d.node(c, m, alpha); err != nil {
				return err
			}
		}
	default:
		d.r.logger.Debug("跳过无法绘制的节点", "type", n.Kind())
	}
	return nil
}

// setView maps local y-up drawing coordinates centered on the node onto the
// y-up surface: flip · root · m · reflect.
func (d *drawer) setView(m scene.Matrix) {
	full := d.root
	if full == (scene.Matrix{}) {
		full = scene.Identity
	}
	full = full.Mul(m)
	cm := canvas.Matrix{{full[0], full[2], full[4]}, {full[1], full[3], full[5]}}
	flip := canvas.Identity.Translate(0, d.s.c.H).ReflectY()
	d.s.ctx.SetView(flip.Mul(cm).ReflectY())
}

func (d *drawer) shape(s *scene.Shape, b scene.Base, alpha float64) {
	ctx := d.s.ctx
	ctx.SetFillColor(d.r.color(s.Kind(), "fill", b.Fill, alpha))
	ctx.SetStrokeColor(d.r.color(s.Kind(), "stroke", b.Stroke, alpha))
	ctx.SetStrokeWidth(b.StrokeWidth)

	w, h := b.Width, b.Height
	switch s.Kind() {
	case scene.KindRect:
		rx := math.Max(s.Rx, s.Ry)
		if rx > 0 {
			ctx.DrawPath(-w/2, -h/2, canvas.RoundedRectangle(w, h, rx))
		} else {
			ctx.DrawPath(-w/2, -h/2, canvas.Rectangle(w, h))
		}
	case scene.KindCircle:
		ctx.DrawPath(0, 0, canvas.Circle(s.Radius))
	case scene.KindEllipse:
		rx, ry := s.Rx, s.Ry
		if rx == 0 && ry == 0 {
			rx, ry = w/2, h/2
		}
		ctx.DrawPath(0, 0, canvas.Ellipse(rx, ry))
	case scene.KindTriangle:
		p := &canvas.Path{}
		p.MoveTo(0, h/2)
		p.LineTo(w/2, -h/2)
		p.LineTo(-w/2, -h/2)
		p.Close()
		ctx.DrawPath(0, 0, p)
	case scene.KindLine:
		cx, cy := (s.X1+s.X2)/2, (s.Y1+s.Y2)/2
		p := &canvas.Path{}
		p.MoveTo(s.X1-cx, cy-s.Y1)
		p.LineTo(s.X2-cx, cy-s.Y2)
		if b.Stroke == "" {
			ctx.SetStrokeColor(d.r.color(s.Kind(), "stroke", "rgb(0,0,0)", alpha))
		}
		ctx.SetFillColor(canvas.Transparent)
		ctx.DrawPath(0, 0, p)
	}
}

func (d *drawer) image(img *scene.Image, b scene.Base, alpha float64) error {
	bitmap := img.Bitmap()
	if bitmap == nil {
		d.r.logger.Warn("图片未解析，跳过", "src", shorten(img.Src))
		return nil
	}
	// 裁剪会按节点尺寸分配位图
	if _, _, err := scene.PixelSize(b.Width, b.Height, 0); err != nil {
		return fmt.Errorf("图片 %s: %w", shorten(img.Src), err)
	}
	src := cropImage(bitmap, img.CropX, img.CropY, b.Width, b.Height)
	if alpha < 1 {
		src = fade(src, alpha)
	}
	d.s.ctx.DrawImage(-b.Width/2, -b.Height/2, src, canvas.DPMM(1))
	return nil
}

func (d *drawer) text(t *scene.Text, b scene.Base, tb layout.TextBox, alpha float64) error {
	col := d.r.color(t.Kind(), "fill", t.Fill, alpha)
	var deco []canvas.FontDecorator
	if t.Underline {
		deco = append(deco, canvas.FontUnderline)
	}
	if t.Overline {
		deco = append(deco, canvas.FontOverline)
	}
	if t.Linethrough {
		deco = append(deco, canvas.FontStrikethrough)
	}
	face, err := d.r.fonts.Face(t.FontFamily, t.Text, layout.FacePoints(tb.FontSize), col, fontStyle(tb.Font), deco...)
	if err != nil {
		return fmt.Errorf("加载字体 %q 失败: %w", t.FontFamily, err)
	}

	// 处理水平对齐：left（默认）/center/right。
	var textAlign canvas.TextAlign
	var anchorX float64
	switch tb.Align {
	case "center":
		textAlign, anchorX = canvas.Center, 0
	case "right", "end":
		textAlign, anchorX = canvas.Right, b.Width/2
	default:
		textAlign, anchorX = canvas.Left, -b.Width/2
	}

	ascent := face.Metrics().Ascent
	cursor := 0.0 // 自内容框顶部向下的偏移
	for _, line := range tb.Lines {
		cursor += line.GapBefore
		// 基线位置：行顶部加上字体上升部（Ascent）
		baseline := b.Height/2 - cursor - ascent
		d.s.ctx.DrawText(anchorX, baseline, canvas.NewTextLine(face, line.Content, textAlign))
		cursor += line.Height
	}
	return nil
}

// color parses a paint string; unparsable or empty paint draws nothing.
func (r *Renderer) color(kind scene.Kind, attr, value string, alpha float64) color.Color {
	if value == "" {
		return canvas.Transparent
	}
	c, err := paint.Parse(value)
	if err != nil {
		r.logger.Debug("不支持的颜色值", "type", kind, "attr", attr, "value", value)
		return canvas.Transparent
	}
	c.A = uint8(math.Round(float64(c.A) * alpha))
	return c
}

func fontStyle(f layout.Font) canvas.FontStyle {
	style := canvas.FontRegular
	if f.Bold {
		style = canvas.FontBold
	}
	if f.Italic {
		style |= canvas.FontItalic
	}
	return style
}

func clamp01(v float64) float64 { return math.Min(math.Max(v, 0), 1) }

func shorten(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
