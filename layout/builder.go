package layout

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ByLCY/pictrans/scene"
)

// previewer is implemented by translation overlays, whose origin preview is
// laid out alongside the real children so covers can be drawn later.
type previewer interface {
	Origin() *scene.Text
}

// Build 遍历文档，为每个文本节点（含翻译覆盖层的原文预览）计算排版结果。
func Build(doc *scene.Document, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("layout: 文档为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	res := &Result{Width: doc.Width, Height: doc.Height}
	for i, n := range doc.Objects {
		if err := collect(n, "objects["+strconv.Itoa(i)+"]", res, opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func collect(n scene.Node, path string, res *Result, opts BuildOptions) error {
	if t, ok := n.(*scene.Text); ok {
		tb, err := ComposeText(t, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		tb.Path = path
		res.add(t, tb)
		return nil
	}
	if p, ok := n.(previewer); ok && p.Origin() != nil {
		tb, err := ComposeText(p.Origin(), opts)
		if err != nil {
			return fmt.Errorf("%s.origin: %w", path, err)
		}
		tb.Path = path + ".origin"
		res.add(p.Origin(), tb)
	}
	c, ok := n.(scene.Container)
	if !ok {
		return nil
	}
	for i, child := range c.Children() {
		if err := collect(child, path+".objects["+strconv.Itoa(i)+"]", res, opts); err != nil {
			return err
		}
	}
	return nil
}

// ComposeText 将单个文本节点排成多行。textbox 在节点宽度内自动折行
// （splitByGrapheme 时逐字符折行），其它文本类型只在显式换行处断行。
func ComposeText(t *scene.Text, opts BuildOptions) (TextBox, error) {
	if opts.Typesetter == nil {
		return TextBox{}, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	fontSize := t.FontSize
	if fontSize <= 0 {
		fontSize = 40
	}
	lineHeight := LineHeightSpec{Kind: LineHeightFactor, Factor: t.LineHeight}.Resolve(fontSize)

	wrap, width := "nowrap", 0.0
	if t.Kind() == scene.KindTextbox && t.Width > 0 {
		wrap, width = "anywhere", t.Width
		if t.SplitByGrapheme() {
			wrap = "break-word"
		}
	}
	font := Font{Family: t.FontFamily, Bold: t.Bold(), Italic: t.Italic()}

	lines, err := opts.Typesetter.LayoutLines(t.Text, width, font, fontSize, lineHeight, wrap)
	if err != nil {
		return TextBox{}, fmt.Errorf("layout: 文本排版失败: %w", err)
	}

	totalHeight, maxWidth := 0.0, 0.0
	defaultLeading := math.Max(lineHeight-fontSize, 0)
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = fontSize
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = defaultLeading
		}
		totalHeight += lines[i].GapBefore + lines[i].Height
		maxWidth = math.Max(maxWidth, lines[i].Width)
	}

	boxWidth := t.Width
	if boxWidth <= 0 {
		boxWidth = maxWidth
	}
	tb := TextBox{
		ID:         t.ID,
		Content:    t.Text,
		Font:       font,
		FontSize:   fontSize,
		LineHeight: lineHeight,
		Width:      boxWidth,
		Height:     totalHeight,
		Align:      t.TextAlign,
		Wrap:       wrap,
		Lines:      lines,
	}
	if opts.Debug.Points {
		tb.Debug = &TextBoxDebug{Points: &PointsJSON{
			FontSize:   fontSize / PxPerPt,
			LineHeight: lineHeight / PxPerPt,
		}}
		if fr, ok := opts.Typesetter.(FamilyResolver); ok {
			tb.Debug.Family = fr.ResolveFamily(t.FontFamily, t.Text)
		}
	}
	return tb, nil
}
