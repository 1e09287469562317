package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/pictrans/layout"
	"github.com/ByLCY/pictrans/scene"
)

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：width/fontSize/lineHeight 入参均为像素（px），与画布单位一致；
// 字体系统使用 pt，在边界通过 layout.FacePoints 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.Font, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fonts.Face(font.Family, content, layout.FacePoints(fontSize), canvas.Black, fontStyle(font))
	if err != nil {
		return nil, err
	}

	if wrap == "" {
		wrap = "anywhere"
	}
	lines := wrapLines(content, width, face.TextWidth, wrap)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: "", Width: 0, Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// ResolveFamily reports the registered family that draws text requested in family.
func (r *Renderer) ResolveFamily(family, text string) string {
	return r.fonts.Resolve(family, text)
}

// textBox returns the layout of t from result, laying it out on demand.
func (r *Renderer) textBox(t *scene.Text, result *layout.Result) (layout.TextBox, error) {
	if tb, ok := result.Lookup(t); ok {
		return tb, nil
	}
	return layout.ComposeText(t, layout.BuildOptions{Typesetter: r})
}

// wrapLines 把 content 切成行，宽度由 measure 以画布像素给出。
// wrap 取值：nowrap 只在显式换行处断行；break-word 逐字符折行；
// 其余（anywhere）优先在空白处折行，单词超宽时再在词内拆分。
func wrapLines(content string, width float64, measure func(string) float64, wrap string) []layout.TextLine {
	paragraphs := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
	if wrap == "nowrap" {
		lines := make([]layout.TextLine, 0, len(paragraphs))
		for _, p := range paragraphs {
			lines = append(lines, layout.TextLine{Content: p, Width: measure(p)})
		}
		return lines
	}

	limit := width
	if limit <= 0 {
		limit = math.Inf(1)
	}
	lb := &lineBuilder{measure: measure, limit: limit}
	for _, p := range paragraphs {
		if wrap == "break-word" {
			for _, r := range p {
				lb.push(string(r))
			}
		} else {
			for _, run := range splitRuns(p) {
				if measure(run) <= limit {
					lb.push(run)
					continue
				}
				for _, piece := range splitToken(run, limit, measure) {
					lb.push(piece)
				}
			}
		}
		lb.flush(true)
	}
	return lb.lines
}

// lineBuilder 累积当前行。行宽是各片段宽度之和。
type lineBuilder struct {
	measure func(string) float64
	limit   float64
	lines   []layout.TextLine
	buf     strings.Builder
	width   float64
}

// push 追加一个片段：放不下时先结束当前行，追加后仍超宽（单个片段比行宽还宽）则立即断行。
func (lb *lineBuilder) push(piece string) {
	w := lb.measure(piece)
	if lb.width > 0 && lb.width+w > lb.limit {
		lb.flush(false)
	}
	lb.buf.WriteString(piece)
	lb.width += w
	if lb.width > lb.limit {
		lb.flush(false)
	}
}

// flush 结束当前行。explicit 表示显式换行，此时空行也要保留。
func (lb *lineBuilder) flush(explicit bool) {
	if lb.buf.Len() == 0 && !explicit {
		return
	}
	if lb.buf.Len() == 0 {
		lb.lines = append(lb.lines, layout.TextLine{})
		return
	}
	lb.lines = append(lb.lines, layout.TextLine{Content: lb.buf.String(), Width: lb.width})
	lb.buf.Reset()
	lb.width = 0
}

// splitRuns 把一段文本切成交替的空白与非空白片段。
func splitRuns(s string) []string {
	var runs []string
	start, prevSpace := 0, false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != prevSpace {
			runs = append(runs, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		runs = append(runs, s[start:])
	}
	return runs
}

// splitToken 把超宽的词拆成不超过 limit 的片段；单个字符超宽时独占一段。
func splitToken(token string, limit float64, measure func(string) float64) []string {
	runes := []rune(token)
	var parts []string
	start := 0
	for end := 1; end <= len(runes); end++ {
		if end-start > 1 && measure(string(runes[start:end])) > limit {
			parts = append(parts, string(runes[start:end-1]))
			start = end - 1
		}
	}
	return append(parts, string(runes[start:]))
}
