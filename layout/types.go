package layout

// 该文件定义文本排版结果，供渲染、封面截图与调试 JSON 共用。
// 所有长度单位均为画布像素（px）。

// Result 保存一个文档中全部文本节点的排版结果。
type Result struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Texts  []TextBox `json:"texts"`

	index map[any]int
}

// Lookup 返回某个文本节点的排版结果。
func (r *Result) Lookup(node any) (TextBox, bool) {
	if r == nil || r.index == nil {
		return TextBox{}, false
	}
	i, ok := r.index[node]
	if !ok {
		return TextBox{}, false
	}
	return r.Texts[i], true
}

func (r *Result) add(node any, tb TextBox) {
	if r.index == nil {
		r.index = map[any]int{}
	}
	r.index[node] = len(r.Texts)
	r.Texts = append(r.Texts, tb)
}

// Font 描述排版所需的字体选择。
type Font struct {
	Family string `json:"family"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// TextBox 表示一个已经排好行的文本节点，坐标相对节点内容框左上角。
type TextBox struct {
	ID         string        `json:"id,omitempty"`
	Path       string        `json:"path"`
	Content    string        `json:"content"`
	Font       Font          `json:"font"`
	FontSize   float64       `json:"fontSize"`
	LineHeight float64       `json:"lineHeight"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Align      string        `json:"align,omitempty"` // left/center/right/justify（默认 left）
	Wrap       string        `json:"wrap,omitempty"`  // anywhere / nowrap
	Lines      []TextLine    `json:"lines"`
	Debug      *TextBoxDebug `json:"debug,omitempty"`
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// TextBoxDebug holds optional debug info displayed only when enabled by BuildOptions.
type TextBoxDebug struct {
	Points *PointsJSON `json:"points,omitempty"`
	// Family is the family that actually rendered the text after fallback.
	Family string `json:"family,omitempty"`
}

// PointsJSON mirrors the pixel sizes in typographic points.
type PointsJSON struct {
	FontSize   float64 `json:"fontSize"`
	LineHeight float64 `json:"lineHeight"`
}
