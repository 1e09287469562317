package layout

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/scene"
)

// stubTypesetter 是一个最小实现，仅用于测试：每个字符宽 fontSize/2，
// width>0 时按字符数硬折行。
type stubTypesetter struct {
	calls []string
}

func (s *stubTypesetter) LayoutLines(content string, width float64, font Font, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	s.calls = append(s.calls, wrap)
	charW := fontSize / 2
	var lines []TextLine
	for _, part := range strings.Split(content, "\n") {
		runes := []rune(part)
		per := len(runes)
		if wrap != "nowrap" && width > 0 {
			per = max(int(width/charW), 1)
		}
		if len(runes) == 0 {
			lines = append(lines, TextLine{})
			continue
		}
		for i := 0; i < len(runes); i += per {
			end := min(i+per, len(runes))
			lines = append(lines, TextLine{Content: string(runes[i:end]), Width: float64(end-i) * charW})
		}
	}
	// 不设置 Height/GapBefore，由 ComposeText 回填。
	return lines, nil
}

func (s *stubTypesetter) ResolveFamily(family, text string) string { return "Stub" }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// TestTextBoxTotalHeightInvariant 断言：TextBox.Height == Σ(line.Height + line.GapBefore)。
func TestTextBoxTotalHeightInvariant(t *testing.T) {
	txt := scene.NewText(scene.KindTextbox, "long long long long long long long")
	txt.Width, txt.FontSize, txt.LineHeight = 100, 20, 1.5
	tb, err := ComposeText(txt, BuildOptions{Typesetter: &stubTypesetter{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(tb.Lines) < 2 {
		t.Fatalf("textbox should wrap, got %d lines", len(tb.Lines))
	}
	total := 0.0
	for i, ln := range tb.Lines {
		total += ln.GapBefore + ln.Height
		if i == 0 && ln.GapBefore != 0 {
			t.Fatalf("首行 GapBefore 必须为 0")
		}
		if i > 0 && !approx(ln.GapBefore, 10) {
			t.Fatalf("line %d GapBefore = %g, want 10", i, ln.GapBefore)
		}
		if ln.Width > tb.Width {
			t.Fatalf("line %d exceeds the box: %g > %g", i, ln.Width, tb.Width)
		}
	}
	if !approx(total, tb.Height) {
		t.Fatalf("TextBox.Height 不变式不成立: got=%g want=%g", tb.Height, total)
	}
}

func TestPlainTextOnlyBreaksOnNewlines(t *testing.T) {
	txt := scene.NewText(scene.KindIText, "first line\nsecond")
	txt.FontSize = 10
	ts := &stubTypesetter{}
	tb, err := ComposeText(txt, BuildOptions{Typesetter: ts})
	if err != nil {
		t.Fatal(err)
	}
	if len(tb.Lines) != 2 || ts.calls[0] != "nowrap" {
		t.Fatalf("lines = %+v wrap=%v", tb.Lines, ts.calls)
	}
	// 未设置宽度时取最长行
	if !approx(tb.Width, 50) {
		t.Fatalf("width = %g, want 50", tb.Width)
	}
}

func TestTextboxWrapMode(t *testing.T) {
	txt := scene.NewText(scene.KindTextbox, "文字排版")
	txt.Width, txt.FontSize = 40, 10
	ts := &stubTypesetter{}
	if _, err := ComposeText(txt, BuildOptions{Typesetter: ts}); err != nil {
		t.Fatal(err)
	}
	if err := txt.Set("splitByGrapheme", true); err != nil {
		t.Fatal(err)
	}
	tb, err := ComposeText(txt, BuildOptions{Typesetter: ts})
	if err != nil {
		t.Fatal(err)
	}
	if ts.calls[0] != "anywhere" || ts.calls[1] != "break-word" || tb.Wrap != "break-word" {
		t.Fatalf("wrap modes = %v", ts.calls)
	}
}

func TestBuildCoversNestedTextAndOrigin(t *testing.T) {
	bg := scene.NewImage(scene.KindImage, "bg.png")
	txt := scene.NewText(scene.KindTextbox, "Hola")
	txt.Width = 200
	ov, err := overlay.New([]scene.Node{bg, txt}, overlay.Options{})
	if err != nil {
		t.Fatal(err)
	}
	title := scene.NewText(scene.KindText, "Title")
	title.ID = "title"
	doc := scene.NewDocument()
	doc.Width, doc.Height = 800, 600
	doc.Add(title)
	doc.Add(ov)

	res, err := Build(doc, BuildOptions{Typesetter: &stubTypesetter{}, Debug: DebugOptions{Points: true}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Texts) != 3 {
		t.Fatalf("got %d text boxes, want 3", len(res.Texts))
	}
	tb, ok := res.Lookup(txt)
	if !ok || tb.Path != "objects[1].objects[1]" {
		t.Fatalf("nested text = %+v, %v", tb, ok)
	}
	origin, ok := res.Lookup(ov.Origin())
	if !ok || origin.Path != "objects[1].origin" || origin.Content != "Original: unknown" {
		t.Fatalf("origin preview = %+v, %v", origin, ok)
	}
	top, _ := res.Lookup(title)
	if top.Debug == nil || top.Debug.Points == nil || !approx(top.Debug.Points.FontSize, 30) {
		t.Fatalf("debug points = %+v", top.Debug)
	}
	if top.Debug.Family != "Stub" {
		t.Fatalf("debug family = %q", top.Debug.Family)
	}
}

func TestBuildRequiresTypesetter(t *testing.T) {
	if _, err := Build(scene.NewDocument(), BuildOptions{}); err == nil {
		t.Fatalf("expected an error without a typesetter")
	}
	if _, err := Build(nil, BuildOptions{Typesetter: &stubTypesetter{}}); err == nil {
		t.Fatalf("expected an error for a nil document")
	}
}

func TestWriteDebugJSON(t *testing.T) {
	doc := scene.NewDocument()
	doc.Add(scene.NewText(scene.KindText, "x"))
	res, err := Build(doc, BuildOptions{Typesetter: &stubTypesetter{}})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteDebugJSON(res, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var back Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Texts) != 1 || back.Texts[0].Content != "x" {
		t.Fatalf("debug json = %s", data)
	}
}
