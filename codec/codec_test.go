package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ByLCY/pictrans/asset"
	"github.com/ByLCY/pictrans/overlay"
	"github.com/ByLCY/pictrans/scene"
)

// stubAssets serves fixed-size bitmaps; sources named "slow-*" take longer.
type stubAssets struct {
	calls atomic.Int32
}

func (s *stubAssets) Image(ctx context.Context, src string) (image.Image, error) {
	s.calls.Add(1)
	if strings.HasPrefix(src, "missing") {
		return nil, fmt.Errorf("%w: %s", asset.ErrNotFound, src)
	}
	if strings.HasPrefix(src, "slow") {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 6)), nil
}

func (s *stubAssets) SVG(ctx context.Context, src string, colors map[string]string, w, h int) (image.Image, error) {
	s.calls.Add(1)
	if w == 0 {
		w, h = 10, 10
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

const designJSON = `{
  "version": "5.3.0",
  "width": 800,
  "height": 600,
  "background": "#ffffff",
  "hoverCursor": "move",
  "objects": [
    {"type": "rect", "id": "workspace", "left": 0, "top": 0, "width": 800, "height": 600,
     "fill": "#fff", "selectable": false, "shadow": {"blur": 4, "color": "#000"}},
    {"type": "image", "src": "bg.png", "left": 10, "top": 10, "cropX": 2},
    {"type": "d-pt-text", "left": 100, "top": 120, "width": 200, "height": 80, "translatable": false,
     "objects": [
       {"type": "image", "src": "erased.png", "left": -100, "top": -40},
       {"type": "textbox", "text": "Hola", "fontFamily": "Go", "fontSize": 24, "fontWeight": 700,
        "extra": {"from_text": "Hello", "from_lan": "en", "to_lan": "es"}}
     ]},
    {"type": "group", "left": 300, "top": 300, "width": 50, "height": 50,
     "objects": [
       {"type": "circle", "radius": 10, "fill": {"type": "linear", "colorStops": []}},
       {"type": "i-text", "text": "no extra"}
     ]},
    {"type": "svg", "src": "logo.svg", "width": 40, "height": 20, "colors": {"--a": "#f00"}}
  ]
}`

func decodeDesign(t *testing.T) (*scene.Document, *stubAssets) {
	t.Helper()
	assets := &stubAssets{}
	d := &Decoder{Assets: assets}
	doc, err := d.Decode(context.Background(), []byte(designJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc, assets
}

func TestDecodeBuildsTree(t *testing.T) {
	doc, assets := decodeDesign(t)
	if len(doc.Objects) != 5 {
		t.Fatalf("got %d objects", len(doc.Objects))
	}
	if doc.Width != 800 || doc.Version != "5.3.0" || doc.Background != "#ffffff" {
		t.Fatalf("document attrs = %+v", doc)
	}
	if ws, ok := doc.Workspace(); !ok || ws.Kind() != scene.KindRect {
		t.Fatalf("workspace not found")
	}

	img := doc.Objects[1].(*scene.Image)
	if img.Bitmap() == nil || img.Width != 8 || img.Height != 6 {
		t.Fatalf("image not resolved: %v %vx%v", img.Bitmap(), img.Width, img.Height)
	}

	ov, ok := doc.Objects[2].(*overlay.Node)
	if !ok {
		t.Fatalf("objects[2] is %T, want overlay", doc.Objects[2])
	}
	if ov.Translatable() {
		t.Fatalf("translatable=false was lost")
	}
	for _, c := range ov.Children() {
		if c.Attrs().Visible {
			t.Fatalf("children of a disabled overlay must be hidden")
		}
	}
	if ov.PrimaryText().Text != "Hola" || ov.Origin().Text != "Original: Hello" {
		t.Fatalf("overlay text %q / %q", ov.PrimaryText().Text, ov.Origin().Text)
	}
	if ov.Children()[0].Attrs().Left != -100 {
		t.Fatalf("overlay children must keep their coordinates")
	}

	svg := doc.Objects[4].(*scene.Image)
	if w, h := svg.NaturalSize(); w != 40 || h != 20 {
		t.Fatalf("svg rasterized at %dx%d", w, h)
	}
	if got := assets.calls.Load(); got != 3 {
		t.Fatalf("asset calls = %d, want 3", got)
	}
}

func TestRoundTripKeepsRecognizedFields(t *testing.T) {
	doc, _ := decodeDesign(t)
	data, err := EncodeDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	var in, out map[string]any
	if err := json.Unmarshal([]byte(designJSON), &in); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	assertSubset(t, "", in, out)
}

func TestRoundTripKeepsZeroSizeAndBothToggleKeys(t *testing.T) {
	const src = `{
	  "version": "",
	  "width": 0,
	  "height": 0,
	  "objects": [
	    {"type": "d-pt-text", "translatable": true, "transable": false, "objects": [
	      {"type": "text", "text": "Hola", "extra": {}}
	    ]}
	  ]
	}`
	doc, err := (&Decoder{}).Decode(context.Background(), []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	ov := doc.Objects[0].(*overlay.Node)
	if !ov.Translatable() || ov.UsesLegacyKey() {
		t.Fatalf("translatable must win over transable")
	}
	data, err := EncodeDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	var in, out map[string]any
	if err := json.Unmarshal([]byte(src), &in); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	assertSubset(t, "", in, out)

	// 未出现的文档字段仍然省略
	bare, err := (&Decoder{}).Decode(context.Background(), []byte(`{"objects":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	data, err = EncodeDocument(bare)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"objects":[]}` {
		t.Fatalf("bare document encoded as %s", data)
	}
}

// assertSubset checks that every field of want appears unchanged in got.
func assertSubset(t *testing.T, path string, want, got any) {
	t.Helper()
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			t.Fatalf("%s: got %T, want object", path, got)
		}
		for k, v := range w {
			gv, ok := g[k]
			if !ok {
				t.Fatalf("%s.%s missing after round trip", path, k)
			}
			assertSubset(t, path+"."+k, v, gv)
		}
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			t.Fatalf("%s: got %v, want %v", path, got, want)
		}
		for i := range w {
			assertSubset(t, fmt.Sprintf("%s[%d]", path, i), w[i], g[i])
		}
	default:
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("%s = %v, want %v", path, got, want)
		}
	}
}

func TestEncodeEmitsEmptyExtra(t *testing.T) {
	doc, _ := decodeDesign(t)
	g := doc.Objects[3].(*scene.Group)
	obj, err := Encode(g.Children()[1])
	if err != nil {
		t.Fatal(err)
	}
	extra, ok := obj["extra"].(map[string]any)
	if !ok || len(extra) != 0 {
		t.Fatalf("extra = %#v, want {}", obj["extra"])
	}
}

func TestEncodeGradientFillStaysOpaque(t *testing.T) {
	doc, _ := decodeDesign(t)
	circle := doc.Objects[3].(*scene.Group).Children()[0]
	obj, err := Encode(circle)
	if err != nil {
		t.Fatal(err)
	}
	raw, ok := obj["fill"].(json.RawMessage)
	if !ok || !strings.Contains(string(raw), "linear") {
		t.Fatalf("fill = %#v", obj["fill"])
	}
	if obj["radius"] != 10.0 {
		t.Fatalf("radius = %v", obj["radius"])
	}
}

func TestLegacyTransableKey(t *testing.T) {
	raw := `{"type":"d-pt-text","transable":false,"objects":[{"type":"text","text":"x"}]}`
	d := &Decoder{}
	n, err := d.DecodeNode(context.Background(), json.RawMessage(raw))
	if err != nil {
		t.Fatal(err)
	}
	ov := n.(*overlay.Node)
	if ov.Translatable() || !ov.UsesLegacyKey() {
		t.Fatalf("legacy key not honored")
	}
	obj, err := Encode(ov)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := obj[overlay.LegacyKey]; !ok || v != false {
		t.Fatalf("transable = %v (%v)", v, ok)
	}
	if _, ok := obj[overlay.Key]; ok {
		t.Fatalf("legacy input must not grow a translatable key")
	}
}

func TestOverlayDefaultsTranslatable(t *testing.T) {
	raw := `{"type":"d-pt-text","objects":[{"type":"text","text":"x"}]}`
	n, err := (&Decoder{}).DecodeNode(context.Background(), json.RawMessage(raw))
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := Encode(n)
	if obj[overlay.Key] != true {
		t.Fatalf("translatable = %v", obj[overlay.Key])
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	raw := `{"objects":[{"type":"rect"},{"type":"hologram"}]}`
	_, err := (&Decoder{}).Decode(context.Background(), []byte(raw))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Path != "objects[1]" {
		t.Fatalf("path = %+v", de)
	}
}

func TestDecodeAssetFailureAbortsWholeTree(t *testing.T) {
	raw := `{"objects":[
	  {"type":"image","src":"slow-a.png"},
	  {"type":"group","objects":[{"type":"image","src":"missing.png"}]},
	  {"type":"image","src":"slow-b.png"}
	]}`
	doc, err := (&Decoder{Assets: &stubAssets{}}).Decode(context.Background(), []byte(raw))
	if doc != nil {
		t.Fatalf("partial document returned")
	}
	if !errors.Is(err, ErrDecode) || !errors.Is(err, asset.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Path != "objects[1].objects[0]" {
		t.Fatalf("path = %+v", de)
	}
}

func TestDecodeRejectsHugeImages(t *testing.T) {
	for name, raw := range map[string]string{
		"svg":      `{"objects":[{"type":"svg","src":"logo.svg","width":2147483648,"height":2147483648}]}`,
		"image":    `{"objects":[{"type":"image","src":"a.png","width":1e12,"height":10}]}`,
		"negative": `{"objects":[{"type":"image","width":-5,"height":10}]}`,
	} {
		assets := &stubAssets{}
		_, err := (&Decoder{Assets: assets}).Decode(context.Background(), []byte(raw))
		if !errors.Is(err, ErrDecode) || !errors.Is(err, scene.ErrTooLarge) {
			t.Errorf("%s: err = %v", name, err)
		}
		if assets.calls.Load() != 0 {
			t.Errorf("%s: assets fetched for an oversized node", name)
		}
	}
}

func TestDecodeKeepsOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"objects":[`)
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		src := "fast.png"
		if i%2 == 0 {
			src = "slow.png"
		}
		fmt.Fprintf(&b, `{"type":"image","id":"n%d","src":%q}`, i, src)
	}
	b.WriteString(`]}`)

	doc, err := (&Decoder{Assets: &stubAssets{}}).Decode(context.Background(), []byte(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range doc.Objects {
		if want := fmt.Sprintf("n%d", i); n.Attrs().ID != want {
			t.Fatalf("objects[%d] = %s, want %s", i, n.Attrs().ID, want)
		}
	}
}

func TestDecodeRejectsEmptyGroupAndMissingText(t *testing.T) {
	for name, raw := range map[string]string{
		"empty group":  `{"type":"group","objects":[]}`,
		"no text":      `{"type":"d-pt-text","objects":[{"type":"rect"}]}`,
		"missing type": `{"left":1}`,
		"bad attr":     `{"type":"rect","left":"far"}`,
	} {
		if _, err := (&Decoder{}).DecodeNode(context.Background(), json.RawMessage(raw)); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: expected ErrDecode, got %v", name, err)
		}
	}
	_, err := (&Decoder{}).DecodeNode(context.Background(), json.RawMessage(`{"type":"d-pt-text","objects":[{"type":"rect"}]}`))
	if !errors.Is(err, overlay.ErrMissingTextChild) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestDecodeNullAttributeUsesDefault(t *testing.T) {
	n, err := (&Decoder{}).DecodeNode(context.Background(), json.RawMessage(`{"type":"rect","id":null,"stroke":null,"scaleX":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if n.Attrs().ScaleX != 1 {
		t.Fatalf("scaleX = %v", n.Attrs().ScaleX)
	}
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Decoder{}).Decode(ctx, []byte(`{"objects":[{"type":"rect"}]}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeAsync(t *testing.T) {
	done := make(chan error, 1)
	(&Decoder{Assets: &stubAssets{}}).DecodeAsync(context.Background(), []byte(designJSON), func(doc *scene.Document, err error) {
		if err == nil && len(doc.Objects) != 5 {
			err = fmt.Errorf("got %d objects", len(doc.Objects))
		}
		done <- err
	})
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never ran")
	}
}
