package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestLengthToPX 覆盖 Length 在常见单位上转为像素的正确性。
func TestLengthToPX(t *testing.T) {
	cases := []struct {
		in   Length
		want float64
	}{
		{Length{Value: 800}, 800},
		{Length{Value: 800, Unit: UnitPX}, 800},
		{Length{Value: 1, Unit: UnitIN}, 96},
		{Length{Value: 2.54, Unit: UnitCM}, 96},
		{Length{Value: 25.4, Unit: UnitMM}, 96},
		{Length{Value: 12, Unit: UnitPT}, 16},
	}
	for _, c := range cases {
		if got := c.in.ToPX(); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("%v%s 转 px 期望 %g，实际 %g", c.in.Value, UnitToString(c.in.Unit), c.want, got)
		}
	}
	if got := (Length{Value: 16, Unit: UnitPX}).ToPT(); math.Abs(got-12) > 1e-9 {
		t.Fatalf("16px 转 pt 期望 12，实际 %g", got)
	}
}

func TestParseLength(t *testing.T) {
	l, err := ParseLength(" 210mm ")
	if err != nil || l.Unit != UnitMM || l.Value != 210 {
		t.Fatalf("ParseLength(210mm) = %+v, %v", l, err)
	}
	l, err = ParseLength("600")
	if err != nil || l.Unit != UnitNone || l.ToPX() != 600 {
		t.Fatalf("ParseLength(600) = %+v, %v", l, err)
	}
	if _, err := ParseLength("wide"); err == nil {
		t.Fatalf("expected an error for a non-numeric length")
	}
}

// TestLineHeightResolve 验证行高解析：倍数与绝对值两种语义。
func TestLineHeightResolve(t *testing.T) {
	factor := LineHeightSpec{Kind: LineHeightFactor, Factor: 1.2}
	if got := factor.Resolve(20); math.Abs(got-24) > 1e-9 {
		t.Fatalf("1.2x 解析错误: got=%g want=24", got)
	}
	abs := LineHeightSpec{Kind: LineHeightAbsolute, Len: Length{Value: 18, Unit: UnitPT}}
	if got := abs.Resolve(20); math.Abs(got-24) > 1e-9 {
		t.Fatalf("18pt 行高解析错误: got=%g want=24", got)
	}
	if got := (LineHeightSpec{}).Resolve(10); math.Abs(got-11.6) > 1e-9 {
		t.Fatalf("缺省行高应为 1.16x，实际 %g", got)
	}
}
