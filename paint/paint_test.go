package paint_test

import (
	"errors"
	"image/color"
	"testing"

	"github.com/ByLCY/pictrans/paint"
)

func TestParseColors(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
	}{
		{"", paint.Transparent},
		{"none", paint.Transparent},
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"#ffffff", color.NRGBA{255, 255, 255, 255}},
		{"#0F62FE80", color.NRGBA{0x0f, 0x62, 0xfe, 0x80}},
		{"rgb(160, 160, 160)", color.NRGBA{160, 160, 160, 255}},
		{"rgba(255,0,0,0.5)", color.NRGBA{255, 0, 0, 128}},
		{"rgb(100%, 0%, 50%)", color.NRGBA{255, 0, 128, 255}},
		{"rgb(10 20 30 / 50%)", color.NRGBA{10, 20, 30, 128}},
		{"hsl(0, 100%, 50%)", color.NRGBA{255, 0, 0, 255}},
		{"White", color.NRGBA{255, 255, 255, 255}},
	}
	for _, tc := range cases {
		got, err := paint.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"#12345", "rgb(1,2)", "cmyk(1,2,3,4)", "notacolor", "rgb(1,2,3"} {
		if _, err := paint.Parse(in); !errors.Is(err, paint.ErrInvalid) {
			t.Errorf("Parse(%q) expected ErrInvalid, got %v", in, err)
		}
	}
}

func TestOrFallsBack(t *testing.T) {
	fb := color.NRGBA{1, 2, 3, 255}
	if got := paint.Or("bogus(", fb); got != fb {
		t.Fatalf("Or = %v, want fallback", got)
	}
}
