// Package paint parses the CSS color strings stored in fill and stroke attributes.
package paint

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalid is returned for strings that are not a supported color.
var ErrInvalid = errors.New("paint: invalid color")

// Transparent is the color of an empty or "none" paint.
var Transparent = color.NRGBA{}

var (
	paintLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Hex", Pattern: `#[0-9A-Fa-f]+`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d*|\.\d+|\d+)(?:deg|%)?`},
		{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9-]*`},
		{Name: "Punct", Pattern: `[(),/]`},
	})

	paintParser = participle.MustBuild[Expr](
		participle.Lexer(paintLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// Expr is the root of a color expression: #hex, a color function or a keyword.
type Expr struct {
	Hex  string    `parser:"  @Hex"`
	Func *Function `parser:"| @@"`
	Name string    `parser:"| @Ident"`
}

// Function is rgb(), rgba(), hsl() or hsla().
type Function struct {
	Name string   `parser:"@Ident '('"`
	Args []string `parser:"@Number ( ( ',' | '/' )? @Number )* ')'"`
}

// Parse converts s into a color. Empty strings and "none" are transparent.
func Parse(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Transparent, nil
	}
	expr, err := paintParser.ParseString("", s)
	if err != nil {
		return Transparent, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	switch {
	case expr.Hex != "":
		return parseHex(expr.Hex)
	case expr.Func != nil:
		return expr.Func.eval()
	default:
		c, ok := named[strings.ToLower(expr.Name)]
		if !ok {
			return Transparent, fmt.Errorf("%w: unknown keyword %q", ErrInvalid, expr.Name)
		}
		return c, nil
	}
}

// Or parses s and returns fallback when s is not a valid color.
func Or(s string, fallback color.NRGBA) color.NRGBA {
	c, err := Parse(s)
	if err != nil {
		return fallback
	}
	return c
}

func (f *Function) eval() (color.NRGBA, error) {
	name := strings.ToLower(f.Name)
	switch name {
	case "rgb", "rgba":
		if len(f.Args) != 3 && len(f.Args) != 4 {
			return Transparent, fmt.Errorf("%w: %s expects 3 or 4 arguments", ErrInvalid, name)
		}
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			v, err := channel(f.Args[i])
			if err != nil {
				return Transparent, err
			}
			ch[i] = v
		}
		a, err := alpha(f.Args, 3)
		if err != nil {
			return Transparent, err
		}
		return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, nil
	case "hsl", "hsla":
		if len(f.Args) != 3 && len(f.Args) != 4 {
			return Transparent, fmt.Errorf("%w: %s expects 3 or 4 arguments", ErrInvalid, name)
		}
		h, err := number(strings.TrimSuffix(f.Args[0], "deg"))
		if err != nil {
			return Transparent, err
		}
		s, err := fraction(f.Args[1])
		if err != nil {
			return Transparent, err
		}
		l, err := fraction(f.Args[2])
		if err != nil {
			return Transparent, err
		}
		a, err := alpha(f.Args, 3)
		if err != nil {
			return Transparent, err
		}
		r, g, b := colorful.Hsl(math.Mod(h+360, 360), s, l).Clamped().RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: a}, nil
	default:
		return Transparent, fmt.Errorf("%w: unknown function %q", ErrInvalid, f.Name)
	}
}

func parseHex(h string) (color.NRGBA, error) {
	digits := strings.TrimPrefix(h, "#")
	switch len(digits) {
	case 3, 4:
		var expanded strings.Builder
		for _, d := range digits {
			expanded.WriteRune(d)
			expanded.WriteRune(d)
		}
		digits = expanded.String()
	case 6, 8:
	default:
		return Transparent, fmt.Errorf("%w: bad hex length %q", ErrInvalid, h)
	}
	if len(digits) == 6 {
		digits += "ff"
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return Transparent, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// channel parses 0-255 or a percentage.
func channel(arg string) (uint8, error) {
	if strings.HasSuffix(arg, "%") {
		f, err := fraction(arg)
		if err != nil {
			return 0, err
		}
		return uint8(math.Round(f * 255)), nil
	}
	v, err := number(arg)
	if err != nil {
		return 0, err
	}
	return uint8(math.Round(clamp(v, 0, 255))), nil
}

// alpha parses args[i] as 0-1 or a percentage; absent means opaque.
func alpha(args []string, i int) (uint8, error) {
	if len(args) <= i {
		return 255, nil
	}
	var f float64
	var err error
	if strings.HasSuffix(args[i], "%") {
		f, err = fraction(args[i])
	} else {
		f, err = number(args[i])
	}
	if err != nil {
		return 0, err
	}
	return uint8(math.Round(clamp(f, 0, 1) * 255)), nil
}

func fraction(arg string) (float64, error) {
	v, err := number(strings.TrimSuffix(arg, "%"))
	if err != nil {
		return 0, err
	}
	if strings.HasSuffix(arg, "%") {
		v /= 100
	}
	return clamp(v, 0, 1), nil
}

func number(arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrInvalid, arg)
	}
	return v, nil
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
