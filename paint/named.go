package paint

import "image/color"

// named holds the keywords the editor emits; it is not the full CSS table.
var named = map[string]color.NRGBA{
	"none":        Transparent,
	"transparent": Transparent,
	"black":       rgb(0, 0, 0),
	"white":       rgb(255, 255, 255),
	"red":         rgb(255, 0, 0),
	"green":       rgb(0, 128, 0),
	"lime":        rgb(0, 255, 0),
	"blue":        rgb(0, 0, 255),
	"yellow":      rgb(255, 255, 0),
	"orange":      rgb(255, 165, 0),
	"purple":      rgb(128, 0, 128),
	"pink":        rgb(255, 192, 203),
	"brown":       rgb(165, 42, 42),
	"cyan":        rgb(0, 255, 255),
	"magenta":     rgb(255, 0, 255),
	"gray":        rgb(128, 128, 128),
	"grey":        rgb(128, 128, 128),
	"silver":      rgb(192, 192, 192),
	"lightgray":   rgb(211, 211, 211),
	"lightgrey":   rgb(211, 211, 211),
	"darkgray":    rgb(169, 169, 169),
	"darkgrey":    rgb(169, 169, 169),
	"navy":        rgb(0, 0, 128),
	"teal":        rgb(0, 128, 128),
	"maroon":      rgb(128, 0, 0),
	"olive":       rgb(128, 128, 0),
}

func rgb(r, g, b uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: 255} }
