package editor

import (
	"image/color"
	"strconv"
	"strings"
)

var fallbackColor = color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}

// ParseColor reads #rgb, #rrggbb or #rrggbbaa; anything else yields def
func ParseColor(s string, def color.NRGBA) color.NRGBA {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return def
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return def
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}
