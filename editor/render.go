package editor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mymerch/catalog"
)

// basicfont.Face7x13 metrics
const (
	glyphWidth  = 7
	glyphHeight = 13
	glyphAscent = 11
)

var canvasColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// measureText returns the unscaled box of text at fontSize
func measureText(text string, fontSize float64) (float64, float64) {
	lines := strings.Split(text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, len([]rune(l)))
	}
	factor := fontSize / glyphHeight
	return float64(longest*glyphWidth) * factor, float64(len(lines)) * fontSize
}

// Render rasterizes the whole canvas: white fill, background, then content
// in order
func (e *Editor) Render() *image.NRGBA {
	e.mu.Lock()
	size := e.size
	var bg *Background
	if e.background != nil {
		b := *e.background
		bg = &b
	}
	content := append([]Element(nil), e.content...)
	e.mu.Unlock()

	canvas := imaging.New(size.Width, size.Height, canvasColor)

	if bg != nil {
		canvas = paint(canvas, bg.Image, Transform{
			Position: bg.Position,
			ScaleX:   1,
			ScaleY:   1,
		}, bg.Width, bg.Height)
	}

	for _, el := range content {
		switch v := el.(type) {
		case TextContent:
			canvas = paint(canvas, rasterizeText(v), v.Transform, v.Width, v.Height)
		case ImageContent:
			canvas = paint(canvas, v.Bitmap, v.Transform, v.Width, v.Height)
		}
	}
	return canvas
}

// RenderPNG encodes Render as PNG
func (e *Editor) RenderPNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, e.Render(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderDataURL encodes Render as a PNG data URL
func (e *Editor) RenderDataURL() (string, error) {
	data, err := e.RenderPNG()
	if err != nil {
		return "", err
	}
	return catalog.EncodeDataURL("image/png", data), nil
}

// paint draws src onto dst so that the box (width*scaleX, height*scaleY)
// is centered on t.Position and rotated clockwise by t.Angle degrees.
// natW/natH is the unscaled box size src corresponds to.
func paint(dst *image.NRGBA, src image.Image, t Transform, natW, natH float64) *image.NRGBA {
	if src == nil {
		return dst
	}
	w := int(math.Round(natW * t.ScaleX))
	h := int(math.Round(natH * t.ScaleY))
	if w < 1 || h < 1 {
		return dst
	}

	img := imaging.Resize(src, w, h, imaging.Lanczos)
	var placed image.Image = img
	if t.Angle != 0 {
		placed = imaging.Rotate(img, -t.Angle, color.Transparent)
	}

	b := placed.Bounds()
	origin := image.Pt(
		int(math.Round(t.Position.X-float64(b.Dx())/2)),
		int(math.Round(t.Position.Y-float64(b.Dy())/2)),
	)
	return imaging.Overlay(dst, placed, origin, 1.0)
}

// rasterizeText draws the text at the bitmap font's native size. paint
// scales it to the element box.
func rasterizeText(t TextContent) image.Image {
	lines := strings.Split(t.Text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, len([]rune(l)))
	}
	if longest == 0 {
		return nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, longest*glyphWidth, len(lines)*glyphHeight))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ParseColor(t.FillColor, color.NRGBA{A: 0xff})),
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		d.Dot = fixed.P(0, glyphAscent+i*glyphHeight)
		d.DrawString(line)
	}
	return img
}
