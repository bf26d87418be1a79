package editor

import (
	"image"
	"math"

	"mymerch/models"
)

// maxExtent bounds a scaled element box to this multiple of the larger
// canvas side. Positions may sit at most that far outside the canvas.
const maxExtent = 4

// Kind tags the three element variants
type Kind string

const (
	KindBackground Kind = "background"
	KindText       Kind = "text"
	KindImage      Kind = "image"
)

// Point is a canvas coordinate in pixels
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is a Background, TextContent or ImageContent. The set is closed.
type Element interface {
	ElementID() string
	Kind() Kind
	Interactive() bool
	isElement()
}

// Transform is the geometry shared by content elements. Position is the
// center of the element; Width and Height are unscaled.
type Transform struct {
	Position Point   `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	Angle    float64 `json:"angle"`
}

// Background is the product photo behind the design. It never takes input
// and always renders first.
type Background struct {
	ID       string
	Image    image.Image
	Position Point
	Width    float64
	Height   float64
	// Fallback is set when the photo could not be decoded and Image is a
	// solid rectangle in the variant color
	Fallback bool
}

func (b Background) ElementID() string { return b.ID }
func (Background) Kind() Kind          { return KindBackground }
func (Background) Interactive() bool   { return false }
func (Background) isElement()          {}

// TextContent is a line (or lines) of text placed by the customer
type TextContent struct {
	ID         string
	Text       string
	FontFamily string
	FontSize   float64
	FillColor  string
	Transform
}

func (t TextContent) ElementID() string { return t.ID }
func (TextContent) Kind() Kind          { return KindText }
func (TextContent) Interactive() bool   { return true }
func (TextContent) isElement()          {}

// ImageContent is an uploaded picture placed by the customer
type ImageContent struct {
	ID     string
	Bitmap image.Image
	Transform
}

func (i ImageContent) ElementID() string { return i.ID }
func (ImageContent) Kind() Kind          { return KindImage }
func (ImageContent) Interactive() bool   { return true }
func (ImageContent) isElement()          {}

func transformOf(e Element) (Transform, bool) {
	switch v := e.(type) {
	case TextContent:
		return v.Transform, true
	case ImageContent:
		return v.Transform, true
	}
	return Transform{}, false
}

func withTransform(e Element, t Transform) Element {
	switch v := e.(type) {
	case TextContent:
		v.Transform = t
		return v
	case ImageContent:
		v.Transform = t
		return v
	}
	return e
}

// bounded checks t and clamps it so that its scaled box and position stay
// within maxExtent canvases. Width and Height must already be set.
func (t Transform) bounded(size Size) (Transform, error) {
	for _, v := range []float64{t.Position.X, t.Position.Y, t.Width, t.Height, t.ScaleX, t.ScaleY, t.Angle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return t, models.NewValidationError("Transform values must be finite")
		}
	}
	if t.ScaleX <= 0 || t.ScaleY <= 0 {
		return t, models.NewValidationError("Scale must be positive")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return t, models.NewValidationError("Width and height must be positive")
	}

	limit := maxExtent * float64(max(size.Width, size.Height, 1))
	if t.Width*t.ScaleX > limit {
		t.ScaleX = limit / t.Width
	}
	if t.Height*t.ScaleY > limit {
		t.ScaleY = limit / t.Height
	}
	t.Position.X = math.Max(-limit, math.Min(float64(size.Width)+limit, t.Position.X))
	t.Position.Y = math.Max(-limit, math.Min(float64(size.Height)+limit, t.Position.Y))
	t.Angle = math.Mod(t.Angle, 360)
	return t, nil
}
