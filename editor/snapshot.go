package editor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/disintegration/imaging"

	"mymerch/catalog"
	"mymerch/models"
)

// Snapshot is the serialized design: content elements plus canvas size.
// The background is not part of it.
// Example:
// {
//   "canvasWidth": 600,
//   "canvasHeight": 600,
//   "elements": [
//     {"type": "text", "id": "…", "text": "Hello", "fontFamily": "Arial", "fontSize": 32,
//      "fill": "#ffffff", "position": {"x": 300, "y": 300}, "width": 86.1, "height": 32,
//      "scaleX": 1, "scaleY": 1, "angle": 0},
//     {"type": "image", "id": "…", "src": "data:image/png;base64,…", "position": {...}, ...}
//   ]
// }
type Snapshot struct {
	CanvasWidth  int               `json:"canvasWidth"`
	CanvasHeight int               `json:"canvasHeight"`
	Elements     []SnapshotElement `json:"elements"`
}

// SnapshotElement is one serialized content element
type SnapshotElement struct {
	Type       Kind    `json:"type"`
	ID         string  `json:"id"`
	Text       string  `json:"text,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Fill       string  `json:"fill,omitempty"`
	Src        string  `json:"src,omitempty"`
	Transform
}

// Snapshot serializes the content elements as JSON
func (e *Editor) Snapshot() (string, error) {
	e.mu.Lock()
	snap := Snapshot{CanvasWidth: e.size.Width, CanvasHeight: e.size.Height}
	content := append([]Element(nil), e.content...)
	e.mu.Unlock()

	snap.Elements = make([]SnapshotElement, 0, len(content))
	for _, el := range content {
		switch v := el.(type) {
		case TextContent:
			snap.Elements = append(snap.Elements, SnapshotElement{
				Type:       KindText,
				ID:         v.ID,
				Text:       v.Text,
				FontFamily: v.FontFamily,
				FontSize:   v.FontSize,
				Fill:       v.FillColor,
				Transform:  v.Transform,
			})
		case ImageContent:
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, v.Bitmap, imaging.PNG); err != nil {
				return "", fmt.Errorf("failed to encode image element: %w", err)
			}
			snap.Elements = append(snap.Elements, SnapshotElement{
				Type:      KindImage,
				ID:        v.ID,
				Src:       catalog.EncodeDataURL("image/png", buf.Bytes()),
				Transform: v.Transform,
			})
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(data), nil
}

// LoadSnapshot replaces the content with the elements of data. The
// background is kept. Nothing changes when data is invalid.
// Element geometry is clamped the same way Update clamps it.
func (e *Editor) LoadSnapshot(data string) error {
	e.mu.Lock()
	size, initialized := e.size, e.initialized
	e.mu.Unlock()
	if !initialized {
		return models.NewValidationError("Editor is not initialized")
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return models.NewValidationError("Invalid design snapshot: %v", err)
	}

	content := make([]Element, 0, len(snap.Elements))
	for i, se := range snap.Elements {
		if se.ID == "" {
			return models.NewValidationError("Snapshot element %d has no id", i+1)
		}
		t, err := se.Transform.bounded(size)
		if err != nil {
			return models.NewValidationError("Snapshot element %d: %s", i+1, err.Error())
		}
		switch se.Type {
		case KindText:
			if se.Text == "" {
				return models.NewValidationError("Snapshot element %d has no text", i+1)
			}
			content = append(content, TextContent{
				ID:         se.ID,
				Text:       se.Text,
				FontFamily: se.FontFamily,
				FontSize:   se.FontSize,
				FillColor:  se.Fill,
				Transform:  t,
			})
		case KindImage:
			raw, err := catalog.DecodeDataURL(se.Src)
			if err != nil {
				return models.NewValidationError("Snapshot element %d: %v", i+1, err)
			}
			if _, err := catalog.CheckImageSize(raw, catalog.DefaultMaxImagePixels); err != nil {
				return models.NewValidationError("Snapshot element %d image is too large or unreadable", i+1)
			}
			bitmap, err := imaging.Decode(bytes.NewReader(raw))
			if err != nil {
				return models.NewDecodeError(err, "Snapshot element %d image could not be decoded", i+1)
			}
			content = append(content, ImageContent{ID: se.ID, Bitmap: bitmap, Transform: t})
		default:
			return models.NewValidationError("Snapshot element %d has unknown type %q", i+1, se.Type)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return models.NewValidationError("Editor is not initialized")
	}
	e.content = content
	e.selected = ""
	return nil
}
