package service

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"mymerch/catalog"
)

// defaultMaxPreviewDimension is used when PreviewLimits.MaxDimension <= 0
const defaultMaxPreviewDimension = 1600

// PreviewLimits bounds uploaded previews.
// MaxPixels is checked against the image header before decoding.
type PreviewLimits struct {
	MaxDimension int
	MaxPixels    int
}

// NormalizePreview checks that data decodes as an image within the pixel
// budget, downsizes it so its largest side is at most MaxDimension, and
// re-encodes it as PNG.
// Returns the PNG bytes and the decoded bounds before resizing.
// Oversized images fail with catalog.ErrImageTooLarge without being decoded.
func NormalizePreview(data []byte, limits PreviewLimits, log *zap.Logger) ([]byte, image.Rectangle, error) {
	maxDim := limits.MaxDimension
	if maxDim <= 0 {
		maxDim = defaultMaxPreviewDimension
	}

	if _, err := catalog.CheckImageSize(data, limits.MaxPixels); err != nil {
		return nil, image.Rectangle{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to decode image: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var resized image.Image = img
	if width > maxDim || height > maxDim {
		// Fit keeps the aspect ratio
		resized = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		if log != nil {
			log.Debug("🔄 NormalizePreview: resizing",
				zap.Int("width", width), zap.Int("height", height),
				zap.Int("newWidth", resized.Bounds().Dx()), zap.Int("newHeight", resized.Bounds().Dy()))
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to encode to PNG: %w", err)
	}
	return buf.Bytes(), bounds, nil
}
