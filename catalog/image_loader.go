package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

// maxImageBytes bounds reference photo downloads
const maxImageBytes = 20 << 20

// DefaultMaxImagePixels is the decode budget used when none is configured
const DefaultMaxImagePixels = 40_000_000

// ErrImageTooLarge is returned when an image header declares more pixels
// than the decode budget allows
var ErrImageTooLarge = errors.New("image exceeds pixel budget")

// CheckImageSize reads only the image header and rejects images whose
// declared width*height exceeds maxPixels (DefaultMaxImagePixels when <= 0).
func CheckImageSize(data []byte, maxPixels int) (image.Config, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, fmt.Errorf("image has no pixels")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return cfg, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	return cfg, nil
}

// ImageLoader fetches and decodes product reference images. Sources may be
// http(s) URLs or base64 data URLs.
type ImageLoader struct {
	httpClient *http.Client
}

// NewImageLoader creates a loader; a nil client uses http.DefaultClient
func NewImageLoader(hc *http.Client) *ImageLoader {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &ImageLoader{httpClient: hc}
}

// Load fetches src and decodes it
func (l *ImageLoader) Load(ctx context.Context, src string) (image.Image, error) {
	data, err := l.fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	if _, err := CheckImageSize(data, DefaultMaxImagePixels); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (l *ImageLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return DecodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build image request: %w", err)
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	case src == "":
		return nil, fmt.Errorf("no image source")
	default:
		return nil, fmt.Errorf("unsupported image source %q", src)
	}
}

// DecodeDataURL returns the payload of a base64 data URL
func DecodeDataURL(dataURL string) ([]byte, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("not a base64 data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URL payload: %w", err)
	}
	return data, nil
}

// EncodeDataURL builds a base64 data URL
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
