package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mymerch/logger"
	"mymerch/models"
	"mymerch/storage"
)

// PreviewController serves preview images kept by this process
type PreviewController struct {
	images storage.ImageServer
	log    *zap.Logger
}

// NewPreviewController creates a new PreviewController
func NewPreviewController(images storage.ImageServer, log *zap.Logger) *PreviewController {
	return &PreviewController{images: images, log: logger.OrNop(log)}
}

// ServePreview handles GET /api/previews/{key}
func (c *PreviewController) ServePreview(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	data, contentType, err := c.images.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, c.log, models.NewNotFoundError("Preview %s not found", key))
			return
		}
		writeError(w, r, c.log, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Keys are unique per upload, so the content never changes
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
