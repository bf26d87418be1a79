package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"mymerch/models"
)

// statusFor maps an AppError code to an HTTP status. Anything else is a 500.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeDecode:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {message}. Internal failures get a generic
// message unless they carry an AppError.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := statusFor(err)
	message := err.Error()

	var appErr *models.AppError
	if status == http.StatusInternalServerError {
		log.Error("❌ Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		if !errors.As(err, &appErr) {
			message = "Internal server error"
		}
	}

	render.Status(r, status)
	render.JSON(w, r, models.ErrorResponse{Message: message})
}
