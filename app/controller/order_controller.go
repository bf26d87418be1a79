package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"mymerch/logger"
	"mymerch/models"
	"mymerch/service"
)

// defaultMaxUploadBytes bounds the order envelope when none is configured
const defaultMaxUploadBytes = 32 << 20

// OrderController handles HTTP requests for orders
type OrderController struct {
	orders   service.OrderServiceInterface
	proofs   service.ProofServiceInterface
	maxBytes int64
	log      *zap.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(orders service.OrderServiceInterface, proofs service.ProofServiceInterface, maxBytes int64, log *zap.Logger) *OrderController {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &OrderController{
		orders:   orders,
		proofs:   proofs,
		maxBytes: maxBytes,
		log:      logger.OrNop(log),
	}
}

// SubmitOrder handles POST /api/orders
// Body is multipart/form-data with mockupsData, one mockupImages part per
// mockup, customerEmail, customerPhone and notes.
func (c *OrderController) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxBytes)

	in, err := c.parseSubmission(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, c.log, models.NewValidationError("Request is larger than %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, c.log, models.NewValidationError("Invalid multipart body: %v", err))
		return
	}

	order, err := c.orders.SubmitOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, c.log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, models.SubmitOrderResponse{OrderID: order.ID, Order: order.Summary()})
}

func (c *OrderController) parseSubmission(r *http.Request) (*models.OrderSubmission, error) {
	// Everything beyond 8MB spills to temp files, removed below
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	in := &models.OrderSubmission{
		MockupsData:   r.FormValue("mockupsData"),
		CustomerEmail: r.FormValue("customerEmail"),
		CustomerPhone: r.FormValue("customerPhone"),
		Notes:         r.FormValue("notes"),
	}
	for i, fh := range r.MultipartForm.File["mockupImages"] {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("mockup image %d: %w", i+1, err)
		}
		in.Images = append(in.Images, models.UploadedImage{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return in, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ListOrders handles GET /api/admin/orders?status=
func (c *OrderController) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := c.orders.ListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, c.log, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	render.JSON(w, r, models.OrderListResponse{Orders: orders})
}

// GetOrder handles GET /api/admin/orders/{id}
func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := c.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, c.log, err)
		return
	}
	render.JSON(w, r, order)
}

// UpdateOrderStatus handles PATCH /api/admin/orders/{id}/status
// Body: {"orderStatus": "In Review"}
func (c *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, c.log, models.NewValidationError("Invalid request body: %v", err))
		return
	}

	order, err := c.orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.OrderStatus)
	if err != nil {
		writeError(w, r, c.log, err)
		return
	}
	render.JSON(w, r, order)
}

// GetOrderProof handles GET /api/admin/orders/{id}/proof
// Returns a PDF, or the HTML sheet with ?format=html
func (c *OrderController) GetOrderProof(w http.ResponseWriter, r *http.Request) {
	order, err := c.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, c.log, err)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		html, err := c.proofs.RenderProofHTML(r.Context(), order)
		if err != nil {
			writeError(w, r, c.log, err)
			return
		}
		render.HTML(w, r, html)
		return
	}

	pdf, err := c.proofs.GeneratePDF(r.Context(), order)
	if err != nil {
		writeError(w, r, c.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="order-%s.pdf"`, order.ID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
