// Package submission sends a cart to the order endpoint as one multipart
// request.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"mymerch/cart"
	"mymerch/catalog"
	"mymerch/logger"
	"mymerch/models"
)

// Multipart field names of the order envelope
const (
	FieldMockupsData   = "mockupsData"
	FieldMockupImages  = "mockupImages"
	FieldCustomerEmail = "customerEmail"
	FieldCustomerPhone = "customerPhone"
	FieldNotes         = "notes"
)

const ordersPath = "/api/orders"

// Pipeline submits carts to the order service
type Pipeline struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Pipeline) { p.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = logger.OrNop(log) }
}

// New creates a pipeline posting to baseURL + /api/orders
func New(baseURL string, opts ...Option) *Pipeline {
	p := &Pipeline{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit posts every mockup in c with the customer contact. Once the server
// answers 201 the submitted mockups are removed from c, even if the response
// body cannot be decoded; that case returns a decode error. On any other
// failure c is left as it was. Exactly one request is made per call.
func (p *Pipeline) Submit(ctx context.Context, c *cart.Cart, email, phone, notes string) (*models.SubmitOrderResponse, error) {
	if c == nil || c.Len() == 0 {
		return nil, models.NewValidationError("at least one mockup required")
	}
	mockups := c.Mockups()

	body, contentType, err := buildEnvelope(mockups, email, phone, notes)
	if err != nil {
		return nil, err
	}

	p.log.Info("📦 Submit: sending order",
		zap.Int("mockups", len(mockups)),
		zap.Int("bytes", body.Len()))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+ordersPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Error("❌ Submit: order endpoint unreachable", zap.Error(err))
		return nil, models.NewTransportError(err, "Could not reach the order service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err := responseError(resp)
		p.log.Warn("❌ Submit: order rejected", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, err
	}

	// 201 means the order exists; keeping the mockups would invite a duplicate
	for _, m := range mockups {
		c.Remove(m.ID)
	}

	var out models.SubmitOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		p.log.Error("❌ Submit: order created but response unreadable", zap.Error(err))
		return nil, models.NewDecodeError(err, "Order was created but the confirmation could not be read")
	}
	p.log.Info("✅ Submit: order created",
		zap.String("orderId", out.OrderID),
		zap.Int("totalQuantity", out.Order.TotalQuantity))
	return &out, nil
}

// buildEnvelope writes the metadata array, one image part per mockup in the
// same order, and the contact fields
func buildEnvelope(mockups []models.Mockup, email, phone, notes string) (*bytes.Buffer, string, error) {
	data := make([]models.MockupData, 0, len(mockups))
	images := make([][]byte, 0, len(mockups))
	// data[i] and images[i] always describe mockups[i]; a bad preview aborts
	// the whole envelope
	for i, m := range mockups {
		raw, err := catalog.DecodeDataURL(m.PreviewImage)
		if err != nil {
			return nil, "", models.NewValidationError("Mockup %d preview is not a valid image: %v", i+1, err)
		}
		data = append(data, m.Data())
		images = append(images, raw)
	}
	meta, err := json.Marshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode mockup data: %w", err)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField(FieldMockupsData, string(meta)); err != nil {
		return nil, "", fmt.Errorf("failed to write mockup data: %w", err)
	}
	for i, raw := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="mockup-%d.png"`, FieldMockupImages, i+1))
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part %d: %w", i+1, err)
		}
		if _, err := part.Write(raw); err != nil {
			return nil, "", fmt.Errorf("failed to write image part %d: %w", i+1, err)
		}
	}
	for field, value := range map[string]string{
		FieldCustomerEmail: email,
		FieldCustomerPhone: phone,
		FieldNotes:         notes,
	} {
		if err := w.WriteField(field, value); err != nil {
			return nil, "", fmt.Errorf("failed to write %s: %w", field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish order envelope: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// responseError turns a non-201 response into an AppError carrying the
// server message as is
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body models.ErrorResponse
	message := ""
	if json.Unmarshal(raw, &body) == nil {
		message = body.Message
	}
	if message == "" {
		message = fmt.Sprintf("Order submission failed with status %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.NewNotFoundError("%s", message)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return models.NewValidationError("%s", message)
	default:
		return models.NewInternalError(fmt.Errorf("order service returned status %d", resp.StatusCode), "%s", message)
	}
}
