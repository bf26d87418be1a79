// Package cart captures finished editor designs as mockups and keeps them
// until the order is submitted.
package cart

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mymerch/catalog"
	"mymerch/editor"
	"mymerch/logger"
	"mymerch/models"
)

// Cart is the ordered list of captured mockups. It is safe for concurrent use.
type Cart struct {
	mu      sync.Mutex
	mockups []models.Mockup
	log     *zap.Logger
	now     func() time.Time
}

// New creates an empty cart
func New(log *zap.Logger) *Cart {
	return &Cart{log: logger.OrNop(log), now: time.Now}
}

// Capture snapshots the editor content and renders its preview, then appends
// the mockup. The cart is unchanged when quantity is out of range.
func (c *Cart) Capture(e *editor.Editor, productID, productName, colorName string, view catalog.View, quantity int) (models.Mockup, error) {
	if err := models.ValidateQuantity(quantity); err != nil {
		return models.Mockup{}, err
	}
	if e == nil {
		return models.Mockup{}, models.NewValidationError("Editor is required")
	}

	snapshot, err := e.Snapshot()
	if err != nil {
		return models.Mockup{}, fmt.Errorf("failed to snapshot design: %w", err)
	}
	preview, err := e.RenderDataURL()
	if err != nil {
		return models.Mockup{}, fmt.Errorf("failed to render preview: %w", err)
	}

	m := models.Mockup{
		ID:             uuid.NewString(),
		ProductID:      productID,
		ProductName:    productName,
		ColorName:      colorName,
		View:           string(view),
		DesignSnapshot: snapshot,
		PreviewImage:   preview,
		Quantity:       quantity,
		CapturedAt:     c.clock(),
	}

	c.mu.Lock()
	c.mockups = append(c.mockups, m)
	n := len(c.mockups)
	c.mu.Unlock()

	c.logger().Info("🛒 Capture: mockup added to cart",
		zap.String("mockupId", m.ID),
		zap.String("productId", productID),
		zap.Int("quantity", quantity),
		zap.Int("cartSize", n))
	return m, nil
}

// Add appends an already captured mockup, e.g. one restored from storage
func (c *Cart) Add(m models.Mockup) error {
	if err := models.ValidateQuantity(m.Quantity); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mockups = append(c.mockups, m)
	return nil
}

// Remove drops the mockup with id. Unknown ids are ignored.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.mockups {
		if m.ID == id {
			c.mockups = append(c.mockups[:i:i], c.mockups[i+1:]...)
			return
		}
	}
}

// TotalQuantity sums the quantity of every mockup
func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, m := range c.mockups {
		total += m.Quantity
	}
	return total
}

// Mockups returns a copy of the mockups in capture order
func (c *Cart) Mockups() []models.Mockup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Mockup(nil), c.mockups...)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mockups)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mockups = nil
}

func (c *Cart) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *Cart) logger() *zap.Logger {
	return logger.OrNop(c.log)
}
