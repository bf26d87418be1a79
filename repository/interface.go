package repository

import (
	"context"

	"mymerch/models"
)

// OrderRepositoryInterface defines the contract for order storage.
// Orders are written once with all their mockups; afterwards only the
// status may change.
type OrderRepositoryInterface interface {
	Create(ctx context.Context, draft *models.OrderDraft) (*models.Order, error)
	List(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	SetStatus(ctx context.Context, id string, status string) (*models.Order, error)
}
