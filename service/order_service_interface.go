package service

import (
	"context"

	"mymerch/models"
)

// OrderServiceInterface defines the order intake and admin operations
type OrderServiceInterface interface {
	SubmitOrder(ctx context.Context, in *models.OrderSubmission) (*models.Order, error)
	ListOrders(ctx context.Context, status string) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status string) (*models.Order, error)
}
