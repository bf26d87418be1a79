package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mymerch/catalog"
	"mymerch/logger"
	"mymerch/models"
	"mymerch/repository"
	"mymerch/storage"
	"mymerch/utils"
)

// OrderService validates submitted orders and persists them
// Implements OrderServiceInterface
type OrderService struct {
	repo   repository.OrderRepositoryInterface
	store  storage.ImageStore
	limits PreviewLimits
	log    *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(repo repository.OrderRepositoryInterface, store storage.ImageStore, limits PreviewLimits, log *zap.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		store:  store,
		limits: limits,
		log:    logger.OrNop(log),
	}
}

// Ensure OrderService implements OrderServiceInterface
var _ OrderServiceInterface = (*OrderService)(nil)

// validatedMockup is a metadata entry paired with its normalized preview
type validatedMockup struct {
	data    models.MockupData
	preview []byte
}

// SubmitOrder validates the whole submission first and stops at the first
// violation. Nothing is written until validation passes. Previews are
// stored, then the order is created; stored previews are removed again if
// the order cannot be saved.
func (s *OrderService) SubmitOrder(ctx context.Context, in *models.OrderSubmission) (*models.Order, error) {
	if in == nil {
		return nil, models.NewValidationError("At least one mockup is required")
	}

	mockups, err := s.validate(in)
	if err != nil {
		s.log.Info("❌ SubmitOrder: rejected", zap.Error(err))
		return nil, err
	}

	refs := make([]string, 0, len(mockups))
	draft := &models.OrderDraft{
		Mockups:       make([]models.OrderMockup, 0, len(mockups)),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		Notes:         strings.TrimSpace(in.Notes),
	}
	for i, m := range mockups {
		ref, err := s.store.Save(ctx, m.preview, "image/png")
		if err != nil {
			s.discardPreviews(refs)
			return nil, models.NewInternalError(err, "Failed to store preview for mockup %d", i+1)
		}
		refs = append(refs, ref)

		draft.Mockups = append(draft.Mockups, models.OrderMockup{
			ProductID:    m.data.ProductID,
			ProductName:  m.data.ProductName,
			ColorName:    m.data.ColorName,
			View:         m.data.View,
			DesignData:   m.data.DesignData,
			PreviewImage: ref,
			Quantity:     m.data.Quantity,
		})
		draft.TotalQuantity += m.data.Quantity
	}

	order, err := s.repo.Create(ctx, draft)
	if err != nil {
		s.discardPreviews(refs)
		s.log.Error("❌ SubmitOrder: failed to save order", zap.Error(err))
		return nil, models.NewInternalError(err, "Failed to save order")
	}

	s.log.Info("📦 SubmitOrder: order submitted",
		zap.String("orderId", order.ID),
		zap.Int("mockups", len(order.Mockups)),
		zap.Int("totalQuantity", order.TotalQuantity))
	return order, nil
}

func (s *OrderService) validate(in *models.OrderSubmission) ([]validatedMockup, error) {
	var entries []models.MockupData
	if strings.TrimSpace(in.MockupsData) != "" {
		if err := json.Unmarshal([]byte(in.MockupsData), &entries); err != nil {
			return nil, models.NewValidationError("Invalid mockupsData: %v", err)
		}
	}
	if len(entries) == 0 {
		return nil, models.NewValidationError("At least one mockup is required")
	}
	if len(in.Images) != len(entries) {
		return nil, models.NewValidationError("Expected %d mockup images, got %d", len(entries), len(in.Images))
	}

	mockups := make([]validatedMockup, 0, len(entries))
	for i, entry := range entries {
		n := i + 1
		for _, field := range []struct{ name, value string }{
			{"productId", entry.ProductID},
			{"productName", entry.ProductName},
			{"colorName", entry.ColorName},
			{"designData", entry.DesignData},
		} {
			if strings.TrimSpace(field.value) == "" {
				return nil, models.NewValidationError("Mockup %d: %s is required", n, field.name)
			}
		}
		if len(in.Images[i].Data) == 0 {
			return nil, models.NewValidationError("Mockup %d: preview image is required", n)
		}
		preview, _, err := NormalizePreview(in.Images[i].Data, s.limits, s.log)
		if errors.Is(err, catalog.ErrImageTooLarge) {
			return nil, models.NewValidationError("Mockup %d: preview image is too large", n)
		}
		if err != nil {
			return nil, models.NewValidationError("Mockup %d: preview image could not be decoded", n)
		}
		if err := models.ValidateQuantity(entry.Quantity); err != nil {
			return nil, models.NewValidationError("Mockup %d: quantity must be between %d and %d",
				n, models.MinMockupQuantity, models.MaxMockupQuantity)
		}
		mockups = append(mockups, validatedMockup{data: entry, preview: preview})
	}

	if err := utils.ValidateContact(in.CustomerEmail, in.CustomerPhone); err != nil {
		return nil, err
	}
	return mockups, nil
}

// discardPreviews removes previews of an order that was not saved. It uses a
// fresh context so a cancelled request still cleans up.
func (s *OrderService) discardPreviews(refs []string) {
	ctx := context.Background()
	for _, ref := range refs {
		if err := s.store.Delete(ctx, ref); err != nil {
			s.log.Warn("⚠️  SubmitOrder: failed to remove orphaned preview", zap.String("ref", ref), zap.Error(err))
		}
	}
}

// ListOrders returns orders newest first. An empty status lists every order.
func (s *OrderService) ListOrders(ctx context.Context, status string) ([]models.Order, error) {
	var filter models.OrderStatus
	if status != "" {
		parsed, err := models.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, models.NewValidationError("Order id is required")
	}
	return s.repo.Get(ctx, id)
}

// UpdateOrderStatus sets any known status; transitions are not restricted
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status string) (*models.Order, error) {
	order, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.log.Info("✅ UpdateOrderStatus: status changed", zap.String("orderId", id), zap.String("orderStatus", string(order.OrderStatus)))
	return order, nil
}
