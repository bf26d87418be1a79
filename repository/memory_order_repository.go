package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"mymerch/logger"
	"mymerch/models"
)

// MemoryOrderRepository keeps orders in process memory. Used for local
// development and tests; nothing survives a restart.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]models.Order
	log    *zap.Logger
	now    func() time.Time
}

// NewMemoryOrderRepository creates an empty in-memory order store
func NewMemoryOrderRepository(log *zap.Logger) *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
		log:    logger.OrNop(log),
		now:    time.Now,
	}
}

var _ OrderRepositoryInterface = (*MemoryOrderRepository)(nil)

func (s *MemoryOrderRepository) Create(ctx context.Context, draft *models.OrderDraft) (*models.Order, error) {
	now := s.now().UTC()
	order := models.Order{
		ID:            newOrderID(now),
		Mockups:       append([]models.OrderMockup(nil), draft.Mockups...),
		CustomerEmail: draft.CustomerEmail,
		CustomerPhone: draft.CustomerPhone,
		Notes:         draft.Notes,
		TotalQuantity: draft.TotalQuantity,
		OrderStatus:   models.StatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()

	s.log.Info("✅ Create: order created", zap.String("orderId", order.ID), zap.Int("mockups", len(order.Mockups)))
	return copyOrder(order), nil
}

func (s *MemoryOrderRepository) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if status != "" && o.OrderStatus != status {
			continue
		}
		orders = append(orders, *copyOrder(o))
	}

	// same order as the SQL store: created_at DESC, id DESC
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	o, ok := s.orders[id]
	s.mu.RUnlock()

	if !ok {
		return nil, models.NewNotFoundError("Order %s not found", id)
	}
	return copyOrder(o), nil
}

func (s *MemoryOrderRepository) SetStatus(ctx context.Context, id string, status string) (*models.Order, error) {
	parsed, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, models.NewNotFoundError("Order %s not found", id)
	}
	o.OrderStatus = parsed
	o.UpdatedAt = s.now().UTC()
	s.orders[id] = o

	s.log.Info("🔄 SetStatus: order status updated", zap.String("orderId", id), zap.String("status", status))
	return copyOrder(o), nil
}

func copyOrder(o models.Order) *models.Order {
	o.Mockups = append([]models.OrderMockup(nil), o.Mockups...)
	return &o
}
