package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"mymerch/logger"
	"mymerch/models"
)

// OrderRepository stores orders in Postgres or SQLite. Queries are written
// with ? placeholders and rebound for the connection's driver.
type OrderRepository struct {
	db  *sqlx.DB
	log *zap.Logger
	now func() time.Time
}

// Option customizes an OrderRepository
type Option func(*OrderRepository)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *OrderRepository) { r.now = now }
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(conn *sqlx.DB, log *zap.Logger, opts ...Option) *OrderRepository {
	r := &OrderRepository{db: conn, log: logger.OrNop(log), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure OrderRepository implements OrderRepositoryInterface
var _ OrderRepositoryInterface = (*OrderRepository)(nil)

// newOrderID returns a ULID stamped with createdAt. The default entropy is
// monotonic, so ids created in the same millisecond still sort in creation
// order.
func newOrderID(createdAt time.Time) string {
	return ulid.MustNew(ulid.Timestamp(createdAt), ulid.DefaultEntropy()).String()
}

type orderRow struct {
	ID            string    `db:"id"`
	CustomerEmail string    `db:"customer_email"`
	CustomerPhone string    `db:"customer_phone"`
	Notes         string    `db:"notes"`
	TotalQuantity int       `db:"total_quantity"`
	OrderStatus   string    `db:"order_status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type mockupRow struct {
	OrderID      string `db:"order_id"`
	Position     int    `db:"sort_index"`
	ProductID    string `db:"product_id"`
	ProductName  string `db:"product_name"`
	ColorName    string `db:"color_name"`
	View         string `db:"view_name"`
	DesignData   string `db:"design_data"`
	PreviewImage string `db:"preview_image"`
	Quantity     int    `db:"quantity"`
}

const orderColumns = `id, customer_email, customer_phone, notes, total_quantity, order_status, created_at, updated_at`

const mockupColumns = `order_id, sort_index, product_id, product_name, color_name, view_name, design_data, preview_image, quantity`

// Create inserts the order and all of its mockups in one transaction
func (r *OrderRepository) Create(ctx context.Context, draft *models.OrderDraft) (*models.Order, error) {
	r.log.Info("📦 Create: creating order",
		zap.String("customerEmail", draft.CustomerEmail),
		zap.Int("mockups", len(draft.Mockups)),
		zap.Int("totalQuantity", draft.TotalQuantity))

	now := r.now().UTC().Truncate(time.Microsecond)
	row := orderRow{
		ID:            newOrderID(now),
		CustomerEmail: draft.CustomerEmail,
		CustomerPhone: draft.CustomerPhone,
		Notes:         draft.Notes,
		TotalQuantity: draft.TotalQuantity,
		OrderStatus:   string(models.StatusSubmitted),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.log.Error("❌ Create: error starting transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	queryOrder := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :customer_email, :customer_phone, :notes, :total_quantity, :order_status, :created_at, :updated_at)
	`
	if _, err := tx.NamedExecContext(ctx, queryOrder, row); err != nil {
		r.log.Error("❌ Create: error inserting order", zap.Error(err))
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	queryMockup := `
		INSERT INTO order_mockups (` + mockupColumns + `)
		VALUES (:order_id, :sort_index, :product_id, :product_name, :color_name, :view_name, :design_data, :preview_image, :quantity)
	`
	for i, m := range draft.Mockups {
		mr := mockupRow{
			OrderID:      row.ID,
			Position:     i,
			ProductID:    m.ProductID,
			ProductName:  m.ProductName,
			ColorName:    m.ColorName,
			View:         m.View,
			DesignData:   m.DesignData,
			PreviewImage: m.PreviewImage,
			Quantity:     m.Quantity,
		}
		if _, err := tx.NamedExecContext(ctx, queryMockup, mr); err != nil {
			r.log.Error("❌ Create: error inserting mockup", zap.Int("position", i), zap.Error(err))
			return nil, fmt.Errorf("failed to insert mockup %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.log.Error("❌ Create: error committing transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	order := row.toModel()
	order.Mockups = append([]models.OrderMockup(nil), draft.Mockups...)

	r.log.Info("✅ Create: order created", zap.String("orderId", order.ID))
	return order, nil
}

// List returns orders newest first, optionally filtered by status.
// Equal timestamps fall back to the id, which grows with creation order.
func (r *OrderRepository) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []interface{}
	if status != "" {
		query += ` WHERE order_status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		r.log.Error("❌ List: error querying orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]models.Order, 0, len(rows))
	if len(rows) == 0 {
		return orders, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	mockups, err := r.mockupsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		order := row.toModel()
		order.Mockups = mockups[row.ID]
		orders = append(orders, *order)
	}
	return orders, nil
}

// Get returns a single order with its mockups
func (r *OrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("Order %s not found", id)
		}
		r.log.Error("❌ Get: error fetching order", zap.String("orderId", id), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}

	mockups, err := r.mockupsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	order := row.toModel()
	order.Mockups = mockups[id]
	return order, nil
}

// SetStatus changes the order status. Any listed status may replace any other.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, status string) (*models.Order, error) {
	parsed, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	r.log.Info("🔄 SetStatus: updating order status", zap.String("orderId", id), zap.String("status", status))

	query := `UPDATE orders SET order_status = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), string(parsed), r.now().UTC().Truncate(time.Microsecond), id)
	if err != nil {
		r.log.Error("❌ SetStatus: error updating order", zap.String("orderId", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, models.NewNotFoundError("Order %s not found", id)
	}

	return r.Get(ctx, id)
}

func (r *OrderRepository) mockupsFor(ctx context.Context, orderIDs []string) (map[string][]models.OrderMockup, error) {
	query, args, err := sqlx.In(`SELECT `+mockupColumns+` FROM order_mockups WHERE order_id IN (?) ORDER BY order_id, sort_index`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build mockup query: %w", err)
	}

	var rows []mockupRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		r.log.Error("❌ mockupsFor: error querying mockups", zap.Error(err))
		return nil, fmt.Errorf("failed to load mockups: %w", err)
	}

	result := make(map[string][]models.OrderMockup, len(orderIDs))
	for _, row := range rows {
		result[row.OrderID] = append(result[row.OrderID], models.OrderMockup{
			ProductID:    row.ProductID,
			ProductName:  row.ProductName,
			ColorName:    row.ColorName,
			View:         row.View,
			DesignData:   row.DesignData,
			PreviewImage: row.PreviewImage,
			Quantity:     row.Quantity,
		})
	}
	return result, nil
}

func (row orderRow) toModel() *models.Order {
	return &models.Order{
		ID:            row.ID,
		CustomerEmail: row.CustomerEmail,
		CustomerPhone: row.CustomerPhone,
		Notes:         row.Notes,
		TotalQuantity: row.TotalQuantity,
		OrderStatus:   models.OrderStatus(row.OrderStatus),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
		Mockups:       []models.OrderMockup{},
	}
}
