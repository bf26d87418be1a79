package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mymerch/db"
	"mymerch/models"
)

func sampleDraft(quantities ...int) *models.OrderDraft {
	draft := &models.OrderDraft{
		CustomerEmail: "jane@example.com",
		CustomerPhone: "+1 555 010 2030",
		Notes:         "Rush please",
	}
	for i, q := range quantities {
		draft.Mockups = append(draft.Mockups, models.OrderMockup{
			ProductID:    "tee-classic",
			ProductName:  "Classic Tee",
			ColorName:    []string{"Navy", "White", "Black"}[i%3],
			View:         "front",
			DesignData:   `{"canvasWidth":600,"canvasHeight":600,"elements":[]}`,
			PreviewImage: "/api/previews/preview-" + string(rune('a'+i)) + ".png",
			Quantity:     q,
		})
		draft.TotalQuantity += q
	}
	return draft
}

func newMockRepository(t *testing.T) (*OrderRepository, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	fixed := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	repo := NewOrderRepository(sqlx.NewDb(conn, "pgx"), zaptest.NewLogger(t), WithClock(func() time.Time { return fixed }))
	return repo, mock
}

func TestOrderRepository_CreateSingleTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)
	draft := sampleDraft(5, 3)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(sqlmock.AnyArg(), "jane@example.com", "+1 555 010 2030", "Rush please", 8, "Submitted", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_mockups")).
		WithArgs(sqlmock.AnyArg(), 0, "tee-classic", "Classic Tee", "Navy", "front", sqlmock.AnyArg(), "/api/previews/preview-a.png", 5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_mockups")).
		WithArgs(sqlmock.AnyArg(), 1, "tee-classic", "Classic Tee", "White", "front", sqlmock.AnyArg(), "/api/previews/preview-b.png", 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	order, err := repo.Create(context.Background(), draft)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.StatusSubmitted, order.OrderStatus)
	assert.Equal(t, 8, order.TotalQuantity)
	assert.Len(t, order.Mockups, 2)
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateRollsBackOnMockupFailure(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_mockups")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	order, err := repo.Create(context.Background(), sampleDraft(2))
	assert.Nil(t, order)
	assert.ErrorContains(t, err, "failed to insert mockup 1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, models.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetLoadsMockups(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_email", "customer_phone", "notes", "total_quantity", "order_status", "created_at", "updated_at"}).
			AddRow("o1", "jane@example.com", "5550102030", "", 4, "Quoted", created, created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_mockups WHERE order_id IN ($1)")).
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "sort_index", "product_id", "product_name", "color_name", "view_name", "design_data", "preview_image", "quantity"}).
			AddRow("o1", 0, "mug-11", "Mug", "White", "front", "{}", "s3://bucket/a.png", 4))

	order, err := repo.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuoted, order.OrderStatus)
	require.Len(t, order.Mockups, 1)
	assert.Equal(t, "mug-11", order.Mockups[0].ProductID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_SetStatusRejectsUnknownStatus(t *testing.T) {
	repo, mock := newMockRepository(t)

	_, err := repo.SetStatus(context.Background(), "o1", "Bogus")
	assert.True(t, models.IsValidation(err))
	// no statement reaches the database
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_SetStatusUnknownOrder(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET order_status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("Completed", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.SetStatus(context.Background(), "missing", "Completed")
	assert.True(t, models.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func newSQLiteRepository(t *testing.T, now func() time.Time) *OrderRepository {
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.EnsureSchema(context.Background(), conn))

	return NewOrderRepository(conn, zaptest.NewLogger(t), WithClock(now))
}

// steppingClock returns a clock that advances one minute per call
func steppingClock() func() time.Time {
	t := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestSQLiteOrderRepository(t *testing.T) {
	runOrderRepositoryContract(t, func(t *testing.T) OrderRepositoryInterface {
		return newSQLiteRepository(t, steppingClock())
	})
}

func TestMemoryOrderRepository(t *testing.T) {
	runOrderRepositoryContract(t, func(t *testing.T) OrderRepositoryInterface {
		repo := NewMemoryOrderRepository(zaptest.NewLogger(t))
		repo.now = steppingClock()
		return repo
	})
}

func TestList_EqualTimestampsNewestFirst(t *testing.T) {
	fixed := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	backends := map[string]func(t *testing.T) OrderRepositoryInterface{
		"sqlite": func(t *testing.T) OrderRepositoryInterface { return newSQLiteRepository(t, fixed) },
		"memory": func(t *testing.T) OrderRepositoryInterface {
			repo := NewMemoryOrderRepository(zaptest.NewLogger(t))
			repo.now = fixed
			return repo
		},
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			var ids []string
			for i := 0; i < 5; i++ {
				o, err := repo.Create(ctx, sampleDraft(i+1))
				require.NoError(t, err)
				ids = append([]string{o.ID}, ids...)
			}

			orders, err := repo.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, orders, 5)
			for i, o := range orders {
				assert.Equal(t, ids[i], o.ID)
			}
		})
	}
}

func runOrderRepositoryContract(t *testing.T, newRepo func(t *testing.T) OrderRepositoryInterface) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, sampleDraft(5, 3))
		require.NoError(t, err)
		assert.Equal(t, 8, created.TotalQuantity)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, models.StatusSubmitted, got.OrderStatus)
		assert.Equal(t, 8, got.TotalQuantity)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
		require.Len(t, got.Mockups, 2)
		assert.Equal(t, "Navy", got.Mockups[0].ColorName)
		assert.Equal(t, "White", got.Mockups[1].ColorName)
		assert.Equal(t, "/api/previews/preview-b.png", got.Mockups[1].PreviewImage)
	})

	t.Run("set status", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, sampleDraft(1))
		require.NoError(t, err)

		updated, err := repo.SetStatus(ctx, created.ID, "Completed")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, updated.OrderStatus)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.OrderStatus)

		// backwards transitions are allowed
		_, err = repo.SetStatus(ctx, created.ID, "In Review")
		require.NoError(t, err)

		_, err = repo.SetStatus(ctx, created.ID, "Bogus")
		assert.True(t, models.IsValidation(err))
		got, err = repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInReview, got.OrderStatus)
	})

	t.Run("set status on unknown order", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.SetStatus(ctx, "does-not-exist", "Approved")
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("get unknown order", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "does-not-exist")
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("list newest first with filter", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Create(ctx, sampleDraft(1))
		require.NoError(t, err)
		second, err := repo.Create(ctx, sampleDraft(2, 2))
		require.NoError(t, err)
		third, err := repo.Create(ctx, sampleDraft(3))
		require.NoError(t, err)

		_, err = repo.SetStatus(ctx, second.ID, "Quoted")
		require.NoError(t, err)

		all, err := repo.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
		assert.Len(t, all[1].Mockups, 2)

		quoted, err := repo.List(ctx, models.StatusQuoted)
		require.NoError(t, err)
		require.Len(t, quoted, 1)
		assert.Equal(t, second.ID, quoted[0].ID)

		none, err := repo.List(ctx, models.StatusCancelled)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
