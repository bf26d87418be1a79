package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mymerch/config"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by name
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id             TEXT PRIMARY KEY,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		notes          TEXT NOT NULL DEFAULT '',
		total_quantity INTEGER NOT NULL,
		order_status   TEXT NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_mockups (
		order_id      TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		sort_index    INTEGER NOT NULL,
		product_id    TEXT NOT NULL,
		product_name  TEXT NOT NULL,
		color_name    TEXT NOT NULL,
		view_name     TEXT NOT NULL,
		design_data   TEXT NOT NULL,
		preview_image TEXT NOT NULL,
		quantity      INTEGER NOT NULL CHECK (quantity BETWEEN 1 AND 1000),
		PRIMARY KEY (order_id, sort_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (order_status)`,
}

// Open connects to the order database selected by cfg.Driver and makes sure
// the schema exists. The memory driver has no database and returns nil.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*sqlx.DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)

	switch cfg.Driver {
	case "postgres":
		conn, err = sqlx.Open("pgx", cfg.PostgresDSN())
		if err == nil {
			conn.SetMaxOpenConns(cfg.MaxConns)
			conn.SetConnMaxLifetime(time.Hour)
		}
	case "sqlite":
		conn, err = OpenSQLite(cfg.SQLitePath)
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := EnsureSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info("✓ Database connection established", zap.String("driver", cfg.Driver))
	return conn, nil
}

// OpenSQLite opens an embedded database file. Writes are serialized through
// a single connection.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", path)
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// EnsureSchema creates the order tables if they do not exist yet
func EnsureSchema(ctx context.Context, conn *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
