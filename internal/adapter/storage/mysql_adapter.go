package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/inventory/internal/core/domain"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS inventory_events (
	id             CHAR(36)      NOT NULL PRIMARY KEY,
	type           VARCHAR(32)   NOT NULL,
	product_id     BIGINT        NOT NULL,
	sku            VARCHAR(64)   NOT NULL,
	quantity       INT           NOT NULL DEFAULT 0,
	price          DECIMAL(18,4) NOT NULL,
	previous_price DECIMAL(18,4) NOT NULL DEFAULT 0,
	stock_after    INT           NOT NULL,
	occurred_at    DATETIME(6)   NOT NULL,
	INDEX idx_inventory_events_product (product_id, occurred_at)
)`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create inventory_events: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) RecordEvent(ctx context.Context, e domain.InventoryEvent) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO inventory_events
			(id, type, product_id, sku, quantity, price, previous_price, stock_after, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.ProductID, e.SKU, e.Quantity, e.Price, e.PreviousPrice,
		e.StockAfter, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListEvents(ctx context.Context, productID int64, limit int) ([]domain.InventoryEvent, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, type, product_id, sku, quantity, price, previous_price, stock_after, occurred_at
		FROM inventory_events
		WHERE product_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?`, productID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.InventoryEvent
	for rows.Next() {
		var e domain.InventoryEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.ProductID, &e.SKU, &e.Quantity,
			&e.Price, &e.PreviousPrice, &e.StockAfter, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
