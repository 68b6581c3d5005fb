package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func TestRecordEvent_AndList(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	productID := time.Now().UnixNano()
	defer db.ExecContext(ctx, `DELETE FROM inventory_events WHERE product_id = ?`, productID)

	base := time.Now().UTC().Truncate(time.Millisecond)
	created := domain.InventoryEvent{
		ID:         uuid.NewString(),
		Type:       domain.EventProductCreated,
		ProductID:  productID,
		SKU:        "TEST-SKU",
		Price:      decimal.RequireFromString("45.50"),
		StockAfter: 10,
		OccurredAt: base,
	}
	sold := domain.InventoryEvent{
		ID:         uuid.NewString(),
		Type:       domain.EventProductSold,
		ProductID:  productID,
		SKU:        "TEST-SKU",
		Quantity:   3,
		Price:      decimal.RequireFromString("45.50"),
		StockAfter: 7,
		OccurredAt: base.Add(time.Second),
	}

	for _, e := range []domain.InventoryEvent{created, sold, sold} {
		if err := adapter.RecordEvent(ctx, e); err != nil {
			t.Fatalf("RecordEvent failed: %v", err)
		}
	}

	events, err := adapter.ListEvents(ctx, productID, 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (duplicate ignored), got %d", len(events))
	}
	if events[0].ID != sold.ID {
		t.Errorf("expected newest event first, got %s", events[0].Type)
	}
	if events[0].Quantity != 3 || events[0].StockAfter != 7 {
		t.Errorf("unexpected sold event: %+v", events[0])
	}
	if !events[1].Price.Equal(created.Price) {
		t.Errorf("expected price %s, got %s", created.Price, events[1].Price)
	}

	limited, err := adapter.ListEvents(ctx, productID, 1)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 event, got %d", len(limited))
	}
}

func TestListEvents_Unknown(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	events, err := adapter.ListEvents(ctx, -1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}
