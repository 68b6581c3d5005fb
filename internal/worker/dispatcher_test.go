package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/platform/observability"
)

type recordingDB struct {
	mu     sync.Mutex
	events []domain.InventoryEvent
}

func (r *recordingDB) RecordEvent(ctx context.Context, e domain.InventoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingDB) ListEvents(ctx context.Context, productID int64, limit int) ([]domain.InventoryEvent, error) {
	return nil, nil
}

type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (f *failingPublisher) Publish(ctx context.Context, e domain.InventoryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

type tracingPublisher struct {
	mu       sync.Mutex
	traceIDs []trace.TraceID
}

func (p *tracingPublisher) Publish(ctx context.Context, e domain.InventoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.traceIDs = append(p.traceIDs, trace.SpanContextFromContext(ctx).TraceID())
	return nil
}

func (p *tracingPublisher) Close() error { return nil }

func TestDispatcher_DrainsQueueIntoSinks(t *testing.T) {
	cache := storage.NewMemoryAdapter()
	db := &recordingDB{}
	pub := &failingPublisher{}
	d := NewDispatcher(cache, db, pub, nil, time.Second)

	queue := make(chan domain.InventoryEvent, 100)
	for i := 0; i < 10; i++ {
		queue <- domain.InventoryEvent{ID: fmt.Sprintf("sold-%d", i), Type: domain.EventProductSold, ProductID: 7, Quantity: 2}
	}
	queue <- domain.InventoryEvent{ID: "created", Type: domain.EventProductCreated, ProductID: 8}
	close(queue)

	d.Start(4, queue)
	d.Wait()

	sold, err := cache.SoldUnits(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(20), sold)

	sold, _ = cache.SoldUnits(context.Background(), 8)
	assert.Zero(t, sold)

	assert.Len(t, db.events, 11)
	assert.Equal(t, 11, pub.calls, "a failing sink must not stop the others")
}

func TestDispatcher_OptionalSinks(t *testing.T) {
	cache := storage.NewMemoryAdapter()
	d := NewDispatcher(cache, nil, nil, nil, time.Second)

	queue := make(chan domain.InventoryEvent, 1)
	queue <- domain.InventoryEvent{ID: "e", Type: domain.EventProductSold, ProductID: 1, Quantity: 3}
	close(queue)

	d.Start(1, queue)
	d.Wait()

	sold, _ := cache.SoldUnits(context.Background(), 1)
	assert.Equal(t, int64(3), sold)
}

func TestDispatcher_RestoresTraceContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0f, 0x0e},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	carrier := observability.InjectTraceContext(trace.ContextWithSpanContext(context.Background(), sc))
	require.Contains(t, carrier, "traceparent")

	pub := &tracingPublisher{}
	d := NewDispatcher(storage.NewMemoryAdapter(), nil, pub, nil, time.Second)

	queue := make(chan domain.InventoryEvent, 2)
	queue <- domain.InventoryEvent{ID: "traced", Type: domain.EventProductCreated, ProductID: 1, TraceContext: carrier}
	queue <- domain.InventoryEvent{ID: "untraced", Type: domain.EventProductCreated, ProductID: 2}
	close(queue)

	d.Start(1, queue)
	d.Wait()

	require.Len(t, pub.traceIDs, 2)
	assert.Equal(t, sc.TraceID(), pub.traceIDs[0])
	assert.False(t, pub.traceIDs[1].IsValid())
}
