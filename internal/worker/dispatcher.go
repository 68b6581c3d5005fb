// Package worker drains the inventory event queue into the configured sinks:
// the sales counter cache, the MySQL audit log and the Kafka topic.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/platform/observability"
	"github.com/rl1809/inventory/internal/port"
)

type Dispatcher struct {
	cache     port.CacheRepository
	db        port.DatabaseRepository
	publisher port.EventPublisher
	logger    *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher builds a dispatcher. db and publisher may be nil, in which
// case that sink is skipped.
func NewDispatcher(cache port.CacheRepository, db port.DatabaseRepository, publisher port.EventPublisher, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cache:     cache,
		db:        db,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
	}
}

// Start launches workerCount goroutines that run until queue is closed.
func (d *Dispatcher) Start(workerCount int, queue <-chan domain.InventoryEvent) {
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id, queue)
		}(i)
	}
	d.logger.Info("started event workers", zap.Int("count", workerCount))
}

// Wait blocks until every worker has drained the queue and exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) workerLoop(id int, queue <-chan domain.InventoryEvent) {
	log := d.logger.With(zap.Int("worker", id))
	for event := range queue {
		d.dispatch(log, event)
	}
}

func (d *Dispatcher) dispatch(log *zap.Logger, event domain.InventoryEvent) {
	ctx := observability.ExtractTraceContext(context.Background(), event.TraceContext)
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int64("product_id", event.ProductID),
	}

	if event.Type == domain.EventProductSold && d.cache != nil {
		_, err := d.cache.RecordSale(ctx, event.ProductID, event.Quantity)
		d.observe(log, "cache", err, fields)
	}
	if d.db != nil {
		d.observe(log, "mysql", d.db.RecordEvent(ctx, event), fields)
	}
	if d.publisher != nil {
		d.observe(log, "kafka", d.publisher.Publish(ctx, event), fields)
	}
}

func (d *Dispatcher) observe(log *zap.Logger, sink string, err error, fields []zap.Field) {
	if err != nil {
		observability.EventsDispatched.WithLabelValues(sink, "failed").Inc()
		log.Error("failed to dispatch event", append(fields, zap.String("sink", sink), zap.Error(err))...)
		return
	}
	observability.EventsDispatched.WithLabelValues(sink, "ok").Inc()
}
