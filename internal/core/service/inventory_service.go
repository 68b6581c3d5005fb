package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/core/catalog"
	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/platform/observability"
	"github.com/rl1809/inventory/internal/port"
)

const (
	idempotencyKeyPrefix     = "sell:"
	defaultLowStockThreshold = 10
	defaultQueueSize         = 1024
)

type Options struct {
	Categories        []domain.Category
	LowStockThreshold int
	QueueSize         int
	Logger            *zap.Logger
	Tracer            trace.Tracer
}

// InventoryService validates and applies every catalog mutation. Each
// committed mutation is announced on the event queue returned by Events.
type InventoryService struct {
	catalog      *catalog.Catalog
	cache        port.CacheRepository
	categories   map[domain.Category]struct{}
	categoryList []domain.Category
	lowStock     int
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time

	queueMu    sync.RWMutex
	queueDone  bool
	eventQueue chan domain.InventoryEvent
}

func NewInventoryService(cat *catalog.Catalog, cache port.CacheRepository, opts Options) *InventoryService {
	if len(opts.Categories) == 0 {
		opts.Categories = domain.DefaultCategories
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = defaultLowStockThreshold
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}

	categories := make(map[domain.Category]struct{}, len(opts.Categories))
	for _, c := range opts.Categories {
		categories[c] = struct{}{}
	}

	return &InventoryService{
		catalog:      cat,
		cache:        cache,
		categories:   categories,
		categoryList: append([]domain.Category(nil), opts.Categories...),
		lowStock:     opts.LowStockThreshold,
		logger:       opts.Logger,
		tracer:       opts.Tracer,
		now:          time.Now,
		eventQueue:   make(chan domain.InventoryEvent, opts.QueueSize),
	}
}

func (s *InventoryService) CreateProduct(ctx context.Context, in domain.ProductInput) (p domain.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.CreateProduct")
	defer func() { endSpan(span, err) }()

	in = normalize(in)
	if verr := s.validate(in); verr != nil {
		observability.ValidationFailures.Inc()
		return domain.Product{}, verr
	}

	p, err = s.catalog.Insert(domain.Product{
		Name:     in.Name,
		SKU:      in.SKU,
		Price:    in.Price,
		Stock:    in.Stock,
		Category: in.Category,
	})
	if errors.Is(err, domain.ErrDuplicateSKU) {
		// lost a race with a concurrent create of the same SKU
		verr := &domain.ValidationError{}
		verr.Add("sku", domain.MsgDuplicateSKU)
		observability.ValidationFailures.Inc()
		return domain.Product{}, verr
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	span.SetAttributes(attribute.Int64("product.id", p.ID), attribute.String("product.sku", p.SKU))
	observability.ProductsCreated.Inc()
	s.logger.Info("product created", zap.Int64("product_id", p.ID), zap.String("sku", p.SKU))
	s.enqueue(s.newEvent(ctx, domain.EventProductCreated, p))

	return p, nil
}

func (s *InventoryService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.catalog.FindByID(id)
}

// SellProduct removes quantity units from the product's stock. The stock check
// and the decrement happen in one catalog critical section, so concurrent
// sells never drive stock below zero and never sell partially.
func (s *InventoryService) SellProduct(ctx context.Context, id int64, quantity int) (p domain.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.SellProduct", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("sell.quantity", quantity),
	))
	defer func() { endSpan(span, err) }()

	if quantity <= 0 {
		observability.SellRejections.WithLabelValues("invalid_argument").Inc()
		return domain.Product{}, fmt.Errorf("%w: quantity must be greater than 0", domain.ErrInvalidArgument)
	}

	p, err = s.catalog.Update(id, func(p *domain.Product) error {
		if p.Stock < quantity {
			return fmt.Errorf("%w: product %d has %d, requested %d", domain.ErrInsufficientStock, id, p.Stock, quantity)
		}
		p.Stock -= quantity
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			observability.SellRejections.WithLabelValues("not_found").Inc()
		case errors.Is(err, domain.ErrInsufficientStock):
			observability.SellRejections.WithLabelValues("insufficient_stock").Inc()
		}
		return domain.Product{}, err
	}

	observability.UnitsSold.Add(float64(quantity))
	s.logger.Debug("product sold",
		zap.Int64("product_id", id),
		zap.Int("quantity", quantity),
		zap.Int("stock_after", p.Stock),
	)

	event := s.newEvent(ctx, domain.EventProductSold, p)
	event.Quantity = quantity
	s.enqueue(event)

	return p, nil
}

// SellProductOnce sells at most once per requestID. A request that fails
// releases its key so the caller can retry with the same id.
func (s *InventoryService) SellProductOnce(ctx context.Context, requestID string, id int64, quantity int) (domain.Product, error) {
	if strings.TrimSpace(requestID) == "" {
		observability.SellRejections.WithLabelValues("invalid_argument").Inc()
		return domain.Product{}, fmt.Errorf("%w: request id required", domain.ErrInvalidArgument)
	}

	key := idempotencyKeyPrefix + requestID
	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return domain.Product{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		observability.SellRejections.WithLabelValues("duplicate_request").Inc()
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrDuplicateRequest, requestID)
	}

	p, err := s.SellProduct(ctx, id, quantity)
	if err != nil {
		if clearErr := s.cache.ClearIdempotency(ctx, key); clearErr != nil {
			s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(clearErr))
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *InventoryService) DeleteProduct(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "inventory.DeleteProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer func() { endSpan(span, err) }()

	p, err := s.catalog.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.catalog.Remove(id); err != nil {
		return err
	}

	observability.ProductsDeleted.Inc()
	s.logger.Info("product deleted", zap.Int64("product_id", id), zap.String("sku", p.SKU))

	event := s.newEvent(ctx, domain.EventProductDeleted, p)
	event.StockAfter = 0
	s.enqueue(event)

	return nil
}

// BulkUpdatePrice applies every update whose product exists and whose new
// price is positive, skipping the rest without error. It returns the number
// of updates applied.
func (s *InventoryService) BulkUpdatePrice(ctx context.Context, updates []domain.PriceUpdate) int {
	ctx, span := s.tracer.Start(ctx, "inventory.BulkUpdatePrice", trace.WithAttributes(attribute.Int("updates.requested", len(updates))))
	defer span.End()

	updated := 0
	for _, u := range updates {
		if !u.NewPrice.IsPositive() {
			observability.PriceUpdates.WithLabelValues("skipped").Inc()
			continue
		}

		var previous decimal.Decimal
		p, err := s.catalog.Update(u.ProductID, func(p *domain.Product) error {
			previous = p.Price
			p.Price = u.NewPrice
			return nil
		})
		if err != nil {
			observability.PriceUpdates.WithLabelValues("skipped").Inc()
			continue
		}

		updated++
		observability.PriceUpdates.WithLabelValues("applied").Inc()

		event := s.newEvent(ctx, domain.EventProductRepriced, p)
		event.PreviousPrice = previous
		s.enqueue(event)
	}

	span.SetAttributes(attribute.Int("updates.applied", updated))
	s.logger.Info("bulk price update", zap.Int("requested", len(updates)), zap.Int("applied", updated))
	return updated
}

func (s *InventoryService) ListProducts(ctx context.Context, opts domain.ListOptions) []domain.Product {
	return s.catalog.List(opts)
}

func (s *InventoryService) SearchProducts(ctx context.Context, keyword string) ([]domain.Product, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword must not be empty", domain.ErrInvalidArgument)
	}
	return s.catalog.Search(keyword), nil
}

// Summary totals the products of one category, or of the whole catalog when
// category is empty.
func (s *InventoryService) Summary(ctx context.Context, category domain.Category) domain.Summary {
	sum := domain.Summary{TotalValue: decimal.Zero}
	for _, p := range s.catalog.List(domain.ListOptions{Category: category}) {
		sum.Count++
		sum.TotalValue = sum.TotalValue.Add(p.Value())
		switch {
		case p.Stock == 0:
			sum.OutOfStock++
		case p.Stock < s.lowStock:
			sum.LowStock++
		}
	}
	return sum
}

func (s *InventoryService) Categories() []domain.Category {
	return append([]domain.Category(nil), s.categoryList...)
}

// SoldUnits reports the units-sold counter kept by the cache.
func (s *InventoryService) SoldUnits(ctx context.Context, id int64) (int64, error) {
	if _, err := s.catalog.FindByID(id); err != nil {
		return 0, err
	}
	return s.cache.SoldUnits(ctx, id)
}

func (s *InventoryService) Events() <-chan domain.InventoryEvent {
	return s.eventQueue
}

// Close stops event production and closes the queue so consumers can drain it.
func (s *InventoryService) Close() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.queueDone {
		return
	}
	s.queueDone = true
	close(s.eventQueue)
}

// enqueue never blocks. When the queue is full the event is dropped.
func (s *InventoryService) enqueue(event domain.InventoryEvent) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if s.queueDone {
		return
	}

	select {
	case s.eventQueue <- event:
	default:
		observability.EventsDropped.Inc()
		s.logger.Warn("event queue full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("product_id", event.ProductID),
		)
	}
}

func (s *InventoryService) newEvent(ctx context.Context, t domain.EventType, p domain.Product) domain.InventoryEvent {
	return domain.InventoryEvent{
		ID:           uuid.NewString(),
		Type:         t,
		ProductID:    p.ID,
		SKU:          p.SKU,
		Price:        p.Price,
		StockAfter:   p.Stock,
		OccurredAt:   s.now().UTC(),
		TraceContext: observability.InjectTraceContext(ctx),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
