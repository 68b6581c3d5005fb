// Package catalog holds the in-memory product registry. It owns every
// product record, assigns identifiers and keeps SKUs unique.
package catalog

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/inventory/internal/core/domain"
)

type Option func(*Catalog)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

type Catalog struct {
	mu       sync.RWMutex
	products []*domain.Product // insertion order
	byID     map[int64]*domain.Product
	bySKU    map[string]int64 // lower-cased sku -> id
	lastID   int64
	now      func() time.Time
}

func New(opts ...Option) *Catalog {
	c := &Catalog{
		byID:  make(map[int64]*domain.Product),
		bySKU: make(map[string]int64),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextID reserves a new identifier. Identifiers start at 1 and are never
// handed out twice, even after the product that held one is removed.
func (c *Catalog) NextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextIDLocked()
}

func (c *Catalog) nextIDLocked() int64 {
	c.lastID++
	return c.lastID
}

// Insert stores p under a fresh id with the current time as CreatedAt.
// Any id or timestamp on p is ignored.
func (c *Catalog) Insert(p domain.Product) (domain.Product, error) {
	key := skuKey(p.SKU)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.bySKU[key]; ok {
		return domain.Product{}, fmt.Errorf("insert %q: %w", p.SKU, domain.ErrDuplicateSKU)
	}

	p.ID = c.nextIDLocked()
	p.CreatedAt = c.now().UTC()

	stored := p
	c.products = append(c.products, &stored)
	c.byID[stored.ID] = &stored
	c.bySKU[key] = stored.ID

	return stored, nil
}

func (c *Catalog) FindByID(id int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return *p, nil
}

func (c *Catalog) SkuExists(sku string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.bySKU[skuKey(sku)]
	return ok
}

// List returns copies of the stored products, filtered by category when one is
// given. Without a sort field the result is in insertion order; sorting is
// stable so ties keep insertion order.
func (c *Catalog) List(opts domain.ListOptions) []domain.Product {
	c.mu.RLock()
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		out = append(out, *p)
	}
	c.mu.RUnlock()

	if opts.SortBy != domain.SortNone {
		cmp := comparator(opts.SortBy)
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			if opts.Descending {
				return cmp(b, a)
			}
			return cmp(a, b)
		})
	}
	return out
}

// Search matches keyword against name and SKU, ignoring case.
func (c *Catalog) Search(keyword string) []domain.Product {
	kw := strings.ToLower(keyword)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), kw) || strings.Contains(strings.ToLower(p.SKU), kw) {
			out = append(out, *p)
		}
	}
	return out
}

// Update applies fn to a copy of the product under the write lock and commits
// the copy only when fn returns nil. fn must not change ID, SKU or CreatedAt.
func (c *Catalog) Update(id int64, fn func(*domain.Product) error) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	next := *p
	if err := fn(&next); err != nil {
		return *p, err
	}
	next.ID, next.SKU, next.CreatedAt = p.ID, p.SKU, p.CreatedAt
	*p = next

	return next, nil
}

func (c *Catalog) Remove(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	delete(c.byID, id)
	delete(c.bySKU, skuKey(p.SKU))
	c.products = slices.DeleteFunc(c.products, func(q *domain.Product) bool { return q.ID == id })
	return nil
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func skuKey(sku string) string {
	return strings.ToLower(sku)
}

func comparator(field domain.SortField) func(a, b domain.Product) int {
	switch field {
	case domain.SortName:
		return func(a, b domain.Product) int { return strings.Compare(a.Name, b.Name) }
	case domain.SortPrice:
		return func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case domain.SortStock:
		return func(a, b domain.Product) int { return a.Stock - b.Stock }
	case domain.SortCreatedAt:
		return func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	default:
		return func(a, b domain.Product) int { return 0 }
	}
}
