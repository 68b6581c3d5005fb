package catalog

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory/internal/core/domain"
)

func newProduct(name, sku string, price float64, stock int, category domain.Category) domain.Product {
	return domain.Product{
		Name:     name,
		SKU:      sku,
		Price:    decimal.NewFromFloat(price),
		Stock:    stock,
		Category: category,
	}
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestInsert_AssignsIDAndTimestamp(t *testing.T) {
	c := New(WithClock(fixedClock()))

	p1, err := c.Insert(newProduct("Fried rice", "FD-001", 45, 20, "อาหาร"))
	require.NoError(t, err)
	p2, err := c.Insert(domain.Product{ID: 99, Name: "Orange juice", SKU: "DR-001", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p1.ID)
	assert.Equal(t, int64(2), p2.ID, "caller supplied id must be ignored")
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC), p1.CreatedAt)
	assert.True(t, p2.CreatedAt.After(p1.CreatedAt))
	assert.Equal(t, 2, c.Len())
}

func TestInsert_DuplicateSKUIgnoresCase(t *testing.T) {
	c := New()

	_, err := c.Insert(newProduct("Soap", "UT-001", 35, 0, "ของใช้"))
	require.NoError(t, err)

	_, err = c.Insert(newProduct("Other soap", "ut-001", 30, 1, "ของใช้"))
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.SkuExists("Ut-001"))
	assert.False(t, c.SkuExists("UT-002"))
}

func TestIDsAreNeverReused(t *testing.T) {
	c := New()

	p, err := c.Insert(newProduct("T-shirt", "CL-001", 299, 5, "เสื้อผ้า"))
	require.NoError(t, err)
	require.NoError(t, c.Remove(p.ID))

	reserved := c.NextID()
	assert.Equal(t, int64(2), reserved)

	q, err := c.Insert(newProduct("T-shirt", "CL-001", 299, 5, "เสื้อผ้า"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), q.ID)
}

func TestFindByID_NotFound(t *testing.T) {
	c := New()

	_, err := c.FindByID(42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindByID_ReturnsCopy(t *testing.T) {
	c := New()
	p, err := c.Insert(newProduct("Candy", "FD-002", 30.5, 8, "อาหาร"))
	require.NoError(t, err)

	got, err := c.FindByID(p.ID)
	require.NoError(t, err)
	got.Stock = 0

	again, err := c.FindByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, again.Stock)
}

func TestList_FilterAndOrder(t *testing.T) {
	c := New(WithClock(fixedClock()))
	for _, p := range []domain.Product{
		newProduct("Fried rice", "FD-001", 45, 20, "อาหาร"),
		newProduct("Orange juice", "DR-001", 25, 50, "เครื่องดื่ม"),
		newProduct("Candy", "FD-002", 30.5, 8, "อาหาร"),
	} {
		_, err := c.Insert(p)
		require.NoError(t, err)
	}

	all := c.List(domain.ListOptions{})
	require.Len(t, all, 3)
	assert.Equal(t, []string{"FD-001", "DR-001", "FD-002"}, skus(all))

	food := c.List(domain.ListOptions{Category: "อาหาร"})
	assert.Equal(t, []string{"FD-001", "FD-002"}, skus(food))

	byPrice := c.List(domain.ListOptions{SortBy: domain.SortPrice})
	assert.Equal(t, []string{"DR-001", "FD-002", "FD-001"}, skus(byPrice))

	byStockDesc := c.List(domain.ListOptions{SortBy: domain.SortStock, Descending: true})
	assert.Equal(t, []string{"DR-001", "FD-001", "FD-002"}, skus(byStockDesc))

	byName := c.List(domain.ListOptions{Category: "อาหาร", SortBy: domain.SortName})
	assert.Equal(t, []string{"FD-002", "FD-001"}, skus(byName))

	newest := c.List(domain.ListOptions{SortBy: domain.SortCreatedAt, Descending: true})
	assert.Equal(t, []string{"FD-002", "DR-001", "FD-001"}, skus(newest))

	assert.Empty(t, c.List(domain.ListOptions{Category: "เสื้อผ้า"}))
}

func TestSearch_NameOrSKUCaseInsensitive(t *testing.T) {
	c := New()
	for _, p := range []domain.Product{
		newProduct("Abacus", "TOY-1", 10, 1, "ของใช้"),
		newProduct("Notebook", "NB-AB2", 20, 1, "ของใช้"),
		newProduct("Pencil", "PC-001", 5, 1, "ของใช้"),
	} {
		_, err := c.Insert(p)
		require.NoError(t, err)
	}

	got := c.Search("ab")
	assert.Equal(t, []string{"TOY-1", "NB-AB2"}, skus(got))
	assert.Empty(t, c.Search("zzz"))
}

func TestUpdate_CommitsOnlyOnSuccess(t *testing.T) {
	c := New()
	p, err := c.Insert(newProduct("Soap", "UT-001", 35, 3, "ของใช้"))
	require.NoError(t, err)

	errBoom := errors.New("boom")
	_, err = c.Update(p.ID, func(q *domain.Product) error {
		q.Stock = 100
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	got, err := c.FindByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	updated, err := c.Update(p.ID, func(q *domain.Product) error {
		q.Stock--
		q.SKU = "changed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Stock)
	assert.Equal(t, "UT-001", updated.SKU)

	_, err = c.Update(999, func(*domain.Product) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemove(t *testing.T) {
	c := New()
	p, err := c.Insert(newProduct("Soap", "UT-001", 35, 3, "ของใช้"))
	require.NoError(t, err)

	require.NoError(t, c.Remove(p.ID))
	assert.ErrorIs(t, c.Remove(p.ID), domain.ErrNotFound)

	_, err = c.FindByID(p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, c.SkuExists("UT-001"))
	assert.Empty(t, c.List(domain.ListOptions{}))
}

func TestConcurrentInsertSameSKU(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Insert(newProduct(fmt.Sprintf("item %d", i), "SAME-SKU", 1, 1, "ของใช้"))
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, c.Len())
}

func skus(ps []domain.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.SKU
	}
	return out
}
