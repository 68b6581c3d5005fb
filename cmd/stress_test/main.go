package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/config"
	"github.com/rl1809/inventory/internal/core/catalog"
	"github.com/rl1809/inventory/internal/core/domain"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/platform/observability"
	"github.com/rl1809/inventory/internal/port"
	"github.com/rl1809/inventory/internal/worker"
)

const (
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
	workerCount   = 4
)

type result struct {
	Success    int32
	Failed     int32
	FinalStock int
	SoldUnits  int64
	Elapsed    time.Duration
}

func (r result) passed() bool {
	return r.Success == initialStock &&
		r.Failed == totalRequests-initialStock &&
		r.FinalStock == 0 &&
		r.SoldUnits == initialStock
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cache port.CacheRepository = storage.NewMemoryAdapter()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()

		// Clear previous test data
		keys, _ := rdb.Keys(ctx, "sell:stress-*").Result()
		for _, k := range keys {
			rdb.Del(ctx, k)
		}
		rdb.Del(ctx, "sold:1")
		cache = storage.NewRedisAdapter(rdb)
	}

	res, err := runStress(ctx, cache, logger)
	if err != nil {
		logger.Fatal("stress run failed", zap.Error(err))
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", res.Success)
	fmt.Printf("Failed:           %d\n", res.Failed)
	fmt.Printf("Final Stock:      %d\n", res.FinalStock)
	fmt.Printf("Sold Units:       %d\n", res.SoldUnits)
	fmt.Printf("Duration:         %v\n", res.Elapsed)
	fmt.Println("==========================================")

	if !res.passed() {
		fmt.Printf("FAIL: Expected %d success/%d fail, stock 0 and %d sold units\n",
			initialStock, totalRequests-initialStock, initialStock)
		os.Exit(1)
	}
	fmt.Printf("PASS: Exactly %d sells succeeded, %d failed, stock depleted to 0\n",
		initialStock, totalRequests-initialStock)
}

// runStress fires totalRequests concurrent single-unit sells, each with its
// own request id, at a product holding initialStock units.
func runStress(ctx context.Context, cache port.CacheRepository, logger *zap.Logger) (result, error) {
	inventory := service.NewInventoryService(catalog.New(), cache, service.Options{
		QueueSize: queueSize,
		Logger:    logger,
	})

	dispatcher := worker.NewDispatcher(cache, nil, nil, logger, config.SinkTimeout)
	dispatcher.Start(workerCount, inventory.Events())

	product, err := inventory.CreateProduct(ctx, domain.ProductInput{
		Name:     "Flash sale T-shirt",
		SKU:      "CL-STRESS",
		Price:    decimal.NewFromInt(199),
		Stock:    initialStock,
		Category: "เสื้อผ้า",
	})
	if err != nil {
		inventory.Close()
		dispatcher.Wait()
		return result{}, fmt.Errorf("create product: %w", err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := inventory.SellProductOnce(ctx, fmt.Sprintf("stress-%d", n), product.ID, 1)
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	inventory.Close()
	dispatcher.Wait()

	final, err := inventory.GetProduct(ctx, product.ID)
	if err != nil {
		return result{}, fmt.Errorf("read product: %w", err)
	}
	sold, err := cache.SoldUnits(ctx, product.ID)
	if err != nil {
		return result{}, fmt.Errorf("read sold units: %w", err)
	}

	logger.Info("stress run finished",
		zap.Int32("success", successCount.Load()),
		zap.Int32("failed", failCount.Load()),
		zap.Duration("elapsed", elapsed),
	)

	return result{
		Success:    successCount.Load(),
		Failed:     failCount.Load(),
		FinalStock: final.Stock,
		SoldUnits:  sold,
		Elapsed:    elapsed,
	}, nil
}
