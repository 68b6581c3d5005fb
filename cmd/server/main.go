package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/inventory/internal/adapter/handler"
	"github.com/rl1809/inventory/internal/adapter/messaging"
	"github.com/rl1809/inventory/internal/adapter/storage"
	"github.com/rl1809/inventory/internal/config"
	"github.com/rl1809/inventory/internal/core/catalog"
	"github.com/rl1809/inventory/internal/core/service"
	"github.com/rl1809/inventory/internal/platform/observability"
	"github.com/rl1809/inventory/internal/port"
	"github.com/rl1809/inventory/internal/worker"
)

var (
	envFile  string
	httpAddr string
	grpcAddr string
)

var rootCmd = &cobra.Command{
	Use:          "inventory",
	Short:        "Product inventory service (HTTP + gRPC)",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if httpAddr != "" {
			cfg.HTTPAddr = httpAddr
		}
		if grpcAddr != "" {
			cfg.GRPCAddr = grpcAddr
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "path of the .env file")
	rootCmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	rootCmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides GRPC_ADDR)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	// Cache: Redis when configured, in-process otherwise
	var cache port.CacheRepository
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		cache = storage.NewRedisAdapter(rdb)
	} else {
		logger.Info("redis not configured, using in-memory cache")
		cache = storage.NewMemoryAdapter()
	}

	// Audit log
	var audit port.DatabaseRepository
	var db *sql.DB
	if cfg.MySQLDSN != "" {
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping mysql: %w", err)
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("connected to mysql")
		audit = mysqlAdapter
	}

	// Event stream
	var publisher port.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("publishing events to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	inventory := service.NewInventoryService(catalog.New(), cache, service.Options{
		Categories:        cfg.Categories,
		LowStockThreshold: cfg.LowStockThreshold,
		QueueSize:         cfg.EventQueueSize,
		Logger:            logger,
		Tracer:            observability.Tracer(),
	})

	dispatcher := worker.NewDispatcher(cache, audit, publisher, logger, config.SinkTimeout)
	dispatcher.Start(cfg.WorkerCount, inventory.Events())

	grpcServer := handler.NewGRPCServer(handler.NewGRPCHandler(inventory), logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(inventory, audit, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close event queue and wait for workers
	inventory.Close()
	dispatcher.Wait()
	logger.Info("workers stopped")

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("close kafka writer", zap.Error(err))
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("shutdown tracing", zap.Error(err))
	}
	logger.Info("connections closed")
	return nil
}
