package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory/internal/core/domain"
)

func mapLookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(mapLookup(nil))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, domain.DefaultCategories, cfg.Categories)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 10000, cfg.EventQueueSize)
	assert.Equal(t, 10, cfg.WorkerCount)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.MySQLDSN)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "inventory-events", cfg.KafkaTopic)
	assert.False(t, cfg.IsProduction())
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(mapLookup(map[string]string{
		"APP_ENV":              "production",
		"INVENTORY_CATEGORIES": "food, drinks ,,tools",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"WORKER_COUNT":         "3",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []domain.Category{"food", "drinks", "tools"}, cfg.Categories)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.WorkerCount)
}

func TestFromLookup_RejectsBadNumbers(t *testing.T) {
	_, err := FromLookup(mapLookup(map[string]string{"EVENT_QUEUE_SIZE": "-1"}))
	assert.ErrorContains(t, err, "EVENT_QUEUE_SIZE")

	_, err = FromLookup(mapLookup(map[string]string{"LOW_STOCK_THRESHOLD": "ten"}))
	assert.ErrorContains(t, err, "LOW_STOCK_THRESHOLD")
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nHTTP_ADDR=\":9000\"\nGRPC_ADDR=:9001\nbogus\n"), 0o600))
	t.Setenv("GRPC_ADDR", ":7001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, ":7001", cfg.GRPCAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
