// Package config loads service settings from the environment, falling back to
// a .env file and then to built-in defaults. An empty adapter setting
// (REDIS_ADDR, MYSQL_DSN, KAFKA_BROKERS, OTEL_ENDPOINT) disables that adapter.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/inventory/internal/core/domain"
)

const (
	ServiceName    = "inventory-service"
	ServiceVersion = "0.1.0"
)

const (
	SinkTimeout     = 5 * time.Second
	ShutdownTimeout = 5 * time.Second
	TracesPath      = "/v1/traces"
)

const (
	defaultAppEnv            = "local"
	defaultHTTPAddr          = ":8080"
	defaultGRPCAddr          = ":50051"
	defaultLowStockThreshold = 10
	defaultEventQueueSize    = 10000
	defaultWorkerCount       = 10
	defaultKafkaTopic        = "inventory-events"
)

type Config struct {
	AppEnv            string
	HTTPAddr          string
	GRPCAddr          string
	Categories        []domain.Category
	LowStockThreshold int
	EventQueueSize    int
	WorkerCount       int
	RedisAddr         string
	RedisPassword     string
	MySQLDSN          string
	KafkaBrokers      []string
	KafkaTopic        string
	OtelEndpoint      string
}

// Load reads the configuration from the process environment and envPath.
// Variables already set in the environment win over the file. A missing file
// is not an error.
func Load(envPath string) (*Config, error) {
	file, err := readDotEnv(envPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return file[key]
	}
	return FromLookup(lookup)
}

// FromLookup builds a Config from an arbitrary key lookup.
func FromLookup(lookup func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := lookup(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		AppEnv:        get("APP_ENV", defaultAppEnv),
		HTTPAddr:      get("HTTP_ADDR", defaultHTTPAddr),
		GRPCAddr:      get("GRPC_ADDR", defaultGRPCAddr),
		RedisAddr:     lookup("REDIS_ADDR"),
		RedisPassword: lookup("REDIS_PASSWORD"),
		MySQLDSN:      lookup("MYSQL_DSN"),
		KafkaBrokers:  splitList(lookup("KAFKA_BROKERS")),
		KafkaTopic:    get("KAFKA_TOPIC", defaultKafkaTopic),
		OtelEndpoint:  lookup("OTEL_ENDPOINT"),
	}

	cfg.Categories = domain.DefaultCategories
	if raw := splitList(lookup("INVENTORY_CATEGORIES")); len(raw) > 0 {
		cfg.Categories = make([]domain.Category, len(raw))
		for i, c := range raw {
			cfg.Categories[i] = domain.Category(c)
		}
	}

	var err error
	if cfg.LowStockThreshold, err = positiveInt(lookup, "LOW_STOCK_THRESHOLD", defaultLowStockThreshold); err != nil {
		return nil, err
	}
	if cfg.EventQueueSize, err = positiveInt(lookup, "EVENT_QUEUE_SIZE", defaultEventQueueSize); err != nil {
		return nil, err
	}
	if cfg.WorkerCount, err = positiveInt(lookup, "WORKER_COUNT", defaultWorkerCount); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func positiveInt(lookup func(string) string, key string, fallback int) (int, error) {
	raw := lookup(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readDotEnv(path string) (map[string]string, error) {
	out := make(map[string]string)
	if path == "" {
		return out, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
