package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"StratTick/internal/domain/models"
	applogger "StratTick/pkg/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory     = "memory"
	StoreClickHouse = "clickhouse"
	StorePostgres   = "postgres"

	IngestNone      = "none"
	IngestWebSocket = "websocket"
	IngestKafka     = "kafka"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log    applogger.Config `yaml:"log"`
	Market struct {
		Symbol        string        `yaml:"symbol"`
		BaseTimeframe string        `yaml:"base_timeframe"`
		Retention     time.Duration `yaml:"retention"`
	} `yaml:"market"`
	Registry struct {
		Path string `yaml:"path"`
	} `yaml:"registry"`
	Scheduler struct {
		Enabled         bool          `yaml:"enabled"`
		StrategyTimeout time.Duration `yaml:"strategy_timeout"`
		ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
		SettleDelay     time.Duration `yaml:"settle_delay"`
		PublishEmpty    bool          `yaml:"publish_empty"`
		DistributedLock bool          `yaml:"distributed_lock"`
		LockTTL         time.Duration `yaml:"lock_ttl"`
	} `yaml:"scheduler"`
	Store struct {
		Backend string `yaml:"backend"`
		Table   string `yaml:"table"`
	} `yaml:"store"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		WaitForAsync bool          `yaml:"wait_for_async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
	} `yaml:"clickhouse"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"ssl_mode"`
		MaxOpen  int    `yaml:"max_open"`
		MaxIdle  int    `yaml:"max_idle"`
	} `yaml:"postgres"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		BatchesTopic string   `yaml:"batches_topic"`
		CandlesTopic string   `yaml:"candles_topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		Prefix    string        `yaml:"prefix"`
		LocalSize int           `yaml:"local_size"`
		LocalTTL  time.Duration `yaml:"local_ttl"`
		BatchTTL  time.Duration `yaml:"batch_ttl"`
	} `yaml:"redis"`
	Binance struct {
		RESTURL        string        `yaml:"rest_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"binance"`
	Ingest struct {
		Source        string `yaml:"source"`
		BackfillHours int    `yaml:"backfill_hours"`
	} `yaml:"ingest"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads an optional .env next to the process, then the YAML file,
// then applies environment overrides and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Market.Symbol = strings.ToUpper(v)
	}
	if v := os.Getenv("REGISTRY_PATH"); v != "" {
		c.Registry.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Market.BaseTimeframe == "" {
		c.Market.BaseTimeframe = string(models.TF1h)
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
	}
	if c.Store.Table == "" {
		c.Store.Table = "candles"
	}
	if c.Ingest.Source == "" {
		c.Ingest.Source = IngestNone
	}
	if c.Scheduler.StrategyTimeout == 0 {
		c.Scheduler.StrategyTimeout = 30 * time.Second
	}
	if c.Scheduler.ShutdownGrace == 0 {
		c.Scheduler.ShutdownGrace = 2 * time.Second
	}
}

// BaseTimeframe returns the parsed market.base_timeframe.
func (c *Config) BaseTimeframe() models.Timeframe {
	tf, _ := models.ParseTimeframe(c.Market.BaseTimeframe)
	return tf
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol is required")
	}
	if _, err := models.ParseTimeframe(c.Market.BaseTimeframe); err != nil {
		return fmt.Errorf("market.base_timeframe: %w", err)
	}
	if c.Market.Retention < 0 {
		return fmt.Errorf("market.retention must not be negative")
	}
	if c.Registry.Path == "" {
		return fmt.Errorf("registry.path is required")
	}
	if c.Scheduler.StrategyTimeout < 0 || c.Scheduler.ShutdownGrace < 0 || c.Scheduler.SettleDelay < 0 {
		return fmt.Errorf("scheduler durations must not be negative")
	}
	if c.Scheduler.DistributedLock && !c.Redis.Enabled {
		return fmt.Errorf("scheduler.distributed_lock requires redis.enabled")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreClickHouse:
		if c.ClickHouse.Host == "" || c.ClickHouse.Database == "" {
			return fmt.Errorf("clickhouse.host and clickhouse.database are required for store.backend=clickhouse")
		}
	case StorePostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres.host and postgres.database are required for store.backend=postgres")
		}
	default:
		return fmt.Errorf("store.backend must be 'memory', 'clickhouse' or 'postgres', got '%s'", c.Store.Backend)
	}

	switch c.Ingest.Source {
	case IngestNone:
	case IngestWebSocket:
		if c.Binance.WebSocketURL == "" {
			return fmt.Errorf("binance.websocket_url is required for ingest.source=websocket")
		}
	case IngestKafka:
		if !c.Kafka.Enabled || c.Kafka.CandlesTopic == "" {
			return fmt.Errorf("ingest.source=kafka requires kafka.enabled and kafka.candles_topic")
		}
	default:
		return fmt.Errorf("ingest.source must be 'none', 'websocket' or 'kafka', got '%s'", c.Ingest.Source)
	}
	if c.Ingest.BackfillHours < 0 {
		return fmt.Errorf("ingest.backfill_hours must not be negative")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled")
	}
	return nil
}
