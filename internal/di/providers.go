package di

import (
	"context"
	"fmt"
	"time"

	"StratTick/internal/domain/repository"
	"StratTick/internal/handler/api"
	internalrepo "StratTick/internal/repository"
	"StratTick/internal/service/binance"
	"StratTick/internal/services/registry"
	"StratTick/internal/services/strategies"
	"StratTick/internal/usecase"
	"StratTick/pkg/cache"
	pkgch "StratTick/pkg/clickhouse"
	"StratTick/pkg/config"
	pkgkafka "StratTick/pkg/kafka"
	applogger "StratTick/pkg/logger"
	"StratTick/pkg/metrics"
	pkgpg "StratTick/pkg/postgres"
	"StratTick/pkg/server"
)

// ProvideLogger builds the application logger from the log section. Repeated
// errors are aggregated onto the logs topic when a producer is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return l.With(
		applogger.String("env", cfg.Environment),
		applogger.String("symbol", cfg.Market.Symbol),
	), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStrategyFactory returns the builder for the built-in strategy kinds.
func ProvideStrategyFactory() registry.Builder {
	return strategies.NewFactory()
}

// ProvideRegistry loads the strategy registry file.
func ProvideRegistry(cfg *config.Config, builder registry.Builder, l *applogger.Logger) (*registry.Holder, error) {
	h, err := registry.NewFileHolder(cfg.Registry.Path, cfg.BaseTimeframe().Duration(), builder, l)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return h, nil
}

// ProvideCandleStore opens the configured candle store backend and makes sure
// its schema exists.
func ProvideCandleStore(cfg *config.Config, l *applogger.Logger) (repository.CandleStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store repository.CandleStore
	switch cfg.Store.Backend {
	case config.StoreClickHouse:
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		table := cfg.ClickHouse.Database + "." + cfg.Store.Table
		stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}, internalrepo.CHCandleSchema(table)...)
		if err := client.InitSchema(ctx, stmts); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		store = internalrepo.NewCHCandleStore(client, table, cfg.Market.Symbol, l)
	case config.StorePostgres:
		client, err := pkgpg.NewClient(
			pkgpg.WithHost(cfg.Postgres.Host),
			pkgpg.WithPort(cfg.Postgres.Port),
			pkgpg.WithDatabase(cfg.Postgres.Database),
			pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
			pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
			pkgpg.WithMaxConnections(cfg.Postgres.MaxOpen, cfg.Postgres.MaxIdle),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres client: %w", err)
		}
		if err := client.InitSchema(ctx, internalrepo.PGCandleSchema(cfg.Store.Table)); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		store = internalrepo.NewPGCandleStore(client, cfg.Store.Table, cfg.Market.Symbol, l)
	default:
		store = internalrepo.NewMemoryCandleStore()
	}

	l.Info("candle store ready", applogger.String("backend", cfg.Store.Backend))
	return store, func() {
		if err := store.Close(); err != nil {
			l.Warn("candle store close error", applogger.Error(err))
		}
	}, nil
}

// ProvideCache returns a Redis-backed layered cache when redis is enabled and
// an in-process cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	var svc cache.Service
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = cache.NewLayeredCache(rc, cache.WithLayeredMemory(cfg.Redis.LocalSize, cfg.Redis.LocalTTL))
	} else {
		svc = cache.NewMemoryCache()
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideBatchStore keeps recent batches in the cache for the HTTP API.
func ProvideBatchStore(c cache.Service, cfg *config.Config) *internalrepo.CacheBatchStore {
	return internalrepo.NewCacheBatchStore(c, cfg.Market.Symbol, cfg.Redis.BatchTTL)
}

// ProvideBatchReader exposes the batch store to the HTTP API.
func ProvideBatchReader(store *internalrepo.CacheBatchStore) repository.BatchReader {
	return store
}

// ProvideBatchSink fans batches out to the cache and, when enabled, Kafka.
func ProvideBatchSink(store *internalrepo.CacheBatchStore, producer *pkgkafka.Producer, cfg *config.Config) repository.BatchSink {
	sinks := internalrepo.MultiSink{store}
	if producer != nil && cfg.Kafka.BatchesTopic != "" {
		sinks = append(sinks, internalrepo.NewKafkaBatchSink(producer, cfg.Kafka.BatchesTopic))
	}
	return sinks
}

// ProvideCycleGate returns the gate shared by the cycle and candle writers.
func ProvideCycleGate() *usecase.CycleGate {
	return usecase.NewCycleGate()
}

// ProvideTickCycle assembles the cycle driver.
func ProvideTickCycle(
	cfg *config.Config,
	holder *registry.Holder,
	store repository.CandleStore,
	sink repository.BatchSink,
	c cache.Service,
	gate *usecase.CycleGate,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TickCycle {
	base := cfg.BaseTimeframe().Duration()
	executor := usecase.NewStrategyExecutor(
		usecase.WithStrategyTimeout(cfg.Scheduler.StrategyTimeout),
		usecase.WithShutdownGrace(cfg.Scheduler.ShutdownGrace),
		usecase.WithExecutorMetrics(m),
		usecase.WithExecutorLogger(l),
	)
	opts := []usecase.CycleOption{
		usecase.WithCycleGate(gate),
		usecase.WithPublishEmpty(cfg.Scheduler.PublishEmpty),
		usecase.WithCycleMetrics(m),
		usecase.WithCycleLogger(l),
	}
	if cfg.Scheduler.DistributedLock {
		opts = append(opts, usecase.WithCycleLock(c, "cycle:"+cfg.Market.Symbol, cfg.Scheduler.LockTTL))
	}
	return usecase.NewTickCycle(
		holder,
		store,
		usecase.NewDataPreparer(base),
		executor,
		usecase.NewRecommendationAggregator(cfg.Market.Symbol),
		sink,
		opts...,
	)
}

// ProvideTickScheduler drives the cycle from the wall clock.
func ProvideTickScheduler(cfg *config.Config, cycle *usecase.TickCycle, l *applogger.Logger) *usecase.TickScheduler {
	return usecase.NewTickScheduler(cycle, cfg.BaseTimeframe().Duration(),
		usecase.WithSettleDelay(cfg.Scheduler.SettleDelay),
		usecase.WithSchedulerLogger(l),
	)
}

// ProvideCandleSync keeps the store current from Binance.
func ProvideCandleSync(
	cfg *config.Config,
	store repository.CandleStore,
	gate *usecase.CycleGate,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CandleSync {
	opts := []usecase.SyncOption{
		usecase.WithSyncGate(gate),
		usecase.WithSyncMetrics(m),
		usecase.WithSyncLogger(l),
		usecase.WithRetention(cfg.Market.Retention),
		usecase.WithBackfillWindow(time.Duration(cfg.Ingest.BackfillHours) * time.Hour),
	}
	if cfg.Binance.RESTURL != "" {
		opts = append(opts, usecase.WithSyncSource(
			binance.NewRESTClient(cfg.Binance.RESTURL, cfg.Market.Symbol, cfg.Binance.RequestTimeout),
		))
	}
	if cfg.Ingest.Source == config.IngestWebSocket {
		opts = append(opts, usecase.WithSyncStream(binance.NewStream(
			cfg.Binance.WebSocketURL,
			cfg.Market.Symbol,
			cfg.BaseTimeframe(),
			cfg.Binance.ReconnectDelay,
			cfg.Binance.PingInterval,
			l,
		)))
	}
	return usecase.NewCandleSync(store, cfg.Market.Symbol, cfg.BaseTimeframe(), opts...)
}

// ProvideKafkaConsumer creates the candle consumer when candles arrive over Kafka.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Source != config.IngestKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaCandlesHandler applies candles from the candles topic.
func ProvideKafkaCandlesHandler(cfg *config.Config, sync *usecase.CandleSync) *usecase.KafkaCandlesHandler {
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.CandlesTopic, sync)
}

// ProvideHTTPHandler builds the inspection API.
func ProvideHTTPHandler(
	l *applogger.Logger,
	holder *registry.Holder,
	cycle *usecase.TickCycle,
	batches repository.BatchReader,
	store repository.CandleStore,
	c cache.Service,
) *api.TickEchoHandler {
	checks := map[string]api.HealthCheck{
		"store": func(ctx context.Context) error {
			_, _, err := store.Latest(ctx)
			return err
		},
		"cache": func(ctx context.Context) error {
			_, err := c.Exists(ctx, "healthz")
			return err
		},
	}
	return api.NewTickEchoHandler(l, holder, cycle, batches, checks)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	holder *registry.Holder,
	scheduler *usecase.TickScheduler,
	sync *usecase.CandleSync,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCandlesHandler,
	handler *api.TickEchoHandler,
) *server.App {
	app := server.New(cfg, l, holder, scheduler, sync, handler)
	if consumer != nil {
		app.SetConsumer(consumer, kh)
	}
	return app
}
