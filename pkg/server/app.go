package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"StratTick/internal/services/registry"
	"StratTick/internal/usecase"
	"StratTick/pkg/config"
	xhttp "StratTick/pkg/http"
	pkgkafka "StratTick/pkg/kafka"
	applogger "StratTick/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	registry    *registry.Holder
	scheduler   *usecase.TickScheduler
	sync        *usecase.CandleSync
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	wg sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	holder *registry.Holder,
	scheduler *usecase.TickScheduler,
	candleSync *usecase.CandleSync,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		registry:    holder,
		scheduler:   scheduler,
		sync:        candleSync,
		httpHandler: handler,
	}
}

// SetConsumer attaches a Kafka consumer that feeds candles through kh.
func (a *App) SetConsumer(c *pkgkafka.Consumer, kh pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = kh
}

// Run starts the application and blocks until interrupted. SIGHUP reloads
// the strategy registry.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.metricsPath()),
		xhttp.WithLogger(a.l),
	)

	if a.sync != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.sync.Start(ctx); err != nil {
				a.l.Error("candle sync error", applogger.Error(err))
			}
		}()
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.cfg.Scheduler.Enabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.scheduler.Start(ctx); err != nil {
				a.l.Error("scheduler error", applogger.Error(err))
			}
		}()
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			if _, err := a.registry.Reload(); err != nil {
				a.l.Warn("registry reload on SIGHUP failed, keeping current registry", applogger.Error(err))
			}
			continue
		}
		a.l.Info("shutdown signal received", applogger.String("signal", sig.String()))
		break
	}

	cancel()
	return a.shutdown()
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.sync != nil {
		if err := a.sync.Stop(); err != nil {
			a.l.Warn("candle sync stop error", applogger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.l.Warn("shutdown timed out waiting for workers")
	}

	a.l.Info("shutdown complete")
	a.l.RemoveCollector()
	return nil
}
