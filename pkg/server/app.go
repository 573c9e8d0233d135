package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TurtleDesk/internal/middleware"
	"TurtleDesk/internal/repository"
	"TurtleDesk/internal/service/ratelimit"
	"TurtleDesk/internal/service/stream"
	"TurtleDesk/internal/usecase"
	pkgch "TurtleDesk/pkg/clickhouse"
	"TurtleDesk/pkg/config"
	"TurtleDesk/pkg/database"
	xhttp "TurtleDesk/pkg/http"
	pkgkafka "TurtleDesk/pkg/kafka"
	applogger "TurtleDesk/pkg/logger"
	"TurtleDesk/pkg/queue"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const limiterIdle = 10 * time.Minute

// Components holds everything the App starts and stops. Optional parts are nil when disabled.
type Components struct {
	Logger     *applogger.Logger
	DB         *gorm.DB
	Store      *repository.GormStore
	HTTP       *xhttp.Server
	Analyzer   *usecase.AnalyzeUseCase
	Hub        *stream.Hub
	Pipeline   *middleware.SignalPipeline
	Queue      *queue.RedisQueue
	Consumer   *pkgkafka.Consumer
	Signals    pkgkafka.MessageHandler
	EventStore *repository.CHEventStore
	ClickHouse *pkgch.Client
	Producer   *pkgkafka.Producer
	Redis      *redis.Client
	Limiter    *ratelimit.Limiter
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	c   Components
	l   *applogger.Logger
}

func New(cfg *config.Config, c Components) *App {
	l := c.Logger
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, c: c, l: l}
}

// Analyzer exposes the in-process analysis use case for the CLI.
func (a *App) Analyzer() *usecase.AnalyzeUseCase { return a.c.Analyzer }

// Migrate creates or updates the relational schema.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.c.Store.Migrate(ctx); err != nil {
		return err
	}
	a.l.Info("database migrated", applogger.String("driver", a.cfg.Database.Driver))
	return nil
}

// Run starts every component and the HTTP server, then blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}
	if err := a.c.HTTP.Start(); err != nil {
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// RunOnce starts the background workers, runs fn and shuts down. Used by one-shot CLI commands
// so notifications raised by fn are still delivered.
func (a *App) RunOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := a.start(ctx); err != nil {
		a.shutdown()
		return err
	}
	err := fn(ctx)
	a.shutdown()
	return err
}

func (a *App) start(ctx context.Context) error {
	if a.cfg.Database.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
	}

	if a.c.EventStore != nil {
		if err := a.c.EventStore.Init(ctx); err != nil {
			return err
		}
	}

	if a.c.Queue != nil {
		if err := a.c.Queue.Start(ctx); err != nil {
			return err
		}
		a.l.Info("notification queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.c.Pipeline != nil {
		a.c.Pipeline.Start(ctx)
	}

	if a.c.Consumer != nil && a.c.Signals != nil {
		a.c.Consumer.RegisterHandler(a.c.Signals)
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.c.Signals.Topic()))
	}

	if a.c.Limiter != nil {
		go a.sweepLimiter(ctx)
	}
	return nil
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(limiterIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.c.Limiter.Sweep(limiterIdle); n > 0 {
				a.l.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops components in reverse start order. It runs on a fresh context
// because the run context is already cancelled by the time it is called.
func (a *App) shutdown() {
	a.l.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.c.Hub != nil {
		a.c.Hub.Close()
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.c.Pipeline != nil {
		a.c.Pipeline.Stop(ctx)
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.l.Warn("queue stop error", applogger.Error(err))
		}
	}

	a.l.RemoveCollector()

	if a.c.Producer != nil {
		if err := a.c.Producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.c.Redis != nil {
		if err := a.c.Redis.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}
	if a.c.DB != nil {
		if err := database.Close(a.c.DB); err != nil {
			a.l.Warn("database close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
}
