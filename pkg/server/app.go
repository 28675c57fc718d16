package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CreditRisk/internal/service/ratelimit"
	"CreditRisk/internal/usecase"
	"CreditRisk/pkg/cache"
	pkgch "CreditRisk/pkg/clickhouse"
	"CreditRisk/pkg/config"
	xhttp "CreditRisk/pkg/http"
	pkgkafka "CreditRisk/pkg/kafka"
	applogger "CreditRisk/pkg/logger"
	"CreditRisk/pkg/queue"
)

// limiter buckets idle this long are dropped.
const limiterIdle = 10 * time.Minute

// Resources are the optional infrastructure clients the app owns. Nil fields are skipped.
type Resources struct {
	ClickHouse *pkgch.Client
	Producer   *pkgkafka.Producer
	Consumer   *pkgkafka.Consumer
	Cache      cache.Service
	Queue      *queue.RedisQueue
	Limiter    *ratelimit.Limiter
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	assessor   *usecase.RiskAssessor
	audit      *usecase.AuditRecorder
	res        Resources
	done       chan struct{}
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	assessor *usecase.RiskAssessor,
	audit *usecase.AuditRecorder,
	res Resources,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		assessor:   assessor,
		audit:      audit,
		res:        res,
		done:       make(chan struct{}),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the background workers and the HTTP server.
func (a *App) Start() error {
	if err := a.assessor.Unavailable(); err != nil {
		a.log.Warn("predictions disabled", applogger.Error(err))
	} else {
		a.log.Info("model loaded", applogger.String("version", a.assessor.ModelVersion()))
	}

	if a.res.Queue != nil {
		if err := a.res.Queue.Start(); err != nil {
			return fmt.Errorf("audit queue: %w", err)
		}
	}

	if a.res.Consumer != nil {
		if err := a.res.Consumer.Start(); err != nil {
			return fmt.Errorf("audit ingest: %w", err)
		}
	}

	if a.res.Limiter != nil {
		go a.sweepLimiter()
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("app started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("audit", a.audit.Backend()),
		applogger.String("cache", a.cfg.Cache.Backend))
	return nil
}

func (a *App) sweepLimiter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			if n := a.res.Limiter.Sweep(limiterIdle); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// Shutdown stops the HTTP server first, then drains the queue and closes the clients.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	close(a.done)

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	if a.res.Queue != nil {
		if err := a.res.Queue.Stop(ctx); err != nil {
			a.log.Warn("audit queue stop error", applogger.Error(err))
		}
		if err := a.res.Queue.Close(); err != nil {
			a.log.Warn("audit queue close error", applogger.Error(err))
		}
	}

	a.audit.Close()

	if a.res.Consumer != nil {
		if err := a.res.Consumer.Stop(ctx); err != nil {
			a.log.Warn("audit ingest stop error", applogger.Error(err))
		}
	}

	if a.res.Cache != nil {
		if err := a.res.Cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	if a.res.ClickHouse != nil {
		if err := a.res.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// flush aggregated error logs before the producer goes away
	a.log.RemoveCollector()

	if a.res.Producer != nil {
		if err := a.res.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return firstErr
}
