// Kira Scheduler — создаёт evaluations по расписаниям.
//
// Несколько экземпляров безопасны: тики выполняет только держатель
// advisory lock в PostgreSQL, остальные ждут.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Kira/internal/config"
	"github.com/shaiso/Kira/internal/mq"
	"github.com/shaiso/Kira/internal/repo"
	"github.com/shaiso/Kira/internal/scheduler"
	"github.com/shaiso/Kira/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting kira-scheduler")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	schedCfg := scheduler.Config{
		Schedules:   repo.NewScheduleRepo(pool),
		Scripts:     repo.NewScriptRepo(pool),
		Evaluations: repo.NewEvaluationRepo(pool),
		Logger:      logger,
	}

	conn, err := mq.NewConnection(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, workers will poll", "error", err)
	} else {
		defer conn.Close()
		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		schedCfg.Publisher = mq.NewPublisher(conn, logger)
		logger.Info("RabbitMQ connected")
	}

	sched := scheduler.New(schedCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := config.Addr(cfg.Scheduler.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runLoop(gctx, pool, sched, cfg.Scheduler, logger)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("kira-scheduler failed", "error", err)
		os.Exit(1)
	}
	logger.Info("kira-scheduler stopped")
}

// runLoop выполняет тики, пока процесс держит advisory lock.
func runLoop(ctx context.Context, pool *pgxpool.Pool, sched *scheduler.Scheduler, cfg config.Scheduler, logger *slog.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire lock connection: %w", err)
	}
	defer conn.Release()

	var leader bool
	defer func() {
		if leader {
			if err := repo.Unlock(context.Background(), conn, cfg.LockKey); err != nil {
				logger.Warn("failed to release scheduler lock", "error", err)
			}
		}
	}()

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
		}

		if !leader {
			ok, err := repo.TryLock(ctx, conn, cfg.LockKey)
			if err != nil {
				logger.Error("scheduler lock error", "error", err)
				continue
			}
			if !ok {
				continue
			}
			leader = true
			logger.Info("acquired scheduler lock")
		}

		if err := sched.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler tick failed", "error", err)
		}
	}
}
