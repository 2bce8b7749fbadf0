// Kira Worker — вычисляет сохранённые evaluations.
//
// Worker:
//   - получает evaluation.pending из RabbitMQ
//   - забирает PENDING evaluations из БД, если сообщение потерялось
//   - вычисляет script с таймаутом и сохраняет выходы
//   - публикует evaluation.completed
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Kira/internal/config"
	"github.com/shaiso/Kira/internal/evaluator"
	"github.com/shaiso/Kira/internal/mq"
	"github.com/shaiso/Kira/internal/repo"
	"github.com/shaiso/Kira/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting kira-worker")

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

	serviceCfg := evaluator.Config{
		Evaluations:  repo.NewEvaluationRepo(pool),
		Versions:     repo.NewScriptRepo(pool),
		Evaluator:    evaluator.New(evaluator.WithLogger(logger)),
		PollInterval: cfg.Worker.PollInterval,
		Timeout:      cfg.Worker.Timeout,
		Logger:       logger,
	}

	conn, err := mq.NewConnection(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer conn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		serviceCfg.Conn = conn
		serviceCfg.Publisher = mq.NewPublisher(conn, logger)
	}

	svc := evaluator.NewService(serviceCfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := config.Addr(cfg.Worker.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := svc.Start(gctx); err != nil {
			return fmt.Errorf("start evaluation service: %w", err)
		}
		<-gctx.Done()
		svc.Stop()
		return nil
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
		logger.Error("kira-worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("kira-worker stopped")
}
