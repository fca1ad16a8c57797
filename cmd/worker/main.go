package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucabarone/invoiceflow/internal/bootstrap"
	"github.com/lucabarone/invoiceflow/internal/config"
	"github.com/lucabarone/invoiceflow/internal/observability/logging"
	"github.com/lucabarone/invoiceflow/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorker(app.Registry)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	jobTimeout := time.Duration(cfg.JobTimeoutSeconds) * time.Second

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProcessDocument(ctx, func(handlerCtx context.Context, documentID string) error {
		workerMetrics.JobStarted()
		start := time.Now()

		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)
		cancel()

		outcome := "done"
		if processErr != nil {
			outcome = "error"
		}
		workerMetrics.ObserveJob(outcome, time.Since(start))
		workerMetrics.JobFinished()
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	// Deliver notifications still sitting in the batch window before exit.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	app.Batcher.Flush(flushCtx)
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	_ = metricsServer.Shutdown(shutdownCtx)
	cancelShutdown()
}
