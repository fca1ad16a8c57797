// Package bootstrap wires configuration into the concrete infrastructure and
// use cases shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucabarone/invoiceflow/internal/config"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
	"github.com/lucabarone/invoiceflow/internal/core/usecase"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/extractor/pdfextract"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/llm/openai"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/notify"
	natsqueue "github.com/lucabarone/invoiceflow/internal/infrastructure/queue/nats"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/repository/postgres"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/resilience"
	"github.com/lucabarone/invoiceflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry *prometheus.Registry

	Queue   *natsqueue.Queue
	Batcher *notify.Batcher

	IngestUC    ports.DocumentIngestor
	ProcessUC   ports.DocumentProcessor
	LifecycleUC ports.DocumentLifecycle
	EditUC      ports.ResultEditor
	ReaderUC    ports.DocumentReader
	ExportUC    ports.DocumentExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docRepo := postgres.NewDocumentRepository(db)
	if err := docRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	resultRepo := postgres.NewResultRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, logger, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	llmClient := openai.New(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, executor)
	classifier := openai.NewClassifier(llmClient)
	semantics := openai.NewSemanticExtractor(llmClient)

	extractor := pdfextract.NewExtractor(storage)

	batcher := notify.NewBatcher(
		notify.NewLogSink(logger),
		time.Duration(cfg.NotifyFlushSeconds)*time.Second,
		cfg.NotifyMaxBatch,
	)

	ingestUC := usecase.NewIngestDocumentUseCase(docRepo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docRepo, resultRepo, extractor, classifier, semantics, batcher, logger)
	lifecycleUC := usecase.NewDocumentLifecycleUseCase(docRepo, storage, queue)
	editUC := usecase.NewEditResultUseCase(docRepo, resultRepo)
	readerUC := usecase.NewDocumentReaderUseCase(docRepo, resultRepo)
	exportUC := usecase.NewExportUseCase(docRepo, resultRepo)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),

		Queue:   queue,
		Batcher: batcher,

		IngestUC:    ingestUC,
		ProcessUC:   processUC,
		LifecycleUC: lifecycleUC,
		EditUC:      editUC,
		ReaderUC:    readerUC,
		ExportUC:    exportUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
