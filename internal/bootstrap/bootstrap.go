package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/kirillkom/document-structurer/internal/config"
	"github.com/kirillkom/document-structurer/internal/core/classification"
	"github.com/kirillkom/document-structurer/internal/core/legal"
	"github.com/kirillkom/document-structurer/internal/core/ports"
	"github.com/kirillkom/document-structurer/internal/core/usecase"
	"github.com/kirillkom/document-structurer/internal/infrastructure/chunking"
	"github.com/kirillkom/document-structurer/internal/infrastructure/extractor"
	"github.com/kirillkom/document-structurer/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-structurer/internal/infrastructure/ocr"
	"github.com/kirillkom/document-structurer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-structurer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-structurer/internal/infrastructure/resilience"
	"github.com/kirillkom/document-structurer/internal/infrastructure/statistical"
	"github.com/kirillkom/document-structurer/internal/infrastructure/storage/localfs"
)

type Options struct {
	Logger   *slog.Logger
	Observer ports.PipelineObserver
	// OnQueueDeliver receives the publish-to-delivery lag of ingest events.
	OnQueueDeliver func(lag time.Duration)
}

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase

	executors []*resilience.Executor
	closeFn   func()
}

// Pipeline is the storage-free part of the service used by the CLI.
type Pipeline struct {
	ProcessUC *usecase.ProcessDocumentUseCase
	Executor  *resilience.Executor
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := loggerOrDefault(opts.Logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queueExecutor := resilience.NewExecutor(resilienceConfig(cfg), logger)
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		ResilienceExecutor: queueExecutor,
		Logger:             logger,
		OnDeliver:          opts.OnQueueDeliver,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	modelExecutor := newModelExecutor(cfg, logger)
	processUC, err := buildProcessUseCase(cfg, logger, opts.Observer, modelExecutor, repo, storage)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,

		executors: []*resilience.Executor{modelExecutor, queueExecutor},
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// BuildPipeline wires the processing pipeline without Postgres, NATS or
// object storage. ProcessByID is unavailable on the result.
func BuildPipeline(cfg config.Config, opts Options) (*Pipeline, error) {
	logger := loggerOrDefault(opts.Logger)
	executor := newModelExecutor(cfg, logger)
	processUC, err := buildProcessUseCase(cfg, logger, opts.Observer, executor, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Pipeline{ProcessUC: processUC, Executor: executor}, nil
}

// BreakerStates merges breaker states of the model and queue executors.
func (a *App) BreakerStates() map[string]string {
	out := make(map[string]string)
	for _, executor := range a.executors {
		maps.Copy(out, executor.BreakerStates())
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildProcessUseCase(
	cfg config.Config,
	logger *slog.Logger,
	observer ports.PipelineObserver,
	executor *resilience.Executor,
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
) (*usecase.ProcessDocumentUseCase, error) {
	statisticalModel, err := statistical.NewSeededClassifier(cfg.TFIDFMaxFeatures)
	if err != nil {
		return nil, fmt.Errorf("train statistical classifier: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
		Timeout:  cfg.OllamaTimeout,
		Executor: executor,
	})
	splitter := chunking.NewSplitter(cfg.EntityChunkSize, cfg.EntityChunkOverlap)

	recognizer := ocr.NewRecognizer(ocr.Config{
		TesseractPath: cfg.OCRTesseractPath,
		PdftoppmPath:  cfg.OCRPdftoppmPath,
		Language:      cfg.OCRLanguage,
		OEM:           cfg.OCROEM,
		PSM:           cfg.OCRPSM,
		DPI:           cfg.OCRDPI,
		MaxPages:      cfg.OCRMaxPages,
	}, logger)

	deps := usecase.PipelineDeps{
		Detector:   extractor.NewDetector(),
		Extractor:  extractor.NewDefaultRegistry(),
		OCR:        recognizer,
		Entities:   ollama.NewEntityExtractor(ollamaClient, splitter),
		Classifier: classification.NewEngine(ollama.NewZeroShotClassifier(ollamaClient), statisticalModel),
		Legal:      legal.NewEngine(),
		Repo:       repo,
		Storage:    storage,
	}
	return usecase.NewProcessDocumentUseCase(deps,
		usecase.WithLogger(logger),
		usecase.WithObserver(observer),
		usecase.WithOCRMinChars(cfg.OCRMinTextChars),
	), nil
}

// newModelExecutor keeps circuit breaking for Ollama calls but never retries
// them; a pipeline stage makes exactly one model call attempt.
func newModelExecutor(cfg config.Config, logger *slog.Logger) *resilience.Executor {
	return resilience.NewExecutor(resilienceConfig(cfg).WithoutRetries(), logger)
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.Breaker.Enabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceRetryMaxAttempts > 0 {
		out.Retry.MaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	if cfg.ResilienceRetryBackoff > 0 {
		out.Retry.InitialBackoff = cfg.ResilienceRetryBackoff
		out.Retry.MaxBackoff = 4 * cfg.ResilienceRetryBackoff
	}
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.Breaker.MinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	if cfg.ResilienceBreakerFailureRatio > 0 {
		out.Breaker.FailureRatio = cfg.ResilienceBreakerFailureRatio
	}
	if cfg.ResilienceBreakerOpenTimeout > 0 {
		out.Breaker.OpenTimeout = cfg.ResilienceBreakerOpenTimeout
	}
	if cfg.ResilienceBreakerHalfOpenMax > 0 {
		out.Breaker.HalfOpenMaxCalls = uint32(cfg.ResilienceBreakerHalfOpenMax)
	}
	return out
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
