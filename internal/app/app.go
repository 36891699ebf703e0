// Package app wires repositories, services and handlers into the HTTP
// surface and owns the server lifecycle.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"paperbase/features/document"
	"paperbase/features/job"
	"paperbase/features/search"
	"paperbase/features/stats"
	"paperbase/internal/adapter/crossref"
	"paperbase/internal/adapter/extractor"
	"paperbase/internal/adapter/gemini"
	"paperbase/internal/chunks"
	"paperbase/internal/config"
	"paperbase/internal/middleware"
	"paperbase/internal/pipeline"
	"paperbase/internal/retrieval"
	"paperbase/internal/settings"
)

// EventPublisher is the NSQ producer surface the app needs.
type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler   http.Handler
	Processor *pipeline.Processor
	port      int
}

func New(cfg *config.Config, db *sql.DB, pub EventPublisher, logger *slog.Logger) (*App, error) {
	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)

	// Seed Gemini API key from config on first boot.
	if cfg.GeminiAPIKey != "" {
		ctx := context.Background()
		set, err := settingsService.Get(ctx)
		if err == nil {
			if set.GeminiAPIKey == "" {
				set.GeminiAPIKey = cfg.GeminiAPIKey
				if cfg.EmbeddingModel != "" {
					set.EmbeddingModel = cfg.EmbeddingModel
				}
				if err := settingsService.Update(ctx, set); err != nil {
					slog.Warn("failed to seed gemini api key", "error", err)
				} else {
					slog.Info("seeded gemini api key from environment")
				}
			}
		} else {
			slog.Warn("failed to fetch settings for seeding", "error", err)
		}
	}

	settingsHandler := settings.NewHandler(settingsService)

	// Adapters
	extractorClient := extractor.NewClient(cfg.ExtractorURL, time.Duration(cfg.ExtractorTimeoutSeconds)*time.Second)
	citationClient := crossref.NewClient(time.Duration(cfg.CitationTimeoutSeconds) * time.Second)
	geminiEmbedder := gemini.NewDynamicEmbedder(settingsService)

	// Stores
	chunkStore := chunks.NewPostgresStore(db)
	jobRepo := job.NewPostgresRepo(db)
	docRepo := document.NewPostgresRepo(db)

	// Feature: Job
	jobService := job.NewService(jobRepo, logger)
	jobHandler := job.NewHandler(jobService)

	// Feature: Document
	downloader := &http.Client{Timeout: time.Duration(cfg.DownloadTimeoutSeconds) * time.Second}
	enqueuer := &jobEnqueuerAdapter{jobs: jobService}
	docService := document.NewService(docRepo, enqueuer, extractorClient, citationClient, extractorClient, cfg.PDFDir, downloader, logger)
	docHandler := document.NewHandler(docService, cfg.MaxUploadSizeMB)

	// Pipeline
	notifier := pipeline.NewEventNotifier(pub, logger)
	processor := pipeline.NewProcessor(jobRepo, docRepo, chunkStore, extractorClient, geminiEmbedder, notifier, time.Duration(cfg.EmbedTimeoutSeconds)*time.Second, logger)
	pipelineHandler := pipeline.NewHandler(processor)

	// Retrieval & Search
	queryLogger, err := retrieval.NewFileQueryLogger("data/logs/query.log")
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(geminiEmbedder, docRepo, chunkStore, queryLogger)
	searchHandler := search.NewHandler(retrievalService)

	// Feature: Stats
	statsHandler := stats.NewHandler(docRepo, jobRepo, chunkStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(docHandler.Create)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))
	mux.Handle("GET /documents/{id}/pages/{page}/image", middleware.CorrelationID(enableCORS(docHandler.PageImage)))
	mux.Handle("GET /documents/{id}/bibtex", middleware.CorrelationID(enableCORS(docHandler.Bibtex)))
	mux.Handle("POST /documents/{id}/search", middleware.CorrelationID(enableCORS(searchHandler.Search)))

	mux.Handle("POST /jobs", middleware.CorrelationID(enableCORS(jobHandler.Enqueue)))
	mux.Handle("GET /jobs/pending", middleware.CorrelationID(enableCORS(jobHandler.ListPending)))

	mux.Handle("POST /batch/run", middleware.CorrelationID(enableCORS(pipelineHandler.RunBatch)))
	mux.Handle("GET /batch/status", middleware.CorrelationID(enableCORS(jobHandler.BatchStatus)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:   mux,
		Processor: processor,
		port:      cfg.ServerPort,
	}, nil
}

// Adapter narrowing the job service to what document ingestion needs.
type jobEnqueuerAdapter struct {
	jobs *job.Service
}

func (a *jobEnqueuerAdapter) EnqueueStandardJobs(ctx context.Context, documentID string) error {
	_, err := a.jobs.EnqueueStandardJobs(ctx, documentID)
	return err
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
