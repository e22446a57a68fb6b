package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"lectern/features/course"
	"lectern/features/degree"
	"lectern/features/document"
	"lectern/features/prompt"
	"lectern/features/query"
	"lectern/features/stats"
	"lectern/internal/adapter/gemini"
	"lectern/internal/adapter/openrouter"
	"lectern/internal/config"
	"lectern/internal/ingest"
	"lectern/internal/middleware"
	"lectern/internal/parser"
	"lectern/internal/rag"
	"lectern/internal/text"
)

type App struct {
	Handler         http.Handler
	DocumentService *document.Service
	TaskConsumer    *ingest.TaskConsumer

	addr string
}

func New(
	cfg *config.Config,
	db Database,
	vecStore VectorStore,
	taskPub TaskPublisher,
	logger *slog.Logger,
) (*App, error) {

	// Cast db to *sql.DB for repositories that require it.
	// This allows us to use interfaces in the signature (for mocking with sqlmock)
	// while maintaining compatibility with existing repositories.
	sqlDB := db.(*sql.DB)

	// Parser plugins
	registry := parser.NewRegistry()
	runner := &parser.ExecRunner{}
	for _, p := range []parser.Plugin{
		parser.NewPDFPlugin(runner),
		parser.NewDOCXPlugin(),
		parser.NewImageOCRPlugin(runner),
		parser.NewEPUBPlugin(),
		parser.NewMOBIPlugin(),
	} {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("register plugin %s: %w", p.Name(), err)
		}
	}

	// Adapters
	embedder, err := gemini.NewEmbedder(context.Background(), cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}
	llm := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMMaxTokens)
	chunker := text.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)

	// Feature: Prompt
	promptRepo := prompt.NewPostgresRepo(sqlDB)
	if err := prompt.Seed(context.Background(), promptRepo, cfg.PromptSeeds); err != nil {
		slog.Warn("failed to seed prompt templates", "error", err, "path", cfg.PromptSeeds)
	}
	promptHandler := prompt.NewHandler(promptRepo)

	// Feature: Document
	docRepo := document.NewPostgresRepo(sqlDB)
	docService := document.NewService(docRepo, taskPub, vecStore)

	// Feature: Course & Degree
	courseHandler := course.NewHandler(course.NewPostgresRepo(sqlDB))
	degreeHandler := degree.NewHandler(degree.NewPostgresRepo(sqlDB))

	// Ingestion pipeline
	pipeline := &ingest.Pipeline{
		Documents: docRepo,
		Plugins:   registry,
		Chunker:   chunker,
		Embedder:  embedder,
		Index:     vecStore,
	}
	taskConsumer := ingest.NewTaskConsumer(pipeline, time.Duration(cfg.IngestTimeoutSeconds)*time.Second)

	// RAG
	queryLogger, err := rag.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = rag.NewQueryLogger(os.Stdout)
	}
	extractor := &ingest.Extractor{Plugins: registry}
	ragService := rag.NewService(embedder, vecStore, llm, docRepo, promptRepo, extractor, queryLogger, cfg.SearchTopK)

	docHandler := document.NewHandler(docService, ragService, registry, cfg.UploadDir, int(cfg.MaxUploadSizeMB))
	queryHandler := query.NewHandler(ragService)
	statsHandler := stats.NewHandler(docRepo, vecStore, len(registry.List()))

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

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(docHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))
	mux.Handle("POST /documents/{id}/question", middleware.CorrelationID(enableCORS(docHandler.Question)))
	mux.Handle("GET /documents/{id}/summary", middleware.CorrelationID(enableCORS(docHandler.Summary)))

	mux.Handle("POST /queries", middleware.CorrelationID(enableCORS(queryHandler.Ask)))

	mux.Handle("POST /courses", middleware.CorrelationID(enableCORS(courseHandler.Create)))
	mux.Handle("GET /courses", middleware.CorrelationID(enableCORS(courseHandler.List)))
	mux.Handle("GET /courses/{id}", middleware.CorrelationID(enableCORS(courseHandler.Get)))
	mux.Handle("PUT /courses/{id}", middleware.CorrelationID(enableCORS(courseHandler.Update)))
	mux.Handle("DELETE /courses/{id}", middleware.CorrelationID(enableCORS(courseHandler.Delete)))

	mux.Handle("POST /degrees", middleware.CorrelationID(enableCORS(degreeHandler.Create)))
	mux.Handle("GET /degrees", middleware.CorrelationID(enableCORS(degreeHandler.List)))
	mux.Handle("GET /degrees/{id}", middleware.CorrelationID(enableCORS(degreeHandler.Get)))
	mux.Handle("PUT /degrees/{id}", middleware.CorrelationID(enableCORS(degreeHandler.Update)))
	mux.Handle("DELETE /degrees/{id}", middleware.CorrelationID(enableCORS(degreeHandler.Delete)))

	mux.Handle("POST /prompts", middleware.CorrelationID(enableCORS(promptHandler.Create)))
	mux.Handle("GET /prompts", middleware.CorrelationID(enableCORS(promptHandler.List)))
	mux.Handle("GET /prompts/{id}", middleware.CorrelationID(enableCORS(promptHandler.Get)))
	mux.Handle("PUT /prompts/{id}", middleware.CorrelationID(enableCORS(promptHandler.Update)))
	mux.Handle("DELETE /prompts/{id}", middleware.CorrelationID(enableCORS(promptHandler.Delete)))

	mux.Handle("GET /plugins", middleware.CorrelationID(enableCORS(docHandler.Plugins)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		DocumentService: docService,
		TaskConsumer:    taskConsumer,
		addr:            fmt.Sprintf(":%d", cfg.ServerPort),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.addr,
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", a.addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
