// Package admin contains the daemon-side commands.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/studykit/engine/internal/api/handlers"
	"github.com/studykit/engine/internal/config"
	"github.com/studykit/engine/internal/domain"
	"github.com/studykit/engine/internal/embedding"
	"github.com/studykit/engine/internal/jobs"
	"github.com/studykit/engine/internal/provider"
	"github.com/studykit/engine/internal/repository"
	"github.com/studykit/engine/internal/server"
	"github.com/studykit/engine/internal/service"
	"github.com/studykit/engine/internal/storage"
	"github.com/studykit/engine/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the studykit query engine on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	ingestJobRepo := repository.NewIngestJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var storageClient service.StorageClient
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = s3Client
	}

	embedder, err := buildEmbeddingClient(ctx, cfg)
	if err != nil {
		return err
	}

	var ingestWorker *jobs.Worker
	if embedder != nil {
		ingestSvc := service.NewIngestService(docRepo, chunkRepo, embedder, service.ChunkConfig{
			MaxChars:  cfg.ChunkSize,
			MinChars:  300,
			Overlap:   cfg.ChunkOverlap,
			MaxChunks: 500,
		})
		processor := jobs.NewIngestWorker(ingestJobRepo, ingestSvc)
		ingestWorker = jobs.NewWorker(processor, 10*time.Second)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	}

	registry := provider.NewRegistry(provider.RegistryConfig{
		GeminiConfigured: cfg.HasGemini(),
		GroqConfigured:   cfg.HasGroq(),
		GeminiFlashModel: cfg.GeminiFlashModel,
		GeminiProModel:   cfg.GeminiProModel,
		GroqLlamaModel:   cfg.GroqLlamaModel,
	})
	if !registry.HasAnyProvider() {
		log.Println("warning: no generation provider configured, queries will fail")
	}

	generators := make(map[domain.ProviderName]provider.Generator)
	if cfg.HasGemini() {
		gemini, err := provider.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create gemini provider: %w", err)
		}
		generators[domain.ProviderGeminiFlash] = gemini
		generators[domain.ProviderGeminiPro] = gemini
	}
	if cfg.HasGroq() {
		generators[domain.ProviderGroq] = provider.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL)
	}
	gateway := provider.NewGateway(registry, generators, cfg.LLMTimeout)

	var retriever service.ContextRetriever
	if embedder != nil {
		retriever = service.NewRetriever(embedder, chunkRepo, service.RetrieverConfig{
			MinScoreThreshold: cfg.RAGMinScoreThreshold,
			EnableFallback:    cfg.RAGEnableFallback,
			ScanLimit:         cfg.RAGScanLimit,
			EmbedTimeout:      cfg.EmbedTimeout,
			SearchTimeout:     cfg.SearchTimeout,
		})
	} else {
		log.Println("warning: no embedding provider configured, retrieval disabled")
		retriever = &noopRetriever{}
	}

	orchestrator := service.NewOrchestrator(
		service.NewClassifier(),
		retriever,
		registry,
		gateway,
		service.OrchestratorConfig{
			DefaultTopK:           cfg.RAGTopK,
			DefaultScoreThreshold: cfg.RAGScoreThreshold,
			DefaultMaxTokens:      cfg.LLMMaxTokens,
			QuestionGenTopK:       10,
			QuestionGenThreshold:  cfg.RAGMinScoreThreshold,
			HomeworkMaxTokens:     3072,
			SummaryContextSample:  10,
		},
	)

	docSvc := service.NewDocumentService(txRunner, docRepo, storageClient)

	router := server.NewRouter(server.RouterConfig{
		ServiceAPIKey:   cfg.ServiceAPIKey,
		QueryHandler:    handlers.NewQueryHandler(orchestrator),
		DocumentHandler: handlers.NewDocumentHandler(docSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildEmbeddingClient prefers Gemini for its document/query task types and
// falls back to any OpenAI-compatible endpoint. Nil means retrieval and
// ingestion are disabled.
func buildEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	if cfg.HasGemini() {
		client, err := embedding.NewGeminiClient(ctx, embedding.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini embedding client: %w", err)
		}
		return client, nil
	}
	if cfg.HasOpenAI() {
		return embedding.NewOpenAIClient(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Dimensions: cfg.EmbeddingDimensions,
		}), nil
	}
	return nil, nil
}

// noopRetriever stands in when no embedding provider is configured; every
// retrieval degrades to "no context found".
type noopRetriever struct{}

func (r *noopRetriever) Search(ctx context.Context, query string, filters service.SearchFilters, topK int, scoreThreshold float32) []domain.ContextChunk {
	return []domain.ContextChunk{}
}

func (r *noopRetriever) ScanDocuments(ctx context.Context, userID string, documentIDs []string) []domain.ContextChunk {
	return []domain.ContextChunk{}
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
