// Package main implements the ClaimSight API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ClaimSightAI/claimsight-mvp/engine/analysis"
	"github.com/ClaimSightAI/claimsight-mvp/engine/classify"
	"github.com/ClaimSightAI/claimsight-mvp/engine/embedding"
	"github.com/ClaimSightAI/claimsight-mvp/engine/extract"
	"github.com/ClaimSightAI/claimsight-mvp/engine/policy"
	"github.com/ClaimSightAI/claimsight-mvp/engine/rag"
	"github.com/ClaimSightAI/claimsight-mvp/engine/retrieval"
	"github.com/ClaimSightAI/claimsight-mvp/engine/semantic"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/metrics"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/mid"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/natsutil"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/ollama"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/repo"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	OllamaURL     string
	EmbedModel    string
	GenerateModel string
	EmbedDim      int
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPass     string
	QdrantURL     string
	Collection    string
	NATSURL       string // empty disables async analysis
	CORSOrigin    string
	RateLimit     float64
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		OllamaURL:     envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:    envOr("EMBED_MODEL", "nomic-embed-text"),
		GenerateModel: envOr("GENERATE_MODEL", "llama3"),
		EmbedDim:      envIntOr("EMBED_DIM", embedding.DefaultDimension),
		Neo4jURL:      envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:     envOr("NEO4J_PASS", "password"),
		QdrantURL:     envOr("QDRANT_URL", "localhost:6334"),
		Collection:    envOr("QDRANT_COLLECTION", "claimsight"),
		NATSURL:       os.Getenv("NATS_URL"),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
		RateLimit:     float64(envIntOr("RATE_LIMIT_RPS", 50)),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Neo4j ---
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)

	claimStore := repo.NewClaimStore(neo4jDriver)

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	if err := vectorStore.EnsureCollection(ctx, cfg.EmbedDim); err != nil {
		return fmt.Errorf("qdrant collection: %w", err)
	}

	// --- Model clients ---
	embedClient := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, nil)
	genClient := ollama.NewGenerateClient(cfg.OllamaURL, cfg.GenerateModel, nil)

	// --- Build the analysis orchestrator ---
	met := metrics.New()
	orch := analysis.New(analysis.Deps{
		Classifier: classify.New(),
		Validator:  policy.NewValidator(policy.Builtin()),
		Indexer:    embedding.New(embedClient, cfg.EmbedDim, logger),
		Retriever:  retrieval.New(vectorStore, vectorStore, logger),
		Answerer:   rag.New(genClient, logger),
		Generator:  genClient,
		Records:    claimStore,
		Vectors:    vectorStore,
		Metrics:    met,
		Logger:     logger,
	})

	// --- Optional NATS connection for async analysis ---
	var publish publishFunc
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		publish = func(ctx context.Context, req analysis.BatchRequest) error {
			return natsutil.Publish(ctx, nc, analysis.AnalyzeSubject, req)
		}
		logger.Info("async analysis enabled", "subject", analysis.AnalyzeSubject)
	}

	s := &server{
		orch:      orch,
		records:   claimStore,
		extractor: extract.New(logger),
		publish:   publish,
		logger:    logger,
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/analyze/async", s.handleAnalyzeAsync)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/policy", s.handlePolicy)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.RateLimit(cfg.RateLimit, int(cfg.RateLimit)*2),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("claimsight-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
