// Command worker consumes queued invoice batches from NATS and runs them
// through the analysis orchestrator into Neo4j and Qdrant.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ClaimSightAI/claimsight-mvp/engine/analysis"
	"github.com/ClaimSightAI/claimsight-mvp/engine/classify"
	"github.com/ClaimSightAI/claimsight-mvp/engine/embedding"
	"github.com/ClaimSightAI/claimsight-mvp/engine/policy"
	"github.com/ClaimSightAI/claimsight-mvp/engine/rag"
	"github.com/ClaimSightAI/claimsight-mvp/engine/retrieval"
	"github.com/ClaimSightAI/claimsight-mvp/engine/semantic"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/metrics"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/natsutil"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/ollama"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/repo"
)

var met = metrics.New()

func main() {
	_ = godotenv.Load()

	var (
		natsURL       = flag.String("nats", nats.DefaultURL, "NATS server URL")
		ollamaURL     = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		embedModel    = flag.String("embed-model", "nomic-embed-text", "Ollama embedding model")
		generateModel = flag.String("generate-model", "llama3", "Ollama generation model")
		embedDim      = flag.Int("dims", embedding.DefaultDimension, "embedding dimension")
		neo4jURL      = flag.String("neo4j", "neo4j://localhost:7687", "Neo4j bolt URL")
		neo4jUser     = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass     = flag.String("neo4j-pass", "password", "Neo4j password")
		qdrantAddr    = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection    = flag.String("collection", "claimsight", "Qdrant collection name")
		metricsPort   = flag.Int("metrics-port", 9091, "metrics HTTP port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	met.CollectRuntime("claimsight_worker", 15*time.Second)
	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Connect Neo4j
	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Error("neo4j verify failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Neo4j")

	// Connect Qdrant
	vs, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, *embedDim); err != nil {
		log.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", *collection, "dims", *embedDim)

	// Model clients
	embedClient := ollama.NewEmbedClient(*ollamaURL, *embedModel, nil)
	genClient := ollama.NewGenerateClient(*ollamaURL, *generateModel, nil)

	orch := analysis.New(analysis.Deps{
		Classifier: classify.New(),
		Validator:  policy.NewValidator(policy.Builtin()),
		Indexer:    embedding.New(embedClient, *embedDim, log),
		Retriever:  retrieval.New(vs, vs, log),
		Answerer:   rag.New(genClient, log),
		Generator:  genClient,
		Records:    repo.NewClaimStore(driver),
		Vectors:    vs,
		Metrics:    met,
		Logger:     log,
	})

	// Connect NATS and start consuming
	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	sub, err := analysis.StartConsumer(nc, orch, log)
	if err != nil {
		log.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	// Watch the DLQ so dead-lettered batches show up in logs and metrics.
	dlqSub, err := natsutil.Subscribe(nc, analysis.DLQSubject, func(_ context.Context, m analysis.DLQMessage) {
		log.Error("batch dead-lettered",
			"employee", m.Request.Employee,
			"error", m.Error,
			"retries", m.Retries,
		)
		met.Counter("claimsight_worker_dlq_total", "Batches sent to the DLQ").Inc()
	})
	if err != nil {
		log.Error("dlq subscribe failed", "error", err)
		os.Exit(1)
	}
	defer dlqSub.Unsubscribe()

	log.Info("worker consuming", "subject", analysis.AnalyzeSubject, "dlq", analysis.DLQSubject)
	<-ctx.Done()
	log.Info("worker shutting down")
}
