// Package analysis orchestrates the per-document classification pipeline and
// the chat-query answering pipeline. Per-document failures are isolated: a
// document that cannot be analyzed becomes a Declined decision naming the
// failure, never an error that unwinds the batch.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClaimSightAI/claimsight-mvp/engine/classify"
	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
	"github.com/ClaimSightAI/claimsight-mvp/engine/embedding"
	"github.com/ClaimSightAI/claimsight-mvp/engine/policy"
	"github.com/ClaimSightAI/claimsight-mvp/engine/rag"
	"github.com/ClaimSightAI/claimsight-mvp/engine/retrieval"
	"github.com/ClaimSightAI/claimsight-mvp/engine/semantic"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/fn"
	"github.com/ClaimSightAI/claimsight-mvp/pkg/metrics"
	"github.com/google/uuid"
)

// PolicyMode selects how documents are classified.
type PolicyMode string

const (
	// ModeIntegrated uses the deterministic classifier and built-in rules.
	ModeIntegrated PolicyMode = "integrated"
	// ModeCustom delegates classification to the generation capability with
	// the supplied policy text.
	ModeCustom PolicyMode = "custom"
)

// Batch result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BatchRequest is one batch of extracted documents to analyze.
type BatchRequest struct {
	Employee   string            `json:"employee"`
	Documents  []domain.Document `json:"documents"`
	PolicyMode PolicyMode        `json:"policy_mode"`
	PolicyText string            `json:"policy_text,omitempty"`
	Container  string            `json:"container,omitempty"`
}

// BatchResult is the well-formed outcome of a batch, success or not. Batch
// failures never surface as errors; they come back with Status "error",
// empty results, and zero totals.
type BatchResult struct {
	Status            string            `json:"status"`
	Error             string            `json:"error,omitempty"`
	Results           []domain.Decision `json:"results"`
	Total             int               `json:"total_invoices"`
	Summary           Summary           `json:"summary"`
	ProcessingSeconds float64           `json:"processing_time"`
}

// RecordStore hands analyzed records to the persistence collaborator.
type RecordStore interface {
	SaveBatch(ctx context.Context, records []domain.AnalyzedRecord) ([]string, error)
}

// VectorUpserter indexes analyzed records for retrieval.
type VectorUpserter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Retriever runs the two-path record search.
type Retriever interface {
	Search(ctx context.Context, queryVector []float32, limit int, filters map[string]string) ([]retrieval.Hit, retrieval.FallbackReason, error)
}

// Answerer grounds a generated answer in retrieval hits.
type Answerer interface {
	Answer(ctx context.Context, query string, hits []retrieval.Hit) rag.Answer
}

// Deps holds the orchestrator's collaborators. Classifier, Validator, and
// Indexer are constructed once at process start and shared read-only.
type Deps struct {
	Classifier *classify.Classifier
	Validator  *policy.Validator
	Indexer    *embedding.Indexer
	Retriever  Retriever
	Answerer   Answerer
	Generator  rag.Generator // custom policy mode only
	Records    RecordStore
	Vectors    VectorUpserter
	Metrics    *metrics.Registry
	Logger     *slog.Logger

	// Workers bounds per-document decision concurrency. Zero means
	// DefaultWorkers.
	Workers int
}

// DefaultWorkers bounds concurrent document decisions per batch.
const DefaultWorkers = 4

// Orchestrator coordinates classification, embedding, persistence hand-off,
// and chat answering. It holds no mutable state; safe for concurrent use.
type Orchestrator struct {
	deps   Deps
	met    *metrics.Registry
	logger *slog.Logger
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Orchestrator{deps: deps, met: deps.Metrics, logger: deps.Logger}
}

func (o *Orchestrator) workers() int {
	if o.deps.Workers > 0 {
		return o.deps.Workers
	}
	return DefaultWorkers
}

// AnalyzeBatch classifies every document in the request, embeds the results,
// and hands the assembled records to the stores. Documents are decided with
// bounded concurrency and results keep request order; a single document's
// failure never aborts the batch.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, req BatchRequest) BatchResult {
	start := time.Now()
	o.met.Counter("claimsight_analysis_batches_total", "Batches received").Inc()

	if err := domain.ValidateEmployee(req.Employee); err != nil {
		return o.errorResult(start, err)
	}
	if err := domain.ValidateDocuments(req.Documents); err != nil {
		return o.errorResult(start, err)
	}
	switch req.PolicyMode {
	case "", ModeIntegrated, ModeCustom:
	default:
		return o.errorResult(start, fmt.Errorf("%w: unknown policy mode %q", domain.ErrInputValidation, req.PolicyMode))
	}
	policyText := req.PolicyText
	if req.PolicyMode == ModeCustom && policyText == "" {
		return o.errorResult(start, domain.ErrEmptyPolicy)
	}
	if req.PolicyMode == "" {
		req.PolicyMode = ModeIntegrated
	}

	o.logger.Info("analysis: batch start",
		"employee", req.Employee,
		"documents", len(req.Documents),
		"mode", req.PolicyMode,
	)

	decide := fn.TracedStage("analysis.decide", o.decisionStage(req.PolicyMode, policyText))
	decisions := fn.ParMap(req.Documents, o.workers(), func(doc domain.Document) domain.Decision {
		r := decide(ctx, doc)
		if r.IsErr() {
			_, err := r.Unwrap()
			o.logger.Error("analysis: document failed", "document", doc.ID, "err", err)
			return failedDecision(doc.ID, err)
		}
		d, _ := r.Unwrap()
		return d
	})

	for _, d := range decisions {
		o.met.Counter(metrics.WithLabels("claimsight_analysis_documents_total", "status", string(d.Status)), "Documents analyzed").Inc()
	}

	records := o.assembleRecords(ctx, req, decisions)
	if _, err := o.deps.Records.SaveBatch(ctx, records); err != nil {
		return o.errorResult(start, fmt.Errorf("persist batch: %w", err))
	}
	if err := o.deps.Vectors.Upsert(ctx, fn.Map(records, semantic.RecordFrom)); err != nil {
		return o.errorResult(start, fmt.Errorf("index batch: %w", err))
	}

	elapsed := time.Since(start)
	o.met.Histogram("claimsight_analysis_batch_duration_seconds", "Batch analysis time", nil).Observe(elapsed.Seconds())
	o.logger.Info("analysis: batch done", "documents", len(decisions), "duration", elapsed)

	return BatchResult{
		Status:            StatusSuccess,
		Results:           decisions,
		Total:             len(decisions),
		Summary:           Summarize(decisions),
		ProcessingSeconds: elapsed.Seconds(),
	}
}

// decisionStage builds the per-document classification stage for the mode.
func (o *Orchestrator) decisionStage(mode PolicyMode, policyText string) fn.Stage[domain.Document, domain.Decision] {
	return func(ctx context.Context, doc domain.Document) fn.Result[domain.Decision] {
		switch mode {
		case ModeIntegrated:
			category, amount := o.deps.Classifier.Classify(doc.Content)
			return fn.Ok(o.deps.Validator.Validate(doc.ID, category, amount, doc.Content))
		case ModeCustom:
			return fn.FromPair(o.classifyWithGenerator(ctx, policyText, doc))
		default:
			return fn.Err[domain.Decision](fmt.Errorf("%w: unknown policy mode %q", domain.ErrInputValidation, mode))
		}
	}
}

// failedDecision is the isolation fallback for a document that could not be
// analyzed at all.
func failedDecision(docID string, err error) domain.Decision {
	return domain.Decision{
		DocumentID:       docID,
		Status:           domain.StatusDeclined,
		Reason:           fmt.Sprintf("Analysis failed: %v", err),
		PolicyReference:  "Error in processing",
		Category:         "unknown",
		ReimbursedAmount: domain.Float(0),
	}
}

func (o *Orchestrator) assembleRecords(ctx context.Context, req BatchRequest, decisions []domain.Decision) []domain.AnalyzedRecord {
	now := time.Now().UTC()
	records := make([]domain.AnalyzedRecord, len(decisions))
	for i, doc := range req.Documents {
		records[i] = domain.AnalyzedRecord{
			ID:        uuid.NewString(),
			Employee:  req.Employee,
			Content:   doc.Content,
			Decision:  decisions[i],
			Embedding: o.deps.Indexer.EmbedRecord(ctx, doc.Content, decisions[i]),
			CreatedAt: now,
			Metadata: map[string]string{
				"policy_type": string(req.PolicyMode),
				"container":   req.Container,
			},
		}
	}
	return records
}

func (o *Orchestrator) errorResult(start time.Time, err error) BatchResult {
	o.logger.Error("analysis: batch failed", "err", err)
	o.met.Counter("claimsight_analysis_batch_errors_total", "Batches rejected").Inc()
	return BatchResult{
		Status:            StatusError,
		Error:             err.Error(),
		Results:           []domain.Decision{},
		Total:             0,
		Summary:           Summarize(nil),
		ProcessingSeconds: time.Since(start).Seconds(),
	}
}

// ProcessChatQuery embeds the query, retrieves candidate records, and
// produces a grounded answer. The returned error is only ever an input
// validation failure; retrieval and generation problems degrade to the
// documented fallback responses.
func (o *Orchestrator) ProcessChatQuery(ctx context.Context, query string) (rag.Answer, error) {
	if err := domain.ValidateChatQuery(query); err != nil {
		return rag.Answer{}, err
	}
	o.met.Counter("claimsight_chat_queries_total", "Chat queries received").Inc()

	vec := o.deps.Indexer.Embed(ctx, query)
	hits, reason, err := o.deps.Retriever.Search(ctx, vec, retrieval.DefaultChatLimit, nil)
	if err != nil {
		// Both retrieval paths failed; answer as if nothing was found.
		o.logger.Error("analysis: retrieval unavailable", "err", err)
		hits = nil
	}
	if reason != retrieval.FallbackNone {
		o.met.Counter(metrics.WithLabels("claimsight_retrieval_fallback_total", "reason", string(reason)), "Degraded retrievals").Inc()
	}

	return o.deps.Answerer.Answer(ctx, query, hits), nil
}
