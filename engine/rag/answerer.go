// Package rag answers natural-language questions about previously analyzed
// claims. Answers are grounded in retrieved records: the generation
// capability only ever sees the user query plus a bounded excerpt of the top
// hits, and is instructed to answer from that context alone.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ClaimSightAI/claimsight-mvp/engine/retrieval"
)

const (
	// MaxSources caps both the grounding context and the sources returned
	// to the caller.
	MaxSources = 5
	// excerptLimit bounds per-record content in the prompt. Truncation is
	// unconditional so prompt size stays deterministic.
	excerptLimit = 500

	noContextResponse = "I couldn't find any relevant invoice analyses to answer your query."
)

// Generator is the opaque text-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source is one record citation backing an answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	Employee   string  `json:"employee"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Score      float32 `json:"similarity_score"`
}

// Answer is the grounded response to a chat query. Confidence is the top
// hit's similarity score, 0 when there were no hits or generation failed.
type Answer struct {
	Response   string   `json:"response"`
	Sources    []Source `json:"sources"`
	Confidence float32  `json:"confidence_score"`
}

// Answerer builds grounded answers from retrieval hits.
type Answerer struct {
	gen    Generator
	logger *slog.Logger
}

// New creates an Answerer.
func New(gen Generator, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{gen: gen, logger: logger}
}

// Answer responds to query using the given hits. With no hits it returns the
// fixed no-information response without invoking the generator. A generator
// failure yields a fixed apology echoing the query; the already-retrieved
// sources are kept either way.
func (a *Answerer) Answer(ctx context.Context, query string, hits []retrieval.Hit) Answer {
	if len(hits) == 0 {
		return Answer{Response: noContextResponse, Sources: []Source{}, Confidence: 0}
	}

	sources := buildSources(hits)
	prompt := buildPrompt(query, hits)

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("rag: generation failed, using fallback response", "err", err)
		return Answer{
			Response:   fallbackResponse(query),
			Sources:    sources,
			Confidence: 0,
		}
	}

	return Answer{
		Response:   strings.TrimSpace(text),
		Sources:    sources,
		Confidence: hits[0].Score,
	}
}

func buildSources(hits []retrieval.Hit) []Source {
	n := len(hits)
	if n > MaxSources {
		n = MaxSources
	}
	sources := make([]Source, n)
	for i, h := range hits[:n] {
		sources[i] = Source{
			DocumentID: h.Record.DocumentID,
			Employee:   h.Record.Employee,
			Date:       h.Record.CreatedAt,
			Status:     h.Record.Status,
			Score:      h.Score,
		}
	}
	return sources
}

func buildPrompt(query string, hits []retrieval.Hit) string {
	var b strings.Builder
	b.WriteString("You are an intelligent assistant that answers queries about past invoice analyses.\n\n")
	fmt.Fprintf(&b, "User Query: %s\n\n", query)
	b.WriteString("Context from previous invoice analyses:\n")

	n := len(hits)
	if n > MaxSources {
		n = MaxSources
	}
	for i, h := range hits[:n] {
		fmt.Fprintf(&b, "\nDocument %d:\n", i+1)
		fmt.Fprintf(&b, "- Invoice ID: %s\n", h.Record.DocumentID)
		fmt.Fprintf(&b, "- Employee: %s\n", h.Record.Employee)
		fmt.Fprintf(&b, "- Status: %s\n", h.Record.Status)
		fmt.Fprintf(&b, "- Reason: %s\n", h.Record.Reason)
		fmt.Fprintf(&b, "- Policy Reference: %s\n", h.Record.PolicyReference)
		fmt.Fprintf(&b, "- Content: %s\n", truncate(h.Record.Content, excerptLimit))
	}

	b.WriteString("\nBased on the provided context, answer the user's query in a clear and helpful manner. ")
	b.WriteString("Answer ONLY from the context above. If the context doesn't contain enough information to answer the query, say so explicitly. ")
	b.WriteString("Be specific about which invoices or employees you're referring to and reference policy sections when relevant.")
	return b.String()
}

// truncate bounds s to limit runes. Always applied, never content-dependent.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func fallbackResponse(query string) string {
	return fmt.Sprintf("I apologize, but I'm unable to process your query at the moment. Please try again later or contact support if the issue persists.\n\nYour query was: %s", query)
}
