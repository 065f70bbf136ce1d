package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

func TestParseDecision(t *testing.T) {
	amount := 500.0
	tests := []struct {
		name string
		raw  string
		want domain.Decision
	}{
		{
			name: "plain json",
			raw:  `{"status": "Fully Reimbursed", "reason": "Within limit", "policy_reference": "5.1", "amount": 500, "reimbursed_amount": 500}`,
			want: domain.Decision{
				Status:           domain.StatusFullyReimbursed,
				Reason:           "Within limit",
				PolicyReference:  "5.1",
				Amount:           &amount,
				ReimbursedAmount: &amount,
			},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"status\": \"Declined\", \"reason\": \"Personal\", \"policy_reference\": \"5.2\"}\n```",
			want: domain.Decision{
				Status:          domain.StatusDeclined,
				Reason:          "Personal",
				PolicyReference: "5.2",
			},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"status\": \"Declined\", \"reason\": \"Personal\", \"policy_reference\": \"5.2\"}\n```",
			want: domain.Decision{
				Status:          domain.StatusDeclined,
				Reason:          "Personal",
				PolicyReference: "5.2",
			},
		},
		{
			name: "missing fields back-filled",
			raw:  `{}`,
			want: domain.Decision{
				Status:          domain.Status("Not specified"),
				Reason:          "Not specified",
				PolicyReference: "Not specified",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDecision(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.want.Status || got.Reason != tt.want.Reason || got.PolicyReference != tt.want.PolicyReference {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if (got.Amount == nil) != (tt.want.Amount == nil) {
				t.Errorf("amount presence mismatch: %+v", got)
			} else if got.Amount != nil && *got.Amount != *tt.want.Amount {
				t.Errorf("amount = %g, want %g", *got.Amount, *tt.want.Amount)
			}
		})
	}
}

func TestParseDecision_Malformed(t *testing.T) {
	_, err := parseDecision("I think this invoice looks reasonable.")
	if !errors.Is(err, domain.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestClassifyWithGenerator_ParseFallback(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, func(d *Deps) {
		d.Generator = &fakeGenerator{reply: "not json at all"}
	})
	d, err := o.classifyWithGenerator(context.Background(), "policy", domain.Document{ID: "inv-9", Content: "x"})
	if err != nil {
		t.Fatalf("malformed output must not be an error: %v", err)
	}
	if d.Status != domain.StatusDeclined || d.DocumentID != "inv-9" {
		t.Errorf("fallback decision: %+v", d)
	}
	if d.Reason != "Unable to analyze invoice due to processing error" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestClassifyWithGenerator_NoCapability(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, func(d *Deps) { d.Generator = nil })
	_, err := o.classifyWithGenerator(context.Background(), "policy", domain.Document{ID: "inv-1", Content: "x"})
	if !errors.Is(err, domain.ErrCapability) {
		t.Errorf("expected ErrCapability, got %v", err)
	}
}

func TestBuildAnalysisPrompt_Clipping(t *testing.T) {
	long := strings.Repeat("p", maxPolicyPromptRunes+100)
	prompt := buildAnalysisPrompt(long, "invoice body", "inv-1")
	if strings.Contains(prompt, long) {
		t.Error("policy text should be clipped")
	}
	if !strings.Contains(prompt, "inv-1") || !strings.Contains(prompt, "invoice body") {
		t.Error("prompt must carry the invoice")
	}
	if !strings.Contains(prompt, "Respond only with valid JSON") {
		t.Error("prompt must demand JSON output")
	}
}

func TestSummarize(t *testing.T) {
	decisions := []domain.Decision{
		{Status: domain.StatusFullyReimbursed, Amount: domain.Float(100), ReimbursedAmount: domain.Float(100)},
		{Status: domain.StatusPartiallyReimbursed, Amount: domain.Float(300), ReimbursedAmount: domain.Float(200)},
		{Status: domain.StatusDeclined, Amount: domain.Float(50), ReimbursedAmount: domain.Float(0)},
	}
	s := Summarize(decisions)
	if s.TotalDocuments != 3 {
		t.Errorf("total = %d", s.TotalDocuments)
	}
	if s.TotalAmount != 450 || s.TotalReimbursed != 300 {
		t.Errorf("amounts: %+v", s)
	}
	if want := 300.0 / 450.0 * 100; s.ReimbursementRate != want {
		t.Errorf("rate = %g, want %g", s.ReimbursementRate, want)
	}
	if s.StatusDistribution[domain.StatusDeclined] != 1 {
		t.Errorf("distribution: %+v", s.StatusDistribution)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalDocuments != 0 || s.ReimbursementRate != 0 {
		t.Errorf("empty summary: %+v", s)
	}
}
