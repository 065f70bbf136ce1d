package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ClaimSightAI/claimsight-mvp/engine/analysis"
	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
	"github.com/ClaimSightAI/claimsight-mvp/engine/extract"
	"github.com/ClaimSightAI/claimsight-mvp/engine/policy"
	"github.com/ClaimSightAI/claimsight-mvp/engine/rag"
)

// maxUploadBytes bounds multipart invoice uploads.
const maxUploadBytes = 64 << 20

// analyzer is the orchestrator surface the handlers need.
type analyzer interface {
	AnalyzeBatch(ctx context.Context, req analysis.BatchRequest) analysis.BatchResult
	ProcessChatQuery(ctx context.Context, query string) (rag.Answer, error)
}

// recordFinder looks up persisted claim records.
type recordFinder interface {
	FindByEmployee(ctx context.Context, employee string, limit int) ([]domain.AnalyzedRecord, error)
	FindByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.AnalyzedRecord, error)
}

// publishFunc hands a batch request to the async queue. Nil when async
// analysis is disabled.
type publishFunc func(ctx context.Context, req analysis.BatchRequest) error

type server struct {
	orch      analyzer
	records   recordFinder
	extractor *extract.Extractor
	publish   publishFunc
	logger    *slog.Logger
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a multipart form with an invoice container and
// analyzes it synchronously.
//
//	invoices      ZIP archive, single PDF, or plain-text file (required)
//	employee_name string (required)
//	policy_mode   "integrated" (default) or "custom"
//	policy_file   PDF or text file with the custom policy (custom mode)
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.parseAnalyzeForm(w, r)
	if !ok {
		return
	}
	result := s.orch.AnalyzeBatch(r.Context(), req)
	status := http.StatusOK
	if result.Status == analysis.StatusError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// handleAnalyzeAsync accepts the same form as handleAnalyze but queues the
// batch instead of waiting for it.
func (s *server) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	if s.publish == nil {
		writeError(w, http.StatusServiceUnavailable, "async analysis is not enabled")
		return
	}
	req, ok := s.parseAnalyzeForm(w, r)
	if !ok {
		return
	}
	if err := s.publish(r.Context(), req); err != nil {
		s.logger.Error("api: queue batch failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to queue batch")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "queued",
		"employee":  req.Employee,
		"documents": len(req.Documents),
	})
}

func (s *server) parseAnalyzeForm(w http.ResponseWriter, r *http.Request) (analysis.BatchRequest, bool) {
	var zero analysis.BatchRequest
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return zero, false
	}

	employee := r.FormValue("employee_name")
	if err := domain.ValidateEmployee(employee); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return zero, false
	}

	name, data, err := formFile(r, "invoices")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invoices file is required")
		return zero, false
	}
	docs, err := s.extractor.FromFile(name, data)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return zero, false
	}

	mode := analysis.PolicyMode(r.FormValue("policy_mode"))
	var policyText string
	if mode == analysis.ModeCustom {
		policyText, err = s.customPolicyText(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return zero, false
		}
	}

	return analysis.BatchRequest{
		Employee:   employee,
		Documents:  docs,
		PolicyMode: mode,
		PolicyText: policyText,
		Container:  name,
	}, true
}

func (s *server) customPolicyText(r *http.Request) (string, error) {
	name, data, err := formFile(r, "policy_file")
	if err != nil {
		return "", domain.ErrEmptyPolicy
	}
	docs, err := s.extractor.FromFile(name, data)
	if err != nil || len(docs) == 0 {
		return "", domain.ErrEmptyPolicy
	}
	return docs[0].Content, nil
}

// ChatRequest is the JSON body for POST /api/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.orch.ProcessChatQuery(r.Context(), req.Query)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *server) handlePolicy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": policy.Summarize(policy.Builtin()),
		"text":    policy.Text(),
	})
}

// handleRecords looks up analyzed records by employee or status.
func (s *server) handleRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	employee := r.URL.Query().Get("employee")
	status := r.URL.Query().Get("status")

	var (
		records []domain.AnalyzedRecord
		err     error
	)
	switch {
	case employee != "":
		records, err = s.records.FindByEmployee(r.Context(), employee, limit)
	case status != "":
		if !domain.ValidStatuses[domain.Status(status)] {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		records, err = s.records.FindByStatus(r.Context(), domain.Status(status), limit)
	default:
		writeError(w, http.StatusBadRequest, "employee or status query parameter is required")
		return
	}
	if err != nil {
		s.logger.Error("api: record lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "record lookup failed")
		return
	}
	if records == nil {
		records = []domain.AnalyzedRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

func formFile(r *http.Request, field string) (string, []byte, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// statusFor maps error classes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInputValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAggregate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
