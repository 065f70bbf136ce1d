package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("expected status ok, got %s", resp["status"])
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("EMBED_DIM", "")
	cfg := loadConfig()
	if cfg.Port != "8080" {
		t.Errorf("port default = %q", cfg.Port)
	}
	if cfg.Collection != "claimsight" {
		t.Errorf("collection default = %q", cfg.Collection)
	}
	if cfg.EmbedDim != 384 {
		t.Errorf("embed dim default = %d", cfg.EmbedDim)
	}
}

func TestEnvIntOr(t *testing.T) {
	t.Setenv("CLAIMSIGHT_TEST_DIM", "768")
	if got := envIntOr("CLAIMSIGHT_TEST_DIM", 384); got != 768 {
		t.Errorf("got %d", got)
	}
	t.Setenv("CLAIMSIGHT_TEST_DIM", "not-a-number")
	if got := envIntOr("CLAIMSIGHT_TEST_DIM", 384); got != 384 {
		t.Errorf("malformed value should fall back, got %d", got)
	}
}
