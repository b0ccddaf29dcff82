package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("expected BaseURL http://localhost:11434, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "nomic-embed-text" {
		t.Errorf("expected EmbedModel nomic-embed-text, got %s", cfg.EmbedModel)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("expected Timeout 120s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", cfg.MaxRetries)
	}
}

func TestNewProvider_ConfigMap(t *testing.T) {
	provider, err := NewProvider(map[string]any{
		"base_url":    "http://ollama:11434",
		"embed_model": "all-minilm",
		"timeout":     30 * time.Second,
		"max_retries": 1,
	})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if provider.Name() != ProviderName {
		t.Errorf("expected name %s, got %s", ProviderName, provider.Name())
	}
}

func TestProviderEmbed(t *testing.T) {
	// 创建模拟服务器
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("unexpected model: %s", req.Model)
		}

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      req.Model,
			"embeddings": embeddings,
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	embeddings, err := provider.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	if len(embeddings[0]) != 3 {
		t.Errorf("expected dimension 3, got %d", len(embeddings[0]))
	}
}

func TestProviderEmbed_Empty(t *testing.T) {
	provider := NewProviderWithConfig(DefaultConfig())

	embeddings, err := provider.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if embeddings != nil {
		t.Error("expected nil embeddings for empty input")
	}
}

func TestProviderEmbed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.MaxRetries = 0
	provider := NewProviderWithConfig(cfg)

	if _, err := provider.Embed(context.Background(), []string{"hello"}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestProviderPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestProviderListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "nomic-embed-text"},
				{"name": "all-minilm"},
			},
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	models, err := provider.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0] != "nomic-embed-text" {
		t.Errorf("unexpected models: %v", models)
	}
}
