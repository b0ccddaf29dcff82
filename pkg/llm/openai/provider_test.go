package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected BaseURL https://api.openai.com/v1, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Errorf("expected EmbedModel text-embedding-3-small, got %s", cfg.EmbedModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("expected Timeout 60s, got %v", cfg.Timeout)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		wantError bool
	}{
		{
			name:      "valid config",
			config:    map[string]any{"api_key": testAPIKey},
			wantError: false,
		},
		{
			name: "custom config",
			config: map[string]any{
				"api_key":      testAPIKey,
				"base_url":     "https://api.example.com/v1",
				"embed_model":  "text-embedding-3-large",
				"organization": "org-123",
			},
			wantError: false,
		},
		{
			name:      "missing api_key",
			config:    map[string]any{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider.Name() != ProviderName {
				t.Errorf("expected provider name %s, got %s", ProviderName, provider.Name())
			}
		})
	}
}

func TestProviderEmbed(t *testing.T) {
	// 创建模拟服务器，响应故意乱序
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+testAPIKey {
			t.Errorf("unexpected Authorization header: %s", got)
		}

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"index":     i,
				"embedding": []float32{float32(i), 1.0},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	provider := NewProviderWithConfig(cfg)

	embeddings, err := provider.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(embeddings))
	}

	// 乱序响应按 index 归位
	for i, embedding := range embeddings {
		if embedding[0] != float32(i) {
			t.Errorf("embedding %d out of order: %v", i, embedding)
		}
	}
}

func TestProviderEmbed_RetryOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float32{0.5}},
			},
		})
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = testAPIKey
	cfg.MaxRetries = 2
	provider := NewProviderWithConfig(cfg)

	embeddings, err := provider.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("Embed failed after retry: %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(embeddings))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls (1 retry), got %d", calls.Load())
	}
}
