// Package llm 提供统一的嵌入供应商抽象层。
// 支持通过不同供应商（Ollama、OpenAI）生成向量嵌入。
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
}

type providerRegistry struct {
	mu                 sync.RWMutex
	embeddingProviders map[string]EmbeddingProviderFactory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embeddingProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}

	return factory(config)
}

// ListProviders 列出所有已注册的供应商名称。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.embeddingProviders))
	for name := range registry.embeddingProviders {
		names = append(names, name)
	}
	return names
}
