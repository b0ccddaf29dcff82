package biz

import (
	"context"

	"github.com/kart-io/minerva/internal/model"
	"github.com/kart-io/minerva/internal/pkg/kb/sectionutil"
	"github.com/kart-io/minerva/pkg/errors"
	"github.com/kart-io/minerva/pkg/llm"
)

// Chunker 负责将章节内容切块并生成嵌入向量。
type Chunker struct {
	provider  llm.EmbeddingProvider
	chunkSize int
}

// NewChunker 创建切块器。
func NewChunker(provider llm.EmbeddingProvider, chunkSize int) *Chunker {
	return &Chunker{
		provider:  provider,
		chunkSize: chunkSize,
	}
}

// ChunkAndEmbed 将章节内容切块并为每块生成嵌入向量。
// 块顺序与原文顺序一致，空内容返回 nil。
func (c *Chunker) ChunkAndEmbed(ctx context.Context, sectionID, content string) ([]model.Chunk, error) {
	texts := sectionutil.SplitIntoChunks(content, c.chunkSize)
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := c.provider.Embed(ctx, texts)
	if err != nil {
		return nil, errors.ErrEmbedding.WithCause(err)
	}
	if len(embeddings) != len(texts) {
		return nil, errors.ErrEmbedding.WithMessagef(
			"embedding count mismatch: got %d for %d chunks", len(embeddings), len(texts))
	}

	chunks := make([]model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = model.Chunk{
			SectionID: sectionID,
			Index:     i,
			Text:      text,
			Embedding: embeddings[i],
		}
	}
	return chunks, nil
}
