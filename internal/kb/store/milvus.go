package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/minerva/internal/model"
	"github.com/kart-io/minerva/pkg/component/milvus"
)

// MilvusChunkStore 实现基于 Milvus 的文档块向量存储。
type MilvusChunkStore struct {
	client     *milvus.Client
	collection string
	dimension  int
}

// 确保 MilvusChunkStore 实现了 ChunkStore 接口。
var _ ChunkStore = (*MilvusChunkStore)(nil)

// NewMilvusChunkStore 创建 Milvus 文档块存储实例。
func NewMilvusChunkStore(client *milvus.Client, collection string, dimension int) *MilvusChunkStore {
	return &MilvusChunkStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}
}

// EnsureCollection 确保集合存在，不存在则创建并建索引。
func (s *MilvusChunkStore) EnsureCollection(ctx context.Context) error {
	schema := &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "knowledge base section chunks",
		Dimension:   s.dimension,
		MetaFields: []milvus.MetaField{
			{Name: "section_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "text", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// Replace 替换指定章节的所有文档块。
// 先删除该章节的旧块，再插入新块，保证章节与向量的一一对应。
func (s *MilvusChunkStore) Replace(ctx context.Context, sectionID string, chunks []model.Chunk) error {
	if err := s.DeleteBySection(ctx, []string{sectionID}); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"section_id":  make([]any, len(chunks)),
		"chunk_index": make([]any, len(chunks)),
		"text":        make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["section_id"][i] = chunk.SectionID
		metadata["chunk_index"][i] = int64(chunk.Index)
		metadata["text"][i] = chunk.Text
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	if _, err := s.client.Insert(ctx, s.collection, data); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// DeleteBySection 删除指定章节的所有文档块。
func (s *MilvusChunkStore) DeleteBySection(ctx context.Context, sectionIDs []string) error {
	if len(sectionIDs) == 0 {
		return nil
	}

	quoted := make([]string, len(sectionIDs))
	for i, id := range sectionIDs {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("section_id in [%s]", strings.Join(quoted, ", "))

	if err := s.client.DeleteByExpr(ctx, s.collection, expr); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Search 向量相似度搜索，返回最相似的 topK 个文档块。
func (s *MilvusChunkStore) Search(ctx context.Context, embedding []float32, topK int) ([]ChunkHit, error) {
	outputFields := []string{"section_id", "chunk_index", "text"}
	results, err := s.client.Search(ctx, s.collection, embedding, topK, "", outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]ChunkHit, 0, len(results))
	for _, r := range results {
		hit := ChunkHit{Score: r.Score}
		if v, ok := r.Metadata["section_id"].(string); ok {
			hit.SectionID = v
		}
		if v, ok := r.Metadata["chunk_index"].(int64); ok {
			hit.Index = int(v)
		}
		if v, ok := r.Metadata["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Count 返回文档块总数。
func (s *MilvusChunkStore) Count(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusChunkStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
