// Package store 提供知识库的存储层，包含结构化存储（MongoDB）
// 与向量存储（Milvus）两部分。
package store

import (
	"context"

	"github.com/kart-io/minerva/internal/model"
)

// SectionStore 定义章节的结构化存储接口。
// 查询类方法在记录不存在时返回 (nil, nil)，由业务层决定如何处理。
type SectionStore interface {
	// Insert 插入一条章节记录。
	Insert(ctx context.Context, section *model.Section) error

	// FindByID 按章节 ID 查找。
	FindByID(ctx context.Context, id string) (*model.Section, error)

	// FindBySlug 按 slug 查找所有匹配的章节。
	FindBySlug(ctx context.Context, slug string) ([]*model.Section, error)

	// FindByHeader 按标题查找第一个匹配的章节。
	FindByHeader(ctx context.Context, header string) (*model.Section, error)

	// FindChildren 查找直接子章节，按 order 升序排列。
	// parentID 为空表示查找根章节。
	FindChildren(ctx context.Context, parentID string) ([]*model.Section, error)

	// ListAll 列出所有章节。
	ListAll(ctx context.Context) ([]*model.Section, error)

	// UpdateFields 更新指定章节的部分字段。
	UpdateFields(ctx context.Context, id string, fields map[string]any) error

	// DeleteByID 删除单条章节记录。
	DeleteByID(ctx context.Context, id string) error

	// DeleteSubtree 删除以 rootID 为根的整棵子树，返回被删除的章节 ID。
	DeleteSubtree(ctx context.Context, rootID string) ([]string, error)

	// ResolvePath 按点号路径（如 [1,2,1]）逐层解析章节。
	ResolvePath(ctx context.Context, path []int) (*model.Section, error)

	// ComputePath 计算章节在文档树中的点号路径（如 "1.2.1"）。
	ComputePath(ctx context.Context, id string) (string, error)

	// Count 返回章节总数。
	Count(ctx context.Context) (int64, error)

	// EnsureIndexes 创建必需的索引。
	EnsureIndexes(ctx context.Context) error
}

// ChunkHit 表示向量检索命中的文档块。
type ChunkHit struct {
	// SectionID 所属章节 ID。
	SectionID string
	// Index 块在章节内的序号。
	Index int
	// Text 块文本。
	Text string
	// Score 相似度分数，越大越相似。
	Score float32
}

// ChunkStore 定义文档块的向量存储接口。
type ChunkStore interface {
	// EnsureCollection 确保集合存在（不存在则创建并建索引）。
	EnsureCollection(ctx context.Context) error

	// Replace 替换指定章节的所有文档块（先删后插）。
	Replace(ctx context.Context, sectionID string, chunks []model.Chunk) error

	// DeleteBySection 删除指定章节的所有文档块。
	DeleteBySection(ctx context.Context, sectionIDs []string) error

	// Search 向量相似度搜索。
	Search(ctx context.Context, embedding []float32, topK int) ([]ChunkHit, error)

	// Count 返回文档块总数。
	Count(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
