package biz

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/minerva/internal/kb/store"
	"github.com/kart-io/minerva/internal/model"
	"github.com/kart-io/minerva/internal/pkg/kb/sectionutil"
	"github.com/kart-io/minerva/pkg/errors"
	"github.com/kart-io/minerva/pkg/llm"
)

// searchOverfetch 检索时按块过采样的倍数。
// 多个块可能属于同一章节，去重后才能凑满 topK 个章节。
const searchOverfetch = 4

// Config 知识库业务配置。
type Config struct {
	// ChunkSize 内容切块的最大字符数。
	ChunkSize int
	// TopK 检索返回的默认章节数。
	TopK int
	// ExportDir 导出文件的默认目录。
	ExportDir string
}

// Service 知识库业务逻辑。
type Service struct {
	sections store.SectionStore
	chunks   store.ChunkStore
	embedder llm.EmbeddingProvider
	chunker  *Chunker
	cache    *SearchCache
	cfg      *Config
}

// NewService 创建知识库服务实例。
func NewService(sections store.SectionStore, chunks store.ChunkStore, embedder llm.EmbeddingProvider, cache *SearchCache, cfg *Config) *Service {
	return &Service{
		sections: sections,
		chunks:   chunks,
		embedder: embedder,
		chunker:  NewChunker(embedder, cfg.ChunkSize),
		cache:    cache,
		cfg:      cfg,
	}
}

// AddSectionRequest 新增章节请求。
type AddSectionRequest struct {
	// Header 章节标题，必填。
	Header string
	// Content 章节正文，可为空。
	Content string
	// Parent 父章节标识（ID、路径或 slug），为空表示根章节。
	Parent string
	// Slug 自定义 slug，为空时由标题派生。
	Slug string
}

// UpdateSectionRequest 更新章节请求，nil 字段表示不修改。
type UpdateSectionRequest struct {
	Header  *string
	Content *string
}

// Add 新增章节。先写结构化存储，再同步向量存储。
// 向量同步失败时结构化数据已持久化，可通过 Reindex 修复。
func (s *Service) Add(ctx context.Context, req *AddSectionRequest) (*model.Section, error) {
	header := strings.TrimSpace(req.Header)
	if header == "" {
		return nil, errors.ErrMissingParam.WithMessage("header is required")
	}

	slug := sectionutil.Slugify(header)
	if req.Slug != "" {
		// 自定义 slug 必须本身就是规范形式
		if sectionutil.Slugify(req.Slug) != req.Slug {
			return nil, errors.ErrInvalidParam.WithMessagef("invalid slug %q", req.Slug)
		}
		slug = req.Slug
	}
	if slug == "" {
		return nil, errors.ErrInvalidParam.WithMessagef("header %q yields an empty slug", header)
	}

	parentID := ""
	level := 0
	if req.Parent != "" {
		parent, err := s.Resolve(ctx, req.Parent)
		if err != nil {
			return nil, err
		}
		parentID = parent.ID
		level = parent.Level + 1
	}

	siblings, err := s.sections.FindChildren(ctx, parentID)
	if err != nil {
		return nil, errors.ErrStructuredStore.WithCause(err)
	}
	for _, sibling := range siblings {
		if sibling.Slug == slug {
			return nil, errors.ErrSlugConflict.WithMessagef(
				"slug %q already used by sibling section %s", slug, sibling.ID)
		}
	}

	// 追加到同级末尾
	order := 0
	if len(siblings) > 0 {
		order = siblings[len(siblings)-1].Order + 1
	}

	now := time.Now().UTC()
	section := &model.Section{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		Slug:      slug,
		Header:    header,
		Content:   req.Content,
		Level:     level,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sections.Insert(ctx, section); err != nil {
		return nil, errors.ErrStructuredStore.WithCause(err)
	}

	if err := s.syncVector(ctx, section); err != nil {
		logger.Errorw("vector sync failed after structured write",
			"section_id", section.ID, "error", err.Error())
		return nil, err
	}

	s.invalidateCache(ctx)
	logger.Infow("section added", "section_id", section.ID, "header", header, "parent_id", parentID)
	return s.withPath(ctx, section), nil
}

// Get 按标识符获取章节。
func (s *Service) Get(ctx context.Context, identifier string) (*model.Section, error) {
	section, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.withPath(ctx, section), nil
}

// GetByHeader 按标题精确匹配获取章节。
func (s *Service) GetByHeader(ctx context.Context, header string) (*model.Section, error) {
	section, err := s.sections.FindByHeader(ctx, header)
	if err != nil {
		return nil, errors.ErrStructuredStore.WithCause(err)
	}
	if section == nil {
		return nil, errors.ErrSectionNotFound.WithMessagef("no section with header %q", header)
	}
	return s.withPath(ctx, section), nil
}

// Update 更新章节标题和/或正文。
// 标题变更会重新生成 slug 并检查同级冲突；正文变更会重建向量。
func (s *Service) Update(ctx context.Context, identifier string, req *UpdateSectionRequest) (*model.Section, error) {
	section, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	contentChanged := false

	if req.Header != nil {
		header := strings.TrimSpace(*req.Header)
		if header == "" {
			return nil, errors.ErrInvalidParam.WithMessage("header cannot be empty")
		}
		slug := sectionutil.Slugify(header)
		if slug == "" {
			return nil, errors.ErrInvalidParam.WithMessagef("header %q yields an empty slug", header)
		}

		if slug != section.Slug {
			siblings, err := s.sections.FindChildren(ctx, section.ParentID)
			if err != nil {
				return nil, errors.ErrStructuredStore.WithCause(err)
			}
			for _, sibling := range siblings {
				if sibling.ID != section.ID && sibling.Slug == slug {
					return nil, errors.ErrSlugConflict.WithMessagef(
						"slug %q already used by sibling section %s", slug, sibling.ID)
				}
			}
		}

		fields["header"] = header
		fields["slug"] = slug
		section.Header = header
		section.Slug = slug
	}

	if req.Content != nil {
		contentChanged = *req.Content != section.Content
		fields["content"] = *req.Content
		section.Content = *req.Content
	}

	if len(fields) == 0 {
		return nil, errors.ErrMissingParam.WithMessage("no fields to update")
	}

	now := time.Now().UTC()
	fields["updated_at"] = now
	section.UpdatedAt = now

	if err := s.sections.UpdateFields(ctx, section.ID, fields); err != nil {
		return nil, errors.ErrStructuredStore.WithCause(err)
	}

	if contentChanged {
		if err := s.syncVector(ctx, section); err != nil {
			logger.Errorw("vector sync failed after structured write",
				"section_id", section.ID, "error", err.Error())
			return nil, err
		}
	}

	s.invalidateCache(ctx)
	logger.Infow("section updated", "section_id", section.ID, "content_changed", contentChanged)
	return s.withPath(ctx, section), nil
}

// Delete 删除章节。非递归删除遇到子章节时报错。
// 返回被删除的章节数。
func (s *Service) Delete(ctx context.Context, identifier string, recursive bool) (int, error) {
	section, err := s.Resolve(ctx, identifier)
	if err != nil {
		return 0, err
	}

	children, err := s.sections.FindChildren(ctx, section.ID)
	if err != nil {
		return 0, errors.ErrStructuredStore.WithCause(err)
	}
	if len(children) > 0 && !recursive {
		return 0, errors.ErrHasChildren.WithMessagef(
			"section %s has %d children, use recursive delete", section.ID, len(children))
	}

	var deleted []string
	if recursive {
		deleted, err = s.sections.DeleteSubtree(ctx, section.ID)
		if err != nil {
			return 0, errors.ErrStructuredStore.WithCause(err)
		}
	} else {
		if err := s.sections.DeleteByID(ctx, section.ID); err != nil {
			return 0, errors.ErrStructuredStore.WithCause(err)
		}
		deleted = []string{section.ID}
	}

	if err := s.chunks.DeleteBySection(ctx, deleted); err != nil {
		logger.Errorw("chunk cleanup failed after structured delete",
			"section_ids", deleted, "error", err.Error())
		return len(deleted), errors.ErrVectorStore.WithCause(err).WithMessage(
			"sections deleted but chunk cleanup failed, reindex to reconcile")
	}

	s.invalidateCache(ctx)
	logger.Infow("section deleted", "section_id", section.ID, "recursive", recursive, "count", len(deleted))
	return len(deleted), nil
}

// Search 语义检索，返回最相关的 topK 个章节。
// 多个块命中同一章节时只保留最高分的一条。
func (s *Service) Search(ctx context.Context, query string, topK int) ([]model.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.ErrMissingParam.WithMessage("query is required")
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	if cached, err := s.cache.Get(ctx, query, topK); err == nil && cached != nil {
		return cached, nil
	}

	embedding, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrEmbedding.WithCause(err)
	}

	chunkHits, err := s.chunks.Search(ctx, embedding, topK*searchOverfetch)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	// 按章节去重，分数降序下首次出现即为该章节的最高分
	hits := make([]model.SearchHit, 0, topK)
	seen := make(map[string]bool)
	for _, hit := range chunkHits {
		if seen[hit.SectionID] {
			continue
		}
		seen[hit.SectionID] = true

		section, err := s.sections.FindByID(ctx, hit.SectionID)
		if err != nil {
			return nil, errors.ErrStructuredStore.WithCause(err)
		}
		if section == nil {
			// 向量存储中的孤儿块，等待 Reindex 清理
			logger.Warnw("chunk references missing section", "section_id", hit.SectionID)
			continue
		}

		hits = append(hits, model.SearchHit{
			Section: s.withPath(ctx, section),
			Score:   hit.Score,
			Snippet: hit.Text,
		})
		if len(hits) >= topK {
			break
		}
	}

	if err := s.cache.Set(ctx, query, topK, hits); err != nil {
		logger.Warnw("failed to cache search result", "error", err.Error())
	}

	return hits, nil
}

// Children 返回章节的直接子章节。parentIdentifier 为空返回根章节。
func (s *Service) Children(ctx context.Context, parentIdentifier string) ([]*model.Section, error) {
	parentID := ""
	if parentIdentifier != "" {
		parent, err := s.Resolve(ctx, parentIdentifier)
		if err != nil {
			return nil, err
		}
		parentID = parent.ID
	}

	children, err := s.sections.FindChildren(ctx, parentID)
	if err != nil {
		return nil, errors.ErrStructuredStore.WithCause(err)
	}

	for _, child := range children {
		s.withPath(ctx, child)
	}
	return children, nil
}

// Tree 将知识库渲染为缩进文本。
// rootIdentifier 为空渲染整个文档树，指定时渲染该子树并重新从 "1" 编号。
func (s *Service) Tree(ctx context.Context, rootIdentifier string) (string, error) {
	rootID := ""
	if rootIdentifier != "" {
		root, err := s.Resolve(ctx, rootIdentifier)
		if err != nil {
			return "", err
		}
		rootID = root.ID
	}

	all, err := s.sections.ListAll(ctx)
	if err != nil {
		return "", errors.ErrStructuredStore.WithCause(err)
	}

	forest := sectionutil.NewForest(all)
	return forest.FormatTree(rootID), nil
}

// Export 将文档树导出为文本文件，返回写入的文件路径。
// filePath 为空时写入默认导出目录。
func (s *Service) Export(ctx context.Context, rootIdentifier, filePath string) (string, error) {
	text, err := s.Tree(ctx, rootIdentifier)
	if err != nil {
		return "", err
	}

	if filePath == "" {
		filePath = filepath.Join(s.cfg.ExportDir, "knowledge_base.txt")
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", errors.ErrInternal.WithCause(err)
	}
	if err := os.WriteFile(filePath, []byte(text), 0o644); err != nil {
		return "", errors.ErrInternal.WithCause(err)
	}

	logger.Infow("knowledge base exported", "path", filePath, "bytes", len(text))
	return filePath, nil
}

// Reindex 重建章节的向量索引，返回成功处理的章节数。
// rootIdentifier 为空重建全部，指定时只重建该子树。
// 用于修复向量写入失败造成的双存储不一致。
func (s *Service) Reindex(ctx context.Context, rootIdentifier string) (int, error) {
	all, err := s.sections.ListAll(ctx)
	if err != nil {
		return 0, errors.ErrStructuredStore.WithCause(err)
	}

	targets := all
	if rootIdentifier != "" {
		root, err := s.Resolve(ctx, rootIdentifier)
		if err != nil {
			return 0, err
		}
		forest := sectionutil.NewForest(all)
		subtree := make(map[string]bool)
		for _, id := range forest.Descendants(root.ID) {
			subtree[id] = true
		}
		targets = targets[:0:0]
		for _, section := range all {
			if subtree[section.ID] {
				targets = append(targets, section)
			}
		}
	}

	indexed := 0
	failed := 0
	for _, section := range targets {
		if err := s.syncVector(ctx, section); err != nil {
			logger.Warnw("failed to reindex section", "section_id", section.ID, "error", err.Error())
			failed++
			continue
		}
		indexed++
	}

	s.invalidateCache(ctx)
	logger.Infow("reindex completed", "indexed", indexed, "failed", failed)

	if failed > 0 {
		return indexed, errors.ErrVectorStore.WithMessagef(
			"reindex incomplete: %d sections failed", failed)
	}
	return indexed, nil
}

// Stats 返回知识库统计信息。
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	sectionCount, err := s.sections.Count(ctx)
	if err != nil {
		return nil, errors.ErrStructuredStore.WithCause(err)
	}

	chunkCount, err := s.chunks.Count(ctx)
	if err != nil {
		logger.Warnw("failed to count chunks", "error", err.Error())
		chunkCount = -1
	}

	cacheStats, err := s.cache.GetStats(ctx)
	if err != nil {
		logger.Warnw("failed to get cache stats", "error", err.Error())
		cacheStats = map[string]interface{}{"enabled": false}
	}

	return map[string]any{
		"sections": sectionCount,
		"chunks":   chunkCount,
		"provider": s.embedder.Name(),
		"cache":    cacheStats,
	}, nil
}

// syncVector 将章节内容切块、嵌入并写入向量存储。
func (s *Service) syncVector(ctx context.Context, section *model.Section) error {
	chunks, err := s.chunker.ChunkAndEmbed(ctx, section.ID, section.Content)
	if err != nil {
		return err
	}
	if err := s.chunks.Replace(ctx, section.ID, chunks); err != nil {
		return errors.ErrVectorStore.WithCause(err).WithMessagef(
			"vector sync failed for section %s, reindex to reconcile", section.ID)
	}
	return nil
}

// invalidateCache 清除检索缓存，失败仅记录日志。
func (s *Service) invalidateCache(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear search cache", "error", err.Error())
	}
}

// withPath 计算并填充章节的点号路径，失败时保留空路径。
func (s *Service) withPath(ctx context.Context, section *model.Section) *model.Section {
	path, err := s.sections.ComputePath(ctx, section.ID)
	if err != nil {
		logger.Warnw("failed to compute section path", "section_id", section.ID, "error", err.Error())
		return section
	}
	section.Path = path
	return section
}
