// Package handler provides HTTP handlers for the knowledge base service.
package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/minerva/internal/kb/biz"
	"github.com/kart-io/minerva/internal/pkg/httputils"
	"github.com/kart-io/minerva/pkg/errors"
)

// searchTimeout 检索请求的超时时间，包含嵌入生成与向量查询。
const searchTimeout = 60 * time.Second

// KBHandler handles knowledge base HTTP requests.
type KBHandler struct {
	service *biz.Service
}

// NewKBHandler creates a new KBHandler.
func NewKBHandler(service *biz.Service) *KBHandler {
	return &KBHandler{service: service}
}

// AddSectionRequest represents an add section request.
type AddSectionRequest struct {
	Header  string `json:"header" binding:"required"`
	Content string `json:"content"`
	Parent  string `json:"parent"`
	Slug    string `json:"slug"`
}

// Add adds a new section.
func (h *KBHandler) Add(c *gin.Context) {
	var req AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage(err.Error()), nil)
		return
	}

	section, err := h.service.Add(c.Request.Context(), &biz.AddSectionRequest{
		Header:  req.Header,
		Content: req.Content,
		Parent:  req.Parent,
		Slug:    req.Slug,
	})
	httputils.WriteResponse(c, err, section)
}

// Get retrieves a section by identifier (id, dotted path or slug).
func (h *KBHandler) Get(c *gin.Context) {
	section, err := h.service.Get(c.Request.Context(), c.Param("identifier"))
	httputils.WriteResponse(c, err, section)
}

// GetByHeader retrieves a section by exact header match.
// Requires the "header" query parameter.
func (h *KBHandler) GetByHeader(c *gin.Context) {
	header := c.Query("header")
	if header == "" {
		httputils.WriteResponse(c, errors.ErrMissingParam.WithMessage("header query parameter is required"), nil)
		return
	}

	section, err := h.service.GetByHeader(c.Request.Context(), header)
	httputils.WriteResponse(c, err, section)
}

// UpdateSectionRequest represents an update section request.
// Nil fields are left unchanged.
type UpdateSectionRequest struct {
	Header  *string `json:"header"`
	Content *string `json:"content"`
}

// Update updates a section's header and/or content.
func (h *KBHandler) Update(c *gin.Context) {
	var req UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage(err.Error()), nil)
		return
	}

	section, err := h.service.Update(c.Request.Context(), c.Param("identifier"), &biz.UpdateSectionRequest{
		Header:  req.Header,
		Content: req.Content,
	})
	httputils.WriteResponse(c, err, section)
}

// Delete deletes a section. Pass recursive=true to delete a whole subtree.
func (h *KBHandler) Delete(c *gin.Context) {
	recursive, _ := strconv.ParseBool(c.DefaultQuery("recursive", "false"))

	deleted, err := h.service.Delete(c.Request.Context(), c.Param("identifier"), recursive)
	httputils.WriteResponse(c, err, gin.H{"deleted": deleted})
}

// SearchRequest represents a semantic search request.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// Search performs a semantic similarity search.
func (h *KBHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage(err.Error()), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), searchTimeout)
	defer cancel()

	hits, err := h.service.Search(ctx, req.Query, req.TopK)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		httputils.WriteResponse(c, errors.ErrTimeout.WithMessage("search timed out"), nil)
		return
	}
	httputils.WriteResponse(c, err, hits)
}

// Children lists the direct children of a section.
// The "parent" query parameter accepts any identifier; empty lists root sections.
func (h *KBHandler) Children(c *gin.Context) {
	children, err := h.service.Children(c.Request.Context(), c.Query("parent"))
	httputils.WriteResponse(c, err, children)
}

// Tree renders the knowledge base as indented text.
// The "root" query parameter restricts rendering to a subtree.
func (h *KBHandler) Tree(c *gin.Context) {
	tree, err := h.service.Tree(c.Request.Context(), c.Query("root"))
	httputils.WriteResponse(c, err, gin.H{"tree": tree})
}

// ExportRequest represents an export request.
type ExportRequest struct {
	Root string `json:"root"`
	Path string `json:"path"`
}

// Export writes the rendered document tree to a text file.
func (h *KBHandler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrBadRequest.WithMessage(err.Error()), nil)
		return
	}

	path, err := h.service.Export(c.Request.Context(), req.Root, req.Path)
	httputils.WriteResponse(c, err, gin.H{"path": path})
}

// Reindex rebuilds the vector index from the structured store.
// The "root" query parameter restricts reindexing to a subtree.
func (h *KBHandler) Reindex(c *gin.Context) {
	indexed, err := h.service.Reindex(c.Request.Context(), c.Query("root"))
	httputils.WriteResponse(c, err, gin.H{"indexed": indexed})
}

// Stats returns knowledge base statistics.
func (h *KBHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	httputils.WriteResponse(c, err, stats)
}
