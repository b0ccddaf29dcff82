package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/minerva/internal/kb/biz"
	"github.com/kart-io/minerva/internal/kb/handler"
	"github.com/kart-io/minerva/internal/kb/router"
	"github.com/kart-io/minerva/internal/kb/store"
	"github.com/kart-io/minerva/internal/model"
	"github.com/kart-io/minerva/internal/pkg/kb/sectionutil"
	"github.com/kart-io/minerva/pkg/component/storage"
	"github.com/kart-io/minerva/pkg/errors"
)

// APIResponse 标准 API 响应结构
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// fakeSections 内存版章节存储，实现 store.SectionStore。
type fakeSections struct {
	sections map[string]*model.Section
}

func (f *fakeSections) forest() *sectionutil.Forest {
	all := make([]*model.Section, 0, len(f.sections))
	for _, s := range f.sections {
		all = append(all, s)
	}
	return sectionutil.NewForest(all)
}

func (f *fakeSections) Insert(_ context.Context, s *model.Section) error {
	copied := *s
	f.sections[s.ID] = &copied
	return nil
}

func (f *fakeSections) FindByID(_ context.Context, id string) (*model.Section, error) {
	if s, ok := f.sections[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeSections) FindBySlug(_ context.Context, slug string) ([]*model.Section, error) {
	var out []*model.Section
	for _, s := range f.sections {
		if s.Slug == slug {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSections) FindByHeader(_ context.Context, header string) (*model.Section, error) {
	for _, s := range f.sections {
		if s.Header == header {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeSections) FindChildren(_ context.Context, parentID string) ([]*model.Section, error) {
	var out []*model.Section
	for _, s := range f.sections {
		if s.ParentID == parentID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeSections) ListAll(_ context.Context) ([]*model.Section, error) {
	out := make([]*model.Section, 0, len(f.sections))
	for _, s := range f.sections {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeSections) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	s, ok := f.sections[id]
	if !ok {
		return fmt.Errorf("section %s not found", id)
	}
	if v, ok := fields["header"]; ok {
		s.Header = v.(string)
	}
	if v, ok := fields["slug"]; ok {
		s.Slug = v.(string)
	}
	if v, ok := fields["content"]; ok {
		s.Content = v.(string)
	}
	return nil
}

func (f *fakeSections) DeleteByID(_ context.Context, id string) error {
	delete(f.sections, id)
	return nil
}

func (f *fakeSections) DeleteSubtree(_ context.Context, rootID string) ([]string, error) {
	ids := f.forest().Descendants(rootID)
	for _, id := range ids {
		delete(f.sections, id)
	}
	return ids, nil
}

func (f *fakeSections) ResolvePath(_ context.Context, path []int) (*model.Section, error) {
	if s := f.forest().ResolvePath(path); s != nil {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeSections) ComputePath(_ context.Context, id string) (string, error) {
	return f.forest().Path(id)
}

func (f *fakeSections) Count(_ context.Context) (int64, error) {
	return int64(len(f.sections)), nil
}

func (f *fakeSections) EnsureIndexes(_ context.Context) error { return nil }

// fakeChunks 内存版向量存储，实现 store.ChunkStore。
type fakeChunks struct {
	chunks map[string][]model.Chunk
}

func (f *fakeChunks) EnsureCollection(_ context.Context) error { return nil }

func (f *fakeChunks) Replace(_ context.Context, sectionID string, chunks []model.Chunk) error {
	delete(f.chunks, sectionID)
	if len(chunks) > 0 {
		f.chunks[sectionID] = chunks
	}
	return nil
}

func (f *fakeChunks) DeleteBySection(_ context.Context, sectionIDs []string) error {
	for _, id := range sectionIDs {
		delete(f.chunks, id)
	}
	return nil
}

func (f *fakeChunks) Search(_ context.Context, _ []float32, _ int) ([]store.ChunkHit, error) {
	return nil, nil
}

func (f *fakeChunks) Count(_ context.Context) (int64, error) { return 0, nil }

func (f *fakeChunks) Close(_ context.Context) error { return nil }

// fakeEmbedder 返回固定向量。
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1.0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	return []float32{1.0}, nil
}

func (fakeEmbedder) Name() string { return "fake" }

func setupTestServer() *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := biz.NewService(
		&fakeSections{sections: make(map[string]*model.Section)},
		&fakeChunks{chunks: make(map[string][]model.Chunk)},
		fakeEmbedder{},
		biz.NewSearchCache(nil, nil),
		&biz.Config{ChunkSize: 500, TopK: 5, ExportDir: "_output/export"},
	)

	engine := gin.New()
	router.Register(engine, handler.NewKBHandler(service), storage.NewManager())
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, *APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, &resp
}

func TestKBHandler_AddAndGet(t *testing.T) {
	engine := setupTestServer()

	w, resp := doJSON(t, engine, http.MethodPost, "/v1/kb/sections", gin.H{
		"header":  "Introduction",
		"content": "Welcome.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, errors.OK.Code, resp.Code)

	var section model.Section
	require.NoError(t, json.Unmarshal(resp.Data, &section))
	assert.Equal(t, "introduction", section.Slug)
	assert.Equal(t, "1", section.Path)

	// 按 slug 获取
	w, resp = doJSON(t, engine, http.MethodGet, "/v1/kb/sections/introduction", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &section))
	assert.Equal(t, "Introduction", section.Header)

	// 按路径获取
	w, _ = doJSON(t, engine, http.MethodGet, "/v1/kb/sections/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKBHandler_Add_MissingHeader(t *testing.T) {
	engine := setupTestServer()

	w, resp := doJSON(t, engine, http.MethodPost, "/v1/kb/sections", gin.H{
		"content": "no header",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrBadRequest.Code, resp.Code)
}

func TestKBHandler_Get_NotFound(t *testing.T) {
	engine := setupTestServer()

	w, resp := doJSON(t, engine, http.MethodGet, "/v1/kb/sections/no-such-section", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrSectionNotFound.Code, resp.Code)
}

func TestKBHandler_Delete(t *testing.T) {
	engine := setupTestServer()

	_, resp := doJSON(t, engine, http.MethodPost, "/v1/kb/sections", gin.H{"header": "Parent"})
	var parent model.Section
	require.NoError(t, json.Unmarshal(resp.Data, &parent))

	_, _ = doJSON(t, engine, http.MethodPost, "/v1/kb/sections", gin.H{
		"header": "Child", "parent": parent.ID,
	})

	// 非递归删除非叶子章节
	w, resp := doJSON(t, engine, http.MethodDelete, "/v1/kb/sections/"+parent.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrHasChildren.Code, resp.Code)

	// 递归删除
	w, resp = doJSON(t, engine, http.MethodDelete, "/v1/kb/sections/"+parent.ID+"?recursive=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]int
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 2, result["deleted"])
}

func TestKBHandler_Search_Validation(t *testing.T) {
	engine := setupTestServer()

	// 缺少 query 字段
	w, resp := doJSON(t, engine, http.MethodPost, "/v1/kb/search", gin.H{"top_k": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrBadRequest.Code, resp.Code)
}

func TestKBHandler_Tree(t *testing.T) {
	engine := setupTestServer()

	_, _ = doJSON(t, engine, http.MethodPost, "/v1/kb/sections", gin.H{
		"header": "Handbook", "content": "Short intro.",
	})

	w, resp := doJSON(t, engine, http.MethodGet, "/v1/kb/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "1. Handbook\n  Short intro.\n", result["tree"])
}

func TestHealthz(t *testing.T) {
	engine := setupTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	// 未注册任何后端时视为健康
	assert.Equal(t, http.StatusOK, w.Code)
}
