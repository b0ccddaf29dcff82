package sectionutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/minerva/internal/model"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"简单标题", "Revenue Analysis", "revenue-analysis"},
		{"含数字", "Annual Report 2024", "annual-report-2024"},
		{"特殊字符折叠", "Q1 -- Results (Draft)", "q1-results-draft"},
		{"首尾符号", "  ## Overview! ", "overview"},
		{"已是小写", "overview", "overview"},
		{"空字符串", "", ""},
		{"纯符号", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.header))
		})
	}
}

func TestSplitIntoChunks(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		wantCount int
	}{
		{"空文本返回零块", "", 500, 0},
		{"短于块大小", strings.Repeat("a", 100), 500, 1},
		{"恰好等于块大小", strings.Repeat("a", 500), 500, 1},
		{"略超块大小", strings.Repeat("a", 501), 500, 2},
		{"多块", strings.Repeat("a", 1250), 500, 3},
		{"非法块大小", "hello", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitIntoChunks(tt.text, tt.chunkSize)
			assert.Len(t, chunks, tt.wantCount)

			// 拼接后应无损还原原文
			assert.Equal(t, func() string {
				if tt.wantCount == 0 {
					return ""
				}
				return tt.text
			}(), strings.Join(chunks, ""))
		})
	}
}

func TestSplitIntoChunksUnicode(t *testing.T) {
	// 按 Unicode 字符数切分，不能截断多字节字符
	text := strings.Repeat("知", 7)
	chunks := SplitIntoChunks(text, 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, "知知知", chunks[0])
	assert.Equal(t, "知", chunks[2])
}

func sec(id, parentID, header string, order int) *model.Section {
	return &model.Section{
		ID:        id,
		ParentID:  parentID,
		Slug:      Slugify(header),
		Header:    header,
		Level:     0,
		Order:     order,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func testForest() *Forest {
	// report
	// ├── revenue
	// │   └── q1
	// └── costs
	// appendix
	return NewForest([]*model.Section{
		sec("report", "", "Annual Report 2024", 0),
		sec("revenue", "report", "Revenue Analysis", 0),
		sec("q1", "revenue", "Q1 Breakdown", 0),
		sec("costs", "report", "Cost Analysis", 1),
		sec("appendix", "", "Appendix", 1),
	})
}

func TestForestPath(t *testing.T) {
	f := testForest()

	tests := []struct {
		name string
		id   string
		want string
	}{
		{"根章节", "report", "1"},
		{"第二个根", "appendix", "2"},
		{"二级章节", "revenue", "1.1"},
		{"同级第二个", "costs", "1.2"},
		{"三级章节", "q1", "1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Path(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := f.Path("missing")
	assert.Error(t, err)
}

func TestForestPathIgnoresOrderGaps(t *testing.T) {
	// Order 值有空洞时，路径仍按排序后的排名编号
	f := NewForest([]*model.Section{
		sec("a", "", "Alpha", 3),
		sec("b", "", "Beta", 10),
	})

	got, err := f.Path("b")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestForestResolvePath(t *testing.T) {
	f := testForest()

	tests := []struct {
		name   string
		ranks  []int
		wantID string
	}{
		{"根", []int{1}, "report"},
		{"子章节", []int{1, 1}, "revenue"},
		{"孙章节", []int{1, 1, 1}, "q1"},
		{"第二个根", []int{2}, "appendix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.ResolvePath(tt.ranks)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}

	assert.Nil(t, f.ResolvePath([]int{3}))
	assert.Nil(t, f.ResolvePath([]int{1, 9}))
	assert.Nil(t, f.ResolvePath([]int{0}))
}

func TestForestFormatTree(t *testing.T) {
	sections := []*model.Section{
		sec("report", "", "Annual Report 2024", 0),
		sec("revenue", "report", "Revenue Analysis", 0),
	}
	sections[1].Content = "Revenue grew 12%.\nDriven by subscriptions."
	f := NewForest(sections)

	got := f.FormatTree("")
	want := "1. Annual Report 2024\n" +
		"  1.1. Revenue Analysis\n" +
		"    Revenue grew 12%.\n" +
		"    Driven by subscriptions.\n"
	assert.Equal(t, want, got)
}

func TestForestFormatTreeSubtreeRenumbers(t *testing.T) {
	f := testForest()

	// 导出子树时根重新从 1 编号
	got := f.FormatTree("costs")
	assert.True(t, strings.HasPrefix(got, "1. Cost Analysis\n"))
}

func TestForestDescendants(t *testing.T) {
	f := testForest()

	ids := f.Descendants("report")
	assert.Equal(t, []string{"report", "revenue", "costs", "q1"}, ids)

	assert.Equal(t, []string{"q1"}, f.Descendants("q1"))
	assert.Nil(t, f.Descendants("missing"))
}
