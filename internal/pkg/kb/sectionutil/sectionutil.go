// Package sectionutil 提供章节相关的纯工具函数：
// slug 生成、内容切块、层级路径计算与树形文本渲染。
package sectionutil

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kart-io/minerva/internal/model"
)

// Slugify 将标题转换为 URL 友好的 slug。
// 字母数字保留并转小写，其余字符折叠为单个连字符。
func Slugify(header string) string {
	var b strings.Builder
	lastHyphen := true // 抑制开头的连字符
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SplitIntoChunks 将文本按 Unicode 字符数顺序切分为不重叠的块。
// 每块最多 chunkSize 个字符，空文本返回 nil。
func SplitIntoChunks(text string, chunkSize int) []string {
	if chunkSize <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+chunkSize-1)/chunkSize)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// Forest 是一组章节的内存索引，用于路径计算和树渲染。
// 同级章节按 Order 排序，路径分量取排序后的 1-based 排名。
type Forest struct {
	byID     map[string]*model.Section
	children map[string][]*model.Section
}

// NewForest 基于章节集合构建索引。
func NewForest(sections []*model.Section) *Forest {
	f := &Forest{
		byID:     make(map[string]*model.Section, len(sections)),
		children: make(map[string][]*model.Section),
	}
	for _, s := range sections {
		f.byID[s.ID] = s
		f.children[s.ParentID] = append(f.children[s.ParentID], s)
	}
	for _, siblings := range f.children {
		sort.SliceStable(siblings, func(i, j int) bool {
			return siblings[i].Order < siblings[j].Order
		})
	}
	return f
}

// Get 返回指定 ID 的章节，不存在时返回 nil。
func (f *Forest) Get(id string) *model.Section {
	return f.byID[id]
}

// Children 返回按 Order 排序的子章节，parentID 为空返回根章节。
func (f *Forest) Children(parentID string) []*model.Section {
	return f.children[parentID]
}

// rank 返回章节在其同级中的 1-based 排名，未找到返回 0。
func (f *Forest) rank(s *model.Section) int {
	for i, sib := range f.children[s.ParentID] {
		if sib.ID == s.ID {
			return i + 1
		}
	}
	return 0
}

// Path 计算章节的点分层级路径（如 "1.2.1"）。
// 路径分量是各级祖先在同级中的排名，与 Order 的具体取值无关。
func (f *Forest) Path(id string) (string, error) {
	s, ok := f.byID[id]
	if !ok {
		return "", fmt.Errorf("section %s not in forest", id)
	}

	var parts []string
	for s != nil {
		r := f.rank(s)
		if r == 0 {
			return "", fmt.Errorf("section %s missing from sibling list", s.ID)
		}
		parts = append(parts, fmt.Sprintf("%d", r))
		if s.ParentID == "" {
			break
		}
		parent, ok := f.byID[s.ParentID]
		if !ok {
			return "", fmt.Errorf("parent %s of section %s not in forest", s.ParentID, s.ID)
		}
		s = parent
	}

	// 自底向上收集，反转
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "."), nil
}

// ResolvePath 按点分路径逐级定位章节，如 "1.2" 表示第一个根章节的第二个子章节。
// 未找到时返回 nil。
func (f *Forest) ResolvePath(ranks []int) *model.Section {
	parentID := ""
	var current *model.Section
	for _, r := range ranks {
		siblings := f.children[parentID]
		if r < 1 || r > len(siblings) {
			return nil
		}
		current = siblings[r-1]
		parentID = current.ID
	}
	return current
}

// FormatTree 将以 rootID 为根的子树渲染为缩进文本。
// 每个章节输出 "路径. 标题" 一行，正文各行再缩进一级；
// 每级缩进两个空格。rootID 为空时渲染全部根章节，
// 指定 rootID 时该子树重新从 "1" 编号。
func (f *Forest) FormatTree(rootID string) string {
	var b strings.Builder
	if rootID == "" {
		for i, root := range f.children[""] {
			f.writeSubtree(&b, root, fmt.Sprintf("%d", i+1), 0)
		}
	} else if root := f.byID[rootID]; root != nil {
		f.writeSubtree(&b, root, "1", 0)
	}
	return b.String()
}

func (f *Forest) writeSubtree(b *strings.Builder, s *model.Section, path string, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s. %s\n", indent, path, s.Header)

	if s.Content != "" {
		contentIndent := strings.Repeat("  ", depth+1)
		for _, line := range strings.Split(s.Content, "\n") {
			fmt.Fprintf(b, "%s%s\n", contentIndent, line)
		}
	}

	for i, child := range f.children[s.ID] {
		f.writeSubtree(b, child, fmt.Sprintf("%s.%d", path, i+1), depth+1)
	}
}

// Descendants 返回以 rootID 为根的子树中全部章节 ID（广度优先，含根）。
func (f *Forest) Descendants(rootID string) []string {
	if _, ok := f.byID[rootID]; !ok {
		return nil
	}

	ids := []string{rootID}
	queue := []string{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range f.children[current] {
			ids = append(ids, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return ids
}
