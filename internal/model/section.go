// Package model 定义知识库核心数据模型。
package model

import "time"

// Section 表示知识库中的一个层级章节。
type Section struct {
	// ID 章节唯一标识（UUID）。
	ID string `json:"section_id" bson:"section_id"`

	// ParentID 父章节 ID，根章节为空字符串。
	ParentID string `json:"parent_id" bson:"parent_id"`

	// Slug 由标题派生的 URL 友好标识。
	Slug string `json:"slug" bson:"slug"`

	// Header 章节标题。
	Header string `json:"header" bson:"header"`

	// Content 章节正文内容。
	Content string `json:"content" bson:"content"`

	// Level 层级深度，根章节为 0。
	Level int `json:"level" bson:"level"`

	// Order 同级章节中的排序键。
	Order int `json:"order" bson:"order"`

	// Path 点分层级路径（如 "1.2.1"），由同级排名派生，不持久化。
	// 树结构变化后路径会变，调用方不应跨变更缓存。
	Path string `json:"path,omitempty" bson:"-"`

	// CreatedAt 创建时间。
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// UpdatedAt 最后更新时间。
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// SearchHit 表示一次语义检索命中的章节。
type SearchHit struct {
	// Section 命中的章节（含派生路径）。
	Section *Section `json:"section"`

	// Score 相似度分数，越大越相似。
	Score float32 `json:"score"`

	// Snippet 命中的内容片段。
	Snippet string `json:"snippet"`
}

// Chunk 表示章节内容切分出的一个文本块。
type Chunk struct {
	// SectionID 所属章节 ID。
	SectionID string `json:"section_id"`

	// Index 块在章节内的序号，从 0 开始。
	Index int `json:"index"`

	// Text 块文本。
	Text string `json:"text"`

	// Embedding 嵌入向量。
	Embedding []float32 `json:"-"`
}
