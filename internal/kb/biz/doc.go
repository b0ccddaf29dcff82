// Package biz 实现知识库的业务逻辑：章节的增删改查、
// 语义检索、树形渲染与导出，以及双存储之间的一致性维护。
//
// 写入顺序约定：结构化存储（MongoDB）先写，向量存储（Milvus）后写。
// 向量写入失败不回滚结构化存储，通过 Reindex 重建向量索引来修复。
package biz
