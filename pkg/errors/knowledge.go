package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// ============================================================================
// Knowledge Base Errors (Service: 20)
// ============================================================================

var (
	// ErrSectionNotFound indicates no section matched the given identifier.
	ErrSectionNotFound = Register(&Errno{
		Code:      MakeCode(ServiceKnowledge, CategoryResource, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "Section not found",
		MessageZH: "章节不存在",
	})

	// ErrSlugConflict indicates a sibling section already uses the slug.
	ErrSlugConflict = Register(&Errno{
		Code:      MakeCode(ServiceKnowledge, CategoryConflict, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Slug already used by a sibling section",
		MessageZH: "同级章节 slug 冲突",
	})

	// ErrSlugAmbiguous indicates a slug matched multiple sections.
	ErrSlugAmbiguous = Register(&Errno{
		Code:      MakeCode(ServiceKnowledge, CategoryConflict, 2),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "Slug matches multiple sections, use id or path",
		MessageZH: "slug 匹配多个章节，请使用 id 或路径",
	})

	// ErrHasChildren indicates a non-recursive delete hit a non-leaf section.
	ErrHasChildren = Register(&Errno{
		Code:      MakeCode(ServiceKnowledge, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.FailedPrecondition,
		MessageEN: "Section has children, use recursive delete",
		MessageZH: "章节存在子章节，请使用递归删除",
	})

	// ErrInvalidIdentifier indicates the identifier could not be classified.
	ErrInvalidIdentifier = Register(&Errno{
		Code:      MakeCode(ServiceKnowledge, CategoryRequest, 2),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid section identifier",
		MessageZH: "章节标识无效",
	})
)

// ============================================================================
// Storage Infrastructure Errors (Service: 10)
// ============================================================================

var (
	// ErrStructuredStore indicates a structured store (MongoDB) failure.
	ErrStructuredStore = Register(&Errno{
		Code:      MakeCode(ServiceInfraStore, CategoryDatabase, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Structured store operation failed",
		MessageZH: "结构化存储操作失败",
	})

	// ErrVectorStore indicates a vector store (Milvus) failure.
	// The structured store write may already be durable; reindex the
	// affected sections to reconcile.
	ErrVectorStore = Register(&Errno{
		Code:      MakeCode(ServiceInfraStore, CategoryDatabase, 2),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "Vector store operation failed",
		MessageZH: "向量存储操作失败",
	})
)

// ============================================================================
// Embedding Provider Errors (Service: 90)
// ============================================================================

var (
	// ErrEmbedding indicates the embedding provider call failed.
	ErrEmbedding = Register(&Errno{
		Code:      MakeCode(ServiceThirdPartyEmbedding, CategoryNetwork, 1),
		HTTP:      http.StatusBadGateway,
		GRPCCode:  codes.Unavailable,
		MessageEN: "Embedding provider request failed",
		MessageZH: "嵌入服务请求失败",
	})
)
