package repository

import (
	"context"

	"RagLink/internal/modules/rag/domain/document"
)

type DocumentRepository interface {
	// Upsert 按 Name 幂等登记，已存在时刷新元信息
	Upsert(ctx context.Context, doc *document.RagDocument) error
	List(ctx context.Context, offset, limit int) ([]document.RagDocument, int64, error)
	GetByName(ctx context.Context, name string) (*document.RagDocument, error)
	DeleteByName(ctx context.Context, name string) error
}

type IngestEventRepository interface {
	Create(ctx context.Context, event *document.RagIngestEvent) error
	GetByID(ctx context.Context, id int64) (*document.RagIngestEvent, error)
	GetByDedupKey(ctx context.Context, dedupKey string) (*document.RagIngestEvent, error)
	// TryMarkProcessing 以 CAS 方式抢占事件，返回 false 表示已被处理
	TryMarkProcessing(ctx context.Context, id int64) (bool, error)
	MarkSucceeded(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}
