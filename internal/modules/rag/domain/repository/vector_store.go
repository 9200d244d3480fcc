package repository

import (
	"context"
)

// VectorUpsertItem 写入向量库的一条切片。Vector 维度必须与集合维度一致。
type VectorUpsertItem struct {
	ID           string
	Vector       []float32
	DocName      string
	ChunkIndex   int
	Content      string
	MetadataJSON string
}

// VectorSearchHit 一次相似检索的命中。Score 为余弦相似度，越大越相关。
type VectorSearchHit struct {
	ID         string
	Score      float32
	DocName    string
	ChunkIndex int
	Content    string
}

type VectorStore interface {
	// Upsert 批量写入，返回写入的 id 列表
	Upsert(ctx context.Context, items []VectorUpsertItem) ([]string, error)
	// Search 按余弦相似度取 topK 条，结果按 Score 降序
	Search(ctx context.Context, vector []float32, topK int) ([]VectorSearchHit, error)
	// DeleteByDocName 删除某文档名下的全部向量
	DeleteByDocName(ctx context.Context, docName string) error
}
