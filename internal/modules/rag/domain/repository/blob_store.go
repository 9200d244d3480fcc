package repository

import (
	"context"
)

// BlobStore 原始文档的对象存储。摄取先落盘原文，索引失败也不丢数据。
type BlobStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}
