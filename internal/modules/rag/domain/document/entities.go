package document

import (
	"time"
)

const (
	CommonStatusDisabled int8 = 0
	CommonStatusEnabled  int8 = 1
)

const (
	IngestEventStatusPending    int8 = 0
	IngestEventStatusProcessing int8 = 1
	IngestEventStatusSucceeded  int8 = 2
	IngestEventStatusFailed     int8 = 3
)

// RagDocument 已摄取文档登记表。Name 同时是对象存储的 key 与溯源标签；
// 同名重复摄取会更新此行，旧向量不做清理（知情的最终一致窗口）。
type RagDocument struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;type:varchar(255);not null;uniqueIndex:uniq_rag_doc_name"`
	ContentType string    `gorm:"column:content_type;type:varchar(100);not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;type:bigint;not null"`
	ChunkCount  int       `gorm:"column:chunk_count;type:int;not null;default:0"`
	Status      int8      `gorm:"column:status;type:tinyint;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (RagDocument) TableName() string { return "rag_document" }

// RagIngestEvent 异步摄取事件。文档内容先落对象存储，事件只携带引用，
// 由消费者按 DedupKey 幂等处理。
type RagIngestEvent struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;type:varchar(255);not null;index:idx_rag_event_name"`
	ObjectKey  string    `gorm:"column:object_key;type:varchar(255);not null"`
	DedupKey   string    `gorm:"column:dedup_key;type:varchar(160);not null;uniqueIndex:uniq_rag_event_dedup"`
	Status     int8      `gorm:"column:status;type:tinyint;not null;default:0;index:idx_rag_event_status"`
	RetryCount int       `gorm:"column:retry_count;type:int;not null;default:0"`
	ErrorMsg   string    `gorm:"column:error_msg;type:varchar(255)"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (RagIngestEvent) TableName() string { return "rag_ingest_event" }
