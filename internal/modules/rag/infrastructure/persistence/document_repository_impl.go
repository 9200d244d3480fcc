package persistence

import (
	"context"
	"errors"
	"time"

	"RagLink/internal/modules/rag/domain/document"
	"RagLink/internal/modules/rag/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRepositoryImpl struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) repository.DocumentRepository {
	return &documentRepositoryImpl{db: db}
}

// Upsert 按文档名幂等登记，重复摄取时刷新元信息
func (r *documentRepositoryImpl) Upsert(ctx context.Context, doc *document.RagDocument) error {
	if doc == nil {
		return nil
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "size_bytes", "chunk_count", "status", "updated_at"}),
	}).Create(doc).Error
}

func (r *documentRepositoryImpl) List(ctx context.Context, offset, limit int) ([]document.RagDocument, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&document.RagDocument{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []document.RagDocument
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *documentRepositoryImpl) GetByName(ctx context.Context, name string) (*document.RagDocument, error) {
	var doc document.RagDocument
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *documentRepositoryImpl) DeleteByName(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Where("name = ?", name).Delete(&document.RagDocument{}).Error
}
