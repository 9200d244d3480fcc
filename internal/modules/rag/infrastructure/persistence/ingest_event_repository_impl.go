package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"RagLink/internal/modules/rag/domain/document"
	"RagLink/internal/modules/rag/domain/repository"

	"gorm.io/gorm"
)

type ingestEventRepositoryImpl struct {
	db *gorm.DB
}

func NewIngestEventRepository(db *gorm.DB) repository.IngestEventRepository {
	return &ingestEventRepositoryImpl{db: db}
}

func (r *ingestEventRepositoryImpl) Create(ctx context.Context, event *document.RagIngestEvent) error {
	if event == nil {
		return nil
	}
	now := time.Now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *ingestEventRepositoryImpl) GetByID(ctx context.Context, id int64) (*document.RagIngestEvent, error) {
	var event document.RagIngestEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&event).Error
	if err == nil {
		return &event, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *ingestEventRepositoryImpl) GetByDedupKey(ctx context.Context, dedupKey string) (*document.RagIngestEvent, error) {
	var event document.RagIngestEvent
	err := r.db.WithContext(ctx).Where("dedup_key = ?", dedupKey).Take(&event).Error
	if err == nil {
		return &event, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// TryMarkProcessing 以条件更新抢占事件，已在处理或已成功的事件抢不到
func (r *ingestEventRepositoryImpl) TryMarkProcessing(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&document.RagIngestEvent{}).
		Where("id = ? AND status IN ?", id, []int8{document.IngestEventStatusPending, document.IngestEventStatusFailed}).
		Updates(map[string]any{"status": document.IngestEventStatusProcessing, "error_msg": "", "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

func (r *ingestEventRepositoryImpl) MarkSucceeded(ctx context.Context, id int64) error {
	updates := map[string]any{"status": document.IngestEventStatusSucceeded, "error_msg": "", "updated_at": time.Now()}
	return r.db.WithContext(ctx).Model(&document.RagIngestEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *ingestEventRepositoryImpl) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	errMsg = strings.TrimSpace(errMsg)
	if len(errMsg) > 255 {
		errMsg = errMsg[:255]
	}
	updates := map[string]any{
		"status":      document.IngestEventStatusFailed,
		"retry_count": gorm.Expr("retry_count + ?", 1),
		"error_msg":   errMsg,
		"updated_at":  time.Now(),
	}
	return r.db.WithContext(ctx).Model(&document.RagIngestEvent{}).Where("id = ?", id).Updates(updates).Error
}
