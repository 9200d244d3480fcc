package service

import (
	"context"
	"fmt"
	"time"

	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/internal/modules/rag/domain/repository"
)

// DocumentService 文档登记查询
type DocumentService interface {
	List(ctx context.Context, page, pageSize int) (*respond.DocumentListRespond, error)
}

type documentServiceImpl struct {
	docRepo repository.DocumentRepository
}

func NewDocumentService(docRepo repository.DocumentRepository) DocumentService {
	return &documentServiceImpl{docRepo: docRepo}
}

func (s *documentServiceImpl) List(ctx context.Context, page, pageSize int) (*respond.DocumentListRespond, error) {
	if s.docRepo == nil {
		return nil, fmt.Errorf("document repository is nil")
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	docs, total, err := s.docRepo.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]respond.DocumentRespond, 0, len(docs))
	for _, d := range docs {
		items = append(items, respond.DocumentRespond{
			Name:        d.Name,
			ContentType: d.ContentType,
			SizeBytes:   d.SizeBytes,
			ChunkCount:  d.ChunkCount,
			Status:      d.Status,
			CreatedAt:   d.CreatedAt.Format(time.RFC3339),
			UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
		})
	}
	return &respond.DocumentListRespond{Total: total, Items: items}, nil
}
