package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"RagLink/internal/modules/rag/application/dto/request"
	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/internal/modules/rag/infrastructure/pipeline"
	"RagLink/pkg/redis"
	"RagLink/pkg/util"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"go.uber.org/zap"
)

// RagService 知识库门面：同步摄取 + 问答
type RagService interface {
	// Ingest 同步摄取一个文档：落盘原文、切片、向量化、写入向量库
	Ingest(ctx context.Context, name string, content []byte, contentType string) (*respond.IngestRespond, error)
	// Query 基于知识库回答问题
	Query(ctx context.Context, req request.QueryRequest) (*respond.QueryRespond, error)
	// Delete 删除文档的向量与原文
	Delete(ctx context.Context, name string) error
}

type ragServiceImpl struct {
	ingestPipeline   *pipeline.IngestPipeline
	retrievePipeline *pipeline.RetrievePipeline
	answerCacheTTL   time.Duration
}

// NewRagService 创建知识库门面服务
// answerCacheTTL <= 0 时关闭回答缓存
func NewRagService(ip *pipeline.IngestPipeline, rp *pipeline.RetrievePipeline, answerCacheTTL time.Duration) RagService {
	return &ragServiceImpl{
		ingestPipeline:   ip,
		retrievePipeline: rp,
		answerCacheTTL:   answerCacheTTL,
	}
}

func (s *ragServiceImpl) Ingest(ctx context.Context, name string, content []byte, contentType string) (*respond.IngestRespond, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, xerr.New(xerr.BadRequest, "missing document name")
	}
	if len(content) == 0 {
		return nil, xerr.New(xerr.BadRequest, "empty document content")
	}
	if s.ingestPipeline == nil {
		return nil, fmt.Errorf("ingest pipeline is nil")
	}

	result, err := s.ingestPipeline.Ingest(ctx, &pipeline.IngestRequest{
		Name:        name,
		Content:     content,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	return &respond.IngestRespond{
		Name:        result.Name,
		ContentType: result.ContentType,
		SizeBytes:   result.Bytes,
		Chunks:      result.Chunks,
		DurationMs:  result.DurationMs,
	}, nil
}

func (s *ragServiceImpl) Query(ctx context.Context, req request.QueryRequest) (*respond.QueryRespond, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, xerr.New(xerr.BadRequest, "question is required")
	}
	if req.TopK != nil && *req.TopK <= 0 {
		return nil, xerr.New(xerr.BadRequest, fmt.Sprintf("invalid top_k: %d", *req.TopK))
	}
	if s.retrievePipeline == nil {
		return nil, fmt.Errorf("retrieve pipeline is nil")
	}

	// 未传 top_k 时，缓存键用 0 占位（显式 0 已被拒绝，不会撞键）
	cacheTopK := 0
	if req.TopK != nil {
		cacheTopK = *req.TopK
	}
	cacheKey := answerCacheKey(question, cacheTopK)
	if s.answerCacheTTL > 0 && redis.IsConnected() {
		if raw, err := redis.Get(ctx, cacheKey); err == nil && raw != "" {
			var cached respond.QueryRespond
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				cached.Cached = true
				return &cached, nil
			}
		}
	}

	result, err := s.retrievePipeline.Retrieve(ctx, &pipeline.RetrieveRequest{
		Question: question,
		TopK:     req.TopK,
	})
	if err != nil {
		return nil, err
	}

	resp := &respond.QueryRespond{
		QueryID:     result.QueryID,
		Question:    result.Question,
		Answer:      result.Answer,
		Sources:     result.Sources,
		TotalHits:   result.TotalHits,
		DurationMs:  result.DurationMs,
		EmbeddingMs: result.EmbeddingMs,
		SearchMs:    result.SearchMs,
		GenerateMs:  result.GenerateMs,
	}

	if s.answerCacheTTL > 0 && redis.IsConnected() && !result.IsEmpty {
		if bs, err := json.Marshal(resp); err == nil {
			if err := redis.Set(ctx, cacheKey, string(bs), s.answerCacheTTL); err != nil {
				zlog.Warn("cache answer failed", zap.String("query_id", resp.QueryID), zap.Error(err))
			}
		}
	}
	return resp, nil
}

func (s *ragServiceImpl) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return xerr.New(xerr.BadRequest, "missing document name")
	}
	if s.ingestPipeline == nil {
		return fmt.Errorf("ingest pipeline is nil")
	}
	return s.ingestPipeline.DeleteDocument(ctx, name)
}

func answerCacheKey(question string, topK int) string {
	return "rag:answer:" + util.Sha256Hex([]byte(fmt.Sprintf("%s|%d", question, topK)))
}
