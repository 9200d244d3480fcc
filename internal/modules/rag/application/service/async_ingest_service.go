package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"RagLink/internal/modules/rag/domain/document"
	"RagLink/internal/modules/rag/domain/repository"
	"RagLink/internal/modules/rag/infrastructure/extract"
	"RagLink/internal/modules/rag/infrastructure/mq"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"go.uber.org/zap"
)

// AsyncIngestService 异步摄取：原文先落对象存储，事件经 Kafka 投递给消费者处理
type AsyncIngestService interface {
	Enqueue(ctx context.Context, name string, content []byte, contentType string) (*document.RagIngestEvent, error)
}

type asyncIngestService struct {
	blob      repository.BlobStore
	bucket    string
	eventRepo repository.IngestEventRepository
	publisher mq.Publisher
	topic     string
}

func NewAsyncIngestService(
	blob repository.BlobStore,
	bucket string,
	eventRepo repository.IngestEventRepository,
	publisher mq.Publisher,
	topic string,
) AsyncIngestService {
	return &asyncIngestService{
		blob:      blob,
		bucket:    bucket,
		eventRepo: eventRepo,
		publisher: publisher,
		topic:     topic,
	}
}

func (s *asyncIngestService) Enqueue(ctx context.Context, name string, content []byte, contentType string) (*document.RagIngestEvent, error) {
	if s.blob == nil || s.eventRepo == nil || s.publisher == nil {
		return nil, fmt.Errorf("async ingest service not wired")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, xerr.New(xerr.BadRequest, "missing document name")
	}
	if len(content) == 0 {
		return nil, xerr.New(xerr.BadRequest, "empty document content")
	}

	ct := strings.TrimSpace(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = extract.ContentTypeOf(name)
	}

	// 原文先落对象存储，事件只携带引用
	if err := s.blob.PutObject(ctx, s.bucket, name, content, ct); err != nil {
		return nil, xerr.Wrap(xerr.ServiceUnavailable, "persist document failed", err)
	}

	ev := &document.RagIngestEvent{
		Name:      name,
		ObjectKey: name,
		DedupKey:  asyncDedupKey(name, content),
		Status:    document.IngestEventStatusPending,
	}
	if err := s.eventRepo.Create(ctx, ev); err != nil {
		if !isDuplicateKeyErr(err) {
			return nil, err
		}
		// 同内容重复入队：找回已有事件。已成功/处理中的按幂等成功返回；
		// 仍是待处理或失败态的（比如上次发布消息没发出去）重发一次
		existing, getErr := s.eventRepo.GetByDedupKey(ctx, ev.DedupKey)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, err
		}
		if existing.Status == document.IngestEventStatusPending || existing.Status == document.IngestEventStatusFailed {
			if pubErr := s.publishEvent(ctx, existing); pubErr != nil {
				return nil, pubErr
			}
		}
		zlog.Info("async ingest deduped",
			zap.Int64("event_id", existing.Id),
			zap.String("name", name),
			zap.Int8("status", existing.Status),
		)
		return existing, nil
	}

	if err := s.publishEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// publishEvent 把事件 ID 投递到 Kafka，失败时把事件标记为失败留给下次重试
func (s *asyncIngestService) publishEvent(ctx context.Context, ev *document.RagIngestEvent) error {
	res, err := s.publisher.Publish(ctx, mq.Message{
		Topic: s.topic,
		Key:   []byte(ev.Name),
		Value: []byte(strconv.FormatInt(ev.Id, 10)),
	})
	if err != nil {
		_ = s.eventRepo.MarkFailed(ctx, ev.Id, "publish failed: "+err.Error())
		return xerr.Wrap(xerr.ServiceUnavailable, "publish ingest event failed", err)
	}
	zlog.Info("async ingest enqueued",
		zap.Int64("event_id", ev.Id),
		zap.String("name", ev.Name),
		zap.Int32("partition", res.Partition),
		zap.Int64("offset", res.Offset),
	)
	return nil
}

// asyncDedupKey 同一分钟内同名同内容的文档只入队一次
func asyncDedupKey(name string, content []byte) string {
	h := sha256.Sum256(content)
	minute := time.Now().Format("200601021504")
	return "ig_" + hex.EncodeToString(h[:8]) + "_" + shortHash(name) + "_" + minute
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:6])
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
