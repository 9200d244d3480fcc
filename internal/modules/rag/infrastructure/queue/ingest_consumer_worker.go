package queue

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"RagLink/internal/modules/rag/domain/document"
	"RagLink/internal/modules/rag/domain/repository"
	"RagLink/internal/modules/rag/infrastructure/mq"
	"RagLink/internal/modules/rag/infrastructure/pipeline"
	"RagLink/pkg/zlog"

	"go.uber.org/zap"
)

// IngestConsumerWorker 消费异步摄取事件：从对象存储取回原文并执行摄取 Pipeline
type IngestConsumerWorker struct {
	consumer  mq.Consumer
	eventRepo repository.IngestEventRepository
	blob      repository.BlobStore
	bucket    string
	pipeline  *pipeline.IngestPipeline
}

func NewIngestConsumerWorker(
	consumer mq.Consumer,
	eventRepo repository.IngestEventRepository,
	blob repository.BlobStore,
	bucket string,
	p *pipeline.IngestPipeline,
) *IngestConsumerWorker {
	return &IngestConsumerWorker{
		consumer:  consumer,
		eventRepo: eventRepo,
		blob:      blob,
		bucket:    bucket,
		pipeline:  p,
	}
}

func (w *IngestConsumerWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.eventRepo == nil {
		return errors.New("event repo is nil")
	}
	if w.blob == nil {
		return errors.New("blob store is nil")
	}
	if w.pipeline == nil {
		return errors.New("pipeline is nil")
	}
	return w.consumer.Run(ctx, w)
}

// Handle 消息体是事件 ID；事件状态机保证重复投递是幂等的
func (w *IngestConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	idStr := strings.TrimSpace(string(msg.Value))
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		zlog.Warn("ingest consumer invalid event_id", zap.String("topic", msg.Topic))
		return nil
	}

	ev, err := w.eventRepo.GetByID(ctx, id)
	if err != nil {
		zlog.Warn("ingest consumer get event failed", zap.Int64("event_id", id), zap.Error(err))
		return err
	}
	if ev == nil {
		return nil
	}
	if ev.Status == document.IngestEventStatusSucceeded {
		return nil
	}

	ok, err := w.eventRepo.TryMarkProcessing(ctx, ev.Id)
	if err != nil {
		zlog.Warn("ingest consumer mark processing failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		return err
	}
	if !ok {
		return nil
	}

	procErr := w.processEvent(ctx, ev)
	if procErr != nil {
		_ = w.eventRepo.MarkFailed(ctx, ev.Id, scrubErrMsg(procErr.Error()))
		zlog.Warn("ingest consumer event failed",
			zap.Int64("event_id", ev.Id),
			zap.String("name", strings.TrimSpace(ev.Name)),
			zap.String("object_key", strings.TrimSpace(ev.ObjectKey)),
			zap.String("error", scrubErrMsg(procErr.Error())),
		)
		return nil
	}

	if err := w.eventRepo.MarkSucceeded(ctx, ev.Id); err != nil {
		zlog.Warn("ingest consumer mark succeeded failed", zap.Int64("event_id", ev.Id), zap.Error(err))
		return err
	}
	return nil
}

func (w *IngestConsumerWorker) processEvent(ctx context.Context, ev *document.RagIngestEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}
	name := strings.TrimSpace(ev.Name)
	key := strings.TrimSpace(ev.ObjectKey)
	if name == "" || key == "" {
		return errors.New("event missing name/object_key")
	}

	content, err := w.blob.GetObject(ctx, w.bucket, key)
	if err != nil {
		return err
	}
	_, err = w.pipeline.Ingest(ctx, &pipeline.IngestRequest{
		Name:    name,
		Content: content,
	})
	return err
}

func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "api_key") || strings.Contains(low, "apikey") || strings.Contains(low, "secret") || strings.Contains(s, "sk-") {
		return "redacted"
	}
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
