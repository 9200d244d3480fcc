package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"RagLink/internal/modules/rag/domain/document"
	"RagLink/internal/modules/rag/domain/repository"
	"RagLink/internal/modules/rag/infrastructure/extract"
	"RagLink/pkg/util"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// ingestState 摄取 Pipeline 的中间状态（在节点间传递）
type ingestState struct {
	Req *IngestRequest

	ContentType string
	Text        string
	Docs        []*schema.Document
	Items       []repository.VectorUpsertItem
	UpsertedIDs []string

	Persisted bool
	Start     time.Time
	Err       error
}

// buildGraph 构建摄取 Pipeline 的 Eino Graph
//
// 节点顺序：Persist → Extract → Chunk → Embed → Upsert → Finalize
func (p *IngestPipeline) buildGraph(ctx context.Context) (compose.Runnable[*IngestRequest, *IngestResult], error) {
	const (
		Persist  = "Persist"
		Extract  = "Extract"
		Chunk    = "Chunk"
		Embed    = "Embed"
		Upsert   = "Upsert"
		Finalize = "Finalize"
	)

	g := compose.NewGraph[*IngestRequest, *IngestResult]()

	_ = g.AddLambdaNode(Persist, compose.InvokableLambdaWithOption(p.persistNode), compose.WithNodeName(Persist))
	_ = g.AddLambdaNode(Extract, compose.InvokableLambdaWithOption(p.extractNode), compose.WithNodeName(Extract))
	_ = g.AddLambdaNode(Chunk, compose.InvokableLambdaWithOption(p.chunkNode), compose.WithNodeName(Chunk))
	_ = g.AddLambdaNode(Embed, compose.InvokableLambdaWithOption(p.embedNode), compose.WithNodeName(Embed))
	_ = g.AddLambdaNode(Upsert, compose.InvokableLambdaWithOption(p.upsertNode), compose.WithNodeName(Upsert))
	_ = g.AddLambdaNode(Finalize, compose.InvokableLambdaWithOption(p.finalizeNode), compose.WithNodeName(Finalize))

	_ = g.AddEdge(compose.START, Persist)
	_ = g.AddEdge(Persist, Extract)
	_ = g.AddEdge(Extract, Chunk)
	_ = g.AddEdge(Chunk, Embed)
	_ = g.AddEdge(Embed, Upsert)
	_ = g.AddEdge(Upsert, Finalize)
	_ = g.AddEdge(Finalize, compose.END)

	return g.Compile(ctx, compose.WithGraphName("DocIngestPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

// persistNode 节点 1：校验请求并把原文写入对象存储
func (p *IngestPipeline) persistNode(ctx context.Context, req *IngestRequest, _ ...any) (*ingestState, error) {
	st := &ingestState{
		Req:   req,
		Start: time.Now(),
	}
	if req == nil {
		st.Err = xerr.New(xerr.BadRequest, "nil request")
		return st, nil
	}

	name := strings.TrimSpace(req.Name)
	req.Name = name
	if name == "" {
		st.Err = xerr.New(xerr.BadRequest, "missing document name")
		return st, nil
	}
	if len(req.Content) == 0 {
		st.Err = xerr.New(xerr.BadRequest, "empty document content")
		return st, nil
	}

	ct := strings.TrimSpace(req.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = extract.ContentTypeOf(name)
	}
	st.ContentType = ct

	if err := p.blob.PutObject(ctx, p.bucket, name, req.Content, ct); err != nil {
		st.Err = xerr.Wrap(xerr.ServiceUnavailable, "persist document failed", err)
		return st, nil
	}
	st.Persisted = true
	return st, nil
}

// extractNode 节点 2：从原始字节提取纯文本
func (p *IngestPipeline) extractNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	_ = ctx
	if st == nil {
		return &ingestState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	text, err := p.extract.Extract(st.ContentType, st.Req.Content)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Text = text
	return st, nil
}

// chunkNode 节点 3：切分文本并为每个切片生成确定性向量 ID
func (p *IngestPipeline) chunkNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil {
		return &ingestState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	// 空文本是合法输入：原文已持久化，只是没有可索引内容
	if strings.TrimSpace(st.Text) == "" {
		st.Docs = []*schema.Document{}
		return st, nil
	}

	chunkDocs, err := p.chunker.ChunkDocuments(ctx, []*schema.Document{
		{Content: st.Text, MetaData: map[string]any{"doc_name": st.Req.Name}},
	})
	if err != nil {
		st.Err = err
		return st, nil
	}

	out := make([]*schema.Document, 0, len(chunkDocs))
	for _, d := range chunkDocs {
		if d == nil || strings.TrimSpace(d.Content) == "" {
			continue
		}
		chunkIndex, _ := metaInt(d.MetaData, "chunk_index")
		// 同一文档同一位置的切片 ID 稳定，重复摄取会覆盖旧向量
		d.ID = "v_" + util.Sha256Hex([]byte(fmt.Sprintf("%s|%d", st.Req.Name, chunkIndex)))[:48]
		out = append(out, d)
	}
	st.Docs = out
	return st, nil
}

// embedNode 节点 4：批量向量化全部切片
func (p *IngestPipeline) embedNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil {
		return &ingestState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}
	if len(st.Docs) == 0 {
		return st, nil
	}

	texts := make([]string, 0, len(st.Docs))
	for _, d := range st.Docs {
		texts = append(texts, d.Content)
	}

	vecs, err := p.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		st.Err = xerr.Wrap(xerr.ServiceUnavailable, "embedding failed", err)
		return st, nil
	}
	if len(vecs) != len(st.Docs) {
		st.Err = fmt.Errorf("embedding count mismatch: got=%d want=%d", len(vecs), len(st.Docs))
		return st, nil
	}

	items := make([]repository.VectorUpsertItem, 0, len(st.Docs))
	for i, d := range st.Docs {
		vec64 := vecs[i]
		if len(vec64) != p.vectorDim {
			st.Err = fmt.Errorf("embedding dim mismatch: got=%d want=%d", len(vec64), p.vectorDim)
			return st, nil
		}
		vec32 := make([]float32, len(vec64))
		for j := range vec64 {
			vec32[j] = float32(vec64[j])
		}
		chunkIndex, _ := metaInt(d.MetaData, "chunk_index")
		items = append(items, repository.VectorUpsertItem{
			ID:           d.ID,
			Vector:       vec32,
			DocName:      st.Req.Name,
			ChunkIndex:   chunkIndex,
			Content:      d.Content,
			MetadataJSON: buildChunkMetadataJSON(st.Req.Name, st.ContentType, chunkIndex),
		})
	}
	st.Items = items
	return st, nil
}

// upsertNode 节点 5：单批写入向量库
func (p *IngestPipeline) upsertNode(ctx context.Context, st *ingestState, _ ...any) (*ingestState, error) {
	if st == nil {
		return &ingestState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}
	if len(st.Items) == 0 {
		return st, nil
	}

	ids, err := p.vs.Upsert(ctx, st.Items)
	if err != nil {
		st.Err = xerr.Wrap(xerr.ServiceUnavailable, "vector upsert failed", err)
		return st, nil
	}
	st.UpsertedIDs = ids
	return st, nil
}

// finalizeNode 节点 6：登记文档并组装结果
func (p *IngestPipeline) finalizeNode(ctx context.Context, st *ingestState, _ ...any) (*IngestResult, error) {
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}

	res := &IngestResult{}
	if st.Req != nil {
		res.Name = st.Req.Name
		res.Bytes = len(st.Req.Content)
	}
	res.ContentType = st.ContentType
	res.Chunks = len(st.UpsertedIDs)
	res.DurationMs = time.Since(st.Start).Milliseconds()

	// 原文已落对象存储就登记，索引失败的文档标记为禁用以便后续重试
	if p.docRepo != nil && st.Persisted && st.Req != nil {
		status := document.CommonStatusEnabled
		if st.Err != nil {
			status = document.CommonStatusDisabled
		}
		doc := &document.RagDocument{
			Name:        st.Req.Name,
			ContentType: st.ContentType,
			SizeBytes:   int64(len(st.Req.Content)),
			ChunkCount:  res.Chunks,
			Status:      status,
		}
		if err := p.docRepo.Upsert(ctx, doc); err != nil {
			zlog.Warn("register document failed", zap.String("name", st.Req.Name), zap.Error(err))
		}
	}

	zlog.Info(
		"doc ingest done",
		zap.String("name", res.Name),
		zap.String("content_type", res.ContentType),
		zap.Int("bytes", res.Bytes),
		zap.Int("chunks", res.Chunks),
		zap.Bool("persisted", st.Persisted),
		zap.Int64("ms", res.DurationMs),
		zap.Error(st.Err),
	)

	return res, st.Err
}

func buildChunkMetadataJSON(name, contentType string, chunkIndex int) string {
	m := map[string]any{
		"doc_name":     name,
		"content_type": contentType,
		"chunk_index":  chunkIndex,
	}
	bs, err := json.Marshal(m)
	if err != nil || len(bs) == 0 {
		return "{}"
	}
	return string(bs)
}

func metaInt(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	default:
		return 0, false
	}
}
