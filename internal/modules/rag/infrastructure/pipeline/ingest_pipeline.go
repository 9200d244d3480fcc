package pipeline

import (
	"context"
	"fmt"
	"strings"

	"RagLink/internal/modules/rag/domain/repository"
	"RagLink/internal/modules/rag/infrastructure/chunking"
	"RagLink/internal/modules/rag/infrastructure/extract"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"
)

// IngestRequest 文档摄取请求
type IngestRequest struct {
	Name        string // 文档名，同时作为对象存储 key 与溯源标签
	Content     []byte // 原始文档内容
	ContentType string // 可选，为空时按文件名后缀推断
}

// IngestResult 文档摄取结果
type IngestResult struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
	Chunks      int    `json:"chunks"`
	DurationMs  int64  `json:"duration_ms"`
}

// IngestPipeline 文档摄取 Pipeline（基于 Eino compose.Graph）
//
// 节点顺序：Persist → Extract → Chunk → Embed → Upsert → Finalize
// 原文先落对象存储再做索引，后续任一步骤失败原文都已持久化。
type IngestPipeline struct {
	blob     repository.BlobStore
	bucket   string
	vs       repository.VectorStore
	embedder embedding.Embedder
	extract  *extract.Registry
	chunker  *chunking.SimpleChunker
	docRepo  repository.DocumentRepository

	vectorDim int
	r         compose.Runnable[*IngestRequest, *IngestResult]
}

func NewIngestPipeline(
	blob repository.BlobStore,
	bucket string,
	vs repository.VectorStore,
	embedder embedding.Embedder,
	extractors *extract.Registry,
	chunker *chunking.SimpleChunker,
	docRepo repository.DocumentRepository,
	vectorDim int,
) (*IngestPipeline, error) {
	if blob == nil {
		return nil, fmt.Errorf("blob store is nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is empty")
	}
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if extractors == nil {
		extractors = extract.NewDefaultRegistry()
	}
	if chunker == nil {
		chunker = chunking.NewSimpleChunker(chunking.DefaultChunkSize, chunking.DefaultChunkOverlap)
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vector dim: %d", vectorDim)
	}

	p := &IngestPipeline{
		blob:      blob,
		bucket:    bucket,
		vs:        vs,
		embedder:  embedder,
		extract:   extractors,
		chunker:   chunker,
		docRepo:   docRepo,
		vectorDim: vectorDim,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Ingest 执行文档摄取（封装 Eino Runnable.Invoke）
func (p *IngestPipeline) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if req == nil {
		return nil, fmt.Errorf("ingest request is nil")
	}
	return p.r.Invoke(ctx, req)
}

// DeleteDocument 删除文档的向量与原文
func (p *IngestPipeline) DeleteDocument(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("doc name is empty")
	}
	if err := p.vs.DeleteByDocName(ctx, name); err != nil {
		return err
	}
	if err := p.blob.RemoveObject(ctx, p.bucket, name); err != nil {
		return err
	}
	if p.docRepo != nil {
		return p.docRepo.DeleteByName(ctx, name)
	}
	return nil
}
