package pipeline

import (
	"context"
	"fmt"

	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/internal/modules/rag/domain/repository"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
)

// RetrieveRequest 知识库问答 Pipeline 的输入请求
type RetrieveRequest struct {
	Question string // 用户问题（必填）
	TopK     *int   // 召回切片数；nil 取配置默认值，显式 <=0 是参数错误，上限 50
}

// RetrieveResult 知识库问答 Pipeline 的输出结果
type RetrieveResult struct {
	QueryID     string                // 本次查询唯一 ID（便于追踪回放）
	Question    string                // 原始用户问题
	Answer      string                // 生成的回答
	Sources     []respond.SourceChunk // 回答引用的切片（按相似度降序）
	TotalHits   int                   // 向量库返回的命中数
	DurationMs  int64                 // 总耗时（毫秒）
	EmbeddingMs int64                 // 问题向量化耗时（毫秒）
	SearchMs    int64                 // 向量检索耗时（毫秒）
	GenerateMs  int64                 // 回答生成耗时（毫秒）
	IsEmpty     bool                  // 是否未命中任何切片
}

// RetrievePipeline 知识库问答 Pipeline（基于 Eino compose.Graph）
//
// 只依赖 domain 层接口与 Eino 组件抽象，不直接依赖具体 SDK。
type RetrievePipeline struct {
	vs        repository.VectorStore
	embedder  embedding.Embedder
	chatModel model.BaseChatModel

	vectorDim   int
	defaultTopK int
	r           compose.Runnable[*RetrieveRequest, *RetrieveResult]
}

func NewRetrievePipeline(
	vs repository.VectorStore,
	embedder embedding.Embedder,
	chatModel model.BaseChatModel,
	vectorDim int,
	defaultTopK int,
) (*RetrievePipeline, error) {
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vector dim: %d", vectorDim)
	}
	if defaultTopK <= 0 {
		defaultTopK = 3
	}

	p := &RetrievePipeline{
		vs:          vs,
		embedder:    embedder,
		chatModel:   chatModel,
		vectorDim:   vectorDim,
		defaultTopK: defaultTopK,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Retrieve 执行问答（封装 Eino Runnable.Invoke）
func (p *RetrievePipeline) Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResult, error) {
	if req == nil {
		return nil, fmt.Errorf("retrieve request is nil")
	}
	if p.r == nil {
		return nil, fmt.Errorf("pipeline runnable is nil")
	}
	return p.r.Invoke(ctx, req)
}

// normalizeTopK 解析生效的 TopK：未传取默认值，超出上限截到 50。
// 显式非正值在 validateNode 已被拒绝，这里不再出现。
func (p *RetrievePipeline) normalizeTopK(topK *int) int {
	if topK == nil {
		return p.defaultTopK
	}
	if *topK > 50 {
		return 50
	}
	return *topK
}
