package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/internal/modules/rag/domain/repository"
	"RagLink/pkg/util"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// retrieveState 问答 Pipeline 的中间状态（在节点间传递）
type retrieveState struct {
	Req         *RetrieveRequest
	TopK        int // 生效的召回数（默认值与上限处理后）
	QueryVec    []float32
	Hits        []repository.VectorSearchHit
	Answer      string
	Start       time.Time
	EmbeddingMs int64
	SearchMs    int64
	GenerateMs  int64
	Err         error
}

// buildGraph 构建问答 Pipeline 的 Eino Graph
//
// 节点顺序：Validate → EmbedQuery → SearchVector → Generate → BuildResult
func (p *RetrievePipeline) buildGraph(ctx context.Context) (compose.Runnable[*RetrieveRequest, *RetrieveResult], error) {
	const (
		Validate     = "Validate"
		EmbedQuery   = "EmbedQuery"
		SearchVector = "SearchVector"
		Generate     = "Generate"
		BuildResult  = "BuildResult"
	)
	g := compose.NewGraph[*RetrieveRequest, *RetrieveResult]()

	_ = g.AddLambdaNode(Validate, compose.InvokableLambdaWithOption(p.validateNode), compose.WithNodeName(Validate))
	_ = g.AddLambdaNode(EmbedQuery, compose.InvokableLambdaWithOption(p.embedQueryNode), compose.WithNodeName(EmbedQuery))
	_ = g.AddLambdaNode(SearchVector, compose.InvokableLambdaWithOption(p.searchVectorNode), compose.WithNodeName(SearchVector))
	_ = g.AddLambdaNode(Generate, compose.InvokableLambdaWithOption(p.generateNode), compose.WithNodeName(Generate))
	_ = g.AddLambdaNode(BuildResult, compose.InvokableLambdaWithOption(p.buildResultNode), compose.WithNodeName(BuildResult))

	_ = g.AddEdge(compose.START, Validate)
	_ = g.AddEdge(Validate, EmbedQuery)
	_ = g.AddEdge(EmbedQuery, SearchVector)
	_ = g.AddEdge(SearchVector, Generate)
	_ = g.AddEdge(Generate, BuildResult)
	_ = g.AddEdge(BuildResult, compose.END)

	return g.Compile(ctx, compose.WithGraphName("DocQueryPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

// validateNode 节点 1：校验并规范化请求
func (p *RetrievePipeline) validateNode(ctx context.Context, req *RetrieveRequest, _ ...any) (*retrieveState, error) {
	_ = ctx
	st := &retrieveState{
		Req:   req,
		Start: time.Now(),
	}
	if req == nil {
		st.Err = xerr.New(xerr.BadRequest, "nil request")
		return st, nil
	}

	question := strings.TrimSpace(req.Question)
	req.Question = question
	if question == "" {
		st.Err = xerr.New(xerr.BadRequest, "missing question")
		return st, nil
	}
	// 显式传入的非正 top_k 是调用方错误，不做静默兜底
	if req.TopK != nil && *req.TopK <= 0 {
		st.Err = xerr.New(xerr.BadRequest, fmt.Sprintf("invalid top_k: %d", *req.TopK))
		return st, nil
	}
	st.TopK = p.normalizeTopK(req.TopK)
	return st, nil
}

// embedQueryNode 节点 2：将用户问题向量化
func (p *RetrievePipeline) embedQueryNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st == nil {
		return &retrieveState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	embStart := time.Now()
	vecs, err := p.embedder.EmbedStrings(ctx, []string{st.Req.Question})
	if err != nil {
		st.Err = xerr.Wrap(xerr.ServiceUnavailable, "query embedding failed", err)
		return st, nil
	}
	if len(vecs) == 0 {
		st.Err = fmt.Errorf("embedding result is empty")
		return st, nil
	}
	vec64 := vecs[0]
	if len(vec64) != p.vectorDim {
		st.Err = fmt.Errorf("embedding dim mismatch: got=%d want=%d", len(vec64), p.vectorDim)
		return st, nil
	}
	vec32 := make([]float32, len(vec64))
	for i := range vec64 {
		vec32[i] = float32(vec64[i])
	}
	st.QueryVec = vec32
	st.EmbeddingMs = time.Since(embStart).Milliseconds()
	return st, nil
}

// searchVectorNode 节点 3：执行向量检索
func (p *RetrievePipeline) searchVectorNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st == nil {
		return &retrieveState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	searchStart := time.Now()
	hits, err := p.vs.Search(ctx, st.QueryVec, st.TopK)
	if err != nil {
		st.Err = xerr.Wrap(xerr.ServiceUnavailable, "vector search failed", err)
		return st, nil
	}
	st.Hits = hits
	st.SearchMs = time.Since(searchStart).Milliseconds()
	return st, nil
}

// generateNode 节点 4：基于召回上下文生成回答
func (p *RetrievePipeline) generateNode(ctx context.Context, st *retrieveState, _ ...any) (*retrieveState, error) {
	if st == nil {
		return &retrieveState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	genStart := time.Now()
	msgs := buildQueryMessages(st.Req.Question, st.Hits)
	out, err := p.chatModel.Generate(ctx, msgs)
	if err != nil {
		st.Err = xerr.Wrap(xerr.ServiceUnavailable, "answer generation failed", err)
		return st, nil
	}
	if out != nil {
		st.Answer = out.Content
	}
	st.GenerateMs = time.Since(genStart).Milliseconds()
	return st, nil
}

// buildResultNode 节点 5：组装最终响应结构
func (p *RetrievePipeline) buildResultNode(ctx context.Context, st *retrieveState, _ ...any) (*RetrieveResult, error) {
	_ = ctx
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}

	res := &RetrieveResult{}
	if st.Req != nil {
		res.Question = st.Req.Question
	}
	res.QueryID = "q_" + util.GenerateShortUUID()
	res.Answer = st.Answer
	res.TotalHits = len(st.Hits)
	res.EmbeddingMs = st.EmbeddingMs
	res.SearchMs = st.SearchMs
	res.GenerateMs = st.GenerateMs
	res.DurationMs = time.Since(st.Start).Milliseconds()

	// 命中内容完整返回，展示层需要截断时自行处理
	sources := make([]respond.SourceChunk, 0, len(st.Hits))
	for _, h := range st.Hits {
		sources = append(sources, respond.SourceChunk{
			DocName:    h.DocName,
			ChunkIndex: h.ChunkIndex,
			Score:      h.Score,
			Content:    h.Content,
		})
	}
	res.Sources = sources
	// 空索引是正常状态，不作为错误处理
	if res.TotalHits == 0 {
		res.IsEmpty = true
	}

	zlog.Info(
		"doc query done",
		zap.String("query_id", res.QueryID),
		zap.String("question", res.Question),
		zap.Int("top_k", st.TopK),
		zap.Int("total_hits", res.TotalHits),
		zap.Int64("embedding_ms", res.EmbeddingMs),
		zap.Int64("search_ms", res.SearchMs),
		zap.Int64("generate_ms", res.GenerateMs),
		zap.Int64("duration_ms", res.DurationMs),
		zap.Bool("is_empty", res.IsEmpty),
		zap.Error(st.Err),
	)
	return res, st.Err
}

// buildQueryMessages 组装生成用的对话消息，召回内容按相似度降序拼接
func buildQueryMessages(question string, hits []repository.VectorSearchHit) []*schema.Message {
	var sb strings.Builder
	for i, h := range hits {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(h.Content)
	}

	user := fmt.Sprintf(
		"Context information is below.\n---------------------\n%s\n---------------------\nGiven the context information and not prior knowledge, answer the query.\nQuery: %s\nAnswer: ",
		sb.String(), question,
	)
	return []*schema.Message{
		schema.SystemMessage("You are a helpful assistant that answers questions based on the provided context."),
		schema.UserMessage(user),
	}
}
