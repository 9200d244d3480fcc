package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RagLink/internal/modules/rag/infrastructure/chunking"
	"RagLink/internal/modules/rag/infrastructure/extract"
)

type queryEnv struct {
	*ingestEnv
	chat *echoChatModel
	rp   *RetrievePipeline
}

func newQueryEnv(t *testing.T) *queryEnv {
	t.Helper()
	ie := &ingestEnv{
		blob:    newFakeBlobStore(),
		vs:      newFakeVectorStore(),
		emb:     newBagEmbedder(testDim),
		docRepo: newFakeDocRepo(),
	}
	ip, err := NewIngestPipeline(
		ie.blob, "docs", ie.vs, ie.emb,
		extract.NewDefaultRegistry(),
		chunking.NewSimpleChunker(512, 50),
		ie.docRepo, testDim,
	)
	require.NoError(t, err)
	ie.p = ip

	chat := &echoChatModel{}
	rp, err := NewRetrievePipeline(ie.vs, ie.emb, chat, testDim, 3)
	require.NoError(t, err)
	return &queryEnv{ingestEnv: ie, chat: chat, rp: rp}
}

func (e *queryEnv) mustIngest(t *testing.T, name, text string) {
	t.Helper()
	_, err := e.p.Ingest(context.Background(), &IngestRequest{Name: name, Content: []byte(text)})
	require.NoError(t, err)
}

func intPtr(v int) *int { return &v }

func TestQueryAnswersFromIngestedDocuments(t *testing.T) {
	env := newQueryEnv(t)
	env.mustIngest(t, "facts.txt", "The capital of France is Paris.")
	env.mustIngest(t, "other.txt", "Bananas are rich in potassium.")

	res, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{
		Question: "What is the capital of France?",
		TopK:     intPtr(2),
	})
	require.NoError(t, err)

	assert.Contains(t, res.Answer, "Paris")
	assert.False(t, res.IsEmpty)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "facts.txt", res.Sources[0].DocName)
	assert.NotEmpty(t, res.QueryID)
}

func TestQuerySourcesOrderedByScore(t *testing.T) {
	env := newQueryEnv(t)
	env.mustIngest(t, "a.txt", "cats like sleeping in warm places")
	env.mustIngest(t, "b.txt", "the stock market closed higher today")
	env.mustIngest(t, "c.txt", "dogs and cats are common pets")

	res, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{
		Question: "tell me about cats",
		TopK:     intPtr(3),
	})
	require.NoError(t, err)
	require.Len(t, res.Sources, 3)

	for i := 1; i < len(res.Sources); i++ {
		assert.GreaterOrEqual(t, res.Sources[i-1].Score, res.Sources[i].Score)
	}
	// 命中内容完整返回，不做截断
	for _, src := range res.Sources {
		assert.NotEmpty(t, src.Content)
		assert.NotContains(t, src.Content, "...")
	}
}

func TestQueryEmptyIndexIsNotAnError(t *testing.T) {
	env := newQueryEnv(t)

	res, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "anything?"})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 0, res.TotalHits)
}

func TestQueryValidation(t *testing.T) {
	env := newQueryEnv(t)

	_, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing question")

	// 显式传入的 0 和负数都是参数错误，不走默认值兜底
	for _, k := range []int{0, -1} {
		_, err = env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "q", TopK: intPtr(k)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid top_k")
	}
}

func TestQueryTopKNormalization(t *testing.T) {
	env := newQueryEnv(t)
	for i, text := range []string{
		"go is a compiled language",
		"go has goroutines for concurrency",
		"go modules manage dependencies",
		"go fmt formats source code",
		"go test runs unit tests",
	} {
		env.mustIngest(t, strings.Repeat("f", i+1)+".txt", text)
	}

	// 未传 TopK 时取默认值 3
	res, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "go language"})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 3)

	// TopK 大于可用数量时全部返回
	res, err = env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "go language", TopK: intPtr(50)})
	require.NoError(t, err)
	assert.Len(t, res.Sources, 5)
}

func TestQueryGenerationFailure(t *testing.T) {
	env := newQueryEnv(t)
	env.mustIngest(t, "x.txt", "some content here")
	env.chat.genErr = errors.New("ollama unreachable")

	_, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "some content"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer generation failed")
}

func TestQueryEmbeddingFailure(t *testing.T) {
	env := newQueryEnv(t)
	env.emb.embedErr = errors.New("tei unreachable")

	_, err := env.rp.Retrieve(context.Background(), &RetrieveRequest{Question: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query embedding failed")
}
