package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RagLink/internal/modules/rag/application/dto/request"
	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/pkg/xerr"
)

type stubRagService struct {
	lastQuestion string
	result       *respond.QueryRespond
	err          error
}

func (s *stubRagService) Ingest(ctx context.Context, name string, content []byte, contentType string) (*respond.IngestRespond, error) {
	return nil, nil
}

func (s *stubRagService) Query(ctx context.Context, req request.QueryRequest) (*respond.QueryRespond, error) {
	s.lastQuestion = req.Question
	return s.result, s.err
}

func (s *stubRagService) Delete(ctx context.Context, name string) error {
	return nil
}

func TestCompletionRendersSources(t *testing.T) {
	long := strings.Repeat("甲", 300)
	stub := &stubRagService{
		result: &respond.QueryRespond{
			Answer: "the answer",
			Sources: []respond.SourceChunk{
				{DocName: "doc.txt", ChunkIndex: 0, Score: 0.9, Content: long},
				{DocName: "other.md", ChunkIndex: 2, Score: 0.5, Content: "short snippet"},
			},
		},
	}
	svc := NewChatService(stub, "test-model")

	res, err := svc.Completion(context.Background(), request.ChatCompletionRequest{
		Messages: []request.ChatMessage{
			{Role: "system", Content: "you are helpful"},
			{Role: "user", Content: "  what is it?  "},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Choices, 1)

	assert.Equal(t, "what is it?", stub.lastQuestion)
	assert.Equal(t, "chat.completion", res.Object)
	assert.Equal(t, "test-model", res.Model)
	assert.True(t, strings.HasPrefix(res.ID, "chatcmpl-"))
	assert.Equal(t, "stop", res.Choices[0].FinishReason)
	assert.Equal(t, "assistant", res.Choices[0].Message.Role)

	content := res.Choices[0].Message.Content
	assert.True(t, strings.HasPrefix(content, "the answer"))
	assert.Contains(t, content, "\n\n**Sources:**\n")
	// 超长片段按字符截断并加省略号
	assert.Contains(t, content, "- doc.txt: "+strings.Repeat("甲", 200)+"...")
	assert.NotContains(t, content, strings.Repeat("甲", 201))
	// 短片段原样保留
	assert.Contains(t, content, "- other.md: short snippet\n")
}

func TestCompletionWithoutSources(t *testing.T) {
	stub := &stubRagService{result: &respond.QueryRespond{Answer: "plain answer"}}
	svc := NewChatService(stub, "")

	res, err := svc.Completion(context.Background(), request.ChatCompletionRequest{
		Messages: []request.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "plain answer", res.Choices[0].Message.Content)
	assert.Equal(t, "raglink", res.Model)
}

func TestCompletionEchoesRequestModel(t *testing.T) {
	stub := &stubRagService{result: &respond.QueryRespond{Answer: "ok"}}
	svc := NewChatService(stub, "configured-model")

	res, err := svc.Completion(context.Background(), request.ChatCompletionRequest{
		Model:    "client-model",
		Messages: []request.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "client-model", res.Model)

	// 未传 model 时回退到配置的模型名
	res, err = svc.Completion(context.Background(), request.ChatCompletionRequest{
		Messages: []request.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "configured-model", res.Model)
}

func TestCompletionUsesLastUserMessage(t *testing.T) {
	stub := &stubRagService{result: &respond.QueryRespond{Answer: "ok"}}
	svc := NewChatService(stub, "m")

	_, err := svc.Completion(context.Background(), request.ChatCompletionRequest{
		Messages: []request.ChatMessage{
			{Role: "user", Content: "first question"},
			{Role: "assistant", Content: "earlier reply"},
			{Role: "user", Content: "second question"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "second question", stub.lastQuestion)
}

func TestCompletionNoUserMessage(t *testing.T) {
	svc := NewChatService(&stubRagService{}, "m")

	cases := []request.ChatCompletionRequest{
		{},
		{Messages: []request.ChatMessage{{Role: "system", Content: "setup"}}},
		{Messages: []request.ChatMessage{{Role: "user", Content: "   "}}},
	}
	for _, req := range cases {
		_, err := svc.Completion(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))
		assert.Contains(t, err.Error(), "no user message found")
	}
}

func TestListModels(t *testing.T) {
	svc := NewChatService(&stubRagService{}, "my-model")

	res := svc.ListModels(context.Background())
	assert.Equal(t, "list", res.Object)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "my-model", res.Data[0].ID)
	assert.Equal(t, "model", res.Data[0].Object)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "abcde", truncateRunes("abcde", 5))
	assert.Equal(t, "abcde...", truncateRunes("abcdef", 5))
	assert.Equal(t, "你好...", truncateRunes("你好世界", 2))
}
