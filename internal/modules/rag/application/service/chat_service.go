package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RagLink/internal/modules/rag/application/dto/request"
	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/pkg/util"
	"RagLink/pkg/xerr"
)

const sourceSnippetLimit = 200

// ChatService OpenAI 协议的对话补全门面，供第三方聊天前端对接
type ChatService interface {
	Completion(ctx context.Context, req request.ChatCompletionRequest) (*respond.ChatCompletionRespond, error)
	ListModels(ctx context.Context) *respond.ModelListRespond
}

type chatServiceImpl struct {
	rag       RagService
	modelName string
}

func NewChatService(rag RagService, modelName string) ChatService {
	if strings.TrimSpace(modelName) == "" {
		modelName = "raglink"
	}
	return &chatServiceImpl{rag: rag, modelName: modelName}
}

func (s *chatServiceImpl) Completion(ctx context.Context, req request.ChatCompletionRequest) (*respond.ChatCompletionRespond, error) {
	if s.rag == nil {
		return nil, fmt.Errorf("rag service is nil")
	}
	question := strings.TrimSpace(req.LastUserContent())
	if question == "" {
		return nil, xerr.New(xerr.BadRequest, "no user message found")
	}

	result, err := s.rag.Query(ctx, request.QueryRequest{Question: question})
	if err != nil {
		return nil, err
	}

	content := result.Answer
	if block := renderSources(result.Sources); block != "" {
		content += block
	}

	// 客户端传了 model 就原样回显，保持 OpenAI 协议语义
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.modelName
	}

	return &respond.ChatCompletionRespond{
		ID:      "chatcmpl-" + util.GenerateShortUUID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []respond.ChatChoice{
			{
				Index: 0,
				Message: respond.ChatChoiceMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
	}, nil
}

func (s *chatServiceImpl) ListModels(ctx context.Context) *respond.ModelListRespond {
	_ = ctx
	return &respond.ModelListRespond{
		Object: "list",
		Data: []respond.ModelInfo{
			{
				ID:      s.modelName,
				Object:  "model",
				Created: time.Now().Unix(),
				OwnedBy: "raglink",
			},
		},
	}
}

// renderSources 渲染引用列表，每条引用只展示前 200 个字符的片段
func renderSources(sources []respond.SourceChunk) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n**Sources:**\n")
	for _, src := range sources {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", src.DocName, truncateRunes(src.Content, sourceSnippetLimit)))
	}
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
