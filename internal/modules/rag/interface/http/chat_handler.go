package http

import (
	"net/http"

	"RagLink/internal/modules/rag/application/dto/request"
	"RagLink/internal/modules/rag/application/service"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler OpenAI 协议的对话接口，响应结构与官方 API 对齐（不走统一响应包装）
type ChatHandler struct {
	chatSvc service.ChatService
}

func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// Completions POST /v1/chat/completions
func (h *ChatHandler) Completions(c *gin.Context) {
	var req request.ChatCompletionRequest
	if err := c.BindJSON(&req); err != nil {
		openAIError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := h.chatSvc.Completion(c.Request.Context(), req)
	if err != nil {
		zlog.Warn("chat completion failed", zap.Error(err))
		switch xerr.CodeOf(err) {
		case xerr.BadRequest:
			openAIError(c, http.StatusBadRequest, err.Error())
		case xerr.ServiceUnavailable:
			openAIError(c, http.StatusBadGateway, err.Error())
		default:
			openAIError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	c.JSON(http.StatusOK, data)
}

// Models GET /v1/models
func (h *ChatHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatSvc.ListModels(c.Request.Context()))
}

func openAIError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": msg,
			"type":    "invalid_request_error",
		},
	})
}
