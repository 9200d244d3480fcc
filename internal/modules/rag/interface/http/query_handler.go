package http

import (
	"RagLink/internal/modules/rag/application/dto/request"
	"RagLink/internal/modules/rag/application/service"
	"RagLink/pkg/back"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"github.com/gin-gonic/gin"
)

// QueryHandler 知识库问答 HTTP Handler
type QueryHandler struct {
	ragSvc service.RagService
}

func NewQueryHandler(ragSvc service.RagService) *QueryHandler {
	return &QueryHandler{ragSvc: ragSvc}
}

// Query 知识库问答
func (h *QueryHandler) Query(c *gin.Context) {
	var req request.QueryRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.ragSvc.Query(c.Request.Context(), req)
	back.Result(c, data, err)
}
