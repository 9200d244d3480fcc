package http

import (
	"strconv"

	"RagLink/internal/modules/rag/application/service"
	"RagLink/pkg/back"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 文档登记查询 HTTP Handler
type DocumentHandler struct {
	docSvc service.DocumentService
}

func NewDocumentHandler(docSvc service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docSvc: docSvc}
}

// List GET /documents?page=1&page_size=20
func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	data, err := h.docSvc.List(c.Request.Context(), page, pageSize)
	back.Result(c, data, err)
}
