package http

import (
	"io"
	"strings"

	"RagLink/internal/modules/rag/application/dto/respond"
	"RagLink/internal/modules/rag/application/service"
	"RagLink/pkg/back"
	"RagLink/pkg/xerr"
	"RagLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 同步摄取限制单文件 32MB，超过请走异步
const maxUploadBytes = 32 << 20

// IngestHandler 文档摄取 HTTP Handler
type IngestHandler struct {
	ragSvc   service.RagService
	asyncSvc service.AsyncIngestService
}

func NewIngestHandler(ragSvc service.RagService, asyncSvc service.AsyncIngestService) *IngestHandler {
	return &IngestHandler{ragSvc: ragSvc, asyncSvc: asyncSvc}
}

// Ingest 同步摄取（multipart 上传，字段名 file）
func (h *IngestHandler) Ingest(c *gin.Context) {
	name, content, contentType, ok := readUploadFile(c)
	if !ok {
		return
	}

	data, err := h.ragSvc.Ingest(c.Request.Context(), name, content, contentType)
	back.Result(c, data, err)
}

// IngestAsync 异步摄取：原文落盘后立即返回，事件经 Kafka 投递处理
func (h *IngestHandler) IngestAsync(c *gin.Context) {
	if h.asyncSvc == nil {
		back.Error(c, xerr.ServiceUnavailable, "异步摄取未启用")
		return
	}

	name, content, contentType, ok := readUploadFile(c)
	if !ok {
		return
	}

	ev, err := h.asyncSvc.Enqueue(c.Request.Context(), name, content, contentType)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.AsyncIngestRespond{Name: ev.Name, EventID: ev.Id})
}

// DeleteDocument 删除文档的向量与原文
func (h *IngestHandler) DeleteDocument(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		back.Error(c, xerr.BadRequest, "missing document name")
		return
	}
	back.Result(c, nil, h.ragSvc.Delete(c.Request.Context(), name))
}

func readUploadFile(c *gin.Context) (name string, content []byte, contentType string, ok bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		back.Error(c, xerr.BadRequest, "missing file field")
		return "", nil, "", false
	}
	if fh.Size > maxUploadBytes {
		back.Error(c, xerr.BadRequest, "file too large")
		return "", nil, "", false
	}

	f, err := fh.Open()
	if err != nil {
		zlog.Error("open upload failed", zap.String("name", fh.Filename), zap.Error(err))
		back.Error(c, xerr.InternalServerError, xerr.ErrServerError.Message)
		return "", nil, "", false
	}
	defer f.Close()

	content, err = io.ReadAll(f)
	if err != nil {
		zlog.Error("read upload failed", zap.String("name", fh.Filename), zap.Error(err))
		back.Error(c, xerr.InternalServerError, xerr.ErrServerError.Message)
		return "", nil, "", false
	}

	return fh.Filename, content, fh.Header.Get("Content-Type"), true
}
