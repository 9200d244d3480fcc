package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"RagLink/pkg/xerr"
)

// Extractor 从原始字节中提取可索引的纯文本
type Extractor interface {
	// ContentTypes 返回该提取器支持的 MIME 类型
	ContentTypes() []string
	Extract(data []byte) (string, error)
}

// plainTextExtractor 处理纯文本族：原样透传，仅校验编码
type plainTextExtractor struct{}

func (plainTextExtractor) ContentTypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"application/json",
		"application/xml",
	}
}

func (plainTextExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", xerr.New(xerr.ExtractionFailed, "文档不是合法的 UTF-8 文本")
	}
	return string(data), nil
}

// Registry 按内容类型路由到对应的提取器
type Registry struct {
	byContentType map[string]Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byContentType: make(map[string]Extractor)}
	for _, e := range extractors {
		for _, ct := range e.ContentTypes() {
			r.byContentType[ct] = e
		}
	}
	return r
}

// NewDefaultRegistry 注册内置提取器
func NewDefaultRegistry() *Registry {
	return NewRegistry(plainTextExtractor{})
}

// Extract 提取文本；不支持的内容类型返回 422
func (r *Registry) Extract(contentType string, data []byte) (string, error) {
	ct := normalizeContentType(contentType)
	e, ok := r.byContentType[ct]
	if !ok {
		return "", xerr.New(xerr.ExtractionFailed, fmt.Sprintf("不支持的内容类型: %s", ct))
	}
	return e.Extract(data)
}

// ContentTypeOf 根据文件名后缀推断内容类型，未知后缀按纯文本处理
func ContentTypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".txt", ".log", ".text", "":
		return "text/plain"
	default:
		return "text/plain"
	}
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	if ct == "" {
		return "text/plain"
	}
	return ct
}
