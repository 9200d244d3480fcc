package xerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, BadRequest, CodeOf(New(BadRequest, "参数错误")))
	assert.Equal(t, ServiceUnavailable, CodeOf(Wrap(ServiceUnavailable, "上游失败", errors.New("timeout"))))

	// 包装后仍然能提取分类码
	wrapped := fmt.Errorf("outer: %w", New(ExtractionFailed, "解析失败"))
	assert.Equal(t, ExtractionFailed, CodeOf(wrapped))

	// 非 CodeError 一律按系统错误处理
	assert.Equal(t, InternalServerError, CodeOf(errors.New("plain")))
}

func TestWrapKeepsUnderlyingMessage(t *testing.T) {
	err := Wrap(ServiceUnavailable, "向量写入失败", errors.New("connection refused"))
	assert.Equal(t, ServiceUnavailable, err.Code)
	assert.Contains(t, err.Message, "向量写入失败")
	assert.Contains(t, err.Message, "connection refused")

	assert.Equal(t, BadRequest, Wrap(BadRequest, "仅分类", nil).Code)
}
