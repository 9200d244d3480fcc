package xerr

import (
	"errors"
	"fmt"
)

// CodeError 自定义错误结构
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

// New 创建新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

// Wrap 在保留错误分类码的同时附加底层错误信息
func Wrap(code int, msg string, err error) *CodeError {
	if err == nil {
		return New(code, msg)
	}
	return &CodeError{Code: code, Message: fmt.Sprintf("%s: %v", msg, err)}
}

// 常用通用错误码
const (
	OK                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	ExtractionFailed    = 422
	InternalServerError = 500
	ServiceUnavailable  = 502
)

// 常用预定义错误
var (
	ErrSuccess     = New(OK, "Success")
	ErrServerError = New(InternalServerError, "系统错误，请联系工作人员")
	ErrParam       = New(BadRequest, "参数错误")
)

// CodeOf 提取错误分类码；非 CodeError 一律视为系统错误
func CodeOf(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalServerError
}
