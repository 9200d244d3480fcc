package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeExprString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"普通文档名", "report.txt", "report.txt"},
		{"带引号", `a"b.txt`, `a\"b.txt`},
		{"带反斜杠", `dir\file.txt`, `dir\\file.txt`},
		{"反斜杠结尾不破坏引号闭合", `evil\`, `evil\\`},
		{"反斜杠加引号", `x\"y`, `x\\\"y`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeExprString(tt.in))
		})
	}
}

func TestNewMilvusStoreValidation(t *testing.T) {
	_, err := NewMilvusStore(nil, "rag_collection", 1024)
	assert.Error(t, err)
}
