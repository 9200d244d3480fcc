package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RagLink/pkg/xerr"
)

func TestRegistryExtractPlainText(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name        string
		contentType string
		data        []byte
		want        string
	}{
		{"plain text", "text/plain", []byte("hello"), "hello"},
		{"markdown", "text/markdown", []byte("# title"), "# title"},
		{"json", "application/json", []byte(`{"k":1}`), `{"k":1}`},
		{"charset parameter stripped", "text/plain; charset=utf-8", []byte("hi"), "hi"},
		{"empty content type defaults to plain", "", []byte("hi"), "hi"},
		{"chinese text", "text/plain", []byte("中文内容"), "中文内容"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Extract(tt.contentType, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryExtractUnsupportedType(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Extract("application/pdf", []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.Equal(t, xerr.ExtractionFailed, xerr.CodeOf(err))
}

func TestRegistryExtractInvalidUTF8(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Extract("text/plain", []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
	assert.Equal(t, xerr.ExtractionFailed, xerr.CodeOf(err))
}

func TestContentTypeOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.txt", "text/plain"},
		{"README.md", "text/markdown"},
		{"data.CSV", "text/csv"},
		{"conf.json", "application/json"},
		{"feed.xml", "application/xml"},
		{"noext", "text/plain"},
		{"weird.bin", "text/plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContentTypeOf(tt.name), tt.name)
	}
}
