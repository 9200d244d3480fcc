package chunking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/eino/schema"
)

func TestNewSimpleChunkerNormalizesParams(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		overlap     int
		wantSize    int
		wantOverlap int
	}{
		{"defaults on zero size", 0, 10, DefaultChunkSize, 10},
		{"negative size", -5, 10, DefaultChunkSize, 10},
		{"negative overlap", 100, -1, 100, 0},
		{"overlap equals size", 100, 100, 100, 50},
		{"overlap exceeds size", 100, 200, 100, 50},
		{"valid params untouched", 512, 50, 512, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSimpleChunker(tt.size, tt.overlap)
			assert.Equal(t, tt.wantSize, c.ChunkSize)
			assert.Equal(t, tt.wantOverlap, c.ChunkOverlap)
		})
	}
}

func TestChunkEmptyText(t *testing.T) {
	c := NewSimpleChunker(512, 50)
	assert.Empty(t, c.Chunk(""))
}

func TestChunkShortTextSinglePiece(t *testing.T) {
	c := NewSimpleChunker(512, 50)
	got := c.Chunk("hello world")
	require.Len(t, got, 1)
	assert.Equal(t, "hello world", got[0])
}

func TestChunkExactBoundary(t *testing.T) {
	c := NewSimpleChunker(10, 2)
	text := strings.Repeat("a", 10)
	got := c.Chunk(text)
	require.Len(t, got, 1)
	assert.Equal(t, text, got[0])
}

func TestChunkOverlapAndCoverage(t *testing.T) {
	c := NewSimpleChunker(10, 3)
	text := "abcdefghijklmnopqrstuvwxyz"
	got := c.Chunk(text)
	require.NotEmpty(t, got)

	// 每个中间片段恰好 ChunkSize 个字符，相邻片段共享 overlap 个字符
	step := c.ChunkSize - c.ChunkOverlap
	for i, chunk := range got {
		if i < len(got)-1 {
			assert.Len(t, chunk, c.ChunkSize)
		}
		assert.True(t, strings.HasPrefix(text[i*step:], chunk))
	}
	// 最后一个片段覆盖到文本末尾
	last := got[len(got)-1]
	assert.True(t, strings.HasSuffix(text, last))
}

func TestChunkMultiByteRunesNotSplit(t *testing.T) {
	c := NewSimpleChunker(4, 1)
	text := "这是一段中文测试文字"
	got := c.Chunk(text)
	require.NotEmpty(t, got)
	for _, chunk := range got {
		for _, r := range chunk {
			assert.NotEqual(t, '�', r)
		}
		assert.LessOrEqual(t, len([]rune(chunk)), 4)
	}
	// 重组后包含全部原始字符
	assert.Contains(t, strings.Join(got, ""), "文字")
}

func TestChunkDeterministic(t *testing.T) {
	c := NewSimpleChunker(16, 4)
	text := strings.Repeat("the quick brown fox ", 20)
	first := c.Chunk(text)
	second := c.Chunk(text)
	assert.Equal(t, first, second)
}

func TestChunkDocumentsCarriesMetadata(t *testing.T) {
	c := NewSimpleChunker(5, 1)
	docs := []*schema.Document{
		{Content: "abcdefghij", MetaData: map[string]any{"doc_name": "a.txt"}},
		nil,
	}
	out, err := c.ChunkDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for i, d := range out {
		assert.Equal(t, "a.txt", d.MetaData["doc_name"])
		assert.Equal(t, i, d.MetaData["chunk_index"])
	}
}

func TestChunkDocumentsEmptyInput(t *testing.T) {
	c := NewSimpleChunker(512, 50)
	out, err := c.ChunkDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
