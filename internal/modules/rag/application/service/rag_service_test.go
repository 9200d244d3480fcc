package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RagLink/internal/modules/rag/application/dto/request"
	"RagLink/pkg/xerr"
)

func topKPtr(v int) *int { return &v }

func TestRagServiceQueryValidation(t *testing.T) {
	svc := NewRagService(nil, nil, 0)

	tests := []struct {
		name string
		req  request.QueryRequest
		msg  string
	}{
		{"empty question", request.QueryRequest{Question: ""}, "question is required"},
		{"whitespace question", request.QueryRequest{Question: "   "}, "question is required"},
		{"zero top_k", request.QueryRequest{Question: "q", TopK: topKPtr(0)}, "invalid top_k"},
		{"negative top_k", request.QueryRequest{Question: "q", TopK: topKPtr(-3)}, "invalid top_k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Query(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRagServiceIngestValidation(t *testing.T) {
	svc := NewRagService(nil, nil, 0)

	_, err := svc.Ingest(context.Background(), "  ", []byte("x"), "")
	require.Error(t, err)
	assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))

	_, err = svc.Ingest(context.Background(), "a.txt", nil, "")
	require.Error(t, err)
	assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))
}

func TestRagServiceDeleteValidation(t *testing.T) {
	svc := NewRagService(nil, nil, 0)

	err := svc.Delete(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, xerr.BadRequest, xerr.CodeOf(err))
}

func TestAnswerCacheKeyStable(t *testing.T) {
	k1 := answerCacheKey("what is go", 3)
	k2 := answerCacheKey("what is go", 3)
	k3 := answerCacheKey("what is go", 5)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "rag:answer:")
}
