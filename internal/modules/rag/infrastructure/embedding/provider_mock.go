package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/cloudwego/eino/components/embedding"
)

// MockEmbedder 本地联调用的确定性向量源：同一文本永远得到同一单位向量，
// 不同文本大概率不同，COSINE 检索在没有真实模型时也能跑通
type MockEmbedder struct {
	Dim int
}

func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	result := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, m.Dim)
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum64()
		var norm float64
		for j := 0; j < m.Dim; j++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			v := float64(int64(seed>>11)) / float64(1<<52)
			vec[j] = v
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		result[i] = vec
	}
	return result, nil
}

// 确保实现接口
var _ embedding.Embedder = (*MockEmbedder)(nil)
