package vectordb

import (
	"context"
	"fmt"
	"strings"

	"RagLink/internal/modules/rag/domain/repository"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore 基于 Milvus 的向量存储实现
type MilvusStore struct {
	cli         client.Client
	collection  string
	vectorDim   int
	vectorField string
}

var _ repository.VectorStore = (*MilvusStore)(nil)

func NewMilvusStore(cli client.Client, collection string, vectorDim int) (*MilvusStore, error) {
	if cli == nil {
		return nil, fmt.Errorf("milvus client is nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("milvus collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vector dim: %d", vectorDim)
	}
	return &MilvusStore{
		cli:         cli,
		collection:  collection,
		vectorDim:   vectorDim,
		vectorField: "vector",
	}, nil
}

// Upsert 单批写入全部切片，要么全部提交要么整体失败
func (s *MilvusStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	docNames := make([]string, 0, len(items))
	chunkIndexes := make([]int64, 0, len(items))
	contents := make([]string, 0, len(items))
	metas := make([][]byte, 0, len(items))

	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("upsert item missing ID")
		}
		if len(it.Vector) != s.vectorDim {
			return nil, fmt.Errorf("vector dim mismatch for id=%s: got %d want %d", it.ID, len(it.Vector), s.vectorDim)
		}

		ids = append(ids, it.ID)
		vectors = append(vectors, it.Vector)
		docNames = append(docNames, it.DocName)
		chunkIndexes = append(chunkIndexes, int64(it.ChunkIndex))
		contents = append(contents, it.Content)

		m := it.MetadataJSON
		if m == "" {
			m = "{}"
		}
		metas = append(metas, []byte(m))
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"", // partition
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector(s.vectorField, s.vectorDim, vectors),
		entity.NewColumnVarChar("doc_name", docNames),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnJSONBytes("metadata", metas),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Search 余弦相似度检索，结果按相似度降序
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]repository.VectorSearchHit, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("query vector dim mismatch: got %d want %d", len(vector), s.vectorDim)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("invalid topK: %d", topK)
	}

	sp, _ := entity.NewIndexAUTOINDEXSearchParam(1)

	res, err := s.cli.Search(
		ctx,
		s.collection,
		nil,
		"",
		[]string{"id", "doc_name", "chunk_index", "content"},
		[]entity.Vector{entity.FloatVector(vector)},
		s.vectorField,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, err
	}

	hits := make([]repository.VectorSearchHit, 0)
	if len(res) > 0 {
		sr := res[0]
		if sr.Err != nil {
			return nil, sr.Err
		}

		getCol := func(name string) entity.Column {
			for _, c := range sr.Fields {
				if c.Name() == name {
					return c
				}
			}
			return nil
		}

		docNameCol := getCol("doc_name")
		chunkIndexCol := getCol("chunk_index")
		contentCol := getCol("content")

		for i := 0; i < sr.ResultCount; i++ {
			id, _ := sr.IDs.GetAsString(i)

			hit := repository.VectorSearchHit{
				ID:    id,
				Score: sr.Scores[i],
			}
			if docNameCol != nil {
				v, _ := docNameCol.GetAsString(i)
				hit.DocName = v
			}
			if chunkIndexCol != nil {
				v, _ := chunkIndexCol.GetAsInt64(i)
				hit.ChunkIndex = int(v)
			}
			if contentCol != nil {
				v, _ := contentCol.GetAsString(i)
				hit.Content = v
			}

			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// DeleteByDocName 删除某文档名下的全部向量
func (s *MilvusStore) DeleteByDocName(ctx context.Context, docName string) error {
	if docName == "" {
		return fmt.Errorf("doc name is empty")
	}
	expr := fmt.Sprintf(`doc_name == "%s"`, escapeExprString(docName))
	return s.cli.Delete(ctx, s.collection, "", expr)
}

// escapeExprString 转义 Milvus 布尔表达式里的字符串字面量。
// 先转义反斜杠再转义引号，否则以反斜杠结尾的文档名会破坏引号闭合。
func escapeExprString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
