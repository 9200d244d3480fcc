package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"RagLink/internal/modules/rag/domain/document"
	"RagLink/internal/modules/rag/domain/repository"
	"RagLink/pkg/util"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeBlobStore 内存对象存储
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (f *fakeBlobStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return true, nil
}

func (f *fakeBlobStore) MakeBucket(ctx context.Context, bucket string) error { return nil }

func (f *fakeBlobStore) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = cp
	return nil
}

func (f *fakeBlobStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeBlobStore) RemoveObject(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

var _ repository.BlobStore = (*fakeBlobStore)(nil)

// fakeVectorStore 内存向量库，Search 用余弦相似度
type fakeVectorStore struct {
	mu        sync.Mutex
	items     map[string]repository.VectorUpsertItem
	upsertErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{items: map[string]repository.VectorUpsertItem{}}
}

func (f *fakeVectorStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(items))
	for _, it := range items {
		f.items[it.ID] = it
		ids = append(ids, it.ID)
	}
	return ids, nil
}

func (f *fakeVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]repository.VectorSearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hits := make([]repository.VectorSearchHit, 0, len(f.items))
	for _, it := range f.items {
		hits = append(hits, repository.VectorSearchHit{
			ID:         it.ID,
			Score:      cosine(vector, it.Vector),
			DocName:    it.DocName,
			ChunkIndex: it.ChunkIndex,
			Content:    it.Content,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeVectorStore) DeleteByDocName(ctx context.Context, docName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, it := range f.items {
		if it.DocName == docName {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeVectorStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

var _ repository.VectorStore = (*fakeVectorStore)(nil)

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// bagEmbedder 基于词袋哈希的确定性向量化，语义相近的文本向量相近
type bagEmbedder struct {
	dim      int
	embedErr error
	badDim   bool
}

func newBagEmbedder(dim int) *bagEmbedder {
	return &bagEmbedder{dim: dim}
}

func (e *bagEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	dim := e.dim
	if e.badDim {
		dim = e.dim + 1
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			w = strings.Trim(w, ".,!?;:\"'()")
			if w == "" {
				continue
			}
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[int(h.Sum32())%dim]++
		}
		out[i] = vec
	}
	return out, nil
}

var _ embedding.Embedder = (*bagEmbedder)(nil)

// echoChatModel 从上下文中选出与问题词重叠最多的一行作为回答
type echoChatModel struct {
	genErr error
}

func (m *echoChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.genErr != nil {
		return nil, m.genErr
	}
	if len(input) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	prompt := input[len(input)-1].Content

	query := ""
	if i := strings.LastIndex(prompt, "Query:"); i >= 0 {
		query = prompt[i+len("Query:"):]
		if j := strings.Index(query, "\n"); j >= 0 {
			query = query[:j]
		}
	}
	queryWords := wordSet(query)

	best := ""
	bestOverlap := -1
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "---") || strings.HasPrefix(line, "Query:") ||
			strings.HasPrefix(line, "Context information") || strings.HasPrefix(line, "Given the context") {
			continue
		}
		overlap := 0
		for w := range wordSet(line) {
			if _, ok := queryWords[w]; ok {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = line
		}
	}
	return schema.AssistantMessage(best, nil), nil
}

func (m *echoChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

var _ model.BaseChatModel = (*echoChatModel)(nil)

func wordSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

// fakeDocRepo 内存文档登记
type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[string]*document.RagDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[string]*document.RagDocument{}}
}

func (f *fakeDocRepo) Upsert(ctx context.Context, doc *document.RagDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.Name] = &cp
	return nil
}

func (f *fakeDocRepo) List(ctx context.Context, offset, limit int) ([]document.RagDocument, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]document.RagDocument, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDocRepo) GetByName(ctx context.Context, name string) (*document.RagDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[name]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocRepo) DeleteByName(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, name)
	return nil
}

var _ repository.DocumentRepository = (*fakeDocRepo)(nil)

func fmtChunkID(name string, idx int) string {
	return "v_" + util.Sha256Hex([]byte(fmt.Sprintf("%s|%d", name, idx)))[:48]
}
