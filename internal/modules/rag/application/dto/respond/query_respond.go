package respond

// SourceChunk 回答引用的一个文档切片
type SourceChunk struct {
	DocName    string  `json:"doc_name"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Content    string  `json:"content"`
}

// QueryRespond 知识库问答响应
type QueryRespond struct {
	QueryID     string        `json:"query_id"`
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	Sources     []SourceChunk `json:"sources"`
	TotalHits   int           `json:"total_hits"`
	DurationMs  int64         `json:"duration_ms"`
	EmbeddingMs int64         `json:"embedding_ms"`
	SearchMs    int64         `json:"search_ms"`
	GenerateMs  int64         `json:"generate_ms"`
	Cached      bool          `json:"cached"`
}
