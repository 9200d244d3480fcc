package respond

// IngestRespond 同步摄取响应
type IngestRespond struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	Chunks      int    `json:"chunks"`
	DurationMs  int64  `json:"duration_ms"`
}

// AsyncIngestRespond 异步摄取响应，EventID 可用于追踪处理进度
type AsyncIngestRespond struct {
	Name    string `json:"name"`
	EventID int64  `json:"event_id"`
}

// DocumentRespond 文档登记信息
type DocumentRespond struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ChunkCount  int    `json:"chunk_count"`
	Status      int8   `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// DocumentListRespond 文档列表响应
type DocumentListRespond struct {
	Total int64             `json:"total"`
	Items []DocumentRespond `json:"items"`
}
