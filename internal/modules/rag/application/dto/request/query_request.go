package request

// QueryRequest 知识库问答请求。TopK 用指针区分"未传"（走默认值）与显式传 0（参数错误）
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     *int   `json:"top_k"`
}
