package mq

import "context"

// Message 摄取事件在 broker 上的载体，Key 放文档名保证同名文档进同一分区
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

// Publisher 发布摄取事件；失败时调用方负责把事件标记为失败
type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

// Handler 返回 nil 才提交位点，错误会让消息在下次重平衡后重投
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}
