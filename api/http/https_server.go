package http

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RagLink/internal/config"
	"RagLink/internal/initial"
	jwtMiddleware "RagLink/internal/middleware/jwt"
	ragService "RagLink/internal/modules/rag/application/service"
	"RagLink/internal/modules/rag/infrastructure/blob"
	"RagLink/internal/modules/rag/infrastructure/chunking"
	ragEmbedding "RagLink/internal/modules/rag/infrastructure/embedding"
	"RagLink/internal/modules/rag/infrastructure/extract"
	"RagLink/internal/modules/rag/infrastructure/llm"
	"RagLink/internal/modules/rag/infrastructure/mq"
	"RagLink/internal/modules/rag/infrastructure/mq/kafka"
	"RagLink/internal/modules/rag/infrastructure/persistence"
	"RagLink/internal/modules/rag/infrastructure/pipeline"
	"RagLink/internal/modules/rag/infrastructure/queue"
	"RagLink/internal/modules/rag/infrastructure/vectordb"
	ragHandler "RagLink/internal/modules/rag/interface/http"
	userService "RagLink/internal/modules/user/application/service"
	userPersistence "RagLink/internal/modules/user/infrastructure/persistence"
	userHandler "RagLink/internal/modules/user/interface/http"
	"RagLink/pkg/ssl"
	"RagLink/pkg/zlog"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
)

// Server 组装全部依赖并承载 HTTP 服务与后台消费者
type Server struct {
	engine    *gin.Engine
	conf      *config.Config
	milvusCli mclient.Client

	publisher mq.Publisher
	consumer  mq.Consumer
	worker    *queue.IngestConsumerWorker

	workerCancel context.CancelFunc
}

// NewServer 按配置完成全部依赖装配，任一必需依赖失败即返回错误
func NewServer(ctx context.Context, conf *config.Config) (*Server, error) {
	// 基础设施连接
	db, err := initial.NewGormDB(conf)
	if err != nil {
		return nil, fmt.Errorf("mysql init failed: %w", err)
	}
	initial.InitRedis(conf)

	milvusCli, err := initial.NewMilvusClient(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("milvus init failed: %w", err)
	}

	s3Cli := initial.NewS3Client(conf)
	blobStore, err := blob.NewS3Store(s3Cli, conf.S3Config.Region)
	if err != nil {
		return nil, err
	}
	bucket := strings.TrimSpace(conf.S3Config.Bucket)
	if bucket == "" {
		bucket = "rag-documents"
	}
	if err := initial.EnsureBucket(ctx, blobStore, bucket); err != nil {
		return nil, fmt.Errorf("ensure bucket failed: %w", err)
	}

	// AI 组件
	embedder, embMeta, err := ragEmbedding.NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	chatModel, cmMeta, err := llm.NewChatModelFromConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("chat model init failed: %w", err)
	}
	zlog.Info(fmt.Sprintf("AI 组件就绪: embedding=%s/%s dim=%d, chat=%s/%s",
		embMeta.Provider, embMeta.Model, embMeta.Dim, cmMeta.Provider, cmMeta.Model))

	vs, err := vectordb.NewMilvusStore(milvusCli, conf.MilvusConfig.CollectionName, embMeta.Dim)
	if err != nil {
		return nil, err
	}

	var chunker *chunking.SimpleChunker
	if strings.EqualFold(strings.TrimSpace(conf.RagConfig.ChunkStrategy), "recursive") {
		chunker = chunking.NewRecursiveChunker(conf.RagConfig.ChunkSize, conf.RagConfig.ChunkOverlap)
	} else {
		chunker = chunking.NewSimpleChunker(conf.RagConfig.ChunkSize, conf.RagConfig.ChunkOverlap)
	}

	// 仓储与 Pipeline
	docRepo := persistence.NewDocumentRepository(db)
	eventRepo := persistence.NewIngestEventRepository(db)

	ingestPipeline, err := pipeline.NewIngestPipeline(
		blobStore, bucket, vs, embedder, extract.NewDefaultRegistry(), chunker, docRepo, embMeta.Dim)
	if err != nil {
		return nil, err
	}
	retrievePipeline, err := pipeline.NewRetrievePipeline(
		vs, embedder, chatModel, embMeta.Dim, conf.RagConfig.DefaultTopK)
	if err != nil {
		return nil, err
	}

	ragSvc := ragService.NewRagService(ingestPipeline, retrievePipeline,
		time.Duration(conf.RagConfig.AnswerCacheTTLSeconds)*time.Second)
	chatSvc := ragService.NewChatService(ragSvc, cmMeta.Model)
	docSvc := ragService.NewDocumentService(docRepo)
	userSvc := userService.NewUserInfoService(userPersistence.NewUserInfoRepository(db))

	s := &Server{conf: conf, milvusCli: milvusCli}

	// Kafka 可选：未配置 broker 时关闭异步摄取
	var asyncSvc ragService.AsyncIngestService
	if len(conf.KafkaConfig.Brokers) > 0 {
		topic := strings.TrimSpace(conf.KafkaConfig.IngestTopic)
		if topic == "" {
			topic = "rag_ingest_events"
		}
		if err := kafka.EnsureTopic(kafka.TopicAdminConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			ClientID: conf.KafkaConfig.ClientID,
		}, topic, conf.KafkaConfig.Partitions, conf.KafkaConfig.Replication); err != nil {
			return nil, fmt.Errorf("ensure kafka topic failed: %w", err)
		}

		publisher, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			return nil, fmt.Errorf("kafka publisher init failed: %w", err)
		}
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			GroupID:  conf.KafkaConfig.ConsumerGroupID,
			Topics:   []string{topic},
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("kafka consumer init failed: %w", err)
		}

		s.publisher = publisher
		s.consumer = consumer
		asyncSvc = ragService.NewAsyncIngestService(blobStore, bucket, eventRepo, publisher, topic)
		s.worker = queue.NewIngestConsumerWorker(consumer, eventRepo, blobStore, bucket, ingestPipeline)
	} else {
		zlog.Info("Kafka 未配置，异步摄取接口关闭")
	}

	s.engine = buildEngine(conf, ragSvc, asyncSvc, chatSvc, docSvc, userSvc)
	return s, nil
}

func buildEngine(
	conf *config.Config,
	ragSvc ragService.RagService,
	asyncSvc ragService.AsyncIngestService,
	chatSvc ragService.ChatService,
	docSvc ragService.DocumentService,
	userSvc userService.UserInfoService,
) *gin.Engine {
	ge := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	ge.Use(cors.New(corsConfig))
	ge.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))

	ingestH := ragHandler.NewIngestHandler(ragSvc, asyncSvc)
	queryH := ragHandler.NewQueryHandler(ragSvc)
	chatH := ragHandler.NewChatHandler(chatSvc)
	docH := ragHandler.NewDocumentHandler(docSvc)
	userH := userHandler.NewUserInfoHandler(userSvc)

	ge.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"service": conf.AppName, "status": "running"})
	})
	ge.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	ge.POST("/user/register", userH.Register)
	ge.POST("/user/login", userH.Login)

	// OpenAI 协议接口开放给聊天前端，不要求登录
	ge.GET("/v1/models", chatH.Models)
	ge.POST("/v1/chat/completions", chatH.Completions)

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.GET("/auth/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"uuid":     c.GetString("uuid"),
			"username": c.GetString("username"),
		})
	})
	authed.POST("/ingest", ingestH.Ingest)
	authed.POST("/ingest/async", ingestH.IngestAsync)
	authed.DELETE("/documents/:name", ingestH.DeleteDocument)
	authed.GET("/documents", docH.List)
	authed.POST("/query", queryH.Query)

	return ge
}

// Run 启动后台消费者与 HTTP 服务，阻塞直到服务退出
func (s *Server) Run() error {
	if s.worker != nil {
		workerCtx, cancel := context.WithCancel(context.Background())
		s.workerCancel = cancel
		go func() {
			if err := s.worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				zlog.Error("ingest consumer exited: " + err.Error())
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", s.conf.MainConfig.Host, s.conf.MainConfig.Port)
	zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
	return s.engine.Run(addr)
}

// Shutdown 释放连接资源
func (s *Server) Shutdown(ctx context.Context) {
	if s.workerCancel != nil {
		s.workerCancel()
	}
	if s.consumer != nil {
		_ = s.consumer.Close()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.milvusCli != nil {
		_ = s.milvusCli.Close()
	}
	_ = ctx
}
