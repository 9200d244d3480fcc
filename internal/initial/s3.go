package initial

import (
	"context"
	"strings"

	"RagLink/internal/config"
	"RagLink/internal/modules/rag/domain/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client 连接 S3 协议的对象存储（MinIO 等）
func NewS3Client(conf *config.Config) *s3.Client {
	region := strings.TrimSpace(conf.S3Config.Region)
	if region == "" {
		region = "us-east-1"
	}
	return s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(conf.S3Config.Endpoint)
		o.Credentials = credentials.NewStaticCredentialsProvider(conf.S3Config.AccessKey, conf.S3Config.SecretKey, "")
		// MinIO 需要 path-style 访问
		o.UsePathStyle = true
	})
}

// EnsureBucket 确保文档桶存在，并发创建时的冲突由存储层容忍
func EnsureBucket(ctx context.Context, store repository.BlobStore, bucket string) error {
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return store.MakeBucket(ctx, bucket)
}
