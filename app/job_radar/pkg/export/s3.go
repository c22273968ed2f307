// Package export 把会话生成的 CSV 上传到 S3 兼容的对象存储（R2、MinIO 等）。
package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
)

// Uploader 上传一个本地文件，返回对象 key
type Uploader interface {
	Upload(ctx context.Context, sessionID, localPath string) (string, error)
}

// putter s3.Client 中用到的部分
type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader 基于 aws-sdk-go-v2 的上传器
type S3Uploader struct {
	client putter
	bucket string
	prefix string
}

// NewS3Uploader 根据配置创建上传器，未配置 bucket 时返回 nil, nil
func NewS3Uploader(ctx context.Context, cfg config.S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey <prefix>/<sessionID>/<file name>
func ObjectKey(prefix, sessionID, localPath string) string {
	return path.Join(strings.Trim(prefix, "/"), sessionID, filepath.Base(localPath))
}

// Upload 实现 Uploader
func (u *S3Uploader) Upload(ctx context.Context, sessionID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	key := ObjectKey(u.prefix, sessionID, localPath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	logger.Log.Infof("CSV 已上传到 s3://%s/%s", u.bucket, key)
	return key, nil
}
