package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ivlev/adreel/internal/jobs"
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// UsePathStyle is needed by most S3-compatible stores (MinIO and the like).
	UsePathStyle bool
}

// S3Uploader copies finished videos to a bucket.
type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	log    *zap.Logger
}

// NewS3Uploader loads credentials from the default AWS chain.
func NewS3Uploader(ctx context.Context, cfg S3Config, log *zap.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Prefix, log), nil
}

func NewS3UploaderWithClient(client ObjectPutter, bucket, prefix string, log *zap.Logger) *S3Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &S3Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), log: log}
}

// Key is the object key for a job's video.
func (u *S3Uploader) Key(jobID string) string {
	name := "video_" + jobID + ".mp4"
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload implements jobs.Uploader and returns an s3:// URL.
func (u *S3Uploader) Upload(ctx context.Context, j jobs.Job, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := u.Key(j.ID)
	disposition := fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(key))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(u.bucket),
		Key:                aws.String(key),
		Body:               f,
		ContentLength:      aws.Int64(info.Size()),
		ContentType:        aws.String("video/mp4"),
		ContentDisposition: aws.String(disposition),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	u.log.Info("video uploaded",
		zap.String("job_id", j.ID),
		zap.String("bucket", u.bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size()))
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
