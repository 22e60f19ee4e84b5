package audit

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"shardback/internal/config"
	"shardback/internal/sb"
)

// S3Sink uploads run manifests to an S3 (or S3-compatible) bucket so
// the audit trail survives the backup host itself.
type S3Sink struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   sb.Logger
}

// NewS3Sink builds a sink from the audit configuration. Credentials
// come from the ambient AWS chain (environment, shared config, instance
// role) unless the config pins static keys.
func NewS3Sink(ctx context.Context, cfg config.AuditConfig, logger sb.Logger) (*S3Sink, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	if cfg.S3Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.S3Endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style keeps S3-compatible endpoints working without
		// wildcard DNS.
		o.UsePathStyle = cfg.S3Endpoint != ""
	})

	return &S3Sink{
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		logger:   logger,
	}, nil
}

// Publish uploads the manifest as <prefix>/<runID>.json.
func (s *S3Sink) Publish(ctx context.Context, runID string, manifest []byte) error {
	key := path.Join(s.prefix, runID+".json")
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(manifest),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading manifest to s3://%s/%s: %w", s.bucket, key, err)
	}
	s.logger.Debug("manifest uploaded", "bucket", s.bucket, "key", key)
	return nil
}

// Compile-time check that S3Sink implements sb.AuditSink.
var _ sb.AuditSink = (*S3Sink)(nil)
