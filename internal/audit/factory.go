package audit

import (
	"context"
	"fmt"

	"shardback/internal/config"
	"shardback/internal/sb"
)

// NewSinkFromConfig creates an audit sink based on the audit config
// type. Type "none" (or an empty type) disables publishing entirely.
func NewSinkFromConfig(ctx context.Context, cfg config.AuditConfig, logger sb.Logger) (sb.AuditSink, error) {
	switch cfg.Type {
	case "", "none":
		return sb.NopSink{}, nil
	case "memory":
		return NewMemorySink(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem audit sink requires dir to be set")
		}
		return NewFileSink(cfg.Dir, logger)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 audit sink requires s3_bucket to be set")
		}
		return NewS3Sink(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown audit sink type: %s", cfg.Type)
	}
}
