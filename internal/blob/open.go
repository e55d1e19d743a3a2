package blob

import (
	"context"
	"fmt"
)

// Config selects and parameterises an export destination.
type Config struct {
	Driver    Driver
	Dir       string // fs root
	Bucket    string // s3, gcs
	Region    string // s3
	Endpoint  string // s3 (MinIO), gcs (emulator)
	PathStyle bool   // s3
	Prefix    string // s3, gcs key prefix
}

// Open returns the Store named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			Prefix:    cfg.Prefix,
		})
	case DriverGCS:
		return NewGCS(ctx, GCSConfig{Bucket: cfg.Bucket, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported export driver %q", cfg.Driver)
	}
}
