package blob

import (
	"context"
	"fmt"

	"incidentdesk/internal/infra/blob/fs"
	"incidentdesk/internal/infra/blob/memory"
	"incidentdesk/internal/infra/blob/s3"
)

// S3Config is the bucket configuration for the s3 driver.
type S3Config = s3.Config

// Config selects and configures a blob driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the Store named by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
