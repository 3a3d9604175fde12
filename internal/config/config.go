// Package config reads process configuration from INCIDENTDESK_* environment
// variables.
//
//	INCIDENTDESK_ADDR              listen address (default :8080)
//	INCIDENTDESK_LOG_LEVEL         debug|info|warn|error (default info)
//	INCIDENTDESK_LOG_FORMAT        text|json (default text)
//	INCIDENTDESK_OCCUPANT_MATCH    exact|contains (default exact)
//	INCIDENTDESK_PAGE_SIZE         default table page size (default 5)
//	INCIDENTDESK_SHUTDOWN_TIMEOUT  graceful shutdown budget (default 10s)
//	INCIDENTDESK_TRACE_FILE        JSON lines trace output (optional)
//	INCIDENTDESK_MIRROR_DRIVER     none|sqlite|postgres (default none)
//	INCIDENTDESK_SQLITE_PATH       sqlite mirror file (default incidentdesk.db)
//	INCIDENTDESK_POSTGRES_DSN      postgres mirror DSN
//	INCIDENTDESK_BLOB_DRIVER       none|fs|s3|memory (default fs)
//	INCIDENTDESK_BLOB_FS_ROOT      export directory when driver=fs (default ./exports)
//	INCIDENTDESK_BLOB_S3_BUCKET    bucket, required when driver=s3
//	INCIDENTDESK_BLOB_S3_REGION    region (default us-east-1)
//	INCIDENTDESK_BLOB_S3_ENDPOINT  custom endpoint, e.g. MinIO
//	INCIDENTDESK_BLOB_S3_PATH_STYLE true|false
//	INCIDENTDESK_BLOB_S3_PREFIX    key prefix inside the bucket
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"incidentdesk/internal/blob"
	"incidentdesk/internal/core"
)

const envPrefix = "INCIDENTDESK_"

// MirrorDriver names the optional SQL mirror backend.
type MirrorDriver string

const (
	MirrorNone     MirrorDriver = "none"
	MirrorSQLite   MirrorDriver = "sqlite"
	MirrorPostgres MirrorDriver = "postgres"
)

// BlobNone disables exports.
const BlobNone blob.Driver = "none"

// Mirror configures the SQL mirror.
type Mirror struct {
	Driver      MirrorDriver
	SQLitePath  string
	PostgresDSN string
}

// Config is the resolved process configuration.
type Config struct {
	Addr            string
	LogLevel        slog.Level
	LogJSON         bool
	OccupantMatch   core.OccupantMatch
	PageSize        int
	ShutdownTimeout time.Duration
	TraceFile       string
	Mirror          Mirror
	Blob            blob.Config
}

// ExportsEnabled reports whether a blob driver is configured.
func (c Config) ExportsEnabled() bool { return c.Blob.Driver != BlobNone }

// Load reads the environment, applying defaults. All invalid values are
// reported together.
func Load() (Config, error) {
	cfg := Config{
		Addr:            get("ADDR", ":8080"),
		PageSize:        core.DefaultPageSize,
		ShutdownTimeout: 10 * time.Second,
		TraceFile:       get("TRACE_FILE", ""),
		Mirror: Mirror{
			Driver:      MirrorDriver(strings.ToLower(get("MIRROR_DRIVER", string(MirrorNone)))),
			SQLitePath:  get("SQLITE_PATH", "incidentdesk.db"),
			PostgresDSN: get("POSTGRES_DSN", ""),
		},
		Blob: blob.Config{
			Driver: blob.Driver(strings.ToLower(get("BLOB_DRIVER", string(blob.DriverFilesystem)))),
			FSRoot: get("BLOB_FS_ROOT", "./exports"),
			S3: blob.S3Config{
				Bucket:          get("BLOB_S3_BUCKET", ""),
				Region:          get("BLOB_S3_REGION", ""),
				Endpoint:        get("BLOB_S3_ENDPOINT", ""),
				Prefix:          get("BLOB_S3_PREFIX", ""),
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			},
		},
	}

	var errs []error
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err))
	}
	switch format := strings.ToLower(get("LOG_FORMAT", "text")); format {
	case "text":
	case "json":
		cfg.LogJSON = true
	default:
		errs = append(errs, fmt.Errorf("%sLOG_FORMAT: unknown format %q", envPrefix, format))
	}
	match, err := core.ParseOccupantMatch(strings.ToLower(get("OCCUPANT_MATCH", "")))
	if err != nil {
		errs = append(errs, fmt.Errorf("%sOCCUPANT_MATCH: %w", envPrefix, err))
	}
	cfg.OccupantMatch = match
	if raw := get("PAGE_SIZE", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%sPAGE_SIZE: must be a positive integer, got %q", envPrefix, raw))
		}
		cfg.PageSize = n
	}
	if raw := get("SHUTDOWN_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%sSHUTDOWN_TIMEOUT: must be a positive duration, got %q", envPrefix, raw))
		}
		cfg.ShutdownTimeout = d
	}
	if raw := get("BLOB_S3_PATH_STYLE", ""); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sBLOB_S3_PATH_STYLE: %w", envPrefix, err))
		}
		cfg.Blob.S3.PathStyle = v
	}

	switch cfg.Mirror.Driver {
	case MirrorNone, MirrorSQLite:
	case MirrorPostgres:
		if cfg.Mirror.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%sPOSTGRES_DSN required for postgres mirror", envPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%sMIRROR_DRIVER: unknown driver %q", envPrefix, cfg.Mirror.Driver))
	}
	switch cfg.Blob.Driver {
	case BlobNone, blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if cfg.Blob.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("%sBLOB_S3_BUCKET required for s3 driver", envPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%sBLOB_DRIVER: unknown driver %q", envPrefix, cfg.Blob.Driver))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func get(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
