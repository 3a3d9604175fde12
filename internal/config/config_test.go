package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"incidentdesk/internal/blob"
	"incidentdesk/internal/core"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.LogLevel != slog.LevelInfo || cfg.LogJSON {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.OccupantMatch != core.OccupantMatchExact || cfg.PageSize != core.DefaultPageSize {
		t.Fatalf("unexpected board defaults %+v", cfg)
	}
	if cfg.Mirror.Driver != MirrorNone || cfg.Blob.Driver != blob.DriverFilesystem || cfg.Blob.FSRoot != "./exports" {
		t.Fatalf("unexpected driver defaults %+v", cfg)
	}
	if cfg.ShutdownTimeout != 10*time.Second || !cfg.ExportsEnabled() {
		t.Fatalf("unexpected shutdown/exports defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INCIDENTDESK_ADDR", "127.0.0.1:9000")
	t.Setenv("INCIDENTDESK_LOG_LEVEL", "debug")
	t.Setenv("INCIDENTDESK_LOG_FORMAT", "JSON")
	t.Setenv("INCIDENTDESK_OCCUPANT_MATCH", "contains")
	t.Setenv("INCIDENTDESK_PAGE_SIZE", "20")
	t.Setenv("INCIDENTDESK_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("INCIDENTDESK_MIRROR_DRIVER", "postgres")
	t.Setenv("INCIDENTDESK_POSTGRES_DSN", "postgres://db/incidents")
	t.Setenv("INCIDENTDESK_BLOB_DRIVER", "s3")
	t.Setenv("INCIDENTDESK_BLOB_S3_BUCKET", "board-exports")
	t.Setenv("INCIDENTDESK_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.LogLevel != slog.LevelDebug || !cfg.LogJSON {
		t.Fatalf("unexpected logging/addr %+v", cfg)
	}
	if cfg.OccupantMatch != core.OccupantMatchContains || cfg.PageSize != 20 || cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("unexpected board settings %+v", cfg)
	}
	if cfg.Mirror.Driver != MirrorPostgres || cfg.Mirror.PostgresDSN != "postgres://db/incidents" {
		t.Fatalf("unexpected mirror %+v", cfg.Mirror)
	}
	if cfg.Blob.Driver != blob.DriverS3 || cfg.Blob.S3.Bucket != "board-exports" || !cfg.Blob.S3.PathStyle || cfg.Blob.S3.AccessKeyID != "AKIA" {
		t.Fatalf("unexpected blob %+v", cfg.Blob)
	}
}

func TestLoadReportsEveryInvalidValue(t *testing.T) {
	t.Setenv("INCIDENTDESK_LOG_LEVEL", "loud")
	t.Setenv("INCIDENTDESK_OCCUPANT_MATCH", "fuzzy")
	t.Setenv("INCIDENTDESK_PAGE_SIZE", "0")
	t.Setenv("INCIDENTDESK_MIRROR_DRIVER", "mysql")
	t.Setenv("INCIDENTDESK_BLOB_DRIVER", "s3")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"LOG_LEVEL", "OCCUPANT_MATCH", "PAGE_SIZE", "MIRROR_DRIVER", "BLOB_S3_BUCKET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestBlobNoneDisablesExports(t *testing.T) {
	t.Setenv("INCIDENTDESK_BLOB_DRIVER", "none")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExportsEnabled() {
		t.Fatalf("expected exports disabled")
	}
}
