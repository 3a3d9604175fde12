package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incidentdesk/internal/blob"
	"incidentdesk/internal/config"
	"incidentdesk/internal/core"
)

func TestBuildWiresBoardMirrorAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Addr:          ":0",
		OccupantMatch: core.OccupantMatchContains,
		PageSize:      2,
		TraceFile:     filepath.Join(dir, "trace.jsonl"),
		Mirror:        config.Mirror{Driver: config.MirrorSQLite, SQLitePath: filepath.Join(dir, "mirror.db")},
		Blob:          blob.Config{Driver: blob.DriverMemory},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := build(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer func() { _ = a.Close() }()

	post := httptest.NewRecorder()
	body, _ := json.Marshal(map[string]any{"id": "a", "organizasyon": "Acil", "odadaBulunanlar": []string{"Tabip", "Refakatçi"}})
	a.handler.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/v1/records", bytes.NewReader(body)))
	if post.Code != http.StatusCreated {
		t.Fatalf("append status %d: %s", post.Code, post.Body.String())
	}

	list := httptest.NewRecorder()
	a.handler.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/records?filter.odadaBulunanlar=Tabip", nil))
	var view core.View
	if err := json.Unmarshal(list.Body.Bytes(), &view); err != nil || view.Total != 1 || view.PageSize != 2 {
		t.Fatalf("contains policy and page size should be wired: %+v %v", view, err)
	}

	metrics := httptest.NewRecorder()
	a.handler.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(metrics.Body.String(), "incidentdesk_records 1") {
		t.Fatalf("expected record gauge in /metrics output")
	}
	vars := httptest.NewRecorder()
	a.handler.ServeHTTP(vars, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	if vars.Code != http.StatusOK || !strings.Contains(vars.Body.String(), "incidentdesk_metrics_") {
		t.Fatalf("expected expvar output")
	}

	export := httptest.NewRecorder()
	a.handler.ServeHTTP(export, httptest.NewRequest(http.MethodPost, "/api/v1/exports", strings.NewReader(`{"formats":["csv"]}`)))
	if export.Code != http.StatusCreated {
		t.Fatalf("export status %d: %s", export.Code, export.Body.String())
	}

	if trace, err := os.ReadFile(cfg.TraceFile); err != nil || !strings.Contains(string(trace), "append_record") {
		t.Fatalf("expected trace lines, got %q %v", trace, err)
	}
}

func TestBuildRejectsBadMirror(t *testing.T) {
	cfg := config.Config{Mirror: config.Mirror{Driver: "oracle"}, Blob: blob.Config{Driver: config.BlobNone}}
	if _, err := build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatalf("expected unknown mirror error")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.Config{LogJSON: true}, &buf).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}
	buf.Reset()
	newLogger(config.Config{}, &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text log line, got %q", buf.String())
	}
}
