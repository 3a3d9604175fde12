package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incidentdesk/internal/blob/core"
)

func TestPutGetListDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver")
	}
	info, err := s.Put(ctx, "exports/e1/table.json", strings.NewReader(`{"rows":[]}`), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 11 || len(info.ETag) != 64 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "e1", "table.json.meta")); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
	if _, err := s.Put(ctx, "exports/e1/table.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "exports/e1/table.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"rows":[]}` || got.ContentType != "application/json" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}

	_, _ = s.Put(ctx, "exports/e2/chart.png", strings.NewReader("png"), core.PutOptions{})
	list, err := s.List(ctx, "exports/e1")
	if err != nil || len(list) != 1 || list[0].Key != "exports/e1/table.json" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(all))
	}

	if ok, err := s.Delete(ctx, "exports/e1/table.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "exports/e1/table.json"); ok {
		t.Fatalf("second delete should report false")
	}
	if _, err := s.Head(ctx, "exports/e1/table.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectsBadKeys(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"", "/abs", "../escape", "a/../../b", "x.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	if _, err := s.PresignURL(context.Background(), "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported")
	}
}
