package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"incidentdesk/internal/blob"
	"incidentdesk/internal/core"
	"incidentdesk/pkg/domain"
)

// ExportFormat names one artifact an export can produce.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatPNG  ExportFormat = "png"
)

var defaultFormats = []ExportFormat{FormatCSV, FormatJSON, FormatPNG}

// ExportStatus describes the outcome of an export.
type ExportStatus string

const (
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

var (
	// ErrInvalidExport rejects export requests with unknown formats.
	ErrInvalidExport = errors.New("invalid export request")
	// ErrExportNotFound is returned for unknown export ids or artifact names.
	ErrExportNotFound = errors.New("export not found")
)

// ExportArtifact is one stored file of an export.
type ExportArtifact struct {
	Name        string       `json:"name"`
	Format      ExportFormat `json:"format"`
	Key         string       `json:"key"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks one export request and its artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Formats     []ExportFormat   `json:"formats"`
	Filters     core.Selection   `json:"filters,omitempty"`
	Sort        []core.SortKey   `json:"sort,omitempty"`
	Group       string           `json:"group"`
	Buckets     []domain.Bucket  `json:"buckets"`
	Rows        int              `json:"rows"`
	Revision    uint64           `json:"revision"`
	RequestedBy string           `json:"requested_by,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// ExportInput is a request to snapshot the board into the blob store.
type ExportInput struct {
	Selection   core.Selection
	Sort        []core.SortKey
	Group       string
	Formats     []ExportFormat
	RequestedBy string
}

// Exporter renders the filtered table and the chart and writes them to a
// blob store under exports/<id>/. Exports run synchronously.
type Exporter struct {
	svc    *core.Service
	store  blob.Store
	logger core.Logger
	audit  core.AuditRecorder
	newID  func() string
	now    func() time.Time

	mu      sync.RWMutex
	exports map[string]ExportRecord
	order   []string
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportLogger sets the exporter logger.
func WithExportLogger(l core.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithExportAudit records one audit entry per export.
func WithExportAudit(a core.AuditRecorder) ExporterOption {
	return func(e *Exporter) { e.audit = a }
}

// WithExportIDs overrides export id generation.
func WithExportIDs(fn func() string) ExporterOption {
	return func(e *Exporter) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewExporter constructs an exporter writing to store.
func NewExporter(svc *core.Service, store blob.Store, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		svc:     svc,
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		newID:   uuid.NewString,
		now:     time.Now,
		exports: make(map[string]ExportRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ParseFormats lower-cases and validates format names, dropping duplicates.
// An empty list selects every format.
func ParseFormats(raw []string) ([]ExportFormat, error) {
	if len(raw) == 0 {
		return append([]ExportFormat(nil), defaultFormats...), nil
	}
	seen := make(map[ExportFormat]bool, len(raw))
	out := make([]ExportFormat, 0, len(raw))
	for _, r := range raw {
		f := ExportFormat(strings.ToLower(strings.TrimSpace(r)))
		switch f {
		case FormatCSV, FormatJSON, FormatPNG:
		default:
			return nil, fmt.Errorf("format %q: %w", r, ErrInvalidExport)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Export renders and stores the requested artifacts. A PNG request on an
// empty board is skipped with a warning. Storage failures mark the export
// failed; the returned record is kept and retrievable through Get.
func (e *Exporter) Export(ctx context.Context, in ExportInput) (ExportRecord, error) {
	formats := in.Formats
	if len(formats) == 0 {
		formats = defaultFormats
	}
	view, chartData, err := e.svc.Views(ctx, core.ViewRequest{Selection: in.Selection, Sort: in.Sort, PageSize: -1}, in.Group)
	if err != nil {
		return ExportRecord{}, err
	}

	rec := ExportRecord{
		ID:          e.newID(),
		Formats:     append([]ExportFormat(nil), formats...),
		Filters:     in.Selection.Clone(),
		Sort:        append([]core.SortKey(nil), in.Sort...),
		Group:       chartData.Group,
		Buckets:     chartData.Buckets,
		Rows:        view.Total,
		Revision:    view.Revision,
		RequestedBy: in.RequestedBy,
		CreatedAt:   e.now().UTC(),
	}

	var failure error
	for _, f := range formats {
		payload, name, contentType, err := e.render(f, view, chartData)
		if errors.Is(err, ErrEmptyChart) {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("%s skipped: %v", name, err))
			continue
		}
		if err != nil {
			failure = err
			break
		}
		artifact, err := e.put(ctx, rec, f, name, contentType, payload)
		if err != nil {
			failure = err
			break
		}
		rec.Artifacts = append(rec.Artifacts, artifact)
	}

	rec.CompletedAt = e.now().UTC()
	rec.Status = ExportStatusSucceeded
	if failure != nil {
		rec.Status = ExportStatusFailed
		rec.Error = failure.Error()
	}
	e.remember(rec)
	e.record(ctx, rec, failure)

	if failure != nil {
		e.logger.Error("export failed", "export", rec.ID, "error", failure)
		return rec, fmt.Errorf("export %s: %w", rec.ID, failure)
	}
	e.logger.Info("export stored", "export", rec.ID, "rows", rec.Rows, "artifacts", len(rec.Artifacts))
	return rec, nil
}

func (e *Exporter) render(f ExportFormat, view core.View, c core.Chart) ([]byte, string, string, error) {
	var buf bytes.Buffer
	switch f {
	case FormatCSV:
		err := writeCSV(&buf, view)
		return buf.Bytes(), "table.csv", "text/csv", err
	case FormatJSON:
		err := json.NewEncoder(&buf).Encode(view)
		return buf.Bytes(), "table.json", "application/json", err
	case FormatPNG:
		err := renderPie(&buf, c, chartTitle(c.Group, e.svc.Catalog()))
		return buf.Bytes(), "chart.png", "image/png", err
	default:
		return nil, string(f), "", fmt.Errorf("format %q: %w", f, ErrInvalidExport)
	}
}

func (e *Exporter) put(ctx context.Context, rec ExportRecord, f ExportFormat, name, contentType string, payload []byte) (ExportArtifact, error) {
	key := fmt.Sprintf("exports/%s/%s", rec.ID, name)
	info, err := e.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"export-id": rec.ID,
			"revision":  strconv.FormatUint(rec.Revision, 10),
		},
	})
	if err != nil {
		return ExportArtifact{}, fmt.Errorf("store %s: %w", name, err)
	}
	artifact := ExportArtifact{
		Name:        name,
		Format:      f,
		Key:         key,
		ContentType: contentType,
		SizeBytes:   info.Size,
		CreatedAt:   info.LastModified,
	}
	if url, err := e.store.PresignURL(ctx, key, blob.SignedURLOptions{}); err == nil {
		artifact.URL = url
	}
	return artifact, nil
}

func (e *Exporter) remember(rec ExportRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.exports[rec.ID]; !ok {
		e.order = append(e.order, rec.ID)
	}
	e.exports[rec.ID] = rec
}

func (e *Exporter) record(ctx context.Context, rec ExportRecord, err error) {
	if e.audit == nil {
		return
	}
	entry := core.AuditEntry{
		Operation:  "export",
		Status:     core.AuditStatusSuccess,
		RecordID:   rec.ID,
		Count:      rec.Rows,
		Duration:   rec.CompletedAt.Sub(rec.CreatedAt),
		OccurredAt: rec.CreatedAt,
	}
	if err != nil {
		entry.Status = core.AuditStatusError
		entry.Error = err.Error()
	}
	e.audit.Record(ctx, entry)
}

// Get returns the export with id.
func (e *Exporter) Get(id string) (ExportRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.exports[id]
	return rec, ok
}

// List returns exports in creation order.
func (e *Exporter) List() []ExportRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ExportRecord, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.exports[id])
	}
	return out
}

// Open streams a stored artifact of export id.
func (e *Exporter) Open(ctx context.Context, id, name string) (ExportArtifact, io.ReadCloser, error) {
	rec, ok := e.Get(id)
	if !ok {
		return ExportArtifact{}, nil, fmt.Errorf("export %s: %w", id, ErrExportNotFound)
	}
	for _, a := range rec.Artifacts {
		if a.Name != name {
			continue
		}
		_, rc, err := e.store.Get(ctx, a.Key)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return ExportArtifact{}, nil, fmt.Errorf("artifact %s: %w", a.Key, ErrExportNotFound)
			}
			return ExportArtifact{}, nil, err
		}
		return a, rc, nil
	}
	return ExportArtifact{}, nil, fmt.Errorf("artifact %s/%s: %w", id, name, ErrExportNotFound)
}

func chartTitle(group string, catalog *core.Catalog) string {
	if col, ok := catalog.Column(group); ok {
		return col.Title
	}
	return group
}
