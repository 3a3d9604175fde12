package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"incidentdesk/pkg/domain"
)

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls   []metricsCall
	records int
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) SetRecordCount(n int) { c.records = n }

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, e := range c.entries {
		if e.Operation == op && e.Status == status {
			return true
		}
	}
	return false
}

type captureObserver struct {
	snaps []Snapshot
	err   error
}

func (o *captureObserver) Name() string { return "capture" }

func (o *captureObserver) RecordsChanged(_ context.Context, snap Snapshot) error {
	o.snaps = append(o.snaps, snap)
	return o.err
}

type captureLogger struct {
	errors []string
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Warn(string, ...any)  {}
func (l *captureLogger) Error(msg string, _ ...any) {
	l.errors = append(l.errors, msg)
}

func TestServiceMutationsNotifyObserversAndAudit(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := NewJSONTracer(nil)
	obs := &captureObserver{}
	svc := NewInMemoryService(
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithObserver(obs),
	)

	if _, err := svc.AppendRecord(ctx, sampleRecord("a", "X")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.AppendRecord(ctx, sampleRecord("b", "Y")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.AppendRecord(ctx, sampleRecord("a", "Z")); !domain.IsDuplicateID(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if !audit.has("append_record", AuditStatusError) || !metrics.has("append_record", false) {
		t.Fatalf("duplicate append should be recorded as an error")
	}

	removed, err := svc.DeleteRecord(ctx, "missing")
	if err != nil || removed {
		t.Fatalf("delete of missing id should be a silent no-op: %v %v", removed, err)
	}
	if !audit.has("delete_record", AuditStatusNoop) {
		t.Fatalf("expected noop audit entry for missing delete")
	}

	if removed, err := svc.DeleteRecord(ctx, "a"); err != nil || !removed {
		t.Fatalf("delete: %v %v", removed, err)
	}
	if n, err := svc.ClearRecords(ctx); err != nil || n != 1 {
		t.Fatalf("clear: %d %v", n, err)
	}

	// append a, append b, delete a, clear
	if len(obs.snaps) != 4 {
		t.Fatalf("expected 4 observer notifications, got %d", len(obs.snaps))
	}
	last := obs.snaps[3]
	if len(last.Records) != 0 || last.Changes[0].Action != ActionClear {
		t.Fatalf("unexpected final snapshot %+v", last)
	}
	for i := 1; i < len(obs.snaps); i++ {
		if obs.snaps[i].Revision <= obs.snaps[i-1].Revision {
			t.Fatalf("revisions not increasing: %d then %d", obs.snaps[i-1].Revision, obs.snaps[i].Revision)
		}
	}
	if metrics.records != 0 {
		t.Fatalf("expected record gauge 0, got %d", metrics.records)
	}
	if len(tracer.Entries()) == 0 {
		t.Fatalf("expected trace spans")
	}
}

func TestServiceObserverFailureKeepsMutation(t *testing.T) {
	logger := &captureLogger{}
	obs := &captureObserver{err: errors.New("mirror down")}
	svc := NewInMemoryService(WithObserver(obs), WithLogger(logger))
	if _, err := svc.AppendRecord(context.Background(), sampleRecord("a", "X")); err != nil {
		t.Fatalf("append should succeed despite observer failure: %v", err)
	}
	if len(svc.Records()) != 1 {
		t.Fatalf("mutation was not kept")
	}
	if len(logger.errors) != 1 {
		t.Fatalf("expected observer failure to be logged")
	}
}

func TestServiceAppendRecordsIsAtomic(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	batch := recordsForOrgs("X", "Y")
	batch = append(batch, batch[0])
	if err := svc.AppendRecords(ctx, batch); !domain.IsDuplicateID(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if len(svc.Records()) != 0 {
		t.Fatalf("failed batch left records behind")
	}
	if err := svc.AppendRecords(ctx, batch[:2]); err != nil {
		t.Fatalf("append batch: %v", err)
	}
	if len(svc.Records()) != 2 {
		t.Fatalf("expected 2 records")
	}
}

func TestServiceChartRecomputesAfterMutation(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	for _, r := range recordsForOrgs("X", "Y", "X") {
		if _, err := svc.AppendRecord(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	chart, err := svc.Chart(ctx, "")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	want := []domain.Bucket{{Key: "X", Count: 2}, {Key: "Y", Count: 1}}
	if chart.Group != ColumnOrganization || !reflect.DeepEqual(chart.Buckets, want) || chart.Total != 3 {
		t.Fatalf("unexpected chart %+v", chart)
	}

	if _, err := svc.DeleteRecord(ctx, "r2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	chart, _ = svc.Chart(ctx, ColumnOrganization)
	want = []domain.Bucket{{Key: "X", Count: 2}}
	if !reflect.DeepEqual(chart.Buckets, want) {
		t.Fatalf("chart not recomputed after delete: %+v", chart.Buckets)
	}

	if _, err := svc.ClearRecords(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	chart, _ = svc.Chart(ctx, "")
	if len(chart.Buckets) != 0 {
		t.Fatalf("expected empty chart after clear: %+v", chart.Buckets)
	}

	if _, err := svc.Chart(ctx, "missing"); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestServiceChartBucketsAreCopies(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	_, _ = svc.AppendRecord(ctx, sampleRecord("a", "X"))
	chart, _ := svc.Chart(ctx, "")
	chart.Buckets[0].Count = 99
	again, _ := svc.Chart(ctx, "")
	if again.Buckets[0].Count != 1 {
		t.Fatalf("cached buckets mutated through returned chart")
	}
}

func TestServiceTable(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	records := recordsForOrgs("X", "Y", "Z")
	records[1].Sex = "Erkek"
	if err := svc.AppendRecords(ctx, records); err != nil {
		t.Fatalf("append: %v", err)
	}
	view, err := svc.Table(ctx, ViewRequest{Selection: Selection{ColumnSex: {"Kadın"}}})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if view.Total != 2 || view.Rows[0].ID != "r1" || view.Rows[1].ID != "r3" {
		t.Fatalf("unexpected view %+v", view.Rows)
	}
	if view.Revision != svc.Store().Revision() {
		t.Fatalf("view revision mismatch")
	}
	if _, err := svc.Table(ctx, ViewRequest{Selection: Selection{"bogus": {"x"}}}); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := svc.Table(ctx, ViewRequest{Sort: []SortKey{{Column: "bogus"}}}); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn for sort, got %v", err)
	}
}

func TestServiceClockStampsAudit(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	audit := &captureAuditRecorder{}
	svc := NewInMemoryService(WithAuditRecorder(audit), WithClock(func() time.Time { return fixed }))
	_, _ = svc.AppendRecord(context.Background(), sampleRecord("a", "X"))
	if len(audit.entries) != 1 || !audit.entries[0].OccurredAt.Equal(fixed) || audit.entries[0].RecordID != "a" {
		t.Fatalf("unexpected audit entries %+v", audit.entries)
	}
}

func TestServiceViewsShareOneSnapshot(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()
	if err := svc.AppendRecords(ctx, recordsForOrgs("X", "Y", "X")); err != nil {
		t.Fatalf("append: %v", err)
	}
	view, chart, err := svc.Views(ctx, ViewRequest{PageSize: -1}, "")
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if view.Revision != chart.Revision || view.Total != chart.Total || chart.Group != ColumnOrganization {
		t.Fatalf("table and chart disagree: view rev=%d total=%d, chart %+v", view.Revision, view.Total, chart)
	}
	if _, _, err := svc.Views(ctx, ViewRequest{}, "missing"); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn for group, got %v", err)
	}
	if _, _, err := svc.Views(ctx, ViewRequest{Selection: Selection{"bogus": {"x"}}}, ""); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn for filter, got %v", err)
	}
}
