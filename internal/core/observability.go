package core

import (
	"context"
	"time"
)

// MetricsRecorder receives the outcome of every service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// RecordGauge is implemented by recorders that also track the collection size.
type RecordGauge interface {
	SetRecordCount(n int)
}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// MultiMetrics fans one observation out to several recorders.
type MultiMetrics []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetrics) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// SetRecordCount forwards to every recorder that tracks the record count.
func (m MultiMetrics) SetRecordCount(n int) {
	for _, r := range m {
		if g, ok := r.(RecordGauge); ok {
			g.SetRecordCount(n)
		}
	}
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
	// AuditStatusNoop marks a command that completed without changing state,
	// such as deleting an id that is already gone.
	AuditStatusNoop AuditStatus = "noop"
)

// AuditEntry captures one board command.
type AuditEntry struct {
	Operation  string        `json:"operation"`
	Status     AuditStatus   `json:"status"`
	RecordID   string        `json:"record_id,omitempty"`
	Count      int           `json:"count,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// AuditRecorder receives an entry per board command.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}
