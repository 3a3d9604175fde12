package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"incidentdesk/pkg/domain"
)

// Snapshot is the state handed to observers after a committed mutation.
type Snapshot struct {
	Records  []domain.Record
	Revision uint64
	Changes  []Change
}

// Observer is notified after every committed mutation. Observer failures are
// logged; the mutation itself stays committed.
type Observer interface {
	Name() string
	RecordsChanged(ctx context.Context, snap Snapshot) error
}

// Chart is the grouped-count dataset handed to chart renderers.
type Chart struct {
	Group    string          `json:"group"`
	Buckets  []domain.Bucket `json:"buckets"`
	Total    int             `json:"total"`
	Revision uint64          `json:"revision"`
}

type chartCache struct {
	revision uint64
	buckets  []domain.Bucket
}

// Service is the board's state container: it owns the record store and
// derives the table and chart views from it.
type Service struct {
	store     *MemoryStore
	catalog   *Catalog
	observers []Observer

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	now     func() time.Time

	// serializes commands so observers see snapshots in commit order
	cmdMu sync.Mutex

	chartMu sync.Mutex
	charts  map[string]chartCache
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(a AuditRecorder) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCatalog replaces the default column catalog.
func WithCatalog(c *Catalog) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithObserver registers a mutation observer.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store *MemoryStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		catalog: DefaultCatalog(),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		now:     time.Now,
		charts:  make(map[string]chartCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service with a fresh empty store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(NewMemoryStore(), opts...)
}

// Store returns the underlying record store.
func (s *Service) Store() *MemoryStore { return s.store }

// Catalog returns the column catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

func (s *Service) instrument(ctx context.Context, op string, audited bool) (context.Context, func(err error, entry AuditEntry)) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(err error, entry AuditEntry) {
		elapsed := s.now().Sub(started)
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, elapsed)
		if !audited {
			return
		}
		entry.Operation = op
		entry.Duration = elapsed
		entry.OccurredAt = started.UTC()
		switch {
		case err != nil:
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		case entry.Status == "":
			entry.Status = AuditStatusSuccess
		}
		s.audit.Record(ctx, entry)
	}
}

func (s *Service) notify(ctx context.Context, changes []Change) {
	records, rev := s.store.Snapshot()
	if g, ok := s.metrics.(RecordGauge); ok {
		g.SetRecordCount(len(records))
	}
	for _, o := range s.observers {
		snap := Snapshot{Records: domain.CloneRecords(records), Revision: rev, Changes: changes}
		if err := o.RecordsChanged(ctx, snap); err != nil {
			s.logger.Error("observer failed", "observer", o.Name(), "revision", rev, "error", err)
		}
	}
}

// AppendRecord adds a producer-supplied record to the end of the board.
func (s *Service) AppendRecord(ctx context.Context, record domain.Record) (domain.Record, error) {
	ctx, done := s.instrument(ctx, "append_record", true)
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	changes, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.Append(record)
	})
	done(err, AuditEntry{RecordID: record.ID, Count: len(changes)})
	if err != nil {
		if domain.IsDuplicateID(err) {
			s.logger.Warn("duplicate record id rejected", "id", record.ID)
		}
		return domain.Record{}, err
	}
	s.logger.Debug("record appended", "id", record.ID, "organization", record.Organization)
	s.notify(ctx, changes)
	return record.Clone(), nil
}

// AppendRecords adds a batch atomically: either every record is appended or,
// on the first duplicate, none are.
func (s *Service) AppendRecords(ctx context.Context, records []domain.Record) error {
	ctx, done := s.instrument(ctx, "append_records", true)
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	changes, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		for _, r := range records {
			if err := tx.Append(r); err != nil {
				return err
			}
		}
		return nil
	})
	done(err, AuditEntry{Count: len(changes)})
	if err != nil {
		return err
	}
	if len(changes) > 0 {
		s.notify(ctx, changes)
	}
	return nil
}

// DeleteRecord removes the record with id. Deleting an id that is not on the
// board is a benign no-op: it reports false and no error.
func (s *Service) DeleteRecord(ctx context.Context, id string) (bool, error) {
	ctx, done := s.instrument(ctx, "delete_record", true)
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	var removed bool
	changes, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		removed = tx.Delete(id)
		return nil
	})
	entry := AuditEntry{RecordID: id}
	if err == nil && !removed {
		entry.Status = AuditStatusNoop
		entry.Error = domain.NotFoundWarning{ID: id}.Error()
	}
	done(err, entry)
	if err != nil {
		return false, err
	}
	if !removed {
		s.logger.Debug("delete of unknown record ignored", "id", id)
		return false, nil
	}
	s.notify(ctx, changes)
	return true, nil
}

// ClearRecords empties the board and returns how many records were removed.
func (s *Service) ClearRecords(ctx context.Context) (int, error) {
	ctx, done := s.instrument(ctx, "clear_records", true)
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	var n int
	changes, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		n = tx.Clear()
		return nil
	})
	done(err, AuditEntry{Count: n})
	if err != nil {
		return 0, err
	}
	s.logger.Info("board cleared", "removed", n)
	s.notify(ctx, changes)
	return n, nil
}

// Records returns a copy of every record in insertion order.
func (s *Service) Records() []domain.Record {
	return s.store.List()
}

// Table projects the current records through req. Unknown filter or sort
// columns are rejected with domain.ErrUnknownColumn.
func (s *Service) Table(ctx context.Context, req ViewRequest) (View, error) {
	_, done := s.instrument(ctx, "table", false)
	err := errors.Join(s.catalog.ValidateSelection(req.Selection), s.catalog.ValidateSort(req.Sort))
	if err != nil {
		done(err, AuditEntry{})
		return View{}, err
	}
	records, rev := s.store.Snapshot()
	view := s.catalog.Project(records, req)
	view.Revision = rev
	done(nil, AuditEntry{Count: view.Total})
	return view, nil
}

// Chart returns grouped counts for column, recomputed whenever the store
// revision has moved since the last read. An empty column groups by
// organization.
func (s *Service) Chart(ctx context.Context, column string) (Chart, error) {
	_, done := s.instrument(ctx, "chart", false)
	column, err := s.groupColumn(column)
	if err != nil {
		done(err, AuditEntry{})
		return Chart{}, err
	}
	records, rev := s.store.Snapshot()
	chart := s.chart(column, records, rev)
	done(nil, AuditEntry{Count: len(chart.Buckets)})
	return chart, nil
}

// Views returns the table for req and the chart grouped by group, both
// derived from the same store snapshot.
func (s *Service) Views(ctx context.Context, req ViewRequest, group string) (View, Chart, error) {
	_, done := s.instrument(ctx, "views", false)
	group, groupErr := s.groupColumn(group)
	err := errors.Join(s.catalog.ValidateSelection(req.Selection), s.catalog.ValidateSort(req.Sort), groupErr)
	if err != nil {
		done(err, AuditEntry{})
		return View{}, Chart{}, err
	}
	records, rev := s.store.Snapshot()
	view := s.catalog.Project(records, req)
	view.Revision = rev
	chart := s.chart(group, records, rev)
	done(nil, AuditEntry{Count: view.Total})
	return view, chart, nil
}

func (s *Service) groupColumn(column string) (string, error) {
	if column == "" {
		column = ColumnOrganization
	}
	if _, ok := s.catalog.Column(column); !ok {
		return column, fmt.Errorf("chart group %s: %w", column, domain.ErrUnknownColumn)
	}
	return column, nil
}

// chart serves the memoized buckets for column at rev, computing them from
// records on a miss.
func (s *Service) chart(column string, records []domain.Record, rev uint64) Chart {
	s.chartMu.Lock()
	cached, ok := s.charts[column]
	if !ok || cached.revision != rev {
		var buckets []domain.Bucket
		if column == ColumnOrganization {
			buckets = AggregateByOrganization(records)
		} else {
			buckets = s.catalog.GroupCount(records, column)
		}
		cached = chartCache{revision: rev, buckets: buckets}
		s.charts[column] = cached
	}
	buckets := append([]domain.Bucket{}, cached.buckets...)
	s.chartMu.Unlock()
	return Chart{Group: column, Buckets: buckets, Total: len(records), Revision: rev}
}
