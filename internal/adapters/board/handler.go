// Package board exposes the incident board over HTTP: record intake and
// removal, the filtered table, the grouped chart and blob-backed exports.
package board

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"incidentdesk/internal/core"
	"incidentdesk/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Handler serves the board API.
type Handler struct {
	svc      *core.Service
	exports  *Exporter
	logger   core.Logger
	pageSize int
	newID    func() string
	router   *mux.Router
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExporter enables the /api/v1/exports routes.
func WithExporter(e *Exporter) HandlerOption {
	return func(h *Handler) { h.exports = e }
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(l core.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithPageSize sets the table page size used when a request names none.
func WithPageSize(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.pageSize = n
		}
	}
}

// WithIDGenerator overrides the id assigned to records posted without one.
func WithIDGenerator(fn func() string) HandlerOption {
	return func(h *Handler) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// NewHandler builds the board router around svc.
func NewHandler(svc *core.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:      svc,
		logger:   slog.New(slog.DiscardHandler),
		pageSize: core.DefaultPageSize,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/columns", h.listColumns).Methods(http.MethodGet)
	api.HandleFunc("/records", h.listRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", h.appendRecords).Methods(http.MethodPost)
	api.HandleFunc("/records", h.clearRecords).Methods(http.MethodDelete)
	api.HandleFunc("/records/{id}", h.deleteRecord).Methods(http.MethodDelete)
	api.HandleFunc("/chart", h.chart).Methods(http.MethodGet)
	if h.exports != nil {
		api.HandleFunc("/exports", h.createExport).Methods(http.MethodPost)
		api.HandleFunc("/exports", h.listExports).Methods(http.MethodGet)
		api.HandleFunc("/exports/{id}", h.getExport).Methods(http.MethodGet)
		api.HandleFunc("/exports/{id}/artifacts/{name}", h.getArtifact).Methods(http.MethodGet)
	}
	h.router = r
	return h
}

// Router exposes the underlying router so callers can mount extra routes.
func (h *Handler) Router() *mux.Router { return h.router }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": h.svc.Store().Len()})
}

func (h *Handler) listColumns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"columns": h.svc.Catalog().Columns()})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(q.Get("format"))
	if format == "" && strings.Contains(r.Header.Get("Accept"), "text/csv") {
		format = "csv"
	}
	if format != "" && format != "csv" && format != "json" {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}
	defaultSize := h.pageSize
	if format == "csv" {
		defaultSize = -1
	}
	req, err := parseViewRequest(q, defaultSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.svc.Table(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if format != "csv" {
		writeJSON(w, http.StatusOK, view)
		return
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, view); err != nil {
		h.fail(w, r, err)
		return
	}
	filename := fmt.Sprintf("records-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// appendRecords accepts one record object or an array of records. Arrays are
// appended atomically.
func (h *Handler) appendRecords(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.fail(w, r, fmt.Errorf("read body: %v: %w", err, ErrInvalidRequest))
		return
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		h.fail(w, r, fmt.Errorf("empty body: %w", ErrInvalidRequest))
		return
	}

	if trimmed[0] == '[' {
		var records []domain.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			h.fail(w, r, fmt.Errorf("decode records: %v: %w", err, ErrInvalidRequest))
			return
		}
		for i := range records {
			h.assignID(&records[i])
		}
		if err := h.svc.AppendRecords(r.Context(), records); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"records": records})
		return
	}

	var record domain.Record
	if err := json.Unmarshal(trimmed, &record); err != nil {
		h.fail(w, r, fmt.Errorf("decode record: %v: %w", err, ErrInvalidRequest))
		return
	}
	h.assignID(&record)
	stored, err := h.svc.AppendRecord(r.Context(), record)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/records/"+stored.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"record": stored})
}

func (h *Handler) assignID(r *domain.Record) {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = h.newID()
	}
}

// deleteRecord answers 204 whether or not the id was on the board.
func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.svc.DeleteRecord(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearRecords(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearRecords(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := h.svc.Chart(r.Context(), q.Get("group"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	switch strings.ToLower(q.Get("format")) {
	case "", "json":
		writeJSON(w, http.StatusOK, c)
	case "png":
		var buf bytes.Buffer
		if err := renderPie(&buf, c, chartTitle(c.Group, h.svc.Catalog())); err != nil {
			if errors.Is(err, ErrEmptyChart) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
	}
}

type exportRequest struct {
	Filters     map[string][]string `json:"filters"`
	Sort        []string            `json:"sort"`
	Group       string              `json:"group"`
	Formats     []string            `json:"formats"`
	RequestedBy string              `json:"requested_by"`
}

func (h *Handler) createExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, fmt.Errorf("decode export: %v: %w", err, ErrInvalidRequest))
		return
	}
	formats, err := ParseFormats(req.Formats)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.exports.Export(r.Context(), ExportInput{
		Selection:   core.Selection(req.Filters),
		Sort:        parseSort(req.Sort),
		Group:       req.Group,
		Formats:     formats,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		if rec.ID != "" {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"export": rec, "error": err.Error()})
			return
		}
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/exports/"+rec.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"export": rec})
}

func (h *Handler) listExports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"exports": h.exports.List()})
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.exports.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": rec})
}

func (h *Handler) getArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	artifact, rc, err := h.exports.Open(r.Context(), vars["id"], vars["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("artifact stream interrupted", "key", artifact.Key, "error", err)
	}
}
