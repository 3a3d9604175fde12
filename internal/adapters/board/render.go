package board

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"incidentdesk/internal/core"
	"incidentdesk/pkg/domain"
)

// ErrInvalidRequest marks malformed query or body input.
var ErrInvalidRequest = errors.New("invalid request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func statusFor(err error) int {
	switch {
	case domain.IsDuplicateID(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyID),
		errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidExport):
		return http.StatusBadRequest
	case errors.Is(err, ErrExportNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeCSV renders the view's rows as CSV using column titles as the header.
func writeCSV(w io.Writer, view core.View) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(view.Columns))
	for i, col := range view.Columns {
		header[i] = col.Title
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range view.Rows {
		line := make([]string, len(view.Columns))
		for i, col := range view.Columns {
			line[i] = row.Cells[col.ID]
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
