package core

import (
	"fmt"
	"sort"
	"strings"

	"incidentdesk/pkg/domain"
)

// DefaultPageSize is the table page size used when a request names none.
const DefaultPageSize = 5

// SortKey orders the table by one column.
type SortKey struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending,omitempty"`
}

// ParseSortKey reads "col" (ascending) or "-col" (descending).
func ParseSortKey(raw string) SortKey {
	if strings.HasPrefix(raw, "-") {
		return SortKey{Column: raw[1:], Descending: true}
	}
	return SortKey{Column: raw}
}

// ViewRequest describes one table read.
type ViewRequest struct {
	Selection Selection
	Sort      []SortKey
	// Page is 1-based. Zero selects the first page.
	Page int
	// PageSize of zero selects DefaultPageSize; a negative size disables paging.
	PageSize int
}

// Row is one projected table row.
type Row struct {
	ID     string            `json:"id"`
	Cells  map[string]string `json:"cells"`
	Record domain.Record     `json:"record"`
}

// View is the filtered, ordered and paged table handed to renderers.
type View struct {
	Columns  []domain.Column `json:"columns"`
	Rows     []Row           `json:"rows"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Revision uint64          `json:"revision"`
}

// ValidateSort reports sort keys that reference unknown columns.
func (c *Catalog) ValidateSort(keys []SortKey) error {
	for _, k := range keys {
		if _, ok := c.index[k.Column]; !ok {
			return fmt.Errorf("sort %s: %w", k.Column, domain.ErrUnknownColumn)
		}
	}
	return nil
}

// SortRecords orders records in place by keys. The sort is stable so rows
// that compare equal keep insertion order. Unknown columns are ignored.
func (c *Catalog) SortRecords(records []domain.Record, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			col, ok := c.column(k.Column)
			if !ok {
				continue
			}
			cmp := compareCells(cellValue(records[i], col.Accessor), cellValue(records[j], col.Accessor), col.Render)
			if cmp == 0 {
				continue
			}
			if k.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareCells(a, b cell, r domain.Render) int {
	if a.kind == cellNumber && b.kind == cellNumber {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(renderCell(a, r), renderCell(b, r))
}

// Project filters, sorts and pages records into a View.
func (c *Catalog) Project(records []domain.Record, req ViewRequest) View {
	filtered := c.ApplyFilters(records, req.Selection)
	c.SortRecords(filtered, req.Sort)

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size == 0 {
		size = DefaultPageSize
	}
	window := filtered
	if size > 0 {
		pages := len(filtered) / size
		if len(filtered)%size != 0 {
			pages++
		}
		if page > pages {
			window = nil
		} else {
			// page <= pages keeps start below len(filtered).
			start := (page - 1) * size
			end := len(filtered)
			if end-start > size {
				end = start + size
			}
			window = filtered[start:end]
		}
	}

	rows := make([]Row, 0, len(window))
	for _, r := range window {
		rows = append(rows, c.projectRow(r))
	}
	return View{
		Columns:  c.Columns(),
		Rows:     rows,
		Total:    len(filtered),
		Page:     page,
		PageSize: size,
	}
}

func (c *Catalog) projectRow(r domain.Record) Row {
	cells := make(map[string]string, len(c.columns))
	for _, col := range c.columns {
		cells[col.ID] = renderCell(cellValue(r, col.Accessor), col.Render)
	}
	return Row{ID: r.ID, Cells: cells, Record: r}
}
