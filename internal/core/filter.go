package core

import (
	"fmt"
	"sort"

	"incidentdesk/pkg/domain"
)

// Selection holds the active filter values per column id. A missing key or
// an empty slice means the column is not filtered.
type Selection map[string][]string

// Active returns the ids of columns that carry at least one value, sorted.
func (s Selection) Active() []string {
	out := make([]string, 0, len(s))
	for id, values := range s {
		if len(values) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the selection.
func (s Selection) Clone() Selection {
	if s == nil {
		return nil
	}
	out := make(Selection, len(s))
	for id, values := range s {
		out[id] = append([]string(nil), values...)
	}
	return out
}

// Matches reports whether record passes the active values of one column.
// Empty active values match every record. A column the catalog does not
// define matches nothing once values are active.
func (c *Catalog) Matches(record domain.Record, columnID string, active []string) bool {
	if len(active) == 0 {
		return true
	}
	col, ok := c.column(columnID)
	if !ok {
		return false
	}
	for _, token := range matchTokens(cellValue(record, col.Accessor), col.Match) {
		for _, want := range active {
			if token == want {
				return true
			}
		}
	}
	return false
}

// MatchesAll reports whether record passes every filtered column.
func (c *Catalog) MatchesAll(record domain.Record, sel Selection) bool {
	for id, values := range sel {
		if !c.Matches(record, id, values) {
			return false
		}
	}
	return true
}

// ApplyFilters returns the records that pass every filtered column, in their
// input order.
func (c *Catalog) ApplyFilters(records []domain.Record, sel Selection) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if c.MatchesAll(r, sel) {
			out = append(out, r)
		}
	}
	return out
}

// ValidateSelection reports the first column in sel the catalog does not
// define.
func (c *Catalog) ValidateSelection(sel Selection) error {
	for _, id := range sel.Active() {
		if _, ok := c.index[id]; !ok {
			return fmt.Errorf("filter %s: %w", id, domain.ErrUnknownColumn)
		}
	}
	return nil
}
