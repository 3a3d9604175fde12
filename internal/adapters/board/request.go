package board

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"incidentdesk/internal/core"
)

const (
	filterPrefix = "filter."
	maxPageSize  = 500
)

// parseViewRequest reads filter.<column>, sort, page and page_size.
// Empty filter values are dropped; page_size=all disables paging.
func parseViewRequest(q url.Values, defaultSize int) (core.ViewRequest, error) {
	req := core.ViewRequest{Selection: core.Selection{}, PageSize: defaultSize}
	for key, values := range q {
		if !strings.HasPrefix(key, filterPrefix) {
			continue
		}
		column := strings.TrimPrefix(key, filterPrefix)
		for _, v := range values {
			if v != "" {
				req.Selection[column] = append(req.Selection[column], v)
			}
		}
	}
	req.Sort = parseSort(q["sort"])

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return core.ViewRequest{}, fmt.Errorf("page %q: %w", raw, ErrInvalidRequest)
		}
		req.Page = page
	}
	switch raw := q.Get("page_size"); raw {
	case "":
	case "all":
		req.PageSize = -1
	default:
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return core.ViewRequest{}, fmt.Errorf("page_size %q: %w", raw, ErrInvalidRequest)
		}
		req.PageSize = size
	}
	return req, nil
}

// parseSort accepts repeated or comma separated keys.
func parseSort(raw []string) []core.SortKey {
	var keys []core.SortKey
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				keys = append(keys, core.ParseSortKey(part))
			}
		}
	}
	return keys
}
