package core

import "incidentdesk/pkg/domain"

// AggregateByOrganization counts records per organization. Buckets appear in
// the order their key is first seen; keys are compared exactly and an empty
// organization forms its own bucket.
func AggregateByOrganization(records []domain.Record) []domain.Bucket {
	return countBy(records, func(r domain.Record) string { return r.Organization })
}

// GroupCount counts records by the group key of columnID, in first-occurrence
// order. An unknown column groups every record under the empty key.
func (c *Catalog) GroupCount(records []domain.Record, columnID string) []domain.Bucket {
	return countBy(records, func(r domain.Record) string { return c.GroupKey(r, columnID) })
}

func countBy(records []domain.Record, key func(domain.Record) string) []domain.Bucket {
	buckets := make([]domain.Bucket, 0)
	pos := make(map[string]int)
	for _, r := range records {
		k := key(r)
		if i, ok := pos[k]; ok {
			buckets[i].Count++
			continue
		}
		pos[k] = len(buckets)
		buckets = append(buckets, domain.Bucket{Key: k, Count: 1})
	}
	return buckets
}
