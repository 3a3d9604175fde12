package core

import (
	"reflect"
	"testing"

	"incidentdesk/pkg/domain"
)

func TestAggregateByOrganizationFirstOccurrenceOrder(t *testing.T) {
	got := AggregateByOrganization(recordsForOrgs("X", "Y", "X", "Z", "Y", "X"))
	want := []domain.Bucket{{Key: "X", Count: 3}, {Key: "Y", Count: 2}, {Key: "Z", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAggregateByOrganizationEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		orgs []string
		want []domain.Bucket
	}{
		{name: "empty", orgs: nil, want: []domain.Bucket{}},
		{name: "empty key kept", orgs: []string{"", "X", ""}, want: []domain.Bucket{{Key: "", Count: 2}, {Key: "X", Count: 1}}},
		{name: "no case folding", orgs: []string{"acme", "Acme", "acme "}, want: []domain.Bucket{{Key: "acme", Count: 1}, {Key: "Acme", Count: 1}, {Key: "acme ", Count: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AggregateByOrganization(recordsForOrgs(tc.orgs...))
			if got == nil {
				t.Fatalf("expected non-nil slice")
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAggregateOmitsDeletedOrganization(t *testing.T) {
	store := NewMemoryStore()
	for _, r := range recordsForOrgs("X", "Y", "Y") {
		_ = store.Append(r)
	}
	if _, err := store.DeleteByID("r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := AggregateByOrganization(store.List())
	want := []domain.Bucket{{Key: "Y", Count: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestGroupCountByColumn(t *testing.T) {
	cat := DefaultCatalog()
	a := sampleRecord("a", "X")
	b := sampleRecord("b", "X")
	b.BloodGroup, b.BloodRh = "0", "-"
	c := sampleRecord("c", "X")
	c.SuitableEnvironment = false

	got := cat.GroupCount([]domain.Record{a, b, c}, ColumnBloodType)
	want := []domain.Bucket{{Key: "A +", Count: 2}, {Key: "0 -", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("blood groups: got %v, want %v", got, want)
	}
	got = cat.GroupCount([]domain.Record{a, b, c}, ColumnSuitableEnvironment)
	want = []domain.Bucket{{Key: "true", Count: 2}, {Key: "false", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("suitability: got %v, want %v", got, want)
	}
}
