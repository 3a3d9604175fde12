package core

import (
	"context"
	"errors"
	"testing"

	"incidentdesk/pkg/domain"
)

func TestMemoryStoreAppendPreservesOrder(t *testing.T) {
	store := NewMemoryStore()
	for _, r := range recordsForOrgs("X", "Y", "Z", "X") {
		if err := store.Append(r); err != nil {
			t.Fatalf("append %s: %v", r.ID, err)
		}
	}
	got := ids(store.List())
	want := []string{"r1", "r2", "r3", "r4"}
	if !equalStrings(got, want) {
		t.Fatalf("unexpected order: %v", got)
	}
	if store.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", store.Len())
	}
}

func TestMemoryStoreDuplicateLeavesCollectionUnchanged(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Append(sampleRecord("a", "X")); err != nil {
		t.Fatalf("append: %v", err)
	}
	rev := store.Revision()

	dup := sampleRecord("a", "Other")
	err := store.Append(dup)
	var dupErr domain.DuplicateIDError
	if !errors.As(err, &dupErr) || dupErr.ID != "a" {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	list := store.List()
	if len(list) != 1 || list[0].Organization != "X" {
		t.Fatalf("duplicate append mutated the collection: %+v", list)
	}
	if store.Revision() != rev {
		t.Fatalf("failed append bumped revision")
	}
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Append(domain.Record{}); !errors.Is(err, domain.ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestMemoryStoreDeleteByIDIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	for _, r := range recordsForOrgs("X", "Y", "Z") {
		_ = store.Append(r)
	}
	removed, err := store.DeleteByID("r2")
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}
	if got := ids(store.List()); !equalStrings(got, []string{"r1", "r3"}) {
		t.Fatalf("unexpected remaining records: %v", got)
	}
	rev := store.Revision()

	removed, err = store.DeleteByID("r2")
	if err != nil || removed {
		t.Fatalf("second delete should be a no-op, got %v %v", removed, err)
	}
	if store.Revision() != rev {
		t.Fatalf("no-op delete bumped revision")
	}
	if got := ids(store.List()); !equalStrings(got, []string{"r1", "r3"}) {
		t.Fatalf("no-op delete changed records: %v", got)
	}
}

func TestMemoryStoreClearAll(t *testing.T) {
	store := NewMemoryStore()
	for _, r := range recordsForOrgs("X", "Y") {
		_ = store.Append(r)
	}
	if n := store.ClearAll(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if len(store.List()) != 0 {
		t.Fatalf("expected empty collection")
	}
	if got := AggregateByOrganization(store.List()); len(got) != 0 {
		t.Fatalf("expected no buckets, got %v", got)
	}
	// ids are free again after a clear
	if err := store.Append(sampleRecord("r1", "X")); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
}

func TestMemoryStoreListIsDefensiveCopy(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Append(sampleRecord("a", "X"))
	list := store.List()
	list[0].Organization = "mutated"
	list[0].Occupants[0] = "mutated"
	fresh := store.List()
	if fresh[0].Organization != "X" || fresh[0].Occupants[0] != "Tabip" {
		t.Fatalf("caller mutation leaked into store: %+v", fresh[0])
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Append(sampleRecord("a", "X"))
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		if err := tx.Append(sampleRecord("b", "Y")); err != nil {
			return err
		}
		tx.Delete("a")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := ids(store.List()); !equalStrings(got, []string{"a"}) {
		t.Fatalf("partial transaction leaked: %v", got)
	}
}

func TestRunInTransactionHonoursCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.Append(sampleRecord("a", "X"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("cancelled transaction committed")
	}
}
