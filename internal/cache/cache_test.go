package cache

import (
	"testing"

	"github.com/tedtam/fieldops/internal/store"
)

func cust(id, name string) store.Customer {
	return store.Customer{ID: id, Name: name, AccountNumber: "acc-" + id}
}

func ids(records []store.Customer) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestReplaceAllFiltersDuplicateIDs(t *testing.T) {
	c := New()
	c.ReplaceAll([]store.Customer{
		cust("1", "first"),
		cust("2", "second"),
		cust("1", "duplicate of first"),
	})

	if c.Len() != 2 {
		t.Fatalf("expected 2 records after dedup, got %d", c.Len())
	}
	got, ok := c.Get("1")
	if !ok {
		t.Fatal("id 1 missing")
	}
	if got.Name != "first" {
		t.Errorf("expected first occurrence kept, got %q", got.Name)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	c := New()
	c.Upsert(cust("1", "Jane"))

	before := c.Snapshot()
	c.Upsert(cust("1", "Jane"))
	after := c.Snapshot()

	if len(before) != 1 || len(after) != 1 {
		t.Fatalf("expected 1 record, got %d then %d", len(before), len(after))
	}
	if before[0] != after[0] {
		t.Errorf("second identical upsert changed state: %+v -> %+v", before[0], after[0])
	}
}

func TestUpsertPreservesPosition(t *testing.T) {
	c := New()
	c.Upsert(cust("1", "a"))
	c.Upsert(cust("2", "b"))
	c.Upsert(cust("3", "c"))

	c.Upsert(cust("2", "b-updated"))

	snap := c.Snapshot()
	want := []string{"1", "2", "3"}
	for i, id := range ids(snap) {
		if id != want[i] {
			t.Fatalf("order changed: got %v, want %v", ids(snap), want)
		}
	}
	if snap[1].Name != "b-updated" {
		t.Errorf("overwrite lost: %q", snap[1].Name)
	}
}

func TestRemove(t *testing.T) {
	c := New()
	c.Upsert(cust("1", "a"))
	c.Upsert(cust("2", "b"))
	c.Upsert(cust("3", "c"))

	if !c.Remove("2") {
		t.Fatal("Remove(2) returned false")
	}
	if c.Remove("2") {
		t.Fatal("second Remove(2) returned true")
	}

	// Positions must stay consistent after the middle removal.
	c.Upsert(cust("3", "c-updated"))
	got, _ := c.Get("3")
	if got.Name != "c-updated" {
		t.Errorf("index stale after removal: %+v", got)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 records, got %d", c.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	c.Upsert(cust("1", "a"))

	snap := c.Snapshot()
	snap[0].Name = "mutated"

	got, _ := c.Get("1")
	if got.Name != "a" {
		t.Errorf("snapshot mutation leaked into cache: %q", got.Name)
	}
}
