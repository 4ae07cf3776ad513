package store

import (
	"context"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCustomer(name, account string) Customer {
	return Customer{
		Name:          name,
		AccountNumber: account,
		Branch:        "สาขาสุขุมวิท",
		Principal:     100000,
		Status:        StatusNotFinished,
		Resus:         ResusCured,
		WorkGroup:     WorkGroup6090,
		Team:          "ทีม A",
		HubCode:       "BKK01",
		Latitude:      13.7563,
		Longitude:     100.5018,
		Commission:    5000,
	}
}

// TestMigrationsIdempotent runs OpenSQLite twice on the same database and
// verifies no migration is re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("first OpenSQLite failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("second OpenSQLite failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestCreateAssignsIDAndCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testCustomer("สมชาย ใจดี", "1234567890"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected store-assigned id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected store-assigned createdAt")
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "สมชาย ใจดี" || got.AccountNumber != "1234567890" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("createdAt changed on read: %v != %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestCreateRejectsCallerID(t *testing.T) {
	s := openTestStore(t)

	c := testCustomer("a", "1")
	c.ID = "caller-supplied"
	_, err := s.Create(context.Background(), c)
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, Customer{AccountNumber: "1"}); !errors.Is(err, ErrConstraint) {
		t.Errorf("missing name: expected ErrConstraint, got %v", err)
	}
	if _, err := s.Create(ctx, Customer{Name: "a"}); !errors.Is(err, ErrConstraint) {
		t.Errorf("missing accountNumber: expected ErrConstraint, got %v", err)
	}
}

func TestUpdatePreservesIDAndCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testCustomer("Jane", "A1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mod := created
	mod.Name = "Jane Doe"
	mod.ID = "should-be-ignored"
	updated, err := s.Update(ctx, created.ID, mod)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("id reassigned: %q -> %q", created.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.Name != "Jane Doe" {
		t.Errorf("name not updated: %q", updated.Name)
	}
}

func TestUpdateMissingID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Update(context.Background(), "nope", testCustomer("a", "1"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReturnsFalseWhenAbsent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	removed, err := s.Delete(ctx, "absent")
	if err != nil {
		t.Fatalf("Delete of absent id must not error, got %v", err)
	}
	if removed {
		t.Error("Delete of absent id returned true")
	}

	created, err := s.Create(ctx, testCustomer("a", "1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	removed, err = s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed {
		t.Error("Delete of existing id returned false")
	}
}

func TestListOrderedByCreation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, account := range []string{"1", "2", "3"} {
		if _, err := s.Create(ctx, testCustomer(string(rune('a'+i)), account)); err != nil {
			t.Fatalf("Create %s: %v", account, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(list))
	}
}

// TestLocalWritesEchoOnFeed verifies each CRUD write is echoed to
// subscribers with a fully-populated event.
func TestLocalWritesEchoOnFeed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var events []Event
	sub := s.Subscribe(func(ev Event) { events = append(events, ev) })
	defer sub.Close()

	created, err := s.Create(ctx, testCustomer("Jane", "A1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mod := created
	mod.Name = "Jane Doe"
	if _, err := s.Update(ctx, created.ID, mod); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != EventInsert || events[0].New == nil || events[0].New.ID != created.ID {
		t.Errorf("bad insert event: %+v", events[0])
	}
	if events[1].Type != EventUpdate || events[1].New == nil || events[1].New.Name != "Jane Doe" {
		t.Errorf("bad update event: %+v", events[1])
	}
	if events[2].Type != EventDelete || events[2].Old == nil || events[2].Old.ID != created.ID {
		t.Errorf("bad delete event: %+v", events[2])
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var count int
	sub := s.Subscribe(func(Event) { count++ })

	if _, err := s.Create(ctx, testCustomer("a", "1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sub.Close()
	sub.Close() // second close is a no-op
	if n := s.feed.subscriberCount(); n != 0 {
		t.Errorf("subscriberCount after close = %d, want 0", n)
	}

	if _, err := s.Create(ctx, testCustomer("b", "2")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event before unsubscribe, got %d", count)
	}
}

func TestSaveAndListReports(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-05-01", "2025-05-15", "2025-06-01"} {
		_, err := s.SaveReport(ctx, PerformanceReport{
			Team: "ทีม A", WorkGroup: WorkGroup6090,
			TotalAssigned: 10, TotalCompleted: 4, TotalCured: 2,
			ReportDate: date,
		})
		if err != nil {
			t.Fatalf("SaveReport %s: %v", date, err)
		}
	}

	all, err := s.ListReports(ctx, "", "")
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(all))
	}
	if all[0].ReportDate != "2025-06-01" {
		t.Errorf("expected newest first, got %s", all[0].ReportDate)
	}

	may, err := s.ListReports(ctx, "2025-05-01", "2025-05-31")
	if err != nil {
		t.Fatalf("ListReports range: %v", err)
	}
	if len(may) != 2 {
		t.Errorf("expected 2 reports in May, got %d", len(may))
	}
}

func TestSaveReportRequiresTeamAndDate(t *testing.T) {
	s := openTestStore(t)

	_, err := s.SaveReport(context.Background(), PerformanceReport{Team: "ทีม A"})
	if !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
}
