package exchange

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tedtam/fieldops/internal/store"
)

func openTestStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// buildWorkbook writes an xlsx with the given header and rows into memory.
func buildWorkbook(t *testing.T, header []string, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	h := make([]any, len(header))
	for i, v := range header {
		h[i] = v
	}
	if err := f.SetSheetRow("Sheet1", "A1", &h); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("writing row: %v", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestImportCreatesAndUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	existing, err := s.Create(ctx, store.Customer{Name: "Old Name", AccountNumber: "A1"})
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	wb := buildWorkbook(t,
		[]string{"name", "accountNumber", "team"},
		[][]any{
			{"New Name", "A1", "ทีม A"},
			{"Fresh Customer", "A2", "ทีม B"},
		},
	)

	sum, err := Import(ctx, s, wb)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Created != 1 || sum.Updated != 1 || sum.DuplicatesInFile != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	got, err := s.Get(ctx, existing.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("existing record not updated: %q", got.Name)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 customers after import, got %d", len(list))
	}
}

// TestImportLastRowWins: two rows sharing an account number keep only the
// LAST row's fields and count one duplicate.
func TestImportLastRowWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	wb := buildWorkbook(t,
		[]string{"name", "accountNumber"},
		[][]any{
			{"First Occurrence", "X"},
			{"Last Occurrence", "X"},
		},
	)

	sum, err := Import(ctx, s, wb)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.DuplicatesInFile != 1 {
		t.Errorf("expected 1 duplicate, got %d", sum.DuplicatesInFile)
	}
	if sum.Created != 1 {
		t.Errorf("expected 1 created, got %d", sum.Created)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one record for account X, got %d", len(list))
	}
	if list[0].Name != "Last Occurrence" {
		t.Errorf("expected last row to win, got %q", list[0].Name)
	}
}

func TestImportSkipsIncompleteRows(t *testing.T) {
	s := openTestStore(t)

	wb := buildWorkbook(t,
		[]string{"name", "accountNumber"},
		[][]any{
			{"", "NO-NAME"},
			{"No Account", ""},
			{"Valid", "V1"},
		},
	)

	sum, err := Import(context.Background(), s, wb)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Skipped != 2 || sum.Created != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	s := openTestStore(t)

	_, err := Import(context.Background(), s, strings.NewReader("this is not a workbook"))
	if !errors.Is(err, ErrBadFormat) {
		t.Fatalf("expected ErrBadFormat, got %v", err)
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("failed parse must apply nothing, store has %d rows", len(list))
	}
}

func TestImportFlagsSimilarNames(t *testing.T) {
	s := openTestStore(t)

	wb := buildWorkbook(t,
		[]string{"name", "accountNumber"},
		[][]any{
			{"Somchai Jaidee", "A1"},
			{"Somchai Jaide", "A2"}, // one edit away, different account
			{"Completely Different", "A3"},
		},
	)

	sum, err := Import(context.Background(), s, wb)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.SimilarNames != 1 {
		t.Errorf("expected 1 similar-name pair, got %d", sum.SimilarNames)
	}
}

// TestRoundTrip exports, imports into a fresh store, and re-exports: the
// set of account numbers must survive both directions.
func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	accounts := []string{"1234567890", "9876543210", "5555555555"}
	for i, acc := range accounts {
		c := store.Customer{
			Name:          "Customer " + acc,
			AccountNumber: acc,
			Principal:     float64(100000 * (i + 1)),
			Status:        store.StatusNotFinished,
			Team:          "ทีม A",
			Latitude:      13.7563,
			Longitude:     100.5018,
		}
		if _, err := src.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	records, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var buf bytes.Buffer
	if err := Export(records, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst := openTestStore(t)
	sum, err := Import(ctx, dst, bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Created != len(accounts) {
		t.Fatalf("expected %d created, got %+v", len(accounts), sum)
	}

	imported, err := dst.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make(map[string]store.Customer, len(imported))
	for _, c := range imported {
		got[c.AccountNumber] = c
	}
	for _, acc := range accounts {
		c, ok := got[acc]
		if !ok {
			t.Errorf("account %s lost in round-trip", acc)
			continue
		}
		if c.Name != "Customer "+acc {
			t.Errorf("account %s: name mangled to %q", acc, c.Name)
		}
		if c.Latitude != 13.7563 || c.Longitude != 100.5018 {
			t.Errorf("account %s: coordinates mangled to (%v, %v)", acc, c.Latitude, c.Longitude)
		}
	}
}
