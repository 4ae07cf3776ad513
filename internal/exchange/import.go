package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/agnivade/levenshtein"
	"github.com/xuri/excelize/v2"

	"github.com/tedtam/fieldops/internal/store"
)

// ErrBadFormat is returned when the workbook cannot be parsed at all. In
// that case nothing has been applied to the store.
var ErrBadFormat = errors.New("unreadable spreadsheet")

// Summary reports the outcome of one import batch.
type Summary struct {
	Created          int `json:"created"`
	Updated          int `json:"updated"`
	DuplicatesInFile int `json:"duplicatesInFile"`
	Skipped          int `json:"skipped"`
	SimilarNames     int `json:"similarNames"`
}

// similarNameDistance is the levenshtein threshold below which two rows
// with different account numbers are flagged as possible duplicates.
const similarNameDistance = 2

// Import reads the first sheet of an .xlsx workbook and upserts each row
// into the store, keyed by accountNumber.
//
// Rows missing name or accountNumber are skipped. When several rows share
// an accountNumber, the last row in file order wins and the duplicate
// counter is incremented; the import does not fail. Row upserts are
// applied one by one with no rollback: a failure partway leaves earlier
// upserts in place and aborts the rest.
func Import(ctx context.Context, st store.Store, r io.Reader) (Summary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Summary{}, fmt.Errorf("%w: workbook has no sheets", ErrBadFormat)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if len(rows) == 0 {
		return Summary{}, fmt.Errorf("%w: missing header row", ErrBadFormat)
	}

	setters := make([]func(*store.Customer, string), len(rows[0]))
	known := 0
	for i, header := range rows[0] {
		if set := setterFor(header); set != nil {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return Summary{}, fmt.Errorf("%w: no recognized column headers", ErrBadFormat)
	}

	var summary Summary

	// Last-row-wins de-duplication by account number, order preserved
	// for the surviving rows.
	byAccount := make(map[string]store.Customer)
	var order []string
	for _, row := range rows[1:] {
		var c store.Customer
		for i, cell := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&c, cell)
			}
		}
		if c.Name == "" || c.AccountNumber == "" {
			summary.Skipped++
			continue
		}
		if _, seen := byAccount[c.AccountNumber]; seen {
			summary.DuplicatesInFile++
		} else {
			order = append(order, c.AccountNumber)
		}
		byAccount[c.AccountNumber] = c
	}

	summary.SimilarNames = countSimilarNames(byAccount, order)

	existing, err := st.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing existing customers: %w", err)
	}
	idByAccount := make(map[string]string, len(existing))
	for _, c := range existing {
		idByAccount[c.AccountNumber] = c.ID
	}

	for _, account := range order {
		c := byAccount[account]
		if id, ok := idByAccount[account]; ok {
			if _, err := st.Update(ctx, id, c); err != nil {
				return summary, fmt.Errorf("updating account %s: %w", account, err)
			}
			summary.Updated++
		} else {
			if _, err := st.Create(ctx, c); err != nil {
				return summary, fmt.Errorf("creating account %s: %w", account, err)
			}
			summary.Created++
		}
	}
	return summary, nil
}

// countSimilarNames flags near-identical names under distinct account
// numbers, a common symptom of re-keyed rows in the field teams'
// hand-edited sheets. Warning only; nothing is merged.
func countSimilarNames(byAccount map[string]store.Customer, order []string) int {
	count := 0
	for i, a := range order {
		for _, b := range order[i+1:] {
			na, nb := byAccount[a].Name, byAccount[b].Name
			if na == nb {
				count++
				continue
			}
			if levenshtein.ComputeDistance(na, nb) <= similarNameDistance {
				count++
			}
		}
	}
	if count > 0 {
		slog.Warn("import batch contains similar names under different accounts", "pairs", count)
	}
	return count
}
