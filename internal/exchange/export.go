package exchange

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tedtam/fieldops/internal/store"
)

// Export writes the full field set of each record to a single worksheet,
// one row per record, columns in the canonical schema order. No filtering
// happens here; callers pre-filter the slice if they want a subset.
func Export(records []store.Customer, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	header := headerRow()
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, c := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = col.get(c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("computing cell for row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
