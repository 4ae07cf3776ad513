// Package exchange moves customer collections in and out of .xlsx
// workbooks. Import and export share one canonical header mapping: the
// camelCase field names below, matching the JSON wire names, in the
// column order of the columns table. Sheets written by Export re-import
// cleanly.
package exchange

import (
	"strconv"

	"github.com/tedtam/fieldops/internal/store"
)

// SheetName is the worksheet written by Export. Import always reads the
// first sheet regardless of its name.
const SheetName = "Customers"

type column struct {
	header string
	get    func(store.Customer) any
	set    func(*store.Customer, string)
}

func setFloat(dst *float64, raw string) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = v
	}
}

// columns is the canonical header-to-field mapping. The id column is
// exported for traceability but ignored on import: imported rows are
// keyed by accountNumber, never by id.
var columns = []column{
	{"id", func(c store.Customer) any { return c.ID }, func(c *store.Customer, v string) {}},
	{"name", func(c store.Customer) any { return c.Name }, func(c *store.Customer, v string) { c.Name = v }},
	{"accountNumber", func(c store.Customer) any { return c.AccountNumber }, func(c *store.Customer, v string) { c.AccountNumber = v }},
	{"groupCode", func(c store.Customer) any { return c.GroupCode }, func(c *store.Customer, v string) { c.GroupCode = v }},
	{"branch", func(c store.Customer) any { return c.Branch }, func(c *store.Customer, v string) { c.Branch = v }},
	{"principal", func(c store.Customer) any { return c.Principal }, func(c *store.Customer, v string) { setFloat(&c.Principal, v) }},
	{"status", func(c store.Customer) any { return c.Status }, func(c *store.Customer, v string) { c.Status = v }},
	{"brand", func(c store.Customer) any { return c.Brand }, func(c *store.Customer, v string) { c.Brand = v }},
	{"model", func(c store.Customer) any { return c.Model }, func(c *store.Customer, v string) { c.Model = v }},
	{"licensePlate", func(c store.Customer) any { return c.LicensePlate }, func(c *store.Customer, v string) { c.LicensePlate = v }},
	{"resus", func(c store.Customer) any { return c.Resus }, func(c *store.Customer, v string) { c.Resus = v }},
	{"authorizationDate", func(c store.Customer) any { return c.AuthorizationDate }, func(c *store.Customer, v string) { c.AuthorizationDate = v }},
	{"commission", func(c store.Customer) any { return c.Commission }, func(c *store.Customer, v string) { setFloat(&c.Commission, v) }},
	{"registrationId", func(c store.Customer) any { return c.RegistrationID }, func(c *store.Customer, v string) { c.RegistrationID = v }},
	{"workGroup", func(c store.Customer) any { return c.WorkGroup }, func(c *store.Customer, v string) { c.WorkGroup = v }},
	{"fieldTeam", func(c store.Customer) any { return c.FieldTeam }, func(c *store.Customer, v string) { c.FieldTeam = v }},
	{"installment", func(c store.Customer) any { return c.Installment }, func(c *store.Customer, v string) { setFloat(&c.Installment, v) }},
	{"initialBucket", func(c store.Customer) any { return c.InitialBucket }, func(c *store.Customer, v string) { c.InitialBucket = v }},
	{"currentBucket", func(c store.Customer) any { return c.CurrentBucket }, func(c *store.Customer, v string) { c.CurrentBucket = v }},
	{"cycleDay", func(c store.Customer) any { return c.CycleDay }, func(c *store.Customer, v string) { c.CycleDay = v }},
	{"engineNumber", func(c store.Customer) any { return c.EngineNumber }, func(c *store.Customer, v string) { c.EngineNumber = v }},
	{"blueBookPrice", func(c store.Customer) any { return c.BlueBookPrice }, func(c *store.Customer, v string) { setFloat(&c.BlueBookPrice, v) }},
	{"address", func(c store.Customer) any { return c.Address }, func(c *store.Customer, v string) { c.Address = v }},
	{"latitude", func(c store.Customer) any { return c.Latitude }, func(c *store.Customer, v string) { setFloat(&c.Latitude, v) }},
	{"longitude", func(c store.Customer) any { return c.Longitude }, func(c *store.Customer, v string) { setFloat(&c.Longitude, v) }},
	{"hubCode", func(c store.Customer) any { return c.HubCode }, func(c *store.Customer, v string) { c.HubCode = v }},
	{"workStatus", func(c store.Customer) any { return c.WorkStatus }, func(c *store.Customer, v string) { c.WorkStatus = v }},
	{"lastVisitResult", func(c store.Customer) any { return c.LastVisitResult }, func(c *store.Customer, v string) { c.LastVisitResult = v }},
	{"team", func(c store.Customer) any { return c.Team }, func(c *store.Customer, v string) { c.Team = v }},
}

func headerRow() []any {
	out := make([]any, len(columns))
	for i, col := range columns {
		out[i] = col.header
	}
	return out
}

func setterFor(header string) func(*store.Customer, string) {
	for _, col := range columns {
		if col.header == header {
			return col.set
		}
	}
	return nil
}
