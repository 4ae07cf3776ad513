// Package filter narrows and orders customer collections. All functions
// are pure: inputs are never mutated and output order is deterministic.
package filter

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tedtam/fieldops/internal/store"
)

// All is the facet sentinel meaning "no restriction".
const All = "all"

// Criteria is one filter request. A nil/empty facet slice, or one
// containing the "all" sentinel, leaves that facet unrestricted. Facets
// combine with logical AND.
type Criteria struct {
	SearchTerm string   `json:"searchTerm,omitempty"`
	WorkGroup  []string `json:"workGroup,omitempty"`
	Branch     []string `json:"branch,omitempty"`
	Status     []string `json:"status,omitempty"`
	CycleDay   []string `json:"cycleDay,omitempty"`
	Resus      []string `json:"resus,omitempty"`
	Team       []string `json:"team,omitempty"`
}

// Apply returns the subset of records matching the criteria, preserving
// input order.
func Apply(records []store.Customer, cr Criteria) []store.Customer {
	out := make([]store.Customer, 0, len(records))
	for _, r := range records {
		if matches(r, cr) {
			out = append(out, r)
		}
	}
	return out
}

func matches(c store.Customer, cr Criteria) bool {
	if cr.SearchTerm != "" && !matchesSearch(c, cr.SearchTerm) {
		return false
	}
	return facetAllows(cr.WorkGroup, c.WorkGroup) &&
		facetAllows(cr.Branch, c.Branch) &&
		facetAllows(cr.Status, c.Status) &&
		facetAllows(cr.CycleDay, c.CycleDay) &&
		facetAllows(cr.Resus, c.Resus) &&
		facetAllows(cr.Team, c.Team)
}

// matchesSearch checks the three searchable fields: name is matched
// case-insensitively, account number and hub code as raw substrings
// (they are codes, not prose).
func matchesSearch(c store.Customer, term string) bool {
	if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
		return true
	}
	return strings.Contains(c.AccountNumber, term) || strings.Contains(c.HubCode, term)
}

func facetAllows(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == All {
			return true
		}
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// thaiCollator orders mixed Thai/Latin names the way the field teams
// expect. collate.Collator is not safe for concurrent use, so each Sort
// call builds its own.
func thaiCollator() *collate.Collator {
	return collate.New(language.Thai)
}

// Sort stably orders records by the named field. String fields collate
// locale-aware, numeric and date fields compare naturally. An unknown
// field leaves the input order untouched (every pair compares equal
// under a stable sort). Descending exactly reverses ascending for
// records with distinct keys.
func Sort(records []store.Customer, field string, ascending bool) []store.Customer {
	out := make([]store.Customer, len(records))
	copy(out, records)

	less := lessFunc(field)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

func lessFunc(field string) func(a, b store.Customer) bool {
	if key := stringKey(field); key != nil {
		col := thaiCollator()
		return func(a, b store.Customer) bool {
			return col.CompareString(key(a), key(b)) < 0
		}
	}
	if key := numericKey(field); key != nil {
		return func(a, b store.Customer) bool {
			return key(a) < key(b)
		}
	}
	if field == "createdAt" {
		return func(a, b store.Customer) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return nil
}

func stringKey(field string) func(store.Customer) string {
	switch field {
	case "name":
		return func(c store.Customer) string { return c.Name }
	case "accountNumber":
		return func(c store.Customer) string { return c.AccountNumber }
	case "branch":
		return func(c store.Customer) string { return c.Branch }
	case "status":
		return func(c store.Customer) string { return c.Status }
	case "resus":
		return func(c store.Customer) string { return c.Resus }
	case "workGroup":
		return func(c store.Customer) string { return c.WorkGroup }
	case "team":
		return func(c store.Customer) string { return c.Team }
	case "fieldTeam":
		return func(c store.Customer) string { return c.FieldTeam }
	case "hubCode":
		return func(c store.Customer) string { return c.HubCode }
	case "cycleDay":
		return func(c store.Customer) string { return c.CycleDay }
	case "currentBucket":
		return func(c store.Customer) string { return c.CurrentBucket }
	case "workStatus":
		return func(c store.Customer) string { return c.WorkStatus }
	}
	return nil
}

func numericKey(field string) func(store.Customer) float64 {
	switch field {
	case "principal":
		return func(c store.Customer) float64 { return c.Principal }
	case "installment":
		return func(c store.Customer) float64 { return c.Installment }
	case "commission":
		return func(c store.Customer) float64 { return c.Commission }
	case "blueBookPrice":
		return func(c store.Customer) float64 { return c.BlueBookPrice }
	}
	return nil
}
