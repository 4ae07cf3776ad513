package filter

import (
	"testing"

	"github.com/tedtam/fieldops/internal/store"
)

func sample() []store.Customer {
	return []store.Customer{
		{ID: "1", Name: "John Smith", AccountNumber: "1234567890", HubCode: "BKK01", Status: store.StatusNotFinished, Team: "A", WorkGroup: store.WorkGroup6090, Branch: "สาขาสุขุมวิท", CycleDay: "15", Resus: store.ResusCured, Principal: 100000},
		{ID: "2", Name: "สมหญิง จริงใจ", AccountNumber: "9876543210", HubCode: "BKK02", Status: store.StatusFinished, Team: "B", WorkGroup: store.WorkGroupNPL, Branch: "สาขาสยาม", CycleDay: "10", Resus: store.ResusDR, Principal: 200000},
		{ID: "3", Name: "Anna Smithson", AccountNumber: "5555555555", HubCode: "CNX01", Status: store.StatusNotFinished, Team: "A", WorkGroup: store.WorkGroup6090, Branch: "สาขาสุขุมวิท", CycleDay: "15", Resus: store.ResusRepo, Principal: 150000},
	}
}

func gotIDs(records []store.Customer) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sameIDs(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEmptyCriteriaReturnsAllInOrder(t *testing.T) {
	got := Apply(sample(), Criteria{})
	if !sameIDs(gotIDs(got), "1", "2", "3") {
		t.Fatalf("expected all records unchanged, got %v", gotIDs(got))
	}
}

func TestSearchMatchesNameCaseInsensitive(t *testing.T) {
	got := Apply(sample(), Criteria{SearchTerm: "smith"})
	if !sameIDs(gotIDs(got), "1", "3") {
		t.Fatalf("expected [1 3], got %v", gotIDs(got))
	}
}

func TestSearchMatchesAccountNumberAndHubCode(t *testing.T) {
	if got := Apply(sample(), Criteria{SearchTerm: "98765"}); !sameIDs(gotIDs(got), "2") {
		t.Errorf("account substring: expected [2], got %v", gotIDs(got))
	}
	if got := Apply(sample(), Criteria{SearchTerm: "CNX"}); !sameIDs(gotIDs(got), "3") {
		t.Errorf("hub code substring: expected [3], got %v", gotIDs(got))
	}
	// Codes are not case-folded.
	if got := Apply(sample(), Criteria{SearchTerm: "cnx"}); len(got) != 0 {
		t.Errorf("lower-cased hub code should not match, got %v", gotIDs(got))
	}
}

func TestSearchMatchesThaiName(t *testing.T) {
	got := Apply(sample(), Criteria{SearchTerm: "สมหญิง"})
	if !sameIDs(gotIDs(got), "2") {
		t.Fatalf("expected [2], got %v", gotIDs(got))
	}
}

func TestFacetsCombineWithAND(t *testing.T) {
	got := Apply(sample(), Criteria{
		Status: []string{store.StatusNotFinished},
		Team:   []string{"A"},
	})
	if !sameIDs(gotIDs(got), "1", "3") {
		t.Fatalf("expected [1 3], got %v", gotIDs(got))
	}

	got = Apply(sample(), Criteria{
		Status: []string{store.StatusFinished},
		Team:   []string{"A"},
	})
	if len(got) != 0 {
		t.Fatalf("conflicting facets should yield nothing, got %v", gotIDs(got))
	}
}

func TestAllSentinelDisablesFacet(t *testing.T) {
	got := Apply(sample(), Criteria{Status: []string{All}})
	if len(got) != 3 {
		t.Fatalf("'all' sentinel should not restrict, got %v", gotIDs(got))
	}
}

func TestFacetMembership(t *testing.T) {
	got := Apply(sample(), Criteria{WorkGroup: []string{store.WorkGroupNPL}})
	if !sameIDs(gotIDs(got), "2") {
		t.Fatalf("expected [2], got %v", gotIDs(got))
	}
	got = Apply(sample(), Criteria{Branch: []string{"สาขาสุขุมวิท", "สาขาสยาม"}})
	if len(got) != 3 {
		t.Fatalf("multi-value facet: expected all, got %v", gotIDs(got))
	}
}

func TestSortDeterministicAndReversible(t *testing.T) {
	in := sample()

	asc1 := Sort(in, "principal", true)
	asc2 := Sort(in, "principal", true)
	for i := range asc1 {
		if asc1[i].ID != asc2[i].ID {
			t.Fatalf("sort not deterministic: %v vs %v", gotIDs(asc1), gotIDs(asc2))
		}
	}
	if !sameIDs(gotIDs(asc1), "1", "3", "2") {
		t.Fatalf("ascending principal: expected [1 3 2], got %v", gotIDs(asc1))
	}

	desc := Sort(in, "principal", false)
	if !sameIDs(gotIDs(desc), "2", "3", "1") {
		t.Fatalf("descending should reverse ascending for distinct keys, got %v", gotIDs(desc))
	}
}

func TestSortUnknownFieldPreservesOrder(t *testing.T) {
	got := Sort(sample(), "noSuchField", true)
	if !sameIDs(gotIDs(got), "1", "2", "3") {
		t.Fatalf("unknown field must keep input order, got %v", gotIDs(got))
	}
}

func TestSortStableForEqualKeys(t *testing.T) {
	in := sample()
	in[0].Team = "A"
	in[1].Team = "A"
	in[2].Team = "A"

	got := Sort(in, "team", true)
	if !sameIDs(gotIDs(got), "1", "2", "3") {
		t.Fatalf("equal keys must preserve input order, got %v", gotIDs(got))
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := sample()
	Sort(in, "principal", false)
	if !sameIDs(gotIDs(in), "1", "2", "3") {
		t.Fatalf("Sort mutated its input: %v", gotIDs(in))
	}
}
