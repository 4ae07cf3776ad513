// Package report aggregates customer collections into the per-team
// performance and commission shapes the dashboards consume.
package report

import (
	"sort"

	"github.com/tedtam/fieldops/internal/store"
)

// TeamSummary is the per-team, per-work-group performance aggregate.
type TeamSummary struct {
	Team           string `json:"team"`
	WorkGroup      string `json:"workGroup"`
	TotalAssigned  int    `json:"totalAssigned"`
	TotalCompleted int    `json:"totalCompleted"`
	TotalCured     int    `json:"totalCured"`
	TotalDR        int    `json:"totalDr"`
	TotalRepo      int    `json:"totalRepo"`
	TotalTapDeng   int    `json:"totalTapDeng"`
}

// CommissionSummary tracks each team's commission wallet: amounts earned
// on finished cases versus still outstanding.
type CommissionSummary struct {
	Team        string  `json:"team"`
	Earned      float64 `json:"earned"`
	Outstanding float64 `json:"outstanding"`
	Cases       int     `json:"cases"`
	Finished    int     `json:"finished"`
}

// Summarize rolls the collection up by (team, workGroup). Output is
// sorted by team then work group for deterministic rendering.
func Summarize(records []store.Customer) []TeamSummary {
	type key struct{ team, workGroup string }
	byKey := make(map[key]*TeamSummary)

	for _, c := range records {
		k := key{c.Team, c.WorkGroup}
		s, ok := byKey[k]
		if !ok {
			s = &TeamSummary{Team: c.Team, WorkGroup: c.WorkGroup}
			byKey[k] = s
		}
		s.TotalAssigned++
		if c.Status == store.StatusFinished {
			s.TotalCompleted++
		}
		switch c.Resus {
		case store.ResusCured:
			s.TotalCured++
		case store.ResusDR:
			s.TotalDR++
		case store.ResusRepo:
			s.TotalRepo++
		case store.ResusTapDeng:
			s.TotalTapDeng++
		}
	}

	out := make([]TeamSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		return out[i].WorkGroup < out[j].WorkGroup
	})
	return out
}

// Commissions rolls commission amounts up by team. A case's commission
// counts as earned once its status is finished, outstanding otherwise.
func Commissions(records []store.Customer) []CommissionSummary {
	byTeam := make(map[string]*CommissionSummary)
	for _, c := range records {
		s, ok := byTeam[c.Team]
		if !ok {
			s = &CommissionSummary{Team: c.Team}
			byTeam[c.Team] = s
		}
		s.Cases++
		if c.Status == store.StatusFinished {
			s.Finished++
			s.Earned += c.Commission
		} else {
			s.Outstanding += c.Commission
		}
	}

	out := make([]CommissionSummary, 0, len(byTeam))
	for _, s := range byTeam {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Team < out[j].Team })
	return out
}

// Snapshot converts live summaries into persistable report rows for the
// given date.
func Snapshot(summaries []TeamSummary, reportDate string) []store.PerformanceReport {
	out := make([]store.PerformanceReport, len(summaries))
	for i, s := range summaries {
		out[i] = store.PerformanceReport{
			Team:           s.Team,
			WorkGroup:      s.WorkGroup,
			TotalAssigned:  s.TotalAssigned,
			TotalCompleted: s.TotalCompleted,
			TotalCured:     s.TotalCured,
			TotalDR:        s.TotalDR,
			TotalRepo:      s.TotalRepo,
			TotalTapDeng:   s.TotalTapDeng,
			ReportDate:     reportDate,
		}
	}
	return out
}
