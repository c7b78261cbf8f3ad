// Package stats derives monthly reports from the transaction log.
//
// Everything here is a pure function of the log: no state, no side effects,
// and the same log always yields the same report.
package stats

import (
	"time"

	"github.com/daviddao/timebank/pkg/model"
)

// Report is the monthly view of the ledger.
type Report struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	// Entries in the month, most recent first.
	Entries []model.Transaction `json:"entries"`
	// Gain is the sum of task rewards in the month.
	Gain float64 `json:"gain"`
	// ByCategory sums deltas per category over the month.
	ByCategory map[model.Category]float64 `json:"by_category"`
}

// DisplayGain is Gain rounded to two decimals.
func (r Report) DisplayGain() float64 { return model.RoundPoints(r.Gain, 2) }

// Monthly builds the report for year/month from a log in append order.
// Timestamps are compared in loc; nil means each entry's own location.
func Monthly(log []model.Transaction, year int, month time.Month, loc *time.Location) Report {
	r := Report{
		Year:       year,
		Month:      month,
		Entries:    []model.Transaction{},
		ByCategory: map[model.Category]float64{},
	}
	for i := len(log) - 1; i >= 0; i-- {
		e := log[i]
		ts := e.Time
		if loc != nil {
			ts = ts.In(loc)
		}
		if ts.Year() != year || ts.Month() != month {
			continue
		}
		r.Entries = append(r.Entries, e)
		r.ByCategory[e.Category] += e.Delta
		if e.Category == model.CategoryTaskReward {
			r.Gain += e.Delta
		}
	}
	return r
}
