// Package interest computes the daily interest on the point balance.
//
// Interest is simple, not compounded within a gap: a balance left alone for
// n days earns balance × rate × n in a single step when the user next opens
// the ledger.
package interest

import (
	"fmt"

	"github.com/daviddao/timebank/pkg/model"
)

// DefaultRate is 0.1% per day.
const DefaultRate = 0.001

// Result describes one accrual attempt.
type Result struct {
	// Days is the whole-day gap since the last accrual (0 on first run).
	Days int `json:"days"`
	// Earned is the exact amount; it is positive only when a ledger entry is due.
	Earned float64 `json:"earned"`
	// Advance is true when the last-accrual date should move to today.
	Advance bool `json:"advance"`
}

// Accrue computes interest for the gap between last and today.
//
//   - last unset: the date is initialised, nothing is earned.
//   - today on or before last: nothing happens.
//   - otherwise earned = balance × rate × days, which is zero or negative
//     for a non-positive balance; the date still advances.
func Accrue(balance float64, last, today model.Date, rate float64) (Result, error) {
	if last.IsZero() {
		return Result{Advance: true}, nil
	}
	days, err := today.DaysSince(last)
	if err != nil {
		return Result{}, fmt.Errorf("interest gap: %w", err)
	}
	if days <= 0 {
		return Result{Days: days}, nil
	}
	earned := balance * rate * float64(days)
	if earned < 0 {
		earned = 0
	}
	return Result{Days: days, Earned: earned, Advance: true}, nil
}

// Label is the ledger label for an accrual over days.
func Label(days int) string {
	if days == 1 {
		return "1-day interest"
	}
	return fmt.Sprintf("%d-day interest", days)
}
