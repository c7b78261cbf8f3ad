// Package model defines the core domain types for timebank.
//
// Timebank is a personal points ledger for learning work:
//
//   - Tasks earn points when completed. One-time tasks finish for good;
//     recurring and scheduled check-in tasks reset every day up to a daily
//     completion limit.
//
//   - Points live in an append-only transaction log. The balance is the sum
//     of the log (plus any opening balance carried by old data) and is only
//     ever changed by appending an entry.
//
//   - Points can be spent on named buckets of time ("time bank") that drain
//     one second at a time while a consumption session runs.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskKind enumerates completion policies for a task.
type TaskKind string

const (
	KindOneTime          TaskKind = "one_time"
	KindRecurring        TaskKind = "recurring"
	KindScheduledCheckIn TaskKind = "scheduled_checkin"
)

// Valid reports whether k is a known kind.
func (k TaskKind) Valid() bool {
	switch k {
	case KindOneTime, KindRecurring, KindScheduledCheckIn:
		return true
	}
	return false
}

// Category enumerates the kinds of ledger entries.
type Category string

const (
	CategoryTaskReward Category = "task_reward"
	CategoryInterest   Category = "interest"
	CategoryPurchase   Category = "purchase"
	CategoryRedemption Category = "redemption"
	CategoryRefund     Category = "refund"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryTaskReward, CategoryInterest, CategoryPurchase, CategoryRedemption, CategoryRefund:
		return true
	}
	return false
}

// Task is a unit of learning work.
type Task struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Kind             TaskKind   `json:"kind"`
	TargetMinutes    int        `json:"target_minutes"`
	BasePoints       int        `json:"base_points"`
	DailyLimit       int        `json:"daily_limit"`
	CompletionsToday int        `json:"completions_today"`
	LastReset        Date       `json:"last_reset"`
	ElapsedSeconds   int64      `json:"elapsed_seconds"`
	Completed        bool       `json:"completed"`
	Deadline         *TimeOfDay `json:"deadline,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Transaction is a single entry in the append-only ledger.
type Transaction struct {
	Seq      int64     `json:"seq"`
	Time     time.Time `json:"time"`
	Category Category  `json:"category"`
	Label    string    `json:"label"`
	Delta    float64   `json:"delta"`
	// Ref names the task, bucket or reward the entry concerns.
	Ref string `json:"ref,omitempty"`
}

// Amount is the delta rounded for display.
func (t Transaction) Amount() float64 { return RoundPoints(t.Delta, 4) }

// MarshalJSON adds the rounded amount next to the raw delta. Decoding
// ignores it; delta stays the value of record.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount float64 `json:"amount"`
	}{plain(t), t.Amount()})
}

// StoreItem is a purchasable amount of time-bank minutes.
type StoreItem struct {
	Name    string `json:"name"`
	Price   int    `json:"price"`
	Minutes int    `json:"minutes"`
}

// Reward is a physical prize redeemable for points.
type Reward struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// ---------------------------------------------------------------------------
// Dates
// ---------------------------------------------------------------------------

const dateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form. The zero value means unset.
type Date string

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date { return Date(t.Format(dateLayout)) }

// ParseDate validates s and returns it as a Date. An empty string is the
// unset date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(s), nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Time returns midnight UTC of the day.
func (d Date) Time() (time.Time, error) {
	return time.Parse(dateLayout, string(d))
}

// DaysSince returns the number of whole days from earlier to d. It is
// negative when earlier is after d.
func (d Date) DaysSince(earlier Date) (int, error) {
	a, err := earlier.Time()
	if err != nil {
		return 0, err
	}
	b, err := d.Time()
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// ---------------------------------------------------------------------------
// Time of day
// ---------------------------------------------------------------------------

// TimeOfDay is a wall-clock time within a day, in minutes since midnight.
type TimeOfDay struct {
	Minutes int
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Minutes: t.Hour()*60 + t.Minute()}, nil
}

// PassedAt reports whether the instant t falls strictly after the time of
// day on its own calendar day. Seconds count: 09:00:01 has passed 09:00.
func (d TimeOfDay) PassedAt(t time.Time) bool {
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return secs > d.Minutes*60
}

func (d TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", d.Minutes/60, d.Minutes%60)
}

// MarshalText encodes as "HH:MM".
func (d TimeOfDay) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes "HH:MM".
func (d *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
