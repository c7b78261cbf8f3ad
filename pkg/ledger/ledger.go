// Package ledger holds the point balance and its append-only transaction log.
//
// Record is the only way to change the balance. The total is kept as a
// running sum so reads are O(1), and Restore rebuilds it from a persisted
// log, treating any part of a persisted total that the log does not explain
// as an opening balance. After every call the invariant
//
//	Total() == Opening() + sum(entry.Delta for entry in Entries())
//
// holds.
//
// Ledger is not goroutine-safe; the engine serializes access.
package ledger

import (
	"math"
	"time"

	"github.com/daviddao/timebank/pkg/model"
)

// Ledger is a point balance plus its transaction log.
type Ledger struct {
	opening float64
	total   float64
	entries []model.Transaction
	nextSeq int64
}

// New returns an empty ledger with a zero balance.
func New() *Ledger {
	return &Ledger{nextSeq: 1}
}

// Restore rebuilds a ledger from persisted state. Entries are taken in the
// given order and renumbered when their sequence numbers are missing or
// out of order. total is the persisted balance; the difference between it
// and the log sum becomes the opening balance.
func Restore(total float64, entries []model.Transaction) *Ledger {
	l := &Ledger{nextSeq: 1}
	var sum float64
	renumber := false
	var prev int64
	for _, e := range entries {
		if e.Seq <= prev {
			renumber = true
		}
		prev = e.Seq
		sum += e.Delta
	}
	l.entries = make([]model.Transaction, len(entries))
	copy(l.entries, entries)
	if renumber {
		for i := range l.entries {
			l.entries[i].Seq = int64(i + 1)
		}
	}
	if n := len(l.entries); n > 0 {
		l.nextSeq = l.entries[n-1].Seq + 1
	}
	l.total = total
	l.opening = total - sum
	if math.Abs(l.opening) < 1e-9 {
		l.opening = 0
	}
	return l
}

// Record appends an entry and applies its delta. It returns the stored entry.
func (l *Ledger) Record(at time.Time, cat model.Category, label, ref string, delta float64) model.Transaction {
	tx := model.Transaction{
		Seq:      l.nextSeq,
		Time:     at,
		Category: cat,
		Label:    label,
		Delta:    delta,
		Ref:      ref,
	}
	l.nextSeq++
	l.entries = append(l.entries, tx)
	l.total += delta
	return tx
}

// Total returns the current balance.
func (l *Ledger) Total() float64 { return l.total }

// Opening returns the balance not explained by the log.
func (l *Ledger) Opening() float64 { return l.opening }

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the log in append order.
func (l *Ledger) Entries() []model.Transaction {
	out := make([]model.Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastMatching returns the most recent entry for which match returns true.
func (l *Ledger) LastMatching(match func(model.Transaction) bool) (model.Transaction, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if match(l.entries[i]) {
			return l.entries[i], true
		}
	}
	return model.Transaction{}, false
}
