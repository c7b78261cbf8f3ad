package stats

import (
	"testing"
	"time"

	"github.com/daviddao/timebank/pkg/model"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func sampleLog() []model.Transaction {
	return []model.Transaction{
		{Seq: 1, Time: at(2026, 2, 28), Category: model.CategoryTaskReward, Delta: 100},
		{Seq: 2, Time: at(2026, 3, 1), Category: model.CategoryTaskReward, Delta: 20},
		{Seq: 3, Time: at(2026, 3, 2), Category: model.CategoryPurchase, Delta: -50},
		{Seq: 4, Time: at(2026, 3, 3), Category: model.CategoryInterest, Delta: 0.07},
		{Seq: 5, Time: at(2026, 3, 4), Category: model.CategoryTaskReward, Delta: -5},
		{Seq: 6, Time: at(2025, 3, 4), Category: model.CategoryTaskReward, Delta: 999},
		{Seq: 7, Time: at(2026, 4, 1), Category: model.CategoryTaskReward, Delta: 7},
	}
}

func TestMonthly_GainCountsOnlyTaskRewardsInMonth(t *testing.T) {
	r := Monthly(sampleLog(), 2026, time.March, time.UTC)
	if r.Gain != 15 {
		t.Fatalf("gain = %v, want 15", r.Gain)
	}
	if len(r.Entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(r.Entries))
	}
	if r.ByCategory[model.CategoryPurchase] != -50 || r.ByCategory[model.CategoryInterest] != 0.07 {
		t.Fatalf("by category = %v", r.ByCategory)
	}
}

func TestMonthly_MostRecentFirst(t *testing.T) {
	r := Monthly(sampleLog(), 2026, time.March, time.UTC)
	for i := 1; i < len(r.Entries); i++ {
		if r.Entries[i-1].Seq < r.Entries[i].Seq {
			t.Fatalf("entries not reverse chronological: %d before %d", r.Entries[i-1].Seq, r.Entries[i].Seq)
		}
	}
}

func TestMonthly_YearMatters(t *testing.T) {
	r := Monthly(sampleLog(), 2025, time.March, time.UTC)
	if r.Gain != 999 || len(r.Entries) != 1 {
		t.Fatalf("2025-03: gain=%v entries=%d", r.Gain, len(r.Entries))
	}
}

func TestMonthly_EmptyMonth(t *testing.T) {
	r := Monthly(sampleLog(), 2026, time.July, time.UTC)
	if r.Gain != 0 || len(r.Entries) != 0 || r.Entries == nil {
		t.Fatalf("empty month: %+v", r)
	}
}

func TestMonthly_IsPure(t *testing.T) {
	log := sampleLog()
	a := Monthly(log, 2026, time.March, time.UTC)
	b := Monthly(log, 2026, time.March, time.UTC)
	if a.Gain != b.Gain || len(a.Entries) != len(b.Entries) {
		t.Fatal("report not reproducible")
	}
	if log[0].Seq != 1 || log[6].Seq != 7 {
		t.Fatal("Monthly reordered the input log")
	}
}

func TestMonthly_Location(t *testing.T) {
	// 23:30 UTC on the last day of February is already March in UTC+2.
	log := []model.Transaction{
		{Time: time.Date(2026, 2, 28, 23, 30, 0, 0, time.UTC), Category: model.CategoryTaskReward, Delta: 3},
	}
	east := time.FixedZone("UTC+2", 2*3600)
	if r := Monthly(log, 2026, time.March, east); r.Gain != 3 {
		t.Fatalf("UTC+2 March gain = %v, want 3", r.Gain)
	}
	if r := Monthly(log, 2026, time.March, time.UTC); r.Gain != 0 {
		t.Fatalf("UTC March gain = %v, want 0", r.Gain)
	}
}

func TestDisplayGain(t *testing.T) {
	r := Report{Gain: 10.005}
	if r.DisplayGain() != 10.01 {
		t.Fatalf("DisplayGain = %v", r.DisplayGain())
	}
}
