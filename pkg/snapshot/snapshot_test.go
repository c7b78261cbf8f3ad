package snapshot

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/daviddao/timebank/pkg/model"
)

const today = model.Date("2026-03-10")

func sampleState() State {
	dl := model.TimeOfDay{Minutes: 9 * 60}
	return State{
		Points: 812.5,
		Tasks: []model.Task{
			{ID: "t1", Name: "read", Kind: model.KindRecurring, TargetMinutes: 30, BasePoints: 10,
				DailyLimit: 2, CompletionsToday: 1, LastReset: "2026-03-10", ElapsedSeconds: 42},
			{ID: "t2", Name: "wake", Kind: model.KindScheduledCheckIn, BasePoints: 5,
				DailyLimit: 1, LastReset: "2026-03-09", Deadline: &dl},
		},
		Bank: map[string]int64{"movie": 1800, "empty": 0},
		Log: []model.Transaction{
			{Seq: 1, Time: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), Category: model.CategoryTaskReward, Label: "read", Delta: 1000, Ref: "t1"},
			{Seq: 2, Time: time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC), Category: model.CategoryPurchase, Label: "Purchase: movie", Delta: -187.5, Ref: "movie"},
		},
		LastInterest: "2026-03-09",
		StoreItems:   []model.StoreItem{{Name: "movie", Price: 200, Minutes: 30}},
		Rewards:      []model.Reward{{Name: "book", Price: 300}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sampleState()
	b, err := Encode(in, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	d, err := Decode(b, today)
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != CurrentVersion {
		t.Fatalf("version = %d", d.Version)
	}
	if len(d.Repairs) != 0 {
		t.Fatalf("current version needed repairs: %v", d.Repairs)
	}
	if d.Points != in.Points || d.LastInterest != in.LastInterest {
		t.Fatalf("scalars: points=%v last=%q", d.Points, d.LastInterest)
	}
	if len(d.Tasks) != 2 || d.Tasks[0].ElapsedSeconds != 42 || d.Tasks[0].CompletionsToday != 1 {
		t.Fatalf("tasks: %+v", d.Tasks)
	}
	if d.Tasks[1].Deadline == nil || d.Tasks[1].Deadline.String() != "09:00" {
		t.Fatalf("deadline lost: %+v", d.Tasks[1].Deadline)
	}
	if v, ok := d.Bank["empty"]; !ok || v != 0 {
		t.Fatal("empty bucket must survive a round trip")
	}
	if len(d.Log) != 2 || d.Log[1].Ref != "movie" {
		t.Fatalf("log: %+v", d.Log)
	}
	if len(d.StoreItems) != 1 || len(d.Rewards) != 1 {
		t.Fatalf("catalog: %+v %+v", d.StoreItems, d.Rewards)
	}
}

func TestEncodeEmptyStateHasArrays(t *testing.T) {
	b, err := Encode(State{}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"tasks":[]`, `"logs":[]`, `"bank":{}`, `"schema_version":2`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("encoded empty state missing %s: %s", key, b)
		}
	}
}

func TestDecodeV2MissingNewerFields(t *testing.T) {
	raw := `{
		"schema_version": 2,
		"points": 10,
		"tasks": [{"id": "a", "name": "flashcards", "kind": "recurring", "base_points": 3}],
		"bank": {"game": 60},
		"logs": [],
		"last_interest_date": ""
	}`
	d, err := Decode([]byte(raw), today)
	if err != nil {
		t.Fatal(err)
	}
	tk := d.Tasks[0]
	if tk.DailyLimit != 1 || tk.CompletionsToday != 0 || tk.LastReset != today {
		t.Fatalf("defaults not applied: %+v", tk)
	}
	if d.StoreItems != nil || d.Rewards != nil {
		t.Fatalf("absent catalog should decode empty: %+v %+v", d.StoreItems, d.Rewards)
	}
}

func TestDecodeV2RepairsInconsistentTasks(t *testing.T) {
	raw := `{
		"schema_version": 2,
		"tasks": [
			{"name": "a", "kind": "weird", "daily_limit": 2, "completions_today": 5},
			{"id": "b", "name": "b", "kind": "scheduled_checkin"}
		],
		"logs": [{"seq": 1, "category": "task_reward", "delta": 4}]
	}`
	d, err := Decode([]byte(raw), today)
	if err != nil {
		t.Fatal(err)
	}
	a := d.Tasks[0]
	if a.ID == "" || a.Kind != model.KindRecurring || a.CompletionsToday != 2 || !a.Completed {
		t.Fatalf("task a: %+v", a)
	}
	if d.Tasks[1].Kind != model.KindRecurring {
		t.Fatalf("check-in without deadline should degrade: %+v", d.Tasks[1])
	}
	if d.Points != 4 {
		t.Fatalf("missing points should default to log sum, got %v", d.Points)
	}
	if len(d.Repairs) < 4 {
		t.Fatalf("repairs not reported: %v", d.Repairs)
	}
}

func TestDecodeV1Legacy(t *testing.T) {
	raw := `{
		"points": 120.75,
		"tasks": [
			{"name": "essay", "task_type": "One-time", "target_min": 60, "base_points": 50, "is_completed": true},
			{"name": "vocab", "task_type": "regular", "target_min": 15, "base_points": 5,
			 "max_daily": 3, "current_daily": 1, "last_date": "2026-03-09", "elapsed_seconds": 30},
			{"name": "wake", "task_type": "check-in", "base_points": 2, "deadline": "07:30"}
		],
		"bank": {"movie": 900},
		"logs": [
			{"time": "2026-03-09T10:00:00Z", "type": "task", "name": "essay", "points": 50},
			{"time": "2026-03-09T11:00:00Z", "type": "spend", "name": "Purchase: movie", "points": -20},
			{"time": "2026-03-09T12:00:00Z", "type": "mystery", "name": "?", "points": 1}
		],
		"last_interest_date": "2026-03-08"
	}`
	d, err := Decode([]byte(raw), today)
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != 1 {
		t.Fatalf("version = %d, want 1", d.Version)
	}
	essay, vocab, wake := d.Tasks[0], d.Tasks[1], d.Tasks[2]
	if essay.Kind != model.KindOneTime || !essay.Completed || essay.CompletionsToday != 1 || essay.DailyLimit != 1 {
		t.Fatalf("essay: %+v", essay)
	}
	if vocab.Kind != model.KindRecurring || vocab.DailyLimit != 3 || vocab.CompletionsToday != 1 || vocab.LastReset != "2026-03-09" {
		t.Fatalf("vocab: %+v", vocab)
	}
	if wake.Kind != model.KindScheduledCheckIn || wake.Deadline == nil || wake.Deadline.String() != "07:30" {
		t.Fatalf("wake: %+v", wake)
	}
	if essay.ID == "" || essay.ID == vocab.ID {
		t.Fatal("legacy tasks need distinct generated ids")
	}
	if d.Log[0].Category != model.CategoryTaskReward || d.Log[1].Category != model.CategoryPurchase {
		t.Fatalf("log categories: %q %q", d.Log[0].Category, d.Log[1].Category)
	}
	if d.Log[2].Category != "mystery" || d.Log[2].Seq != 3 {
		t.Fatalf("unknown legacy category: %+v", d.Log[2])
	}
	if d.Points != 120.75 || d.LastInterest != "2026-03-08" || d.Bank["movie"] != 900 {
		t.Fatalf("scalars: %+v", d.State)
	}
}

func TestDecodeV1BadDates(t *testing.T) {
	raw := `{"tasks": [{"name": "x", "last_date": "yesterday"}], "last_interest_date": "soon"}`
	d, err := Decode([]byte(raw), today)
	if err != nil {
		t.Fatal(err)
	}
	if d.Tasks[0].LastReset != today || !d.LastInterest.IsZero() {
		t.Fatalf("bad dates not defaulted: %+v last=%q", d.Tasks[0], d.LastInterest)
	}
}

func TestDecodeRejectsGarbageAndFutureVersions(t *testing.T) {
	if _, err := Decode([]byte("not json"), today); err == nil {
		t.Fatal("garbage should fail")
	}
	future, _ := json.Marshal(map[string]any{"schema_version": 99})
	if _, err := Decode(future, today); err == nil {
		t.Fatal("future version should fail")
	}
}

func TestLegacyKind(t *testing.T) {
	cases := map[string]model.TaskKind{
		"one_time":          model.KindOneTime,
		"One-time":          model.KindOneTime,
		"once":              model.KindOneTime,
		"scheduled_checkin": model.KindScheduledCheckIn,
		"Daily check-in":    model.KindScheduledCheckIn,
		"sign in":           model.KindScheduledCheckIn,
		"regular":           model.KindRecurring,
		"":                  model.KindRecurring,
	}
	for in, want := range cases {
		if got := legacyKind(in); got != want {
			t.Errorf("legacyKind(%q) = %q, want %q", in, got, want)
		}
	}
}
