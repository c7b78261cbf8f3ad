// Package snapshot encodes and decodes the full engine state as one JSON
// document.
//
// Every document carries a schema_version. Decoding goes through a wire type
// per version in which every field that an older writer may have omitted is
// optional, and each missing field is filled with its documented default:
//
//	daily_limit        1
//	completions_today  0 (and never above daily_limit)
//	last_reset         the decoding day
//	id                 a fresh uuid
//	points             the sum of the log
//
// Anything repaired on the way in is listed in Decoded.Repairs so the
// caller can log it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/timebank/pkg/model"
)

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 2

// State is everything the engine persists.
type State struct {
	Points       float64
	Tasks        []model.Task
	Bank         map[string]int64
	Log          []model.Transaction
	LastInterest model.Date
	StoreItems   []model.StoreItem
	Rewards      []model.Reward
}

// Decoded is a decoded snapshot plus what decoding had to fix.
type Decoded struct {
	State
	Version int
	Repairs []string
}

type document struct {
	SchemaVersion    int                 `json:"schema_version"`
	Points           float64             `json:"points"`
	Tasks            []model.Task        `json:"tasks"`
	Bank             map[string]int64    `json:"bank"`
	Logs             []model.Transaction `json:"logs"`
	LastInterestDate model.Date          `json:"last_interest_date"`
	StoreItems       []model.StoreItem   `json:"store_items"`
	Rewards          []model.Reward      `json:"rewards"`
	SavedAt          time.Time           `json:"saved_at"`
}

// Encode serializes s as a current-version document.
func Encode(s State, savedAt time.Time) ([]byte, error) {
	doc := document{
		SchemaVersion:    CurrentVersion,
		Points:           s.Points,
		Tasks:            nonNil(s.Tasks),
		Bank:             s.Bank,
		Logs:             nonNil(s.Log),
		LastInterestDate: s.LastInterest,
		StoreItems:       nonNil(s.StoreItems),
		Rewards:          nonNil(s.Rewards),
		SavedAt:          savedAt.UTC(),
	}
	if doc.Bank == nil {
		doc.Bank = map[string]int64{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a document of any supported version. today fills missing
// reset dates.
func Decode(data []byte, today model.Date) (*Decoded, error) {
	var head struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode snapshot header: %w", err)
	}
	version := 1
	if head.SchemaVersion != nil {
		version = *head.SchemaVersion
	}

	var (
		d   *Decoded
		err error
	)
	switch version {
	case 1:
		d, err = decodeV1(data, today)
	case 2:
		d, err = decodeV2(data, today)
	default:
		return nil, fmt.Errorf("unsupported snapshot schema version %d", version)
	}
	if err != nil {
		return nil, err
	}
	d.Version = version
	if d.Bank == nil {
		d.Bank = map[string]int64{}
	}
	return d, nil
}

type taskV2 struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Kind             model.TaskKind   `json:"kind"`
	TargetMinutes    int              `json:"target_minutes"`
	BasePoints       int              `json:"base_points"`
	DailyLimit       *int             `json:"daily_limit"`
	CompletionsToday *int             `json:"completions_today"`
	LastReset        model.Date       `json:"last_reset"`
	ElapsedSeconds   int64            `json:"elapsed_seconds"`
	Completed        bool             `json:"completed"`
	Deadline         *model.TimeOfDay `json:"deadline"`
	CreatedAt        time.Time        `json:"created_at"`
}

type documentV2 struct {
	Points           *float64            `json:"points"`
	Tasks            []taskV2            `json:"tasks"`
	Bank             map[string]int64    `json:"bank"`
	Logs             []model.Transaction `json:"logs"`
	LastInterestDate model.Date          `json:"last_interest_date"`
	StoreItems       []model.StoreItem   `json:"store_items"`
	Rewards          []model.Reward      `json:"rewards"`
}

func decodeV2(data []byte, today model.Date) (*Decoded, error) {
	var doc documentV2
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot v2: %w", err)
	}
	d := &Decoded{}
	for i, wt := range doc.Tasks {
		t := model.Task{
			ID:             wt.ID,
			Name:           wt.Name,
			Kind:           wt.Kind,
			TargetMinutes:  wt.TargetMinutes,
			BasePoints:     wt.BasePoints,
			LastReset:      wt.LastReset,
			ElapsedSeconds: wt.ElapsedSeconds,
			Completed:      wt.Completed,
			Deadline:       wt.Deadline,
			CreatedAt:      wt.CreatedAt,
		}
		if wt.DailyLimit != nil {
			t.DailyLimit = *wt.DailyLimit
		}
		if wt.CompletionsToday != nil {
			t.CompletionsToday = *wt.CompletionsToday
		}
		if !t.Kind.Valid() {
			d.repair("task %d: unknown kind %q, using %s", i, t.Kind, model.KindRecurring)
			t.Kind = model.KindRecurring
		}
		d.Tasks = append(d.Tasks, d.normalizeTask(i, t, today))
	}
	d.Log = doc.Logs
	d.Bank = doc.Bank
	d.LastInterest = doc.LastInterestDate
	d.StoreItems = doc.StoreItems
	d.Rewards = doc.Rewards
	if doc.Points != nil {
		d.Points = *doc.Points
	} else {
		d.Points = sumDeltas(d.Log)
		d.repair("points missing, using log sum %v", d.Points)
	}
	return d, nil
}

// normalizeTask applies per-field defaults and clamps shared by all versions.
func (d *Decoded) normalizeTask(i int, t model.Task, today model.Date) model.Task {
	if t.ID == "" {
		t.ID = uuid.NewString()
		d.repair("task %d: missing id, assigned %s", i, t.ID)
	}
	if t.DailyLimit < 1 {
		t.DailyLimit = 1
	}
	if t.CompletionsToday < 0 {
		t.CompletionsToday = 0
	}
	if t.CompletionsToday > t.DailyLimit {
		d.repair("task %d: completions %d above limit %d", i, t.CompletionsToday, t.DailyLimit)
		t.CompletionsToday = t.DailyLimit
	}
	if !t.Completed && t.CompletionsToday >= t.DailyLimit {
		t.Completed = true
	}
	if t.TargetMinutes < 0 {
		t.TargetMinutes = 0
	}
	if t.ElapsedSeconds < 0 {
		t.ElapsedSeconds = 0
	}
	if t.LastReset.IsZero() {
		t.LastReset = today
	}
	if t.Kind == model.KindScheduledCheckIn && t.Deadline == nil {
		d.repair("task %d: check-in without deadline, using %s", i, model.KindRecurring)
		t.Kind = model.KindRecurring
	}
	if t.Kind != model.KindScheduledCheckIn {
		t.Deadline = nil
	}
	return t
}

func (d *Decoded) repair(format string, args ...any) {
	d.Repairs = append(d.Repairs, fmt.Sprintf(format, args...))
}

func sumDeltas(log []model.Transaction) float64 {
	var s float64
	for _, e := range log {
		s += e.Delta
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
