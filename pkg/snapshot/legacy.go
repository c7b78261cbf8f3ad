package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/daviddao/timebank/pkg/model"
)

// Version 1 is the export format of the first generation of the app: tasks
// carry a free-text type and may lack the daily-limit fields added later,
// log entries carry a free-text type and no sequence or ref, and there is no
// catalog.

type taskV1 struct {
	Name           string `json:"name"`
	TaskType       string `json:"task_type"`
	TargetMin      int    `json:"target_min"`
	BasePoints     int    `json:"base_points"`
	MaxDaily       *int   `json:"max_daily"`
	CurrentDaily   *int   `json:"current_daily"`
	LastDate       string `json:"last_date"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	IsCompleted    bool   `json:"is_completed"`
	Deadline       string `json:"deadline"`
}

type logV1 struct {
	Time   time.Time `json:"time"`
	Type   string    `json:"type"`
	Name   string    `json:"name"`
	Points float64   `json:"points"`
}

type documentV1 struct {
	Points           *float64         `json:"points"`
	Tasks            []taskV1         `json:"tasks"`
	Bank             map[string]int64 `json:"bank"`
	Logs             []logV1          `json:"logs"`
	LastInterestDate string           `json:"last_interest_date"`
}

func decodeV1(data []byte, today model.Date) (*Decoded, error) {
	var doc documentV1
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot v1: %w", err)
	}
	d := &Decoded{}
	for i, lt := range doc.Tasks {
		t := model.Task{
			Name:           lt.Name,
			Kind:           legacyKind(lt.TaskType),
			TargetMinutes:  lt.TargetMin,
			BasePoints:     lt.BasePoints,
			ElapsedSeconds: lt.ElapsedSeconds,
			Completed:      lt.IsCompleted,
		}
		if lt.MaxDaily != nil {
			t.DailyLimit = *lt.MaxDaily
		}
		if lt.CurrentDaily != nil {
			t.CompletionsToday = *lt.CurrentDaily
		} else if t.Completed {
			t.CompletionsToday = 1
		}
		if day, err := model.ParseDate(lt.LastDate); err == nil {
			t.LastReset = day
		} else {
			d.repair("task %d: bad last_date %q", i, lt.LastDate)
		}
		if lt.Deadline != "" {
			if dl, err := model.ParseTimeOfDay(lt.Deadline); err == nil {
				t.Deadline = &dl
			} else {
				d.repair("task %d: bad deadline %q", i, lt.Deadline)
			}
		}
		d.Tasks = append(d.Tasks, d.normalizeTask(i, t, today))
	}

	for i, le := range doc.Logs {
		d.Log = append(d.Log, model.Transaction{
			Seq:      int64(i + 1),
			Time:     le.Time,
			Category: legacyCategory(le.Type),
			Label:    le.Name,
			Delta:    le.Points,
		})
	}

	d.Bank = doc.Bank
	if day, err := model.ParseDate(doc.LastInterestDate); err == nil {
		d.LastInterest = day
	} else {
		d.repair("bad last_interest_date %q, resetting", doc.LastInterestDate)
	}
	if doc.Points != nil {
		d.Points = *doc.Points
	} else {
		d.Points = sumDeltas(d.Log)
	}
	return d, nil
}

// legacyKind maps the free-text task type of version 1 onto a kind.
// Anything unrecognised is treated as a recurring task.
func legacyKind(s string) model.TaskKind {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case model.TaskKind(s).Valid():
		return model.TaskKind(s)
	case strings.Contains(s, "one") || strings.Contains(s, "once"):
		return model.KindOneTime
	case strings.Contains(s, "check") || strings.Contains(s, "sign"):
		return model.KindScheduledCheckIn
	default:
		return model.KindRecurring
	}
}

// legacyCategory maps the free-text log type of version 1 onto a category.
// Unknown types are kept verbatim so reports still show them.
func legacyCategory(s string) model.Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "task", "task_reward", "reward":
		return model.CategoryTaskReward
	case "interest":
		return model.CategoryInterest
	case "spend", "purchase", "buy":
		return model.CategoryPurchase
	case "redeem", "redemption", "prize":
		return model.CategoryRedemption
	case "refund", "return":
		return model.CategoryRefund
	}
	return model.Category(s)
}
