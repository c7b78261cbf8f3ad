// Package task implements the task lifecycle: creation, daily rollover,
// per-second ticks and completion.
//
// Functions here operate on a *model.Task owned by the caller. Complete
// validates everything before touching the task, so a returned error means
// the task is unchanged apart from the daily rollover, which is state
// maintenance rather than part of the command.
package task

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/timebank/pkg/model"
)

// Spec holds the user-supplied fields of a new task.
type Spec struct {
	Name          string
	Kind          model.TaskKind
	TargetMinutes int
	BasePoints    int
	// DailyLimit of 0 means the default of 1.
	DailyLimit int
	Deadline   *model.TimeOfDay
}

// New validates s and returns a fresh task created at now.
func New(s Spec, now time.Time) (*model.Task, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return nil, model.NewError(model.CodeInvalidInput, "task name is empty")
	}
	if s.Kind == "" {
		s.Kind = model.KindOneTime
	}
	if !s.Kind.Valid() {
		return nil, model.Errorf(model.CodeInvalidInput, "unknown task kind %q", s.Kind)
	}
	if s.TargetMinutes < 0 {
		return nil, model.NewError(model.CodeInvalidInput, "target minutes must not be negative")
	}
	if s.DailyLimit < 0 {
		return nil, model.NewError(model.CodeInvalidInput, "daily limit must not be negative")
	}
	if s.DailyLimit == 0 {
		s.DailyLimit = 1
	}
	if s.Kind == model.KindScheduledCheckIn && s.Deadline == nil {
		return nil, model.NewError(model.CodeInvalidInput, "scheduled check-in task needs a deadline")
	}
	var deadline *model.TimeOfDay
	if s.Deadline != nil && s.Kind == model.KindScheduledCheckIn {
		d := *s.Deadline
		deadline = &d
	}
	return &model.Task{
		ID:            uuid.NewString(),
		Name:          name,
		Kind:          s.Kind,
		TargetMinutes: s.TargetMinutes,
		BasePoints:    s.BasePoints,
		DailyLimit:    s.DailyLimit,
		LastReset:     model.DateOf(now),
		Deadline:      deadline,
		CreatedAt:     now,
	}, nil
}

// Rollover starts a new day for non one-time tasks whose last reset is not
// today. It reports whether anything changed.
func Rollover(t *model.Task, today model.Date) bool {
	if t.Kind == model.KindOneTime || t.LastReset == today {
		return false
	}
	t.CompletionsToday = 0
	t.Completed = false
	t.LastReset = today
	return true
}

// Tick adds one second of active time to an open task. It reports whether
// the task changed.
func Tick(t *model.Task) bool {
	if t.Completed {
		return false
	}
	t.ElapsedSeconds++
	return true
}

// Complete settles one completion of t at now and returns the reward.
func Complete(t *model.Task, now time.Time, policy RewardPolicy) (float64, error) {
	Rollover(t, model.DateOf(now))
	if t.Completed {
		return 0, model.Errorf(model.CodeAlreadyCompleted, "task %q is already completed", t.Name)
	}
	if t.Kind == model.KindScheduledCheckIn && t.Deadline != nil && t.Deadline.PassedAt(now) {
		return 0, model.Errorf(model.CodeDeadlineMissed, "check-in for %q closed at %s", t.Name, t.Deadline)
	}
	if policy == nil {
		policy = Flat{}
	}
	reward := policy.Reward(*t)

	t.CompletionsToday++
	if t.Kind == model.KindOneTime || t.CompletionsToday >= limitOf(t) {
		t.Completed = true
	} else {
		t.ElapsedSeconds = 0
	}
	return reward, nil
}

func limitOf(t *model.Task) int {
	if t.DailyLimit < 1 {
		return 1
	}
	return t.DailyLimit
}
