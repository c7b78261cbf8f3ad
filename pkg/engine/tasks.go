package engine

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/session"
	"github.com/daviddao/timebank/pkg/task"
)

// CreateTask validates spec and adds a new task.
func (e *Engine) CreateTask(spec task.Spec) (model.Task, error) {
	var created model.Task
	err := e.mutate("create_task", func(now time.Time) (bool, error) {
		t, err := task.New(spec, now)
		if err != nil {
			return false, err
		}
		e.tasks = append(e.tasks, t)
		created = *t
		return true, nil
	})
	return created, err
}

// Tasks lists tasks in creation order.
func (e *Engine) Tasks() []model.Task {
	var out []model.Task
	e.view(func(time.Time) {
		out = make([]model.Task, len(e.tasks))
		for i, t := range e.tasks {
			out[i] = *t
		}
	})
	return out
}

// Task returns the task with the given id.
func (e *Engine) Task(id string) (model.Task, error) {
	var (
		out model.Task
		err error
	)
	e.view(func(time.Time) {
		var t *model.Task
		if t, err = e.findTaskLocked(id); err == nil {
			out = *t
		}
	})
	return out, err
}

// ResolveTask finds a task by exact id, exact name, or unique id prefix, in
// that order.
func (e *Engine) ResolveTask(ref string) (model.Task, error) {
	var (
		out model.Task
		err error
	)
	e.view(func(time.Time) {
		var t *model.Task
		if t, err = e.resolveTaskLocked(ref); err == nil {
			out = *t
		}
	})
	return out, err
}

func (e *Engine) findTaskLocked(id string) (*model.Task, error) {
	for _, t := range e.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, model.Errorf(model.CodeNotFound, "no task with id %q", id)
}

func (e *Engine) resolveTaskLocked(ref string) (*model.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, model.NewError(model.CodeInvalidInput, "task reference is empty")
	}
	if t, err := e.findTaskLocked(ref); err == nil {
		return t, nil
	}
	var byName, byPrefix []*model.Task
	for _, t := range e.tasks {
		if t.Name == ref {
			byName = append(byName, t)
		}
		if strings.HasPrefix(t.ID, ref) {
			byPrefix = append(byPrefix, t)
		}
	}
	switch {
	case len(byName) == 1:
		return byName[0], nil
	case len(byName) > 1:
		return nil, model.Errorf(model.CodeInvalidInput, "%d tasks are named %q, use an id", len(byName), ref)
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byPrefix) > 1:
		return nil, model.Errorf(model.CodeInvalidInput, "id prefix %q is ambiguous", ref)
	}
	return nil, model.Errorf(model.CodeNotFound, "no task matches %q", ref)
}

// TickTask adds one second to the task if the task timer is bound to it.
func (e *Engine) TickTask(id string) error {
	return e.mutate("tick_task", func(time.Time) (bool, error) {
		if _, err := e.findTaskLocked(id); err != nil {
			return false, err
		}
		if !e.session.IsTask(id) {
			return false, nil
		}
		var res TickResult
		return e.tickTaskLocked(id, &res)
	})
}

func (e *Engine) tickTaskLocked(id string, res *TickResult) (bool, error) {
	t, err := e.findTaskLocked(id)
	if err != nil {
		// The bound task was removed out from under the timer.
		e.session.Stop(session.TaskTimer)
		res.Stopped = true
		return true, nil
	}
	changed := task.Tick(t)
	res.ElapsedSeconds = t.ElapsedSeconds
	return changed, nil
}

// Completion is the result of CompleteTask.
type Completion struct {
	Task   model.Task `json:"task"`
	Reward float64    `json:"reward"`
	Total  float64    `json:"total"`
}

// CompleteTask settles one completion of a task and records its reward.
func (e *Engine) CompleteTask(id string) (Completion, error) {
	var c Completion
	err := e.mutate("complete_task", func(now time.Time) (bool, error) {
		t, err := e.findTaskLocked(id)
		if err != nil {
			return false, err
		}
		// Work on a copy so a refusal leaves the task untouched.
		next := *t
		reward, err := task.Complete(&next, now, e.opts.Reward)
		if err != nil {
			return false, err
		}
		*t = next
		e.ledger.Record(now, model.CategoryTaskReward, t.Name, t.ID, reward)
		if t.Completed && e.session.IsTask(t.ID) {
			e.session.Stop(session.TaskTimer)
		}
		c = Completion{Task: *t, Reward: reward, Total: e.ledger.Total()}
		e.log.Debug("task completed", zap.String("task", t.ID), zap.Float64("reward", reward))
		return true, nil
	})
	return c, err
}

// DeleteTask removes a task. Deleting an unknown id is not an error.
func (e *Engine) DeleteTask(id string) error {
	return e.mutate("delete_task", func(time.Time) (bool, error) {
		for i, t := range e.tasks {
			if t.ID != id {
				continue
			}
			e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
			if e.session.IsTask(id) {
				e.session.Stop(session.TaskTimer)
			}
			return true, nil
		}
		return false, nil
	})
}

// StartTaskTimer binds the session clock to a task, stopping any other
// timer.
func (e *Engine) StartTaskTimer(id string) error {
	return e.mutate("start_task_timer", func(time.Time) (bool, error) {
		t, err := e.findTaskLocked(id)
		if err != nil {
			return false, err
		}
		if t.Completed {
			return false, model.Errorf(model.CodeAlreadyCompleted, "task %q is already completed", t.Name)
		}
		prev := e.session.StartTask(id)
		if prev.Active() && !prev.IsTask(id) {
			e.log.Info("timer replaced", zap.String("previous", string(prev.Kind)))
		}
		return false, nil
	})
}

// StopTaskTimer stops the task timer if one is running.
func (e *Engine) StopTaskTimer() error {
	return e.mutate("stop_task_timer", func(time.Time) (bool, error) {
		e.session.Stop(session.TaskTimer)
		return false, nil
	})
}
