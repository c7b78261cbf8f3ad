// Package session tracks the single active countdown that per-second ticks
// are applied to.
//
// There are two kinds of timer: a task timer accumulating active time on one
// task, and a consumption timer draining one time-bank bucket. At most one
// is active; starting either replaces whatever was running.
package session

// Kind identifies the active timer.
type Kind string

const (
	Idle        Kind = ""
	TaskTimer   Kind = "task"
	Consumption Kind = "consumption"
)

// State is the session clock. The zero value is idle.
type State struct {
	Kind   Kind   `json:"kind,omitempty"`
	TaskID string `json:"task_id,omitempty"`
	Bucket string `json:"bucket,omitempty"`
}

// Active reports whether any timer is running.
func (s State) Active() bool { return s.Kind != Idle }

// StartTask binds the clock to a task, replacing any running timer. It
// returns the state that was replaced.
func (s *State) StartTask(taskID string) State {
	prev := *s
	*s = State{Kind: TaskTimer, TaskID: taskID}
	return prev
}

// StartConsumption binds the clock to a bucket, replacing any running
// timer. It returns the state that was replaced.
func (s *State) StartConsumption(bucket string) State {
	prev := *s
	*s = State{Kind: Consumption, Bucket: bucket}
	return prev
}

// Stop halts the timer if it is of the given kind. It reports whether a
// timer was stopped.
func (s *State) Stop(k Kind) bool {
	if s.Kind != k || k == Idle {
		return false
	}
	*s = State{}
	return true
}

// IsTask reports whether the task timer is bound to taskID.
func (s State) IsTask(taskID string) bool {
	return s.Kind == TaskTimer && s.TaskID == taskID
}

// IsBucket reports whether the consumption timer is bound to bucket.
func (s State) IsBucket(bucket string) bool {
	return s.Kind == Consumption && s.Bucket == bucket
}
