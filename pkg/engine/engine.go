// Package engine is the command surface of timebank.
//
// An Engine owns the whole state (tasks, ledger, time bank, session clock,
// interest date and catalog) behind one mutex. Every command runs to
// completion under that mutex, including the write-through save that
// follows a successful mutation, so commands are linearizable and a tick
// can never interleave with a purchase or a refund.
//
// Commands either apply all of their effects or none. A refused command
// returns a *model.Error and leaves the state untouched. A failed save is
// not a refusal: the in-memory state stays authoritative and the failure is
// reported through PersistErr until the next successful save.
package engine

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/daviddao/timebank/pkg/bank"
	"github.com/daviddao/timebank/pkg/clock"
	"github.com/daviddao/timebank/pkg/interest"
	"github.com/daviddao/timebank/pkg/ledger"
	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/session"
	"github.com/daviddao/timebank/pkg/snapshot"
	"github.com/daviddao/timebank/pkg/store"
	"github.com/daviddao/timebank/pkg/task"
)

// Persister is the part of a snapshot store the engine needs.
type Persister interface {
	Load() ([]byte, error)
	Save(body []byte) error
}

// Options configures an Engine. The zero value is usable: flat rewards,
// auto-stop overdraft, no interest, the system clock and a no-op logger.
type Options struct {
	Clock     clock.Clock
	Reward    task.RewardPolicy
	Overdraft bank.OverdraftPolicy
	// InterestRate is the daily rate; zero disables interest.
	InterestRate float64
	// Location is used for calendar months in reports. Nil means local time.
	Location *time.Location
	Logger   *zap.Logger
	// Guard, when set, runs before every mutating command. A non-nil error
	// refuses the command with CodeBusy unless it already carries a code.
	Guard func() error
}

// DefaultOptions returns the options the CLI uses when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Clock:        clock.Real{},
		Reward:       task.Flat{},
		Overdraft:    bank.AutoStop,
		InterestRate: interest.DefaultRate,
		Location:     time.Local,
	}
}

func (o Options) normalized() Options {
	if o.Clock == nil {
		o.Clock = clock.Real{}
	}
	if o.Reward == nil {
		o.Reward = task.Flat{}
	}
	if o.Overdraft == "" {
		o.Overdraft = bank.AutoStop
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Engine is the rewards ledger. Safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	st   Persister
	opts Options
	log  *zap.Logger
	clk  clock.Clock

	ledger       *ledger.Ledger
	tasks        []*model.Task
	bank         bank.Bank
	session      session.State
	lastInterest model.Date
	storeItems   []model.StoreItem
	rewards      []model.Reward

	loadErr    error
	persistErr error
}

// Open builds an engine from the snapshot in st. A missing snapshot starts
// an empty ledger; an unreadable one is logged, kept as LoadErr, and also
// starts empty. After loading, tasks are rolled over to today and interest
// is accrued once. st may be nil for a purely in-memory engine.
func Open(st Persister, opts Options) *Engine {
	opts = opts.normalized()
	e := &Engine{
		st:   st,
		opts: opts,
		log:  opts.Logger,
		clk:  opts.Clock,
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked()
	return e
}

// Reload drops the in-memory state, including any active session, and
// reads the snapshot again as Open does. A process about to hold the
// ledger in memory calls it once it has exclusive access, so it does not
// start from a copy that other processes have since replaced.
func (e *Engine) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked()
	return e.loadErr
}

func (e *Engine) loadLocked() {
	e.ledger = ledger.New()
	e.tasks = nil
	e.bank = bank.Bank{}
	e.session = session.State{}
	e.lastInterest = ""
	e.storeItems = nil
	e.rewards = nil
	e.loadErr = nil

	now := e.clk.Now()
	today := model.DateOf(now)

	if e.st != nil {
		body, err := e.st.Load()
		switch {
		case errors.Is(err, store.ErrNoSnapshot):
			e.log.Info("no snapshot, starting empty")
		case err != nil:
			e.loadErr = model.WrapError(model.CodePersistence, "load snapshot", err)
			e.log.Warn("load snapshot failed, starting empty", zap.Error(err))
		default:
			d, err := snapshot.Decode(body, today)
			if err != nil {
				e.loadErr = model.WrapError(model.CodePersistence, "decode snapshot", err)
				e.log.Warn("decode snapshot failed, starting empty", zap.Error(err))
				break
			}
			e.restore(d)
		}
	}

	rolled := e.rolloverLocked(today)
	res, err := e.accrueLocked(now)
	if err != nil {
		e.log.Warn("interest accrual skipped", zap.Error(err))
	}
	// A snapshot that failed to load is not overwritten until the user
	// issues a command.
	if !(rolled || res.Advance) || e.loadErr != nil {
		return
	}
	// Rollover and interest are redone by whoever loads next, so a refused
	// guard only defers them.
	if err := e.guardLocked(); err != nil {
		e.log.Info("maintenance save deferred", zap.Error(err))
		return
	}
	e.persistLocked(now)
}

func (e *Engine) restore(d *snapshot.Decoded) {
	for _, r := range d.Repairs {
		e.log.Info("snapshot repaired", zap.String("repair", r), zap.Int("version", d.Version))
	}
	e.ledger = ledger.Restore(d.Points, d.Log)
	if op := e.ledger.Opening(); op != 0 {
		e.log.Info("ledger has an opening balance", zap.Float64("opening", op))
	}
	e.tasks = make([]*model.Task, 0, len(d.Tasks))
	for i := range d.Tasks {
		t := d.Tasks[i]
		e.tasks = append(e.tasks, &t)
	}
	e.bank = bank.Restore(d.Bank)
	e.lastInterest = d.LastInterest
	e.storeItems = d.StoreItems
	e.rewards = d.Rewards
	e.log.Debug("snapshot loaded",
		zap.Int("version", d.Version),
		zap.Int("tasks", len(e.tasks)),
		zap.Int("entries", e.ledger.Len()),
	)
}

// mutate runs fn as one command. fn reports whether it changed anything;
// a change is followed by a save. A returned error means fn changed nothing.
func (e *Engine) mutate(op string, fn func(now time.Time) (bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.guardLocked(); err != nil {
		e.log.Info("command refused", zap.String("op", op), zap.Error(err))
		return err
	}

	now := e.clk.Now()
	e.rolloverLocked(model.DateOf(now))
	changed, err := fn(now)
	if err != nil {
		if code := model.CodeOf(err); code != "" {
			e.log.Info("command refused", zap.String("op", op), zap.String("code", string(code)), zap.Error(err))
		} else {
			e.log.Error("command failed", zap.String("op", op), zap.Error(err))
		}
		return err
	}
	e.log.Debug("command", zap.String("op", op), zap.Bool("changed", changed))
	if changed {
		e.persistLocked(now)
	}
	return nil
}

// guardLocked runs Options.Guard. An error without a code becomes CodeBusy.
func (e *Engine) guardLocked() error {
	if e.opts.Guard == nil {
		return nil
	}
	err := e.opts.Guard()
	if err != nil && model.CodeOf(err) == "" {
		err = model.WrapError(model.CodeBusy, "ledger is busy", err)
	}
	return err
}

// view runs fn under the lock after rolling tasks over to today. Rollover
// is in-memory maintenance and is saved with the next mutation.
func (e *Engine) view(fn func(now time.Time)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clk.Now()
	e.rolloverLocked(model.DateOf(now))
	fn(now)
}

func (e *Engine) rolloverLocked(today model.Date) bool {
	changed := false
	for _, t := range e.tasks {
		if task.Rollover(t, today) {
			changed = true
		}
	}
	return changed
}

func (e *Engine) stateLocked() snapshot.State {
	tasks := make([]model.Task, len(e.tasks))
	for i, t := range e.tasks {
		tasks[i] = *t
	}
	return snapshot.State{
		Points:       e.ledger.Total(),
		Tasks:        tasks,
		Bank:         e.bank.Snapshot(),
		Log:          e.ledger.Entries(),
		LastInterest: e.lastInterest,
		StoreItems:   append([]model.StoreItem(nil), e.storeItems...),
		Rewards:      append([]model.Reward(nil), e.rewards...),
	}
}

func (e *Engine) persistLocked(now time.Time) {
	if e.st == nil {
		return
	}
	body, err := snapshot.Encode(e.stateLocked(), now)
	if err == nil {
		err = e.st.Save(body)
	}
	if err != nil {
		e.persistErr = model.WrapError(model.CodePersistence, "save snapshot", err)
		e.log.Warn("save snapshot failed, keeping in-memory state", zap.Error(err))
		return
	}
	if e.persistErr != nil {
		e.log.Info("snapshot save recovered")
	}
	e.persistErr = nil
	e.loadErr = nil
}

// PersistErr returns the last save failure, or nil once a save succeeds.
func (e *Engine) PersistErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistErr
}

// LoadErr returns the error that made Open start from an empty state, or
// nil. It is cleared by the first successful save.
func (e *Engine) LoadErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// Save writes the current state even if nothing changed.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistLocked(e.clk.Now())
	return e.persistErr
}

// Status is a point-in-time summary of the engine.
type Status struct {
	Points       float64          `json:"points"`
	Session      session.State    `json:"session"`
	Tasks        int              `json:"tasks"`
	OpenTasks    int              `json:"open_tasks"`
	Bank         map[string]int64 `json:"bank"`
	Entries      int              `json:"entries"`
	LastInterest model.Date       `json:"last_interest_date"`
	PersistError string           `json:"persist_error,omitempty"`
}

// Status reports totals and the active timer.
func (e *Engine) Status() Status {
	var s Status
	e.view(func(time.Time) {
		s = Status{
			Points:       e.ledger.Total(),
			Session:      e.session,
			Tasks:        len(e.tasks),
			Bank:         e.bank.Snapshot(),
			Entries:      e.ledger.Len(),
			LastInterest: e.lastInterest,
		}
		for _, t := range e.tasks {
			if !t.Completed {
				s.OpenTasks++
			}
		}
		if e.persistErr != nil {
			s.PersistError = e.persistErr.Error()
		}
	})
	return s
}

// Session returns the active timer.
func (e *Engine) Session() session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// TickResult describes what one Tick did.
type TickResult struct {
	Kind session.Kind `json:"kind"`
	// Task timer.
	TaskID         string `json:"task_id,omitempty"`
	ElapsedSeconds int64  `json:"elapsed_seconds,omitempty"`
	// Consumption timer.
	Step *bank.Step `json:"step,omitempty"`
	// Stopped is set when this tick ended the session.
	Stopped bool `json:"stopped,omitempty"`
}

// Tick advances whichever timer is active by one second. With no active
// timer it does nothing.
func (e *Engine) Tick() (TickResult, error) {
	var res TickResult
	err := e.mutate("tick", func(now time.Time) (bool, error) {
		switch e.session.Kind {
		case session.TaskTimer:
			res.Kind = session.TaskTimer
			res.TaskID = e.session.TaskID
			return e.tickTaskLocked(e.session.TaskID, &res)
		case session.Consumption:
			res.Kind = session.Consumption
			return e.tickConsumptionLocked(now, &res), nil
		}
		return false, nil
	})
	return res, err
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
