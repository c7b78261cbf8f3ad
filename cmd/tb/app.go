package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daviddao/timebank/pkg/bank"
	"github.com/daviddao/timebank/pkg/clock"
	"github.com/daviddao/timebank/pkg/config"
	"github.com/daviddao/timebank/pkg/engine"
	"github.com/daviddao/timebank/pkg/logger"
	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/store"
	"github.com/daviddao/timebank/pkg/task"
)

// leaseName is the store lease held by a running timer process.
const leaseName = "timer"

// app holds shared state for all CLI subcommands.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	store  store.SnapshotStore
	leaser store.Leaser // nil when the backend cannot arbitrate
	engine *engine.Engine
	clk    clock.Clock
	holder string // identifies this process in the lease table
}

// newApp loads configuration, opens the store and builds the engine.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return openApp(cfg, log, clock.Real{})
}

// openApp wires an app from an already loaded configuration.
func openApp(cfg *config.Config, log *zap.Logger, clk clock.Clock) (*app, error) {
	st, err := store.Open(cfg.Backend, cfg.DB, store.Options{History: cfg.History, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", cfg.DB, err)
	}
	policy, err := task.PolicyByName(cfg.RewardPolicy)
	if err != nil {
		st.Close()
		return nil, err
	}
	overdraft, err := bank.ParseOverdraft(cfg.Overdraft)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		store:  st,
		clk:    clk,
		holder: uuid.NewString(),
	}
	a.leaser, _ = st.(store.Leaser)

	opts := engine.DefaultOptions()
	opts.Clock = clk
	opts.Reward = policy
	opts.Overdraft = overdraft
	opts.InterestRate = cfg.InterestRate
	opts.Logger = log
	opts.Guard = a.guard
	a.engine = engine.Open(st, opts)

	if err := a.engine.LoadErr(); err != nil {
		fmt.Fprintf(os.Stderr, "tb: warning: %v; starting from an empty ledger\n", err)
	}
	return a, nil
}

// Close flushes the logger and releases the database connection.
func (a *app) Close() {
	_ = a.log.Sync()
	a.store.Close()
}

// guard refuses mutations while another process runs a timer. That process
// holds the ledger in memory and would overwrite anything saved meanwhile.
func (a *app) guard() error {
	if a.leaser == nil {
		return nil
	}
	l, err := a.leaser.ActiveLease(leaseName)
	if err != nil {
		return model.WrapError(model.CodePersistence, "check timer lease", err)
	}
	if l != nil && l.Holder != a.holder {
		return model.Errorf(model.CodeBusy, "a timer has been running in another process since %s",
			l.Acquired.Local().Format(time.Kitchen))
	}
	return nil
}

// leaseTTL outlives a few missed ticks so a slow save does not drop the lease.
func (a *app) leaseTTL() time.Duration {
	return max(10*a.cfg.Tick, 5*time.Second)
}

// fail reports err for cmd and returns the matching exit code.
func fail(cmd string, err error) int {
	if code := model.CodeOf(err); code != "" {
		fmt.Fprintf(os.Stderr, "tb: %s: %s: %v\n", cmd, code, err)
	} else {
		fmt.Fprintf(os.Stderr, "tb: %s: %v\n", cmd, err)
	}
	return exitCode(err)
}

// exitCode maps an error to the process exit status: 2 when a ledger rule
// refused the command, 1 for anything else.
func exitCode(err error) int {
	switch model.CodeOf(err) {
	case model.CodeAlreadyCompleted, model.CodeDeadlineMissed, model.CodeInsufficientPoints,
		model.CodeEmptyBucket, model.CodeBusy:
		return 2
	}
	return 1
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals. Negative numbers are positionals.
func parseArgs(flags *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for len(args) > 0 {
		if _, err := strconv.ParseFloat(args[0], 64); err == nil {
			pos = append(pos, args[0])
			args = args[1:]
			continue
		}
		if err := flags.Parse(args); err != nil {
			return nil, err
		}
		args = flags.Args()
		if len(args) == 0 {
			break
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
	return pos, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// pts formats a point amount for humans.
func pts(v float64) string { return model.FormatPoints(v, 2) }

// dur formats a number of seconds.
func dur(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

// shortID abbreviates a task id for listings.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
