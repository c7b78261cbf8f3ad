package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daviddao/timebank/pkg/engine"
	"github.com/daviddao/timebank/pkg/session"
)

func (a *app) cmdTimer(args []string) int {
	flags := flag.NewFlagSet("timer", flag.ContinueOnError)
	limit := flags.Duration("for", 0, "stop after this long (0 = until ctrl-c)")
	complete := flags.Bool("complete", false, "complete the task when the timer stops")
	jsonOut := flags.Bool("json", false, "JSON output (one JSON object per tick)")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb timer <task> [--for D] [--complete] [--json]")
		return 1
	}

	t, err := a.engine.ResolveTask(pos[0])
	if err != nil {
		return fail("timer", err)
	}

	fmt.Fprintf(os.Stderr, "timing %s (tick every %s, ctrl-c to stop)\n", t.Name, a.cfg.Tick)
	code := a.runClock("timer", *limit, *jsonOut,
		func() error { return a.engine.StartTaskTimer(t.ID) },
		a.engine.StopTaskTimer,
		func(res engine.TickResult) {
			if !*jsonOut && res.ElapsedSeconds > 0 && res.ElapsedSeconds%60 == 0 {
				fmt.Printf("%s: %s\n", t.Name, dur(res.ElapsedSeconds))
			}
		})
	if code != 0 {
		return code
	}

	got, err := a.engine.Task(t.ID)
	if err != nil {
		return fail("timer", err)
	}
	if !*complete {
		if !*jsonOut {
			fmt.Printf("%s: %s so far\n", got.Name, dur(got.ElapsedSeconds))
		}
		return 0
	}
	c, err := a.engine.CompleteTask(t.ID)
	if err != nil {
		return fail("timer", err)
	}
	if *jsonOut {
		printJSON(c)
	} else {
		printCompletion(c.Task.Name, c.Reward, c.Total)
	}
	return 0
}

// runClock holds the timer lease and ticks the engine until the session
// stops, the time limit passes or the process is interrupted.
func (a *app) runClock(cmd string, limit time.Duration, jsonOut bool,
	start, stop func() error, report func(engine.TickResult)) int {

	if a.leaser != nil {
		_, conflict, err := a.leaser.AcquireLease(leaseName, a.holder, a.leaseTTL())
		if err != nil {
			fmt.Fprintf(os.Stderr, "tb: %s: lease: %v\n", cmd, err)
			return 1
		}
		if conflict != nil {
			fmt.Printf("BUSY: a timer has been running in another process since %s\n",
				conflict.Acquired.Local().Format(time.Kitchen))
			return 2
		}
		defer func() {
			if err := a.leaser.ReleaseLease(leaseName, a.holder); err != nil {
				fmt.Fprintf(os.Stderr, "tb: %s: release lease: %v\n", cmd, err)
			}
		}()
		// Saves made between openApp and the lease would be overwritten by
		// the first tick.
		if err := a.engine.Reload(); err != nil {
			fmt.Fprintf(os.Stderr, "tb: warning: %v; starting from an empty ledger\n", err)
		}
	}

	if err := start(); err != nil {
		return fail(cmd, err)
	}

	// Handle ctrl-c gracefully.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var deadline <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(a.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			fmt.Fprintln(os.Stderr, "\nstopped")
			return a.stopClock(cmd, stop)
		case <-deadline:
			return a.stopClock(cmd, stop)
		case <-ticker.C:
			if a.leaser != nil {
				if _, conflict, err := a.leaser.AcquireLease(leaseName, a.holder, a.leaseTTL()); err != nil {
					fmt.Fprintf(os.Stderr, "tb: %s: renew lease: %v\n", cmd, err)
				} else if conflict != nil {
					fmt.Println("BUSY: the timer lease was taken over by another process")
					a.stopClock(cmd, stop)
					return 2
				}
			}
			res, err := a.engine.Tick()
			if err != nil {
				fmt.Fprintf(os.Stderr, "tb: %s: %v\n", cmd, err)
				continue
			}
			if jsonOut {
				b, _ := json.Marshal(res)
				fmt.Println(string(b))
			}
			report(res)
			if res.Stopped || res.Kind == session.Idle {
				return 0
			}
		}
	}
}

func (a *app) stopClock(cmd string, stop func() error) int {
	if err := stop(); err != nil {
		return fail(cmd, err)
	}
	return 0
}
