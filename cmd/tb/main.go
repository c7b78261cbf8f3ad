// Command tb is the timebank CLI: a personal rewards ledger where finished
// learning tasks earn points and points buy time for leisure.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("tb", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	code := a.run(os.Args[1], os.Args[2:])
	a.Close()
	os.Exit(code)
}

// run dispatches one subcommand. A command that succeeded in memory but
// could not be saved still fails, since the process is about to exit.
func (a *app) run(cmd string, args []string) int {
	code := a.dispatch(cmd, args)
	if err := a.engine.PersistErr(); err != nil {
		fmt.Fprintf(os.Stderr, "tb: %s: %v\n", cmd, err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func (a *app) dispatch(cmd string, args []string) int {
	switch cmd {
	// Earning
	case "task":
		return a.cmdTask(args)
	case "timer":
		return a.cmdTimer(args)
	case "interest":
		return a.cmdInterest(args)

	// Spending
	case "buy":
		return a.cmdBuy(args)
	case "consume":
		return a.cmdConsume(args)
	case "refund":
		return a.cmdRefund(args)
	case "shop":
		return a.cmdShop(args)
	case "reward":
		return a.cmdReward(args)
	case "redeem":
		return a.cmdRedeem(args)

	// Ledger
	case "record":
		return a.cmdRecord(args)
	case "log":
		return a.cmdLog(args)
	case "report":
		return a.cmdReport(args)
	case "status":
		return a.cmdStatus(args)
	case "history":
		return a.cmdHistory(args)

	default:
		fmt.Fprintf(os.Stderr, "tb: unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'tb --help' for usage.")
		return 1
	}
}

func printUsage() {
	fmt.Print(`tb: a rewards ledger for learning time

Finish tasks to earn points. Spend points on minutes of leisure time and
on physical rewards. Idle points earn a little interest every day.

Usage:
  tb <command> [flags]

Earning:
  task add <name> [--kind K]   Create a task (one_time, recurring, scheduled_checkin)
  task list [--open]           List tasks
  task done <task>             Complete a task and collect its reward
  task rm <task>               Delete a task
  timer <task> [--for D]       Run the task timer in the foreground
  interest                     Accrue interest for the days since the last accrual

Spending:
  buy <item>                   Buy a shop item into the time bank
  buy <bucket> --price N --minutes M
                               Buy minutes directly
  consume <bucket> [--for D]   Spend banked time in the foreground
  refund <bucket>              Refund the last purchase and drop the bucket
  shop add|list|rm             Manage the shop catalog
  reward add|list|rm           Manage physical rewards
  redeem <reward>              Spend points on a physical reward

Ledger:
  record <category> <delta> [label]
                               Append a manual entry
  log [--limit N]              Show the transaction log
  report [--month YYYY-MM]     Monthly gains and spending
  status                       Balance, time bank and the active timer
  history [--show ID]          Saved snapshot revisions

Tasks can be named by id, id prefix or unique name.

Environment:
  TIMEBANK_DB             database path (default: .timebank/timebank.db)
  TIMEBANK_BACKEND        sqlite or bolt (default: sqlite)
  TIMEBANK_REWARD_POLICY  flat or early_bonus (default: flat)
  TIMEBANK_OVERDRAFT      auto_stop or penalty (default: auto_stop)
  TIMEBANK_INTEREST_RATE  daily interest rate (default: 0.001)
  TIMEBANK_TICK           timer tick interval (default: 1s)
  TIMEBANK_HISTORY        snapshot revisions kept (default: 20)
  TIMEBANK_LOG_LEVEL      debug, info, warn, error (default: warn)
  TIMEBANK_LOG_ENCODING   console or json (default: console)

A .env file in the working directory is read first.
All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  refused (already completed, deadline missed, insufficient points,
     empty bucket, or a timer running in another process)
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "tb: "+format+"\n", args...)
	os.Exit(1)
}
