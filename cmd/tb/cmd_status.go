package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/daviddao/timebank/pkg/bank"
	"github.com/daviddao/timebank/pkg/session"
	"github.com/daviddao/timebank/pkg/store"
)

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	st := a.engine.Status()
	var lease *store.Lease
	if a.leaser != nil {
		var err error
		if lease, err = a.leaser.ActiveLease(leaseName); err != nil {
			fmt.Fprintf(os.Stderr, "tb: status: lease: %v\n", err)
		}
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"status": st, "timer_lease": lease, "backend": a.cfg.Backend})
		return 0
	}

	fmt.Printf("balance:   %s points\n", pts(st.Points))
	fmt.Printf("tasks:     %d (%d open)\n", st.Tasks, st.OpenTasks)
	fmt.Printf("entries:   %d\n", st.Entries)
	fmt.Printf("interest:  last accrued %s\n", st.LastInterest)
	switch st.Session.Kind {
	case session.TaskTimer:
		fmt.Printf("timer:     task %s\n", shortID(st.Session.TaskID))
	case session.Consumption:
		fmt.Printf("timer:     consuming %s\n", st.Session.Bucket)
	}
	if lease != nil {
		fmt.Printf("timer:     running in another process since %s\n", lease.Acquired.Local().Format(time.Kitchen))
	}

	fmt.Println()
	if len(st.Bank) == 0 {
		fmt.Println("time bank is empty")
	} else {
		fmt.Println("time bank:")
		for _, name := range bank.Bank(st.Bank).Names() {
			fmt.Printf("  %-20s %s\n", name, dur(st.Bank[name]))
		}
	}
	if st.PersistError != "" {
		fmt.Printf("\nWARNING: last save failed: %s\n", st.PersistError)
	}
	return 0
}

func (a *app) cmdHistory(args []string) int {
	flags := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := flags.Int("limit", 10, "max revisions to list (0 = all)")
	show := flags.Int64("show", 0, "print the snapshot body of one revision")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	hs, ok := a.store.(store.HistoryStore)
	if !ok {
		fmt.Fprintf(os.Stderr, "tb: history: the %s backend keeps no history\n", a.cfg.Backend)
		return 1
	}

	if *show > 0 {
		body, err := hs.Revision(*show)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tb: history: %v\n", err)
			return 1
		}
		os.Stdout.Write(body)
		fmt.Println()
		return 0
	}

	revs, err := hs.History(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tb: history: %v\n", err)
		return 1
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"revisions": revs, "count": len(revs)})
		return 0
	}
	if len(revs) == 0 {
		fmt.Println("no revisions")
		return 0
	}
	for _, r := range revs {
		fmt.Printf("%6d  %s  %d bytes\n", r.ID, r.SavedAt.Local().Format("2006-01-02 15:04:05"), r.Size)
	}
	return 0
}
