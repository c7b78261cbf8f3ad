package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/daviddao/timebank/pkg/model"
)

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	limit := flags.Int("limit", 50, "max entries to show (most recent)")
	category := flags.String("category", "", "filter by category")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	entries := a.engine.Transactions()
	if *category != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if string(e.Category) == *category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[len(entries)-*limit:]
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"entries": entries, "count": len(entries)})
		return 0
	}
	if len(entries) == 0 {
		fmt.Println("no entries")
		return 0
	}
	for _, e := range entries {
		printEntry(e)
	}
	return 0
}

func printEntry(e model.Transaction) {
	fmt.Printf("#%-4d %s  %-11s %10s  %s\n",
		e.Seq, e.Time.Local().Format("2006-01-02 15:04"), e.Category,
		signed(e.Amount()), e.Label)
}

func (a *app) cmdReport(args []string) int {
	flags := flag.NewFlagSet("report", flag.ContinueOnError)
	month := flags.String("month", "", "calendar month YYYY-MM (default: this month)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	when := a.clk.Now()
	if *month != "" {
		t, err := time.ParseInLocation("2006-01", *month, time.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tb: report: bad month %q, want YYYY-MM\n", *month)
			return 1
		}
		when = t
	}

	r := a.engine.MonthlyReport(when.Year(), when.Month())
	if *jsonOut {
		printJSON(map[string]interface{}{"report": r, "display_gain": r.DisplayGain()})
		return 0
	}

	fmt.Printf("%s %d: gained %s points from tasks\n", r.Month, r.Year, pts(r.DisplayGain()))
	cats := make([]string, 0, len(r.ByCategory))
	for c := range r.ByCategory {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Printf("  %-11s %10s\n", c, signed(model.RoundPoints(r.ByCategory[model.Category(c)], 2)))
	}
	if len(r.Entries) == 0 {
		fmt.Println("no entries this month")
		return 0
	}
	fmt.Println()
	for _, e := range r.Entries {
		printEntry(e)
	}
	return 0
}
