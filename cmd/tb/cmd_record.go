package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/daviddao/timebank/pkg/interest"
	"github.com/daviddao/timebank/pkg/model"
)

func (a *app) cmdRecord(args []string) int {
	flags := flag.NewFlagSet("record", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tb record <category> <delta> [label...] [--json]")
		return 1
	}

	delta, err := strconv.ParseFloat(pos[1], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tb: record: bad delta %q\n", pos[1])
		return 1
	}
	cat := model.Category(pos[0])
	label := strings.Join(pos[2:], " ")

	total, err := a.engine.RecordTransaction(cat, label, delta)
	if err != nil {
		return fail("record", err)
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"category": cat, "label": label, "delta": delta, "total": total})
	} else {
		fmt.Printf("recorded %s %s (balance %s)\n", cat, signed(delta), pts(total))
	}
	return 0
}

func (a *app) cmdInterest(args []string) int {
	flags := flag.NewFlagSet("interest", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	res, err := a.engine.AccrueInterest()
	if err != nil {
		return fail("interest", err)
	}
	total := a.engine.TotalPoints()
	if *jsonOut {
		printJSON(map[string]interface{}{"result": res, "total": total,
			"last_interest_date": a.engine.LastInterest()})
		return 0
	}
	if res.Earned > 0 {
		fmt.Printf("%s: +%s points (balance %s)\n",
			interest.Label(res.Days), model.FormatPoints(res.Earned, 4), pts(total))
	} else {
		fmt.Printf("no interest due (last accrual %s)\n", a.engine.LastInterest())
	}
	return 0
}
