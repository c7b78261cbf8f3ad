package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/timebank/pkg/engine"
)

func (a *app) cmdBuy(args []string) int {
	flags := flag.NewFlagSet("buy", flag.ContinueOnError)
	price := flags.Int("price", -1, "points to pay (-1 = use the shop item)")
	minutes := flags.Int("minutes", -1, "minutes to add (-1 = use the shop item)")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 || (*price < 0) != (*minutes < 0) {
		fmt.Fprintln(os.Stderr, "usage: tb buy <item> | tb buy <bucket> --price N --minutes M [--json]")
		return 1
	}

	var res engine.PurchaseResult
	if *price < 0 {
		res, err = a.engine.BuyItem(pos[0])
	} else {
		res, err = a.engine.Purchase(pos[0], *price, *minutes)
	}
	if err != nil {
		return fail("buy", err)
	}
	if *jsonOut {
		printJSON(res)
	} else {
		fmt.Printf("bought time for %s: %s banked, %d points spent (balance %s)\n",
			res.Bucket, dur(res.Remaining), res.Price, pts(res.Total))
	}
	return 0
}

func (a *app) cmdRefund(args []string) int {
	flags := flag.NewFlagSet("refund", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb refund <bucket> [--json]")
		return 1
	}

	res, err := a.engine.Refund(pos[0])
	if err != nil {
		return fail("refund", err)
	}
	if *jsonOut {
		printJSON(res)
	} else {
		fmt.Printf("refunded %s: %s points back, %s forfeited (balance %s)\n",
			res.Bucket, pts(res.Amount), dur(res.Forfeited), pts(res.Total))
	}
	return 0
}
