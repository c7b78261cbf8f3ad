package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/timebank/pkg/engine"
)

func (a *app) cmdConsume(args []string) int {
	flags := flag.NewFlagSet("consume", flag.ContinueOnError)
	limit := flags.Duration("for", 0, "stop after this long (0 = until the bucket is empty or ctrl-c)")
	jsonOut := flags.Bool("json", false, "JSON output (one JSON object per tick)")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb consume <bucket> [--for D] [--json]")
		return 1
	}
	bucket := pos[0]

	fmt.Fprintf(os.Stderr, "consuming %s (tick every %s, ctrl-c to stop)\n", bucket, a.cfg.Tick)
	var last engine.TickResult
	code := a.runClock("consume", *limit, *jsonOut,
		func() error { return a.engine.StartConsumption(bucket) },
		a.engine.StopConsumption,
		func(res engine.TickResult) {
			last = res
			if *jsonOut || res.Step == nil {
				return
			}
			switch {
			case res.Stopped:
				fmt.Printf("%s: time is up\n", bucket)
			case res.Step.Penalty > 0:
				fmt.Printf("%s: overdrawn, %s points charged\n", bucket, pts(res.Step.Penalty))
			case res.Step.Remaining%60 == 0:
				fmt.Printf("%s: %s left\n", bucket, dur(res.Step.Remaining))
			}
		})
	if code != 0 || *jsonOut {
		return code
	}
	if !last.Stopped {
		left := a.engine.Bank()[bucket]
		fmt.Printf("%s: paused with %s left\n", bucket, dur(left))
	}
	return 0
}
