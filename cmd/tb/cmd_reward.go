package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdReward(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tb reward add|list|rm ...")
		return 1
	}
	sub, args := args[0], args[1:]
	flags := flag.NewFlagSet("reward "+sub, flag.ContinueOnError)
	price := flags.Int("price", 0, "price in points")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}

	switch sub {
	case "add":
		if len(pos) != 1 {
			fmt.Fprintln(os.Stderr, "usage: tb reward add <name> --price N [--json]")
			return 1
		}
		r, err := a.engine.AddReward(pos[0], *price)
		if err != nil {
			return fail("reward add", err)
		}
		if *jsonOut {
			printJSON(r)
		} else {
			fmt.Printf("reward: %s for %d points\n", r.Name, r.Price)
		}
	case "list", "ls":
		rewards := a.engine.Rewards()
		if *jsonOut {
			printJSON(map[string]interface{}{"rewards": rewards, "count": len(rewards)})
			return 0
		}
		if len(rewards) == 0 {
			fmt.Println("no rewards")
		}
		for _, r := range rewards {
			fmt.Printf("%-20s %5d pts\n", r.Name, r.Price)
		}
	case "rm":
		if len(pos) != 1 {
			fmt.Fprintln(os.Stderr, "usage: tb reward rm <name> [--json]")
			return 1
		}
		if err := a.engine.RemoveReward(pos[0]); err != nil {
			return fail("reward rm", err)
		}
		if *jsonOut {
			printJSON(map[string]interface{}{"removed": pos[0]})
		} else {
			fmt.Printf("removed reward %s\n", pos[0])
		}
	default:
		fmt.Fprintf(os.Stderr, "tb: reward: unknown subcommand %q\n", sub)
		return 1
	}
	return 0
}

func (a *app) cmdRedeem(args []string) int {
	flags := flag.NewFlagSet("redeem", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb redeem <reward> [--json]")
		return 1
	}

	res, err := a.engine.Redeem(pos[0])
	if err != nil {
		return fail("redeem", err)
	}
	if *jsonOut {
		printJSON(res)
	} else {
		fmt.Printf("redeemed %s for %d points (balance %s)\n", res.Reward.Name, res.Reward.Price, pts(res.Total))
	}
	return 0
}
