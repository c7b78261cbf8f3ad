package main

import (
	"flag"
	"fmt"
	"os"
)

func (a *app) cmdShop(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tb shop add|list|rm ...")
		return 1
	}
	sub, args := args[0], args[1:]
	flags := flag.NewFlagSet("shop "+sub, flag.ContinueOnError)
	price := flags.Int("price", 0, "price in points")
	minutes := flags.Int("minutes", 0, "minutes of time bought")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}

	switch sub {
	case "add":
		if len(pos) != 1 {
			fmt.Fprintln(os.Stderr, "usage: tb shop add <name> --price N --minutes M [--json]")
			return 1
		}
		item, err := a.engine.AddStoreItem(pos[0], *price, *minutes)
		if err != nil {
			return fail("shop add", err)
		}
		if *jsonOut {
			printJSON(item)
		} else {
			fmt.Printf("shop: %s, %d minutes for %d points\n", item.Name, item.Minutes, item.Price)
		}
	case "list", "ls":
		items := a.engine.StoreItems()
		if *jsonOut {
			printJSON(map[string]interface{}{"items": items, "count": len(items)})
			return 0
		}
		if len(items) == 0 {
			fmt.Println("shop is empty")
		}
		for _, it := range items {
			fmt.Printf("%-20s %4d min  %5d pts\n", it.Name, it.Minutes, it.Price)
		}
	case "rm":
		if len(pos) != 1 {
			fmt.Fprintln(os.Stderr, "usage: tb shop rm <name> [--json]")
			return 1
		}
		if err := a.engine.RemoveStoreItem(pos[0]); err != nil {
			return fail("shop rm", err)
		}
		if *jsonOut {
			printJSON(map[string]interface{}{"removed": pos[0]})
		} else {
			fmt.Printf("removed %s from the shop\n", pos[0])
		}
	default:
		fmt.Fprintf(os.Stderr, "tb: shop: unknown subcommand %q\n", sub)
		return 1
	}
	return 0
}
