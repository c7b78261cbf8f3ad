package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/daviddao/timebank/pkg/model"
	"github.com/daviddao/timebank/pkg/task"
)

func (a *app) cmdTask(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tb task add|list|done|rm ...")
		return 1
	}
	switch args[0] {
	case "add":
		return a.cmdTaskAdd(args[1:])
	case "list", "ls":
		return a.cmdTaskList(args[1:])
	case "done":
		return a.cmdTaskDone(args[1:])
	case "rm":
		return a.cmdTaskRm(args[1:])
	}
	fmt.Fprintf(os.Stderr, "tb: task: unknown subcommand %q\n", args[0])
	return 1
}

func (a *app) cmdTaskAdd(args []string) int {
	flags := flag.NewFlagSet("task add", flag.ContinueOnError)
	kind := flags.String("kind", string(model.KindOneTime), "one_time, recurring or scheduled_checkin")
	target := flags.Int("target", 0, "target minutes")
	points := flags.Int("points", 0, "base points (may be negative)")
	limit := flags.Int("limit", 1, "completions allowed per day")
	deadline := flags.String("deadline", "", "check-in deadline HH:MM")
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb task add <name> [--kind K] [--target MIN] [--points N] [--limit N] [--deadline HH:MM] [--json]")
		return 1
	}

	spec := task.Spec{
		Name:          pos[0],
		Kind:          model.TaskKind(*kind),
		TargetMinutes: *target,
		BasePoints:    *points,
		DailyLimit:    *limit,
	}
	if *deadline != "" {
		d, err := model.ParseTimeOfDay(*deadline)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tb: task add: %v\n", err)
			return 1
		}
		spec.Deadline = &d
	}

	t, err := a.engine.CreateTask(spec)
	if err != nil {
		return fail("task add", err)
	}
	if *jsonOut {
		printJSON(t)
	} else {
		fmt.Printf("added %s %s (%s, %d points)\n", shortID(t.ID), t.Name, t.Kind, t.BasePoints)
	}
	return 0
}

func (a *app) cmdTaskList(args []string) int {
	flags := flag.NewFlagSet("task list", flag.ContinueOnError)
	open := flags.Bool("open", false, "hide completed tasks")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	all := a.engine.Tasks()
	tasks := all[:0]
	for _, t := range all {
		if *open && t.Completed {
			continue
		}
		tasks = append(tasks, t)
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"tasks": tasks, "count": len(tasks)})
		return 0
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return 0
	}
	sess := a.engine.Session()
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s  %-20s %-17s %d/%d today  %s",
			mark, shortID(t.ID), t.Name, t.Kind, t.CompletionsToday, t.DailyLimit, dur(t.ElapsedSeconds))
		if t.TargetMinutes > 0 {
			line += fmt.Sprintf(" of %dm", t.TargetMinutes)
		}
		line += fmt.Sprintf("  %+d pts", t.BasePoints)
		if t.Deadline != nil {
			line += "  by " + t.Deadline.String()
		}
		if sess.IsTask(t.ID) {
			line += "  (timing)"
		}
		fmt.Println(line)
	}
	return 0
}

func (a *app) cmdTaskDone(args []string) int {
	flags := flag.NewFlagSet("task done", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb task done <task> [--json]")
		return 1
	}

	t, err := a.engine.ResolveTask(pos[0])
	if err != nil {
		return fail("task done", err)
	}
	c, err := a.engine.CompleteTask(t.ID)
	if err != nil {
		if *jsonOut {
			printJSON(map[string]interface{}{"completed": false, "code": model.CodeOf(err), "error": err.Error()})
		}
		return fail("task done", err)
	}
	if *jsonOut {
		printJSON(c)
	} else {
		printCompletion(c.Task.Name, c.Reward, c.Total)
	}
	return 0
}

func printCompletion(name string, reward, total float64) {
	fmt.Printf("completed %s: %s points (balance %s)\n", name, signed(reward), pts(total))
}

func (a *app) cmdTaskRm(args []string) int {
	flags := flag.NewFlagSet("task rm", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	pos, err := parseArgs(flags, args)
	if err != nil {
		return 1
	}
	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "usage: tb task rm <task> [--json]")
		return 1
	}

	t, err := a.engine.ResolveTask(pos[0])
	if err != nil {
		return fail("task rm", err)
	}
	if err := a.engine.DeleteTask(t.ID); err != nil {
		return fail("task rm", err)
	}
	if *jsonOut {
		printJSON(map[string]interface{}{"deleted": true, "task": t})
	} else {
		fmt.Printf("deleted %s %s\n", shortID(t.ID), t.Name)
	}
	return 0
}

// signed formats a delta with an explicit sign.
func signed(v float64) string {
	if v >= 0 {
		return "+" + pts(v)
	}
	return pts(v)
}
