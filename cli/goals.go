package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/c0deZ3R0/go-ledger-kit/goal"
	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
)

func runGoal(ctx context.Context, e *env, args []string) error {
	sub, args, err := subcommand("goal", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("goal "+sub, flag.ContinueOnError)
	goals := e.app.Goals

	// Commands that take one id and nothing else.
	simple := map[string]func(context.Context, string) (readmodel.GoalView, error){
		"start":    goals.Start,
		"unblock":  goals.Unblock,
		"complete": goals.Complete,
		"reset":    goals.Reset,
		"show":     goals.Get,
	}
	if fn, ok := simple[sub]; ok {
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := fn(ctx, id)
		if err != nil {
			return err
		}
		if sub == "show" {
			return renderGoal(e.stdout, view)
		}
		return goalLine(e.stdout, view)
	}

	switch sub {
	case "add":
		title := fs.String("title", "", "goal title")
		description := fs.String("description", "", "goal description")
		if err := noArgs(fs, args); err != nil {
			return err
		}
		view, err := goals.Add(ctx, *title, *description)
		if err != nil {
			return err
		}
		return goalLine(e.stdout, view)

	case "block":
		note := fs.String("note", "", "why the goal is blocked")
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := goals.Block(ctx, id, *note)
		if err != nil {
			return err
		}
		return goalLine(e.stdout, view)

	case "update":
		title := fs.String("title", "", "new title")
		description := fs.String("description", "", "new description")
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := goals.Update(ctx, id, optional(fs, "title", title), optional(fs, "description", description))
		if err != nil {
			return err
		}
		return goalLine(e.stdout, view)

	case "remove":
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		if err := goals.Remove(ctx, id); err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.stdout, "removed goal %s\n", id)
		return err

	case "list":
		status := fs.String("status", "", "only goals with this status (to-do, doing, blocked, done)")
		all := fs.Bool("all", false, "include removed goals")
		if err := noArgs(fs, args); err != nil {
			return err
		}
		views, err := goals.List(ctx, readmodel.GoalFilter{Status: goal.Status(*status), IncludeRemoved: *all})
		if err != nil {
			return err
		}
		return renderGoals(e.stdout, views)

	default:
		return usagef("goal: unknown subcommand %q", sub)
	}
}
