package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/c0deZ3R0/go-ledger-kit/decision"
	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
)

type decisionFlags struct {
	title, context, rationale, consequences *string
}

func bindDecisionFlags(fs *flag.FlagSet) decisionFlags {
	return decisionFlags{
		title:        fs.String("title", "", "decision title"),
		context:      fs.String("context", "", "the situation that called for a decision"),
		rationale:    fs.String("rationale", "", "why this option was chosen"),
		consequences: fs.String("consequences", "", "what follows from the decision"),
	}
}

func runDecision(ctx context.Context, e *env, args []string) error {
	sub, args, err := subcommand("decision", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("decision "+sub, flag.ContinueOnError)
	decisions := e.app.Decisions

	switch sub {
	case "record":
		f := bindDecisionFlags(fs)
		if err := noArgs(fs, args); err != nil {
			return err
		}
		view, err := decisions.Record(ctx, decision.Record{
			Title:        *f.title,
			Context:      *f.context,
			Rationale:    *f.rationale,
			Consequences: *f.consequences,
		})
		if err != nil {
			return err
		}
		return decisionLine(e.stdout, view)

	case "update":
		f := bindDecisionFlags(fs)
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := decisions.Update(ctx, id, decision.Update{
			Title:        optional(fs, "title", f.title),
			Context:      optional(fs, "context", f.context),
			Rationale:    optional(fs, "rationale", f.rationale),
			Consequences: optional(fs, "consequences", f.consequences),
		})
		if err != nil {
			return err
		}
		return decisionLine(e.stdout, view)

	case "accept":
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := decisions.Accept(ctx, id)
		if err != nil {
			return err
		}
		return decisionLine(e.stdout, view)

	case "supersede":
		by := fs.String("by", "", "id of the decision that replaces this one")
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := decisions.Supersede(ctx, id, *by)
		if err != nil {
			return err
		}
		return decisionLine(e.stdout, view)

	case "remove":
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		if err := decisions.Remove(ctx, id); err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.stdout, "removed decision %s\n", id)
		return err

	case "show":
		id, err := oneID(fs, args)
		if err != nil {
			return err
		}
		view, err := decisions.Get(ctx, id)
		if err != nil {
			return err
		}
		return renderDecision(e.stdout, view)

	case "list":
		status := fs.String("status", "", "only decisions with this status (proposed, accepted, superseded)")
		all := fs.Bool("all", false, "include removed decisions")
		if err := noArgs(fs, args); err != nil {
			return err
		}
		views, err := decisions.List(ctx, readmodel.DecisionFilter{Status: decision.Status(*status), IncludeRemoved: *all})
		if err != nil {
			return err
		}
		return renderDecisions(e.stdout, views)

	default:
		return usagef("decision: unknown subcommand %q", sub)
	}
}
