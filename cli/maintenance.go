package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"
)

func runRebuild(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("rebuild", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := noArgs(fs, args); err != nil {
		return err
	}

	if !*yes {
		fmt.Fprint(e.stderr, "Rebuild the projection database from the event log? [y/N] ")
		answer, _ := e.stdin.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			return fmt.Errorf("rebuild cancelled")
		}
	}

	report, err := e.app.Rebuild(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "rebuilt projections: %d streams, %d events in %s\n",
		report.Streams, report.Events, report.Duration.Round(time.Millisecond))
	return err
}

func runCheck(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := noArgs(fs, args); err != nil {
		return err
	}

	drifts, err := e.app.Check(ctx)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		_, err := fmt.Fprintln(e.stdout, "projections match the event log")
		return err
	}
	for _, d := range drifts {
		fmt.Fprintln(e.stdout, d.String())
	}
	return fmt.Errorf("%d projected rows are out of date; run `ledger rebuild`", len(drifts))
}
