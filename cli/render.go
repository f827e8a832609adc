package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func goalLine(w io.Writer, g readmodel.GoalView) error {
	_, err := fmt.Fprintf(w, "goal %s [%s] v%d: %s\n", g.ID, g.Status, g.Version, g.Title)
	return err
}

func decisionLine(w io.Writer, d readmodel.DecisionView) error {
	_, err := fmt.Fprintf(w, "decision %s [%s] v%d: %s\n", d.ID, d.Status, d.Version, d.Title)
	return err
}

func renderGoals(w io.Writer, goals []readmodel.GoalView) error {
	if len(goals) == 0 {
		_, err := fmt.Fprintln(w, "no goals")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tNOTE\tUPDATED")
	for _, g := range goals {
		title := g.Title
		if g.Removed {
			title += " (removed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Status, title, g.Note, stamp(g.UpdatedAt))
	}
	return tw.Flush()
}

func renderGoal(w io.Writer, g readmodel.GoalView) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", g.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", g.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", g.Status)
	if g.Note != "" {
		fmt.Fprintf(tw, "Note:\t%s\n", g.Note)
	}
	if g.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", g.Description)
	}
	fmt.Fprintf(tw, "Version:\t%d\n", g.Version)
	fmt.Fprintf(tw, "Created:\t%s\n", stamp(g.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", stamp(g.UpdatedAt))
	return tw.Flush()
}

func renderDecisions(w io.Writer, decisions []readmodel.DecisionView) error {
	if len(decisions) == 0 {
		_, err := fmt.Fprintln(w, "no decisions")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tSUPERSEDED BY\tUPDATED")
	for _, d := range decisions {
		title := d.Title
		if d.Removed {
			title += " (removed)"
		}
		by := d.SupersededBy
		if by == "" {
			by = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Status, title, by, stamp(d.UpdatedAt))
	}
	return tw.Flush()
}

func renderDecision(w io.Writer, d readmodel.DecisionView) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", d.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", d.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", d.Status)
	if d.SupersededBy != "" {
		fmt.Fprintf(tw, "Superseded by:\t%s\n", d.SupersededBy)
	}
	for _, field := range []struct{ label, value string }{
		{"Context", d.Context},
		{"Rationale", d.Rationale},
		{"Consequences", d.Consequences},
	} {
		if field.value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", field.label, field.value)
		}
	}
	fmt.Fprintf(tw, "Version:\t%d\n", d.Version)
	fmt.Fprintf(tw, "Created:\t%s\n", stamp(d.CreatedAt))
	fmt.Fprintf(tw, "Updated:\t%s\n", stamp(d.UpdatedAt))
	return tw.Flush()
}
