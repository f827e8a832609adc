package readmodel

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/decision"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/projection"
)

// DecisionProjector maintains the decisions table.
type DecisionProjector struct{}

var _ projection.Projector = DecisionProjector{}

func (DecisionProjector) Name() string          { return "decisions" }
func (DecisionProjector) AggregateType() string { return decision.AggregateType }
func (DecisionProjector) EventTypes() []string  { return decision.Registry().Types() }

func (DecisionProjector) ProjectedVersion(ctx context.Context, db projection.DBTX, id string) (int, bool, error) {
	return projectedVersion(ctx, db, "decisions", id)
}

// Apply writes evt into its decision row if it directly follows the row version.
func (DecisionProjector) Apply(ctx context.Context, db projection.DBTX, evt eventlog.Event) error {
	payload, err := decision.Registry().Decode(evt)
	if err != nil {
		return err
	}
	at := clock.Format(evt.Timestamp)

	if e, ok := payload.(decision.Recorded); ok {
		_, err := db.ExecContext(ctx, `
			INSERT INTO decisions (id, title, context, rationale, consequences, status, superseded_by, removed, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, '', 0, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				context = excluded.context,
				rationale = excluded.rationale,
				consequences = excluded.consequences,
				status = excluded.status,
				superseded_by = '',
				removed = 0,
				version = excluded.version,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at
			WHERE decisions.version < excluded.version`,
			evt.AggregateID, e.Title, e.Context, e.Rationale, e.Consequences,
			string(decision.StatusProposed), evt.Version, at, at)
		return err
	}

	var (
		set  string
		args []any
	)
	switch e := payload.(type) {
	case decision.Updated:
		set = `title = COALESCE(?, title), context = COALESCE(?, context),
			rationale = COALESCE(?, rationale), consequences = COALESCE(?, consequences)`
		args = []any{optional(e.Title), optional(e.Context), optional(e.Rationale), optional(e.Consequences)}
	case decision.Accepted:
		set, args = "status = ?", []any{string(decision.StatusAccepted)}
	case decision.Superseded:
		set, args = "status = ?, superseded_by = ?", []any{string(decision.StatusSuperseded), e.By}
	case decision.Removed:
		set = "removed = 1"
	default:
		return fmt.Errorf("decisions: unhandled event %s", evt.Type)
	}

	args = append(args, evt.Version, at, evt.AggregateID, evt.Version-1)
	_, err = db.ExecContext(ctx,
		"UPDATE decisions SET "+set+", version = ?, updated_at = ? WHERE id = ? AND version = ?",
		args...)
	return err
}

// DecisionView is one row of the decisions table.
type DecisionView struct {
	ID           string
	Title        string
	Context      string
	Rationale    string
	Consequences string
	Status       decision.Status
	SupersededBy string
	Removed      bool
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DecisionFilter narrows FindAll. The zero value lists every active decision.
type DecisionFilter struct {
	Status         decision.Status
	IncludeRemoved bool
}

// Decisions queries the decisions table.
type Decisions struct {
	store *projection.Store
}

func NewDecisions(store *projection.Store) *Decisions {
	return &Decisions{store: store}
}

const decisionColumns = `id, title, context, rationale, consequences, status, superseded_by, removed, version, created_at, updated_at`

// FindByID returns decision id. Removed decisions are NOT_FOUND.
func (d *Decisions) FindByID(ctx context.Context, id string) (DecisionView, error) {
	var view DecisionView
	err := d.store.Read(ctx, func(db projection.DBTX) error {
		row := db.QueryRowContext(ctx, "SELECT "+decisionColumns+" FROM decisions WHERE id = ? AND removed = 0", id)
		v, err := scanDecision(row)
		view = v
		return err
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return DecisionView{}, errors.NewNotFound(errors.OpQuery, "decision "+id)
	}
	if err != nil {
		return DecisionView{}, wrapQuery(err)
	}
	return view, nil
}

// FindAll lists decisions matching filter, oldest first.
func (d *Decisions) FindAll(ctx context.Context, filter DecisionFilter) ([]DecisionView, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeRemoved {
		where = append(where, "removed = 0")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	query := "SELECT " + decisionColumns + " FROM decisions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	views := []DecisionView{}
	err := d.store.Read(ctx, func(db projection.DBTX) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scanDecision(rows)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapQuery(err)
	}
	return views, nil
}

func scanDecision(s scanner) (DecisionView, error) {
	var (
		v                DecisionView
		removed          int
		created, updated string
	)
	if err := s.Scan(&v.ID, &v.Title, &v.Context, &v.Rationale, &v.Consequences, &v.Status,
		&v.SupersededBy, &removed, &v.Version, &created, &updated); err != nil {
		return v, err
	}
	v.Removed = removed != 0
	return v, parseTimes(&v.CreatedAt, &v.UpdatedAt, created, updated)
}
