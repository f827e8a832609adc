package readmodel

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/goal"
	"github.com/c0deZ3R0/go-ledger-kit/projection"
)

// GoalProjector maintains the goals table.
type GoalProjector struct{}

var _ projection.Projector = GoalProjector{}

func (GoalProjector) Name() string          { return "goals" }
func (GoalProjector) AggregateType() string { return goal.AggregateType }
func (GoalProjector) EventTypes() []string  { return goal.Registry().Types() }

func (GoalProjector) ProjectedVersion(ctx context.Context, db projection.DBTX, id string) (int, bool, error) {
	return projectedVersion(ctx, db, "goals", id)
}

// Apply writes evt into its goal row. A row only takes the event that directly
// follows its version; replays are no-ops and a row that missed an event stays
// behind until a rebuild.
func (GoalProjector) Apply(ctx context.Context, db projection.DBTX, evt eventlog.Event) error {
	payload, err := goal.Registry().Decode(evt)
	if err != nil {
		return err
	}
	at := clock.Format(evt.Timestamp)

	if e, ok := payload.(goal.Added); ok {
		_, err := db.ExecContext(ctx, `
			INSERT INTO goals (id, title, description, status, note, removed, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, '', 0, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				status = excluded.status,
				note = '',
				removed = 0,
				version = excluded.version,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at
			WHERE goals.version < excluded.version`,
			evt.AggregateID, e.Title, e.Description, string(goal.StatusToDo), evt.Version, at, at)
		return err
	}

	var (
		set  string
		args []any
	)
	switch e := payload.(type) {
	case goal.Started:
		set, args = "status = ?", []any{string(goal.StatusDoing)}
	case goal.Blocked:
		set, args = "status = ?, note = ?", []any{string(goal.StatusBlocked), e.Note}
	case goal.Unblocked:
		set, args = "status = ?, note = ''", []any{string(goal.StatusDoing)}
	case goal.Completed:
		set, args = "status = ?, note = ''", []any{string(goal.StatusDone)}
	case goal.Reset:
		set, args = "status = ?, note = ''", []any{string(goal.StatusToDo)}
	case goal.Updated:
		set, args = "title = COALESCE(?, title), description = COALESCE(?, description)", []any{optional(e.Title), optional(e.Description)}
	case goal.Removed:
		set = "removed = 1"
	default:
		return fmt.Errorf("goals: unhandled event %s", evt.Type)
	}

	args = append(args, evt.Version, at, evt.AggregateID, evt.Version-1)
	_, err = db.ExecContext(ctx,
		"UPDATE goals SET "+set+", version = ?, updated_at = ? WHERE id = ? AND version = ?",
		args...)
	return err
}

// GoalView is one row of the goals table.
type GoalView struct {
	ID          string
	Title       string
	Description string
	Status      goal.Status
	Note        string
	Removed     bool
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GoalFilter narrows FindAll. The zero value lists every active goal.
type GoalFilter struct {
	Status         goal.Status
	IncludeRemoved bool
}

// Goals queries the goals table.
type Goals struct {
	store *projection.Store
}

func NewGoals(store *projection.Store) *Goals {
	return &Goals{store: store}
}

const goalColumns = `id, title, description, status, note, removed, version, created_at, updated_at`

// FindByID returns goal id. Removed goals are NOT_FOUND.
func (g *Goals) FindByID(ctx context.Context, id string) (GoalView, error) {
	var view GoalView
	err := g.store.Read(ctx, func(db projection.DBTX) error {
		row := db.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ? AND removed = 0", id)
		v, err := scanGoal(row)
		view = v
		return err
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return GoalView{}, errors.NewNotFound(errors.OpQuery, "goal "+id)
	}
	if err != nil {
		return GoalView{}, wrapQuery(err)
	}
	return view, nil
}

// FindAll lists goals matching filter, oldest first.
func (g *Goals) FindAll(ctx context.Context, filter GoalFilter) ([]GoalView, error) {
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
	query := "SELECT " + goalColumns + " FROM goals"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	views := []GoalView{}
	err := g.store.Read(ctx, func(db projection.DBTX) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scanGoal(rows)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (GoalView, error) {
	var (
		v                GoalView
		removed          int
		created, updated string
	)
	if err := s.Scan(&v.ID, &v.Title, &v.Description, &v.Status, &v.Note, &removed, &v.Version, &created, &updated); err != nil {
		return v, err
	}
	v.Removed = removed != 0
	return v, parseTimes(&v.CreatedAt, &v.UpdatedAt, created, updated)
}

func parseTimes(createdAt, updatedAt *time.Time, created, updated string) error {
	var err error
	if *createdAt, err = clock.Parse(created); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if *updatedAt, err = clock.Parse(updated); err != nil {
		return fmt.Errorf("updated_at: %w", err)
	}
	return nil
}

func wrapQuery(err error) error {
	if errors.CodeOf(err) != "" {
		return err
	}
	return errors.NewStorageError(errors.OpQuery, "readmodel", err)
}
