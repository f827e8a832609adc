// Package readmodel holds the goal and decision projectors and the queries that read
// their tables.
package readmodel

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/c0deZ3R0/go-ledger-kit/projection"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Schema returns the migrations for the projection database.
func Schema() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(fmt.Sprintf("readmodel: embedded migrations: %v", err))
	}
	return sub
}

// Projectors returns every projector, in subscription order.
func Projectors() []projection.Projector {
	return []projection.Projector{GoalProjector{}, DecisionProjector{}}
}

func projectedVersion(ctx context.Context, db projection.DBTX, table, id string) (int, bool, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT version FROM "+table+" WHERE id = ?", id).Scan(&version)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, true, nil
}

// optional maps an unset field to NULL for COALESCE updates.
func optional(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
