package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/config"
	"github.com/c0deZ3R0/go-ledger-kit/decision"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/goal"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
	"github.com/c0deZ3R0/go-ledger-kit/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, driver string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Driver = driver
	return cfg
}

func openApp(t *testing.T, cfg config.Config, prefix string) *App {
	t.Helper()
	app, err := Open(context.Background(), cfg,
		WithClock(clock.NewFixed(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC), time.Second)),
		WithIDGenerator(eventlog.Sequence(prefix)),
		WithLogger(logging.Discard()),
	)
	require.NoError(t, err)
	return app
}

func TestGoalLifecycle(t *testing.T) {
	for _, driver := range []string{sqlite.DriverMattn, sqlite.DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			app := openApp(t, testConfig(t, driver), "id")
			defer app.Close()

			g, err := app.Goals.Add(ctx, "Ship v1", "first release")
			require.NoError(t, err)
			assert.Equal(t, "id-1", g.ID)
			assert.Equal(t, goal.StatusToDo, g.Status)
			assert.Equal(t, 1, g.Version)

			_, err = app.Goals.Start(ctx, g.ID)
			require.NoError(t, err)
			g, err = app.Goals.Block(ctx, g.ID, "waiting on review")
			require.NoError(t, err)
			assert.Equal(t, goal.StatusBlocked, g.Status)
			assert.Equal(t, "waiting on review", g.Note)

			_, err = app.Goals.Unblock(ctx, g.ID)
			require.NoError(t, err)
			g, err = app.Goals.Reset(ctx, g.ID)
			require.NoError(t, err)
			assert.Equal(t, goal.StatusToDo, g.Status)
			assert.Equal(t, 5, g.Version)

			_, err = app.Goals.Complete(ctx, g.ID)
			assert.True(t, errors.IsInvalidTransition(err))

			title := "Ship v1.0"
			g, err = app.Goals.Update(ctx, g.ID, &title, nil)
			require.NoError(t, err)
			assert.Equal(t, "Ship v1.0", g.Title)
			assert.Equal(t, "first release", g.Description)

			require.NoError(t, app.Goals.Remove(ctx, g.ID))
			_, err = app.Goals.Get(ctx, g.ID)
			assert.True(t, errors.IsNotFound(err))

			_, err = app.Goals.Start(ctx, "id-404")
			assert.True(t, errors.IsNotFound(err))

			drifts, err := app.Check(ctx)
			require.NoError(t, err)
			assert.Empty(t, drifts)
		})
	}
}

func TestDecisionLifecycle(t *testing.T) {
	ctx := context.Background()
	app := openApp(t, testConfig(t, sqlite.DriverMattn), "dec")
	defer app.Close()

	first, err := app.Decisions.Record(ctx, decision.Record{Title: "Use SQLite", Rationale: "local first"})
	require.NoError(t, err)
	assert.Equal(t, decision.StatusProposed, first.Status)

	title := "Use SQLite for the event log"
	updated, err := app.Decisions.Update(ctx, first.ID, decision.Update{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "local first", updated.Rationale)
	assert.Equal(t, first.Version+1, updated.Version)

	_, err = app.Decisions.Accept(ctx, first.ID)
	require.NoError(t, err)
	second, err := app.Decisions.Record(ctx, decision.Record{Title: "Use SQLite with WAL"})
	require.NoError(t, err)
	superseded, err := app.Decisions.Supersede(ctx, first.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, decision.StatusSuperseded, superseded.Status)
	assert.Equal(t, second.ID, superseded.SupersededBy)

	proposed, err := app.Decisions.List(ctx, readmodel.DecisionFilter{Status: decision.StatusProposed})
	require.NoError(t, err)
	require.Len(t, proposed, 1)
	assert.Equal(t, second.ID, proposed[0].ID)

	require.NoError(t, app.Decisions.Remove(ctx, second.ID))
	all, err := app.Decisions.List(ctx, readmodel.DecisionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRebuildAndReopen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, sqlite.DriverMattn)

	app := openApp(t, cfg, "a")
	var ids []string
	for _, title := range []string{"One", "Two", "Three"} {
		g, err := app.Goals.Add(ctx, title, "")
		require.NoError(t, err)
		ids = append(ids, g.ID)
	}
	_, err := app.Goals.Start(ctx, ids[1])
	require.NoError(t, err)
	before, err := app.Goals.List(ctx, readmodel.GoalFilter{})
	require.NoError(t, err)

	report, err := app.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Streams)
	assert.Equal(t, 4, report.Events)

	after, err := app.Goals.List(ctx, readmodel.GoalFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	require.NoError(t, app.Close())

	reopened := openApp(t, cfg, "b")
	defer reopened.Close()
	listed, err := reopened.Goals.List(ctx, readmodel.GoalFilter{Status: goal.StatusDoing})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, ids[1], listed[0].ID)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "postgres")
	_, err := Open(context.Background(), cfg, WithLogger(logging.Discard()))
	assert.True(t, errors.IsValidation(err))
}
