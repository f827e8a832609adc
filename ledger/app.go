// Package ledger wires the event log, projections and entity services into one
// application.
package ledger

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/c0deZ3R0/go-ledger-kit/bus"
	"github.com/c0deZ3R0/go-ledger-kit/clock"
	"github.com/c0deZ3R0/go-ledger-kit/command"
	"github.com/c0deZ3R0/go-ledger-kit/config"
	"github.com/c0deZ3R0/go-ledger-kit/decision"
	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/goal"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
	"github.com/c0deZ3R0/go-ledger-kit/projection"
	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
	"github.com/c0deZ3R0/go-ledger-kit/rebuild"
	"github.com/c0deZ3R0/go-ledger-kit/storage/sqlite"
)

type settings struct {
	clock  clock.Clock
	newID  eventlog.IDGenerator
	logger *logging.Logger
}

// Option configures Open.
type Option func(*settings)

// WithClock sets the clock that stamps events.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithIDGenerator sets the generator for event and aggregate ids.
func WithIDGenerator(g eventlog.IDGenerator) Option {
	return func(s *settings) { s.newID = g }
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// App is an open ledger.
type App struct {
	Goals     *Goals
	Decisions *Decisions

	events      eventlog.Store
	projections *projection.Store
	rebuilder   *rebuild.Orchestrator
	logger      *logging.Logger
}

// Open opens (creating if needed) the ledger described by cfg.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.OpRead, err)
	}
	s := settings{clock: clock.System{}, newID: eventlog.NewID}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger(cfg.Log)
	}
	logger := s.logger

	store, err := sqlite.New(ctx, &sqlite.Config{
		Path:   cfg.EventLogPath(),
		Driver: cfg.Driver,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	events := eventlog.WithLogging(store, logger)

	projections, err := projection.Open(ctx, projection.Config{
		Path:   cfg.ProjectionPath(),
		Driver: cfg.Driver,
		Schema: readmodel.Schema(),
		Logger: logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	b := bus.New(logger)
	projectors := readmodel.Projectors()
	for _, p := range projectors {
		if err := projection.Subscribe(b, projections, p); err != nil {
			projections.Close()
			store.Close()
			return nil, err
		}
	}

	handlerOpts := []command.Option{
		command.WithClock(s.clock),
		command.WithIDGenerator(s.newID),
		command.WithLogger(logger),
	}
	app := &App{
		Goals: &Goals{
			handler: command.New[goal.State, goal.Command](goal.Kind{}, events, b, handlerOpts...),
			view:    readmodel.NewGoals(projections),
			newID:   s.newID,
		},
		Decisions: &Decisions{
			handler: command.New[decision.State, decision.Command](decision.Kind{}, events, b, handlerOpts...),
			view:    readmodel.NewDecisions(projections),
			newID:   s.newID,
		},
		events:      events,
		projections: projections,
		rebuilder:   rebuild.New(events, projections, projectors, logger),
		logger:      logger,
	}

	logger.DebugContext(ctx, "ledger opened",
		slog.String("event_log", cfg.EventLogPath()),
		slog.String("projections", cfg.ProjectionPath()),
		slog.String("driver", cfg.Driver),
	)
	return app, nil
}

// Rebuild regenerates the projection database from the event log.
func (a *App) Rebuild(ctx context.Context) (rebuild.Report, error) {
	return a.rebuilder.Rebuild(ctx)
}

// Check reports projected rows that do not match their stream heads.
func (a *App) Check(ctx context.Context) ([]rebuild.Drift, error) {
	return a.rebuilder.Check(ctx)
}

// Close closes both databases.
func (a *App) Close() error {
	return stderrors.Join(a.projections.Close(), a.events.Close())
}
