// Package rebuild regenerates the projection database from the event log.
package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c0deZ3R0/go-ledger-kit/errors"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/logging"
	"github.com/c0deZ3R0/go-ledger-kit/projection"
)

const component = "rebuild"

// Report summarizes a completed rebuild.
type Report struct {
	Streams  int
	Events   int
	Duration time.Duration
}

// Drift is a projected row that does not match its stream head.
type Drift struct {
	Stream    eventlog.StreamID
	Projector string
	Head      int
	Projected int
	Missing   bool
}

func (d Drift) String() string {
	if d.Missing {
		return fmt.Sprintf("%s: %s row missing (head %d)", d.Stream, d.Projector, d.Head)
	}
	return fmt.Sprintf("%s: %s row at version %d, head %d", d.Stream, d.Projector, d.Projected, d.Head)
}

// Orchestrator replays the event log into a fresh projection database and swaps it
// in place of the live one.
type Orchestrator struct {
	events     eventlog.Store
	store      *projection.Store
	projectors []projection.Projector
	logger     *logging.Logger
}

// New creates an orchestrator. A nil logger uses the default logger.
func New(events eventlog.Store, store *projection.Store, projectors []projection.Projector, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		events:     events,
		store:      store,
		projectors: projectors,
		logger:     logging.OrDefault(logger),
	}
}

func (o *Orchestrator) projectorsFor(aggregateType string) []projection.Projector {
	var out []projection.Projector
	for _, p := range o.projectors {
		if p.AggregateType() == aggregateType {
			out = append(out, p)
		}
	}
	return out
}

// Rebuild replays every stream into a staged database, one transaction per stream,
// then replaces the live database with it. On any failure the staged database is
// discarded and the live one is left untouched.
func (o *Orchestrator) Rebuild(ctx context.Context) (Report, error) {
	var report Report
	start := time.Now()

	err := o.logger.LogOperation(ctx, logging.Operation(errors.OpRebuild), logging.Component(component), func() error {
		staged, err := o.store.Stage(ctx)
		if err != nil {
			return err
		}
		if err := o.replay(ctx, staged, &report); err != nil {
			if aerr := staged.Abort(); aerr != nil {
				o.logger.LogWarn(ctx, aerr, "failed to discard staged projection", slog.String("path", staged.Path()))
			}
			return err
		}
		return staged.Commit(ctx)
	})
	report.Duration = time.Since(start)
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (o *Orchestrator) replay(ctx context.Context, staged *projection.Staged, report *Report) error {
	streams, err := o.events.Streams(ctx)
	if err != nil {
		return err
	}
	for _, info := range streams {
		if err := ctx.Err(); err != nil {
			return err
		}
		projectors := o.projectorsFor(info.Stream.Type)
		if len(projectors) == 0 {
			o.logger.DebugContext(ctx, "no projector for stream", slog.String("stream", info.Stream.String()))
			continue
		}

		events, err := o.events.ReadStream(ctx, info.Stream)
		if err != nil {
			return err
		}
		for i, evt := range events {
			if evt.Version != i+1 {
				return errors.NewCorruptStream(errors.OpRebuild, info.Stream.String(),
					fmt.Errorf("expected version %d, found %d", i+1, evt.Version))
			}
		}

		err = staged.Write(ctx, func(db projection.DBTX) error {
			for _, evt := range events {
				for _, p := range projectors {
					if !projection.Handles(p, evt.Type) {
						continue
					}
					if err := p.Apply(ctx, db, evt); err != nil {
						return errors.NewProjectionError(p.Name(),
							fmt.Errorf("replay %s version %d: %w", info.Stream, evt.Version, err))
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		report.Streams++
		report.Events += len(events)
	}
	return nil
}

// Check compares every stream head with the version its projectors recorded and
// returns the rows that lag or are missing. It does not modify anything.
func (o *Orchestrator) Check(ctx context.Context) ([]Drift, error) {
	streams, err := o.events.Streams(ctx)
	if err != nil {
		return nil, err
	}

	drifts := []Drift{}
	err = o.store.Read(ctx, func(db projection.DBTX) error {
		for _, info := range streams {
			for _, p := range o.projectorsFor(info.Stream.Type) {
				version, ok, err := p.ProjectedVersion(ctx, db, info.Stream.ID)
				if err != nil {
					return errors.NewStorageError(errors.OpQuery, component, err)
				}
				if ok && version == info.Head {
					continue
				}
				drifts = append(drifts, Drift{
					Stream:    info.Stream,
					Projector: p.Name(),
					Head:      info.Head,
					Projected: version,
					Missing:   !ok,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}
