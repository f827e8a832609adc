package ledger

import (
	"context"

	"github.com/c0deZ3R0/go-ledger-kit/command"
	"github.com/c0deZ3R0/go-ledger-kit/decision"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
)

// Decisions is the decision record use-case API.
type Decisions struct {
	handler *command.Handler[decision.State, decision.Command]
	view    *readmodel.Decisions
	newID   eventlog.IDGenerator
}

// Record proposes a new decision with a generated id.
func (d *Decisions) Record(ctx context.Context, rec decision.Record) (readmodel.DecisionView, error) {
	res, err := d.handler.Create(ctx, d.newID(), rec)
	return d.result(ctx, res, err)
}

// Update changes the non-nil fields of upd.
func (d *Decisions) Update(ctx context.Context, id string, upd decision.Update) (readmodel.DecisionView, error) {
	return d.execute(ctx, id, upd)
}

func (d *Decisions) Accept(ctx context.Context, id string) (readmodel.DecisionView, error) {
	return d.execute(ctx, id, decision.Accept{})
}

// Supersede marks an accepted decision as replaced by decision by.
func (d *Decisions) Supersede(ctx context.Context, id, by string) (readmodel.DecisionView, error) {
	return d.execute(ctx, id, decision.Supersede{By: by})
}

func (d *Decisions) Remove(ctx context.Context, id string) error {
	_, err := d.handler.Execute(ctx, id, decision.Remove{})
	return err
}

func (d *Decisions) Get(ctx context.Context, id string) (readmodel.DecisionView, error) {
	return d.view.FindByID(ctx, id)
}

func (d *Decisions) List(ctx context.Context, filter readmodel.DecisionFilter) ([]readmodel.DecisionView, error) {
	return d.view.FindAll(ctx, filter)
}

func (d *Decisions) execute(ctx context.Context, id string, cmd decision.Command) (readmodel.DecisionView, error) {
	res, err := d.handler.Execute(ctx, id, cmd)
	return d.result(ctx, res, err)
}

func (d *Decisions) result(ctx context.Context, res command.Result[decision.State], err error) (readmodel.DecisionView, error) {
	if err != nil {
		return readmodel.DecisionView{}, err
	}
	if res.PublishErr == nil {
		if view, err := d.view.FindByID(ctx, res.Root.ID); err == nil {
			return view, nil
		}
	}
	s := res.Root.State
	return readmodel.DecisionView{
		ID:           s.ID,
		Title:        s.Title,
		Context:      s.Context,
		Rationale:    s.Rationale,
		Consequences: s.Consequences,
		Status:       s.Status,
		SupersededBy: s.SupersededBy,
		Removed:      s.Removed,
		Version:      res.Root.Version,
		UpdatedAt:    res.Event.Timestamp,
	}, nil
}
