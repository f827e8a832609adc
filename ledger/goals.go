package ledger

import (
	"context"

	"github.com/c0deZ3R0/go-ledger-kit/command"
	"github.com/c0deZ3R0/go-ledger-kit/eventlog"
	"github.com/c0deZ3R0/go-ledger-kit/goal"
	"github.com/c0deZ3R0/go-ledger-kit/readmodel"
)

// Goals is the goal use-case API. Mutations return the goal as projected after
// the command.
type Goals struct {
	handler *command.Handler[goal.State, goal.Command]
	view    *readmodel.Goals
	newID   eventlog.IDGenerator
}

// Add creates a goal with a generated id.
func (g *Goals) Add(ctx context.Context, title, description string) (readmodel.GoalView, error) {
	res, err := g.handler.Create(ctx, g.newID(), goal.Add{Title: title, Description: description})
	return g.result(ctx, res, err)
}

func (g *Goals) Start(ctx context.Context, id string) (readmodel.GoalView, error) {
	return g.execute(ctx, id, goal.Start{})
}

func (g *Goals) Block(ctx context.Context, id, note string) (readmodel.GoalView, error) {
	return g.execute(ctx, id, goal.Block{Note: note})
}

func (g *Goals) Unblock(ctx context.Context, id string) (readmodel.GoalView, error) {
	return g.execute(ctx, id, goal.Unblock{})
}

func (g *Goals) Complete(ctx context.Context, id string) (readmodel.GoalView, error) {
	return g.execute(ctx, id, goal.Complete{})
}

func (g *Goals) Reset(ctx context.Context, id string) (readmodel.GoalView, error) {
	return g.execute(ctx, id, goal.ResetStatus{})
}

// Update changes the non-nil fields.
func (g *Goals) Update(ctx context.Context, id string, title, description *string) (readmodel.GoalView, error) {
	return g.execute(ctx, id, goal.Update{Title: title, Description: description})
}

// Remove marks the goal removed. Queries no longer return it.
func (g *Goals) Remove(ctx context.Context, id string) error {
	_, err := g.handler.Execute(ctx, id, goal.Remove{})
	return err
}

// Get returns one active goal.
func (g *Goals) Get(ctx context.Context, id string) (readmodel.GoalView, error) {
	return g.view.FindByID(ctx, id)
}

// List returns the goals matching filter.
func (g *Goals) List(ctx context.Context, filter readmodel.GoalFilter) ([]readmodel.GoalView, error) {
	return g.view.FindAll(ctx, filter)
}

func (g *Goals) execute(ctx context.Context, id string, cmd goal.Command) (readmodel.GoalView, error) {
	res, err := g.handler.Execute(ctx, id, cmd)
	return g.result(ctx, res, err)
}

// result reads the projected row, or falls back to the aggregate state when the
// projection did not take the event.
func (g *Goals) result(ctx context.Context, res command.Result[goal.State], err error) (readmodel.GoalView, error) {
	if err != nil {
		return readmodel.GoalView{}, err
	}
	if res.PublishErr == nil {
		if view, err := g.view.FindByID(ctx, res.Root.ID); err == nil {
			return view, nil
		}
	}
	s := res.Root.State
	return readmodel.GoalView{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status,
		Note:        s.Note,
		Removed:     s.Removed,
		Version:     res.Root.Version,
		UpdatedAt:   res.Event.Timestamp,
	}, nil
}
