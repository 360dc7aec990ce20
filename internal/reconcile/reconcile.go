// Package reconcile converges the ledger's plans and token price feeds to the
// locally edited records. Calls are issued strictly one after another and the
// first failure stops the run; already applied writes are not rolled back.
package reconcile

import (
	"context"
	"fmt"

	"github.com/memberbeat/admin/pkg/ledger"
)

// Action is a single kind of ledger write.
type Action string

const (
	ActionCreatePlan      Action = "create_plan"
	ActionUpdatePlan      Action = "update_plan"
	ActionDeletePlan      Action = "delete_plan"
	ActionAddPriceFeed    Action = "add_price_feed"
	ActionUpdatePriceFeed Action = "update_price_feed"
	ActionDeletePriceFeed Action = "delete_price_feed"
)

// Op is one ledger write.
type Op struct {
	Action    Action       `json:"action"`
	RecordID  string       `json:"recordId,omitempty"`
	PlanID    int64        `json:"planId,omitempty"`
	Address   string       `json:"address,omitempty"`
	PriceFeed string       `json:"priceFeed,omitempty"`
	Plan      *ledger.Plan `json:"-"`
}

func (o Op) String() string {
	switch o.Action {
	case ActionCreatePlan, ActionUpdatePlan, ActionDeletePlan:
		return fmt.Sprintf("%s(%d)", o.Action, o.PlanID)
	default:
		return fmt.Sprintf("%s(%s)", o.Action, o.Address)
	}
}

// Step reports the outcome of one write. Index is 1-based.
type Step struct {
	Index int    `json:"index"`
	Op    Op     `json:"op"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Observer is told about every write as soon as it returns.
type Observer func(Step)

// Result summarises a run.
type Result struct {
	Ops     []Op `json:"operations"`
	Applied int  `json:"applied"`
}

// StepError is returned when a write fails.
type StepError struct {
	Index int
	Op    Op
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("reconcile: step %d %s: %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func notify(observe Observer, index int, op Op, err error) {
	if observe == nil {
		return
	}
	s := Step{Index: index, Op: op, Err: err}
	if err != nil {
		s.Error = err.Error()
	}
	observe(s)
}

// exec performs a single write.
func exec(ctx context.Context, l ledger.Ledger, op Op) error {
	switch op.Action {
	case ActionCreatePlan:
		return l.CreatePlan(ctx, *op.Plan)
	case ActionUpdatePlan:
		return l.UpdatePlan(ctx, *op.Plan)
	case ActionDeletePlan:
		return l.DeletePlan(ctx, op.PlanID)
	case ActionAddPriceFeed:
		return l.AddTokenPriceFeed(ctx, op.Address, op.PriceFeed)
	case ActionUpdatePriceFeed:
		return l.UpdateTokenPriceFeed(ctx, op.Address, op.PriceFeed)
	case ActionDeletePriceFeed:
		return l.DeleteTokenPriceFeed(ctx, op.Address)
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
}

// Apply issues ops in order and stops at the first failure. It returns how
// many ops succeeded.
func Apply(ctx context.Context, l ledger.Ledger, ops []Op, observe Observer) (int, error) {
	for i, op := range ops {
		err := exec(ctx, l, op)
		notify(observe, i+1, op, err)
		if err != nil {
			return i, &StepError{Index: i + 1, Op: op, Err: err}
		}
	}
	return len(ops), nil
}
