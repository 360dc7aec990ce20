package reconcile

import (
	"context"
	"fmt"

	"github.com/memberbeat/admin/pkg/ledger"
)

// LocalPlan is a stored plan rendered in ledger form. LedgerPlanID is the id
// recorded at the last publish, 0 if the plan was never published.
type LocalPlan struct {
	RecordID     string
	LedgerPlanID int64
	Plan         ledger.Plan
}

// AssignPlanIDs gives every local plan a ledger id. Recorded ids are kept, so
// reordering the local list does not move a plan to another on-chain slot.
//
// On a list that was never published, plans take their 1-based position.
// Once any plan carries a recorded id, a plan without one gets a fresh id
// above every id held locally or on the ledger: a slot freed by a deleted plan
// is never handed to another plan, whose subscribers it would inherit.
func AssignPlanIDs(local []LocalPlan, remote []ledger.Plan) []LocalPlan {
	out := make([]LocalPlan, len(local))
	copy(out, local)

	claimed := make(map[int64]bool, len(out))
	var highest int64
	for i := range out {
		id := out[i].LedgerPlanID
		if id <= 0 || claimed[id] {
			out[i].LedgerPlanID = 0
			continue
		}
		claimed[id] = true
		highest = max(highest, id)
	}

	if len(claimed) == 0 {
		for i := range out {
			out[i].LedgerPlanID = int64(i + 1)
		}
	} else {
		for _, p := range remote {
			highest = max(highest, p.PlanID)
		}
		for i := range out {
			if out[i].LedgerPlanID == 0 {
				highest++
				out[i].LedgerPlanID = highest
			}
		}
	}

	for i := range out {
		out[i].Plan.PlanID = out[i].LedgerPlanID
	}
	return out
}

// PlanOps computes the writes that make remote match local. Local plans must
// already carry their ledger ids. Creates and updates come first in local
// order, then deletes of orphaned remote plans in remote order.
func PlanOps(local []LocalPlan, remote []ledger.Plan) []Op {
	existing := make(map[int64]bool, len(remote))
	for _, p := range remote {
		existing[p.PlanID] = true
	}

	ops := make([]Op, 0, len(local)+len(remote))
	wanted := make(map[int64]bool, len(local))
	for i := range local {
		lp := local[i]
		plan := lp.Plan
		plan.PlanID = lp.LedgerPlanID
		wanted[plan.PlanID] = true

		action := ActionCreatePlan
		if existing[plan.PlanID] {
			action = ActionUpdatePlan
		}
		ops = append(ops, Op{
			Action:   action,
			RecordID: lp.RecordID,
			PlanID:   plan.PlanID,
			Plan:     &plan,
		})
	}

	for _, p := range remote {
		if !wanted[p.PlanID] {
			ops = append(ops, Op{Action: ActionDeletePlan, PlanID: p.PlanID})
		}
	}
	return ops
}

// Plans loads the ledger's plans, assigns ids and applies the difference.
func Plans(ctx context.Context, l ledger.Ledger, local []LocalPlan, observe Observer) (Result, error) {
	remote, err := l.GetPlans(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: load plans: %w", err)
	}

	ops := PlanOps(AssignPlanIDs(local, remote), remote)
	applied, err := Apply(ctx, l, ops, observe)
	return Result{Ops: ops, Applied: applied}, err
}
