package reconcile

import (
	"context"

	"clouddisk-sync/core/record"
)

// BuildPlan classifies a pull batch against the local presence map.
// It does NOT execute actions; use ApplyPlan for that.
//
// When an id appears more than once in the batch, the last copy wins and the
// action keeps the position of the first copy.
func BuildPlan(records []*record.Record, present map[string]LocalItem) *ReconcilePlan {
	plan := &ReconcilePlan{}
	index := make(map[string]int, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}
		plan.Summary.TotalRecords++

		action := classify(rec, present)
		if pos, seen := index[rec.ID]; seen {
			plan.Summary.Duplicates++
			plan.Actions[pos] = action
			continue
		}
		index[rec.ID] = len(plan.Actions)
		plan.Actions = append(plan.Actions, action)
	}

	for _, action := range plan.Actions {
		switch action.Type {
		case ActionInsert:
			plan.Summary.Inserts++
		case ActionUpdate:
			plan.Summary.Updates++
		case ActionDelete:
			plan.Summary.Deletes++
		case ActionSkip:
			plan.Summary.Skipped++
		}
	}
	return plan
}

func classify(rec *record.Record, present map[string]LocalItem) Action {
	local, ok := present[rec.ID]
	switch {
	case !ok && !rec.IsDelete:
		return Action{Type: ActionInsert, Key: rec.ID, Reason: "absent locally", Record: rec}
	case ok && !rec.IsDelete:
		return Action{Type: ActionUpdate, Key: rec.ID, Reason: "present locally", Record: rec, Local: local}
	case ok && rec.IsDelete:
		return Action{Type: ActionDelete, Key: rec.ID, Reason: "deleted remotely", Record: rec, Local: local}
	default:
		return Action{Type: ActionSkip, Key: rec.ID, Reason: "deleted remotely and absent locally", Record: rec}
	}
}

// ApplyPlan executes the actions in a reconcile plan.
//
// Per-record errors are collected in the result and processing continues.
// A store fault aborts the batch and is returned. Cancellation of ctx stops
// the loop before the next action and is not an error.
func ApplyPlan(ctx context.Context, plan *ReconcilePlan, adapter Adapter) (ApplyResult, error) {
	var result ApplyResult

	for _, action := range plan.Actions {
		if Stopped(ctx) {
			result.Stopped = true
			return result, nil
		}

		var err error
		switch action.Type {
		case ActionInsert:
			err = adapter.Insert(ctx, action.Record)
		case ActionUpdate:
			err = adapter.Update(ctx, action.Record, action.Local)
		case ActionDelete:
			err = adapter.Delete(ctx, action.Record, action.Local)
		case ActionSkip:
			continue
		}

		if err == nil {
			result.Applied++
			continue
		}
		switch KindOf(err) {
		case KindStoreFault:
			return result, err
		case KindStopRequested:
			result.Stopped = true
			return result, nil
		}
		result.Failures = append(result.Failures, Failure{Key: action.Key, Type: action.Type, Err: err})
	}

	return result, nil
}
