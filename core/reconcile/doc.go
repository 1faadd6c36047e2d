// Package reconcile classifies pulled cloud records against local state and
// applies them with a uniform batch policy.
//
// # Architecture
//
// 1. Plan: BuildPlan turns a batch of records plus a presence map (one
// batched local query) into Insert, Update, Delete or Skip actions.
//
// 2. Apply: ApplyPlan drives an Adapter through the actions. The policy is
// decided by error kind:
//   - InvalidArgument, PathNotFound, DentryFault: recorded, batch continues
//   - StoreFault: batch aborts and the error surfaces
//   - StopRequested (context cancellation): loop ends, no error
//
// 3. Check: CheckRecords decides which listed records need a full fetch.
//
// # Usage Example
//
//	present := map[string]reconcile.LocalItem{"A": row}
//	plan, result, err := reconcile.Reconcile(ctx, records, present, adapter)
//	if reconcile.ShouldAbort(err) {
//	    return err
//	}
package reconcile
