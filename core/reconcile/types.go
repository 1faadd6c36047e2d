package reconcile

import "clouddisk-sync/core/record"

// LocalItem is the local row matched to a record. Adapters define the
// concrete type.
type LocalItem any

// ActionType represents how a pulled record is applied locally.
type ActionType string

const (
	// ActionInsert creates a local row for a record that is absent locally.
	ActionInsert ActionType = "insert"
	// ActionUpdate applies a record to an existing local row.
	ActionUpdate ActionType = "update"
	// ActionDelete applies a remote deletion to an existing local row.
	ActionDelete ActionType = "delete"
	// ActionSkip marks a deletion for a record that never existed locally.
	ActionSkip ActionType = "skip"
)

// Action represents one planned pull mutation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the record id.
	Key string `json:"key"`

	// Reason explains the classification.
	Reason string `json:"reason"`

	// Record is the incoming remote record.
	Record *record.Record `json:"-"`

	// Local is the matched local row. Nil for inserts and skips.
	Local LocalItem `json:"-"`
}

// ReconcilePlan contains the classified actions of one pull batch.
type ReconcilePlan struct {
	// Actions are in first-seen record order.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// TotalRecords is the number of records received, duplicates included.
	TotalRecords int `json:"total_records"`

	// Inserts counts planned inserts.
	Inserts int `json:"inserts"`

	// Updates counts planned updates.
	Updates int `json:"updates"`

	// Deletes counts planned deletes.
	Deletes int `json:"deletes"`

	// Skipped counts deletions of records unknown locally.
	Skipped int `json:"skipped"`

	// Duplicates counts records superseded by a later copy in the same batch.
	Duplicates int `json:"duplicates"`
}

// Failure is a swallowed per-record error.
type Failure struct {
	Key  string     `json:"key"`
	Type ActionType `json:"type"`
	Err  error      `json:"-"`
}

// ApplyResult reports the outcome of ApplyPlan.
type ApplyResult struct {
	// Applied counts actions that completed without error.
	Applied int `json:"applied"`

	// Failures lists per-record errors that were swallowed.
	Failures []Failure `json:"failures,omitempty"`

	// Stopped is true when cancellation interrupted the batch.
	Stopped bool `json:"stopped"`
}
