package models

import "time"

// Publishable is any row that carries its own published_at marker: the
// Material, MaterialVersion and MaterialFile identity rows and their states.
type Publishable interface {
	MarkPublished(at time.Time)
	IsPublished() bool
}

type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

func (k ChangeKind) IsValid() bool {
	return k == ChangeCreate || k == ChangeUpdate || k == ChangeDelete
}

// SubmissionNode is one level of a submission tree: the identity row it
// targets, the pending state it carries and what it does on acceptance.
type SubmissionNode interface {
	ChangeKind() ChangeKind
	// Entity is nil when the identity row was not loaded.
	Entity() Publishable
	// PendingState is nil when the node carries no new state.
	PendingState() Publishable
	Children() []SubmissionNode
	// SubmissionStatus is the status of the owning MaterialSubmission.
	SubmissionStatus() SubmissionStatus
}

type stateRow interface {
	stateKey() (uint, *time.Time)
}

// currentOf picks the state with the latest published_at. Ties go to the
// row inserted last. Unpublished rows are never current.
func currentOf[T any, P interface {
	*T
	stateRow
}](states []T) *T {
	var cur *T
	var curID uint
	var curAt time.Time
	for i := range states {
		id, at := P(&states[i]).stateKey()
		if at == nil {
			continue
		}
		if cur == nil || at.After(curAt) || (at.Equal(curAt) && id > curID) {
			cur, curID, curAt = &states[i], id, *at
		}
	}
	return cur
}

func isSet(at *time.Time) bool {
	return at != nil
}
