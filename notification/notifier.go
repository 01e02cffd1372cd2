package notification

import (
	"context"
	"time"
)

type Kind string

const (
	KindSubmitted        Kind = "submitted"
	KindChangesRequested Kind = "changes_requested"
	KindAccepted         Kind = "accepted"
	KindRejected         Kind = "rejected"
	KindMessage          Kind = "message"
	KindAssigned         Kind = "assigned"
)

// Event tells recipients that something happened to a submission. Delivery
// (email, chat) is done by downstream consumers.
type Event struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	SubmissionID uint      `json:"submission_id"`
	ActorID      uint      `json:"actor_id"`
	RecipientIDs []uint    `json:"recipient_ids"`
	Message      string    `json:"message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
