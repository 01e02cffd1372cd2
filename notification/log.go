package notification

import (
	"context"

	"content-hub-cms/logger"
)

// LogNotifier writes events to the log. Used when no broker is configured.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.log.Info("submission notification",
		"kind", event.Kind,
		"submission_id", event.SubmissionID,
		"actor_id", event.ActorID,
		"recipient_ids", event.RecipientIDs,
	)
	return nil
}
