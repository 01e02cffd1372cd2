package services

import (
	"context"
	"errors"

	"content-hub-cms/logger"
	"content-hub-cms/metrics"
	"content-hub-cms/models"
	"content-hub-cms/notification"
	"content-hub-cms/repositories"
	"content-hub-cms/storage"

	"gorm.io/gorm"
)

// effects collects work that may only happen once the transaction has
// committed.
type effects struct {
	events      []notification.Event
	objectKeys  []string
	transitions []models.ActionType
}

func (fx *effects) notify(event notification.Event) {
	if len(event.RecipientIDs) == 0 {
		return
	}
	fx.events = append(fx.events, event)
}

func (fx *effects) removeObjects(keys ...string) {
	fx.objectKeys = append(fx.objectKeys, keys...)
}

func (fx *effects) transition(action models.ActionType) {
	fx.transitions = append(fx.transitions, action)
}

// txRunner executes a unit of work in one transaction and flushes its
// effects after commit.
type txRunner struct {
	repos    *repositories.Repositories
	notifier notification.Notifier
	store    storage.ObjectStore
	log      *logger.Logger
}

func (r *txRunner) run(ctx context.Context, op string, fn func(tx *repositories.Repositories, fx *effects) error) error {
	fx := &effects{}
	err := r.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		return fn(tx, fx)
	})
	if err != nil {
		return r.translate(op, err)
	}
	r.flush(ctx, fx)
	return nil
}

func (r *txRunner) translate(op string, err error) error {
	switch {
	case models.IsDomainError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError("record")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewBusinessRuleError("material already has an open submission or the slug is taken")
	}
	r.log.Error("submission operation rolled back", "op", op, "error", err)
	return &models.ProcessingError{Err: err}
}

func (r *txRunner) flush(ctx context.Context, fx *effects) {
	for _, event := range fx.events {
		if err := r.notifier.Notify(ctx, event); err != nil {
			r.log.Warn("notification dispatch failed", "kind", event.Kind, "submission_id", event.SubmissionID, "error", err)
		}
	}
	for _, key := range fx.objectKeys {
		if err := r.store.Remove(ctx, key); err != nil {
			r.log.Warn("object removal failed", "key", key, "error", err)
		}
	}
	for _, action := range fx.transitions {
		metrics.RecordTransition(string(action))
	}
}
