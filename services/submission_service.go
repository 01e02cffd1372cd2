package services

import (
	"context"
	"errors"
	"time"

	"content-hub-cms/config"
	"content-hub-cms/logger"
	"content-hub-cms/metrics"
	"content-hub-cms/models"
	"content-hub-cms/notification"
	"content-hub-cms/repositories"
	"content-hub-cms/storage"

	"gorm.io/datatypes"
)

type SubmissionService interface {
	CreateDraft(ctx context.Context, actor models.Actor, req models.SubmissionRequest) (uint, error)
	SubmitNew(ctx context.Context, actor models.Actor, req models.SubmissionRequest) (uint, error)
	Update(ctx context.Context, actor models.Actor, id uint, req models.SubmissionRequest) error
	Submit(ctx context.Context, actor models.Actor, id uint, req *models.SubmissionRequest) error
	RequestChanges(ctx context.Context, actor models.Actor, id uint, req models.RequestChangesRequest) error
	Accept(ctx context.Context, actor models.Actor, id uint, req models.AcceptRequest) error
	Reject(ctx context.Context, actor models.Actor, id uint, req models.RejectRequest) error
	Reconsider(ctx context.Context, actor models.Actor, id uint, req models.ReconsiderRequest) error
	Delete(ctx context.Context, actor models.Actor, id uint) error
	AssignModerator(ctx context.Context, actor models.Actor, id uint, req models.AssignModeratorRequest) error
	PostMessage(ctx context.Context, actor models.Actor, id uint, req models.MessageRequest) error
	Get(ctx context.Context, actor models.Actor, id uint) (*models.SubmissionView, error)
	List(ctx context.Context, actor models.Actor, params models.SubmissionListParams) ([]models.SubmissionView, error)
	SweepClosed(ctx context.Context, cutoff time.Time) (int, error)
}

type submissionService struct {
	txRunner
	clock  Clock
	limits config.SubmissionConfig
}

func NewSubmissionService(
	repos *repositories.Repositories,
	notifier notification.Notifier,
	store storage.ObjectStore,
	clock Clock,
	limits config.SubmissionConfig,
	log *logger.Logger,
) SubmissionService {
	if clock == nil {
		clock = SystemClock()
	}
	return &submissionService{
		txRunner: txRunner{
			repos:    repos,
			notifier: notifier,
			store:    store,
			log:      log.With("service", "submission"),
		},
		clock:  clock,
		limits: limits,
	}
}

func (s *submissionService) CreateDraft(ctx context.Context, actor models.Actor, req models.SubmissionRequest) (uint, error) {
	return s.create(ctx, actor, &req, models.StatusDraft)
}

func (s *submissionService) SubmitNew(ctx context.Context, actor models.Actor, req models.SubmissionRequest) (uint, error) {
	return s.create(ctx, actor, &req, models.StatusPending)
}

func (s *submissionService) create(ctx context.Context, actor models.Actor, req *models.SubmissionRequest, status models.SubmissionStatus) (uint, error) {
	if err := validateNewSubmission(req); err != nil {
		return 0, err
	}

	var id uint
	err := s.run(ctx, "create", func(tx *repositories.Repositories, fx *effects) error {
		now := s.clock.Now()
		if err := checkQuota(tx, s.limits, actor); err != nil {
			return err
		}

		b := &submissionBuilder{tx: tx, actor: actor, now: now}
		t, err := b.resolve(req)
		if err != nil {
			return err
		}
		category := req.Material.Category
		if t.material != nil {
			category = t.material.Category
		}
		if err := checkLimits(s.limits, req.Type, category, shapesOfRequest(req.VersionSubmissions)); err != nil {
			return err
		}

		sub, err := b.build(req, t, status)
		if err != nil {
			return err
		}
		id = sub.ID

		if status == models.StatusPending {
			if err := s.submitted(tx, fx, sub, actor, now); err != nil {
				return err
			}
		}
		s.log.Info("submission created", "submission_id", sub.ID, "type", sub.Type, "status", sub.Status, "actor_id", actor.ID)
		return nil
	})
	return id, err
}

// Update edits submission content without changing its status. Drafts
// belong to their submitter; pending submissions to the moderators.
func (s *submissionService) Update(ctx context.Context, actor models.Actor, id uint, req models.SubmissionRequest) error {
	return s.run(ctx, "update", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		switch sub.Status {
		case models.StatusDraft:
			if sub.SubmitterID != actor.ID {
				return models.NewForbiddenError("only the submitter can edit a draft")
			}
		case models.StatusPending:
			if !actor.IsModerator() {
				return models.NewForbiddenError("only moderators can edit a pending submission")
			}
		default:
			return models.NewBusinessRuleError("a closed submission cannot be edited")
		}

		now := s.clock.Now()
		sub, err = patchContent(tx, s.limits, &submissionBuilder{tx: tx, actor: actor, now: now}, sub, &req, fx)
		if err != nil {
			return err
		}
		sub.UpdatedAt = now
		return tx.Submissions.Save(sub)
	})
}

// Submit moves a draft to pending, applying an optional final patch.
func (s *submissionService) Submit(ctx context.Context, actor models.Actor, id uint, req *models.SubmissionRequest) error {
	return s.run(ctx, "submit", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if sub.SubmitterID != actor.ID {
			return models.NewForbiddenError("only the submitter can submit a draft")
		}
		if err := requireStatus(sub, models.StatusDraft, "submit"); err != nil {
			return err
		}

		now := s.clock.Now()
		sub, err = patchContent(tx, s.limits, &submissionBuilder{tx: tx, actor: actor, now: now}, sub, req, fx)
		if err != nil {
			return err
		}
		if req == nil || sub.Type == models.ChangeDelete {
			// patchContent re-checks limits only when it merged something
			if err := checkLimits(s.limits, sub.Type, sub.Material.Category, shapesOfTree(sub)); err != nil {
				return err
			}
		}
		sub.Status = models.StatusPending
		sub.UpdatedAt = now
		if err := tx.Submissions.Save(sub); err != nil {
			return err
		}
		return s.submitted(tx, fx, sub, actor, now)
	})
}

// submitted logs the Submit action and queues the moderator notification.
func (s *submissionService) submitted(tx *repositories.Repositories, fx *effects, sub *models.MaterialSubmission, actor models.Actor, at time.Time) error {
	if err := logAction(tx, sub.ID, &actor.ID, models.ActionSubmit, nil, at); err != nil {
		return err
	}
	moderators, err := tx.Users.ListModeratorIDs()
	if err != nil {
		return err
	}
	fx.notify(event(notification.KindSubmitted, sub.ID, actor.ID, "", at, without(moderators, actor.ID)...))
	fx.transition(models.ActionSubmit)
	return nil
}

// RequestChanges sends a pending submission back to its submitter, applying
// the moderator's optional patch on the way.
func (s *submissionService) RequestChanges(ctx context.Context, actor models.Actor, id uint, req models.RequestChangesRequest) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	return s.run(ctx, "request_changes", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus(sub, models.StatusPending, "request changes on"); err != nil {
			return err
		}

		now := s.clock.Now()
		sub, err = patchContent(tx, s.limits, &submissionBuilder{tx: tx, actor: actor, now: now}, sub, req.SubmissionRequest, fx)
		if err != nil {
			return err
		}
		details := datatypes.JSONMap{"message": req.ActionDetails.Message}
		if err := s.moderate(tx, sub, actor, models.StatusDraft, models.ActionRequestChanges, details, now); err != nil {
			return err
		}
		fx.notify(event(notification.KindChangesRequested, sub.ID, actor.ID, req.ActionDetails.Message, now, sub.SubmitterID))
		fx.transition(models.ActionRequestChanges)
		return nil
	})
}

// Accept publishes every node of a pending submission at one timestamp.
func (s *submissionService) Accept(ctx context.Context, actor models.Actor, id uint, req models.AcceptRequest) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	return s.run(ctx, "accept", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus(sub, models.StatusPending, "accept"); err != nil {
			return err
		}

		material := sub.Material
		details := datatypes.JSONMap{}
		if sub.Type == models.ChangeCreate {
			slug := req.Slug
			if slug == nil {
				slug = material.Slug
			}
			if slug == nil || *slug == "" {
				return models.NewValidationError("slug", "slug is required to publish a new material")
			}
			if err := checkSlugFree(tx, *slug, material.ID); err != nil {
				return err
			}
			material.Slug = slug
			details["slug"] = *slug
		}

		now := s.clock.Now()
		if err := s.moderate(tx, sub, actor, models.StatusAccepted, models.ActionAccept, details, now); err != nil {
			return err
		}

		downloadable := material.Category.IsDownloadable()
		if err := publishNode(tx, sub, now, downloadable); err != nil {
			return err
		}
		if sub.Type == models.ChangeCreate && !downloadable {
			// articles and news still anchor comments and views on one version
			anchor := &models.MaterialVersion{MaterialID: material.ID, PublishedAt: &now}
			if err := tx.Materials.Create(anchor); err != nil {
				return err
			}
		}

		s.log.Info("submission accepted", "submission_id", sub.ID, "material_id", material.ID, "actor_id", actor.ID)
		fx.notify(event(notification.KindAccepted, sub.ID, actor.ID, "", now, sub.SubmitterID))
		fx.transition(models.ActionAccept)
		return nil
	})
}

func (s *submissionService) Reject(ctx context.Context, actor models.Actor, id uint, req models.RejectRequest) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	return s.run(ctx, "reject", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus(sub, models.StatusPending, "reject"); err != nil {
			return err
		}

		now := s.clock.Now()
		details := datatypes.JSONMap{"reason": req.ActionDetails.Reason}
		if err := s.moderate(tx, sub, actor, models.StatusRejected, models.ActionReject, details, now); err != nil {
			return err
		}
		fx.notify(event(notification.KindRejected, sub.ID, actor.ID, req.ActionDetails.Reason, now, sub.SubmitterID))
		fx.transition(models.ActionReject)
		return nil
	})
}

// Reconsider reopens a rejected submission for review. The reopened
// submission counts against the submitter's open quota again.
func (s *submissionService) Reconsider(ctx context.Context, actor models.Actor, id uint, req models.ReconsiderRequest) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	return s.run(ctx, "reconsider", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus(sub, models.StatusRejected, "reconsider"); err != nil {
			return err
		}
		if err := checkNoOpenSubmission(tx, sub.MaterialID); err != nil {
			return err
		}
		submitter, err := tx.Users.GetByID(sub.SubmitterID)
		if err != nil {
			return notFound(err, "submitter")
		}
		if err := checkQuota(tx, s.limits, models.Actor{ID: submitter.ID, Role: submitter.Role}); err != nil {
			return err
		}

		now := s.clock.Now()
		details := datatypes.JSONMap{"message": req.ActionDetails.Message}
		if err := s.moderate(tx, sub, actor, models.StatusPending, models.ActionReconsider, details, now); err != nil {
			return err
		}
		fx.notify(event(notification.KindMessage, sub.ID, actor.ID, req.ActionDetails.Message, now, sub.SubmitterID))
		fx.transition(models.ActionReconsider)
		return nil
	})
}

// moderate stamps a moderator decision: assignment, status and the log
// entry share one timestamp.
func (s *submissionService) moderate(tx *repositories.Repositories, sub *models.MaterialSubmission, actor models.Actor, status models.SubmissionStatus, action models.ActionType, details datatypes.JSONMap, at time.Time) error {
	if err := logAction(tx, sub.ID, &actor.ID, action, details, at); err != nil {
		return err
	}
	from := sub.Status
	sub.Status = status
	sub.AssignedModeratorID = &actor.ID
	sub.UpdatedAt = at
	if err := tx.Submissions.Save(sub); err != nil {
		return err
	}
	s.log.Info("submission transition", "submission_id", sub.ID, "action", action, "from", from, "to", status, "actor_id", actor.ID)
	return nil
}

// Delete removes a submission tree. Submitters may withdraw their own open
// submissions; moderators may delete any.
func (s *submissionService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	return s.run(ctx, "delete", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if !actor.IsModerator() {
			if sub.SubmitterID != actor.ID {
				return models.NewForbiddenError("you cannot delete this submission")
			}
			if sub.IsClosed() {
				return models.NewBusinessRuleError("a closed submission can only be deleted by a moderator")
			}
		}
		if err := deleteNode(tx, sub, fx); err != nil {
			return err
		}
		s.log.Info("submission deleted", "submission_id", sub.ID, "type", sub.Type, "status", sub.Status, "actor_id", actor.ID)
		fx.transition("delete")
		return nil
	})
}

func (s *submissionService) AssignModerator(ctx context.Context, actor models.Actor, id uint, req models.AssignModeratorRequest) error {
	if err := requireModerator(actor); err != nil {
		return err
	}
	return s.run(ctx, "assign_moderator", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if sub.IsClosed() {
			return models.NewBusinessRuleError("cannot assign a moderator to a closed submission")
		}
		moderator, err := tx.Users.GetByID(req.ModeratorID)
		if err != nil {
			return notFound(err, "moderator")
		}
		if !moderator.Role.IsModerator() {
			return models.NewBusinessRuleError("user %d is not a moderator", moderator.ID)
		}

		now := s.clock.Now()
		if err := logAction(tx, sub.ID, &actor.ID, models.ActionAssignModerator, datatypes.JSONMap{"moderator_id": moderator.ID}, now); err != nil {
			return err
		}
		sub.AssignedModeratorID = &moderator.ID
		sub.UpdatedAt = now
		if err := tx.Submissions.Save(sub); err != nil {
			return err
		}
		fx.notify(event(notification.KindAssigned, sub.ID, actor.ID, "", now, without([]uint{moderator.ID}, actor.ID)...))
		fx.transition(models.ActionAssignModerator)
		return nil
	})
}

// PostMessage appends a message between the submitter and the moderators
// without touching the submission status.
func (s *submissionService) PostMessage(ctx context.Context, actor models.Actor, id uint, req models.MessageRequest) error {
	return s.run(ctx, "message", func(tx *repositories.Repositories, fx *effects) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		if !canView(sub, actor) {
			return models.NewForbiddenError("you cannot post on this submission")
		}

		now := s.clock.Now()
		if err := logAction(tx, sub.ID, &actor.ID, models.ActionMessage, datatypes.JSONMap{"message": req.Message}, now); err != nil {
			return err
		}

		var recipients []uint
		switch {
		case actor.ID != sub.SubmitterID:
			recipients = []uint{sub.SubmitterID}
		case sub.AssignedModeratorID != nil:
			recipients = []uint{*sub.AssignedModeratorID}
		default:
			if recipients, err = tx.Users.ListModeratorIDs(); err != nil {
				return err
			}
		}
		fx.notify(event(notification.KindMessage, sub.ID, actor.ID, req.Message, now, without(recipients, actor.ID)...))
		fx.transition(models.ActionMessage)
		return nil
	})
}

func (s *submissionService) Get(ctx context.Context, actor models.Actor, id uint) (*models.SubmissionView, error) {
	sub, err := loadSubmission(s.repos.WithContext(ctx), id)
	if err != nil {
		return nil, s.translate("get", err)
	}
	if !canView(sub, actor) {
		return nil, models.NewNotFoundError("submission")
	}
	view := viewFor(sub, actor)
	return &view, nil
}

// List returns the actor's own submissions, or for moderators every
// submission in the requested status (pending by default).
func (s *submissionService) List(ctx context.Context, actor models.Actor, params models.SubmissionListParams) ([]models.SubmissionView, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, models.NewValidationError("status", "status is invalid")
	}
	var submitterID *uint
	if actor.IsModerator() {
		if params.Status == "" {
			params.Status = models.StatusPending
		}
	} else {
		submitterID = &actor.ID
	}

	subs, err := s.repos.WithContext(ctx).Submissions.List(params, submitterID)
	if err != nil {
		return nil, s.translate("list", err)
	}
	views := make([]models.SubmissionView, 0, len(subs))
	for i := range subs {
		views = append(views, viewFor(&subs[i], actor))
	}
	return views, nil
}

// SweepClosed deletes closed submissions last touched before cutoff, one
// transaction each. Submissions removed concurrently are skipped.
func (s *submissionService) SweepClosed(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.repos.WithContext(ctx).Submissions.ListClosedBefore(cutoff)
	if err != nil {
		return 0, s.translate("sweep", err)
	}

	swept := 0
	for _, id := range ids {
		deleted := false
		err := s.run(ctx, "sweep", func(tx *repositories.Repositories, fx *effects) error {
			sub, err := tx.Submissions.LoadTree(id)
			if err != nil {
				return notFound(err, "submission")
			}
			if !sub.IsClosed() || !sub.UpdatedAt.Before(cutoff) {
				return nil
			}
			deleted = true
			return deleteNode(tx, sub, fx)
		})
		if err != nil {
			var missing *models.NotFoundError
			if errors.As(err, &missing) {
				continue
			}
			return swept, err
		}
		if deleted {
			swept++
			metrics.SubmissionsSwept.Inc()
		}
	}
	if swept > 0 {
		s.log.Info("closed submissions swept", "count", swept, "cutoff", cutoff)
	}
	return swept, nil
}

func loadSubmission(tx *repositories.Repositories, id uint) (*models.MaterialSubmission, error) {
	sub, err := tx.Submissions.LoadTree(id)
	if err != nil {
		return nil, notFound(err, "submission")
	}
	return sub, nil
}

func logAction(tx *repositories.Repositories, submissionID uint, userID *uint, action models.ActionType, details datatypes.JSONMap, at time.Time) error {
	return tx.Submissions.CreateAction(&models.MaterialSubmissionAction{
		SubmissionID: submissionID,
		UserID:       userID,
		Type:         action,
		Details:      details,
		CreatedAt:    at,
	})
}

func event(kind notification.Kind, submissionID, actorID uint, message string, at time.Time, recipients ...uint) notification.Event {
	return notification.Event{
		Kind:         kind,
		SubmissionID: submissionID,
		ActorID:      actorID,
		RecipientIDs: recipients,
		Message:      message,
		OccurredAt:   at,
	}
}

// without drops the actor from a recipient list.
func without(ids []uint, actorID uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != actorID {
			out = append(out, id)
		}
	}
	return out
}
