package services

import (
	"time"

	"content-hub-cms/models"
	"content-hub-cms/repositories"
)

// disposal is what removing a submission node does to its target entity.
type disposal int

const (
	keepEntity disposal = iota
	purgeEntity
)

// disposalFor decides the fate of a node's entity from its change kind and
// the status of the owning submission. Content that was never published,
// or whose deletion was already accepted, goes away for good. Everything
// else is live content the node merely pointed at.
func disposalFor(kind models.ChangeKind, status models.SubmissionStatus) disposal {
	switch {
	case kind == models.ChangeCreate && status != models.StatusAccepted:
		return purgeEntity
	case kind == models.ChangeDelete && status == models.StatusAccepted:
		return purgeEntity
	}
	return keepEntity
}

// deleteNode removes a submission node and its children. Each node drops
// its row, then its still unpublished pending state, then its entity when
// disposalFor says so.
func deleteNode(tx *repositories.Repositories, node models.SubmissionNode, fx *effects) error {
	for _, child := range node.Children() {
		if err := deleteNode(tx, child, fx); err != nil {
			return err
		}
	}
	if err := tx.Submissions.DeleteNode(node); err != nil {
		return err
	}
	if state := node.PendingState(); state != nil && !state.IsPublished() {
		if err := tx.Materials.DeleteState(state); err != nil {
			return err
		}
	}
	entity := node.Entity()
	if entity == nil || disposalFor(node.ChangeKind(), node.SubmissionStatus()) != purgeEntity {
		return nil
	}
	keys, err := tx.Materials.Purge(entity)
	if err != nil {
		return err
	}
	fx.removeObjects(keys...)
	return nil
}

// publishNode applies an accepted node: Create publishes the entity,
// Delete soft-deletes it and Update leaves the live row alone. A pending
// state is always published. Children are visited only when descend is set.
func publishNode(tx *repositories.Repositories, node models.SubmissionNode, at time.Time, descend bool) error {
	if entity := node.Entity(); entity != nil {
		switch node.ChangeKind() {
		case models.ChangeCreate:
			entity.MarkPublished(at)
			if err := tx.Materials.Save(entity); err != nil {
				return err
			}
		case models.ChangeDelete:
			if err := tx.Materials.SoftDelete(entity); err != nil {
				return err
			}
		}
	}
	if state := node.PendingState(); state != nil {
		state.MarkPublished(at)
		if err := tx.Materials.Save(state); err != nil {
			return err
		}
	}
	if !descend {
		return nil
	}
	for _, child := range node.Children() {
		if err := publishNode(tx, child, at, true); err != nil {
			return err
		}
	}
	return nil
}
