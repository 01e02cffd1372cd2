package repositories

import (
	"fmt"
	"time"

	"content-hub-cms/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository interface {
	Create(submission *models.MaterialSubmission) error
	Save(submission *models.MaterialSubmission) error
	CreateVersionSubmission(vs *models.MaterialVersionSubmission) error
	CreateFileSubmission(fs *models.MaterialFileSubmission) error
	SaveNode(node models.SubmissionNode) error
	DeleteNode(node models.SubmissionNode) error
	CreateAction(action *models.MaterialSubmissionAction) error

	LoadTree(id uint) (*models.MaterialSubmission, error)
	List(params models.SubmissionListParams, submitterID *uint) ([]models.MaterialSubmission, error)
	HasOpenForMaterial(materialID uint) (bool, error)
	CountOpenBySubmitter(submitterID uint) (int64, error)
	HasAcceptedCreateBy(materialID, userID uint) (bool, error)
	ListClosedBefore(cutoff time.Time) ([]uint, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

var openStatuses = []models.SubmissionStatus{models.StatusDraft, models.StatusPending}

var closedStatuses = []models.SubmissionStatus{models.StatusAccepted, models.StatusRejected}

func (r *submissionRepository) Create(submission *models.MaterialSubmission) error {
	return r.db.Omit(clause.Associations).Create(submission).Error
}

func (r *submissionRepository) Save(submission *models.MaterialSubmission) error {
	return r.db.Omit(clause.Associations).Save(submission).Error
}

func (r *submissionRepository) CreateVersionSubmission(vs *models.MaterialVersionSubmission) error {
	return r.db.Omit(clause.Associations).Create(vs).Error
}

func (r *submissionRepository) CreateFileSubmission(fs *models.MaterialFileSubmission) error {
	return r.db.Omit(clause.Associations).Create(fs).Error
}

func (r *submissionRepository) SaveNode(node models.SubmissionNode) error {
	return r.db.Omit(clause.Associations).Save(node).Error
}

// DeleteNode removes a single submission row. Callers delete children
// first; the root also takes its action log with it.
func (r *submissionRepository) DeleteNode(node models.SubmissionNode) error {
	switch n := node.(type) {
	case *models.MaterialSubmission:
		if err := r.db.Where("submission_id = ?", n.ID).Delete(&models.MaterialSubmissionAction{}).Error; err != nil {
			return err
		}
		return r.db.Delete(&models.MaterialSubmission{}, n.ID).Error
	case *models.MaterialVersionSubmission:
		return deleteVersionSubmissions(r.db, []uint{n.ID})
	case *models.MaterialFileSubmission:
		return r.db.Delete(&models.MaterialFileSubmission{}, n.ID).Error
	}
	return fmt.Errorf("delete node: unsupported type %T", node)
}

func (r *submissionRepository) CreateAction(action *models.MaterialSubmissionAction) error {
	return r.db.Create(action).Error
}

// LoadTree loads a submission with every node, entity, pending state and
// action. Soft-deleted and unpublished entities are included.
func (r *submissionRepository) LoadTree(id uint) (*models.MaterialSubmission, error) {
	var submission models.MaterialSubmission
	err := r.db.
		Preload("Material", unscoped).
		Preload("Material.States", byID).
		Preload("Material.States.Localizations", byID).
		Preload("MaterialState.Localizations", byID).
		Preload("VersionSubmissions", byID).
		Preload("VersionSubmissions.Version", unscoped).
		Preload("VersionSubmissions.VersionState.Localizations", byID).
		Preload("VersionSubmissions.FileSubmissions", byID).
		Preload("VersionSubmissions.FileSubmissions.File", unscoped).
		Preload("VersionSubmissions.FileSubmissions.FileState.Localizations", byID).
		Preload("Actions", byID).
		First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	submission.LinkTree()
	return &submission, nil
}

// List returns submission roots without their child trees. A submitter
// filter restricts the list to that user's submissions.
func (r *submissionRepository) List(params models.SubmissionListParams, submitterID *uint) ([]models.MaterialSubmission, error) {
	var submissions []models.MaterialSubmission
	query := r.db.
		Preload("Material", unscoped).
		Preload("MaterialState.Localizations", byID).
		Order("updated_at DESC, id DESC")
	if submitterID != nil {
		query = query.Where("submitter_id = ?", *submitterID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	err := query.Find(&submissions).Error
	for i := range submissions {
		submissions[i].LinkTree()
	}
	return submissions, err
}

func (r *submissionRepository) HasOpenForMaterial(materialID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.MaterialSubmission{}).
		Where("material_id = ? AND status IN ?", materialID, openStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *submissionRepository) CountOpenBySubmitter(submitterID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.MaterialSubmission{}).
		Where("submitter_id = ? AND status IN ?", submitterID, openStatuses).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) HasAcceptedCreateBy(materialID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.MaterialSubmission{}).
		Where("material_id = ? AND submitter_id = ? AND type = ? AND status = ?",
			materialID, userID, models.ChangeCreate, models.StatusAccepted).
		Count(&count).Error
	return count > 0, err
}

func (r *submissionRepository) ListClosedBefore(cutoff time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.MaterialSubmission{}).
		Where("status IN ? AND updated_at < ?", closedStatuses, cutoff).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// deleteSubmissionTrees removes whole submission trees and their actions
// without touching the target entities.
func deleteSubmissionTrees(db *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var versionSubmissionIDs []uint
	if err := db.Model(&models.MaterialVersionSubmission{}).Where("material_submission_id IN ?", ids).Pluck("id", &versionSubmissionIDs).Error; err != nil {
		return err
	}
	if err := deleteVersionSubmissions(db, versionSubmissionIDs); err != nil {
		return err
	}
	if err := db.Where("submission_id IN ?", ids).Delete(&models.MaterialSubmissionAction{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&models.MaterialSubmission{}).Error
}

func deleteVersionSubmissions(db *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := db.Where("version_submission_id IN ?", ids).Delete(&models.MaterialFileSubmission{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&models.MaterialVersionSubmission{}).Error
}
