package repositories

import (
	"fmt"

	"content-hub-cms/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaterialRepository owns materials, versions, files, their states and
// localizations. FindPublished* methods apply the published scope
// (published_at set, not soft-deleted); FindAny* methods see every row.
type MaterialRepository interface {
	Create(value interface{}) error
	Save(value interface{}) error
	DeleteRow(value interface{}) error
	SoftDelete(entity models.Publishable) error
	DeleteState(state models.Publishable) error
	Purge(entity models.Publishable) ([]string, error)

	FindPublishedMaterial(id uint) (*models.Material, error)
	FindPublishedBySlug(slug string) (*models.Material, error)
	FindPublishedVersion(materialID, versionID uint) (*models.MaterialVersion, error)
	FindPublishedFile(versionID, fileID uint) (*models.MaterialFile, error)
	FindAnyMaterial(id uint) (*models.Material, error)
	SlugTaken(slug string, exceptID uint) (bool, error)
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

// Create inserts a row together with any nested children set on it.
func (r *materialRepository) Create(value interface{}) error {
	return r.db.Create(value).Error
}

// Save updates a single row and leaves its associations alone.
func (r *materialRepository) Save(value interface{}) error {
	return r.db.Omit(clause.Associations).Save(value).Error
}

func (r *materialRepository) DeleteRow(value interface{}) error {
	return r.db.Unscoped().Delete(value).Error
}

func (r *materialRepository) SoftDelete(entity models.Publishable) error {
	return r.db.Delete(entity).Error
}

func (r *materialRepository) DeleteState(state models.Publishable) error {
	switch s := state.(type) {
	case *models.MaterialState:
		return r.deleteMaterialStates([]uint{s.ID})
	case *models.MaterialVersionState:
		return r.deleteVersionStates([]uint{s.ID})
	case *models.MaterialFileState:
		return r.deleteFileStates([]uint{s.ID})
	}
	return fmt.Errorf("delete state: unsupported type %T", state)
}

// Purge hard-deletes an identity row with everything hanging off it,
// including submission rows that reference it. It returns the storage keys
// of purged files.
func (r *materialRepository) Purge(entity models.Publishable) ([]string, error) {
	switch e := entity.(type) {
	case *models.Material:
		return r.purgeMaterial(e.ID)
	case *models.MaterialVersion:
		return r.purgeVersions([]uint{e.ID})
	case *models.MaterialFile:
		return r.purgeFiles([]uint{e.ID})
	}
	return nil, fmt.Errorf("purge: unsupported type %T", entity)
}

func (r *materialRepository) FindPublishedMaterial(id uint) (*models.Material, error) {
	var material models.Material
	err := r.db.
		Preload("States", publishedOnly).
		Preload("States.Localizations", byID).
		Where("published_at IS NOT NULL").
		First(&material, id).Error
	return &material, err
}

func (r *materialRepository) FindPublishedBySlug(slug string) (*models.Material, error) {
	var material models.Material
	err := r.db.
		Preload("States", publishedOnly).
		Preload("States.Localizations", byID).
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return publishedOnly(db).Order("published_at DESC, id DESC") }).
		Preload("Versions.States", publishedOnly).
		Preload("Versions.States.Localizations", byID).
		Preload("Versions.Files", func(db *gorm.DB) *gorm.DB { return publishedOnly(db).Order("id") }).
		Preload("Versions.Files.States", publishedOnly).
		Preload("Versions.Files.States.Localizations", byID).
		Where("slug = ? AND published_at IS NOT NULL", slug).
		First(&material).Error
	return &material, err
}

func (r *materialRepository) FindPublishedVersion(materialID, versionID uint) (*models.MaterialVersion, error) {
	var version models.MaterialVersion
	err := r.db.
		Where("material_id = ? AND published_at IS NOT NULL", materialID).
		First(&version, versionID).Error
	return &version, err
}

func (r *materialRepository) FindPublishedFile(versionID, fileID uint) (*models.MaterialFile, error) {
	var file models.MaterialFile
	err := r.db.
		Where("version_id = ? AND published_at IS NOT NULL", versionID).
		First(&file, fileID).Error
	return &file, err
}

func (r *materialRepository) FindAnyMaterial(id uint) (*models.Material, error) {
	var material models.Material
	err := r.db.Unscoped().
		Preload("States", byID).
		Preload("States.Localizations", byID).
		Preload("Versions", unscopedByID).
		Preload("Versions.States", byID).
		Preload("Versions.States.Localizations", byID).
		Preload("Versions.Files", unscopedByID).
		Preload("Versions.Files.States", byID).
		Preload("Versions.Files.States.Localizations", byID).
		First(&material, id).Error
	return &material, err
}

func (r *materialRepository) SlugTaken(slug string, exceptID uint) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.Material{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *materialRepository) purgeMaterial(id uint) ([]string, error) {
	var submissionIDs []uint
	if err := r.db.Model(&models.MaterialSubmission{}).Where("material_id = ?", id).Pluck("id", &submissionIDs).Error; err != nil {
		return nil, err
	}
	if err := deleteSubmissionTrees(r.db, submissionIDs); err != nil {
		return nil, err
	}

	var versionIDs []uint
	if err := r.db.Unscoped().Model(&models.MaterialVersion{}).Where("material_id = ?", id).Pluck("id", &versionIDs).Error; err != nil {
		return nil, err
	}
	keys, err := r.purgeVersions(versionIDs)
	if err != nil {
		return nil, err
	}

	var stateIDs []uint
	if err := r.db.Model(&models.MaterialState{}).Where("material_id = ?", id).Pluck("id", &stateIDs).Error; err != nil {
		return nil, err
	}
	if err := r.deleteMaterialStates(stateIDs); err != nil {
		return nil, err
	}
	if err := r.db.Unscoped().Delete(&models.Material{}, id).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *materialRepository) purgeVersions(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var versionSubmissionIDs []uint
	if err := r.db.Model(&models.MaterialVersionSubmission{}).Where("version_id IN ?", ids).Pluck("id", &versionSubmissionIDs).Error; err != nil {
		return nil, err
	}
	if err := deleteVersionSubmissions(r.db, versionSubmissionIDs); err != nil {
		return nil, err
	}

	var fileIDs []uint
	if err := r.db.Unscoped().Model(&models.MaterialFile{}).Where("version_id IN ?", ids).Pluck("id", &fileIDs).Error; err != nil {
		return nil, err
	}
	keys, err := r.purgeFiles(fileIDs)
	if err != nil {
		return nil, err
	}

	var stateIDs []uint
	if err := r.db.Model(&models.MaterialVersionState{}).Where("version_id IN ?", ids).Pluck("id", &stateIDs).Error; err != nil {
		return nil, err
	}
	if err := r.deleteVersionStates(stateIDs); err != nil {
		return nil, err
	}
	if err := r.db.Unscoped().Where("id IN ?", ids).Delete(&models.MaterialVersion{}).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *materialRepository) purgeFiles(ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var keys []string
	if err := r.db.Unscoped().Model(&models.MaterialFile{}).
		Where("id IN ? AND path IS NOT NULL AND path <> ''", ids).
		Pluck("path", &keys).Error; err != nil {
		return nil, err
	}
	if err := r.db.Where("file_id IN ?", ids).Delete(&models.MaterialFileSubmission{}).Error; err != nil {
		return nil, err
	}

	var stateIDs []uint
	if err := r.db.Model(&models.MaterialFileState{}).Where("file_id IN ?", ids).Pluck("id", &stateIDs).Error; err != nil {
		return nil, err
	}
	if err := r.deleteFileStates(stateIDs); err != nil {
		return nil, err
	}
	if err := r.db.Unscoped().Where("id IN ?", ids).Delete(&models.MaterialFile{}).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *materialRepository) deleteMaterialStates(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("material_state_id IN ?", ids).Delete(&models.MaterialLocalization{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&models.MaterialState{}).Error
}

func (r *materialRepository) deleteVersionStates(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("version_state_id IN ?", ids).Delete(&models.MaterialVersionLocalization{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&models.MaterialVersionState{}).Error
}

func (r *materialRepository) deleteFileStates(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.Where("file_state_id IN ?", ids).Delete(&models.MaterialFileLocalization{}).Error; err != nil {
		return err
	}
	return r.db.Where("id IN ?", ids).Delete(&models.MaterialFileState{}).Error
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func unscopedByID(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Order("id")
}
