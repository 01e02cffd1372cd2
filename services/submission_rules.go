package services

import (
	"errors"
	"fmt"

	"content-hub-cms/config"
	"content-hub-cms/models"
	"content-hub-cms/repositories"

	"gorm.io/gorm"
)

// validateNewSubmission checks the request shape before anything is read
// or written.
func validateNewSubmission(req *models.SubmissionRequest) error {
	verr := &models.ValidationError{Errors: map[string][]string{}}
	add := func(field, msg string) {
		verr.Errors[field] = append(verr.Errors[field], msg)
	}

	switch req.Type {
	case "":
		add("type", "type is required")
	case models.ChangeCreate:
		if !req.Material.Category.IsValid() {
			add("material.category", "category is invalid")
		}
		if req.MaterialState == nil {
			add("material_state", "material_state is required for a new material")
		}
	default:
		if req.Material.ID == nil {
			add("material.id", "material id is required")
		}
	}
	if req.Material.Edition != nil && !req.Material.Edition.IsValid() {
		add("material.edition", "edition is invalid")
	}
	if req.MaterialState != nil && req.Type != models.ChangeDelete && len(req.MaterialState.Localizations) == 0 {
		add("material_state.localizations", "at least one localization is required")
	}
	if req.Type != models.ChangeDelete {
		for i, vs := range req.VersionSubmissions {
			validateVersionInput(req.Type, fmt.Sprintf("version_submissions[%d]", i), vs, add)
		}
	}

	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

func validateVersionInput(parent models.ChangeKind, path string, in models.VersionSubmissionInput, add func(field, msg string)) {
	if parent == models.ChangeCreate && in.Type != models.ChangeCreate {
		add(path+".type", "a new material can only contain new versions")
	}
	switch in.Type {
	case models.ChangeCreate:
		if in.VersionState == nil {
			add(path+".version_state", "version_state is required for a new version")
		}
	case models.ChangeUpdate, models.ChangeDelete:
		if in.VersionID == nil {
			add(path+".version_id", "version id is required")
		}
	}
	if in.Type == models.ChangeDelete {
		return
	}
	for j, fs := range in.FileSubmissions {
		validateFileInput(in.Type, fmt.Sprintf("%s.file_submissions[%d]", path, j), fs, add)
	}
}

func validateFileInput(parent models.ChangeKind, path string, in models.FileSubmissionInput, add func(field, msg string)) {
	if parent == models.ChangeCreate && in.Type != models.ChangeCreate {
		add(path+".type", "a new version can only contain new files")
	}
	switch in.Type {
	case models.ChangeCreate:
		if in.FileState == nil {
			add(path+".file_state", "file_state is required for a new file")
		}
		if in.File.Path == nil && in.File.URL == nil {
			add(path+".file", "either path or url is required")
		}
	case models.ChangeUpdate, models.ChangeDelete:
		if in.File.ID == nil {
			add(path+".file.id", "file id is required")
		}
	}
}

// versionShape is what the count limits look at, taken from either a
// request or a stored tree.
type versionShape struct {
	kind  models.ChangeKind
	files int
}

func shapesOfRequest(versions []models.VersionSubmissionInput) []versionShape {
	shapes := make([]versionShape, 0, len(versions))
	for _, vs := range versions {
		shapes = append(shapes, versionShape{kind: vs.Type, files: len(vs.FileSubmissions)})
	}
	return shapes
}

func shapesOfTree(sub *models.MaterialSubmission) []versionShape {
	shapes := make([]versionShape, 0, len(sub.VersionSubmissions))
	for _, vs := range sub.VersionSubmissions {
		shapes = append(shapes, versionShape{kind: vs.Type, files: len(vs.FileSubmissions)})
	}
	return shapes
}

// checkLimits enforces the version and file counts a submission may carry
// for its category.
func checkLimits(limits config.SubmissionConfig, kind models.ChangeKind, category models.Category, shapes []versionShape) error {
	if kind == models.ChangeDelete {
		return nil
	}
	if !category.IsDownloadable() {
		if len(shapes) > 0 {
			return models.NewBusinessRuleError("category %s does not accept versions", category)
		}
		return nil
	}

	newVersions := 0
	for _, shape := range shapes {
		if shape.kind == models.ChangeCreate {
			newVersions++
			if shape.files == 0 {
				return models.NewBusinessRuleError("a new version needs at least one file")
			}
		}
		if shape.kind != models.ChangeDelete && shape.files > limits.MaxFilesPerVersion {
			return models.NewBusinessRuleError("a version can carry at most %d files", limits.MaxFilesPerVersion)
		}
	}
	if newVersions > limits.MaxNewVersions {
		return models.NewBusinessRuleError("a submission can add at most %d new version(s)", limits.MaxNewVersions)
	}
	if kind == models.ChangeCreate && len(shapes) == 0 {
		return models.NewBusinessRuleError("category %s needs at least one version with a file", category)
	}
	return nil
}

// checkQuota caps how many open submissions a non-moderator may hold.
func checkQuota(tx *repositories.Repositories, limits config.SubmissionConfig, actor models.Actor) error {
	if actor.IsModerator() {
		return nil
	}
	open, err := tx.Submissions.CountOpenBySubmitter(actor.ID)
	if err != nil {
		return err
	}
	if open >= int64(limits.OpenLimit) {
		return models.NewBusinessRuleError("submitter already has %d open submissions, the limit is %d", open, limits.OpenLimit)
	}
	return nil
}

// checkNoOpenSubmission fails when the material already has a draft or
// pending submission.
func checkNoOpenSubmission(tx *repositories.Repositories, materialID uint) error {
	open, err := tx.Submissions.HasOpenForMaterial(materialID)
	if err != nil {
		return err
	}
	if open {
		return models.NewBusinessRuleError("material already has an open submission")
	}
	return nil
}

// checkOwnership lets moderators through and otherwise requires the actor
// to be the current author or the one whose creation was accepted.
func checkOwnership(tx *repositories.Repositories, actor models.Actor, material *models.Material) error {
	if actor.IsModerator() {
		return nil
	}
	if state := material.CurrentState(); state != nil && state.AuthorID != nil && *state.AuthorID == actor.ID {
		return nil
	}
	created, err := tx.Submissions.HasAcceptedCreateBy(material.ID, actor.ID)
	if err != nil {
		return err
	}
	if !created {
		return models.NewForbiddenError("you do not own this material")
	}
	return nil
}

func checkSlugFree(tx *repositories.Repositories, slug string, materialID uint) error {
	taken, err := tx.Materials.SlugTaken(slug, materialID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewBusinessRuleError("slug %q is already taken", slug)
	}
	return nil
}

func requireModerator(actor models.Actor) error {
	if !actor.IsModerator() {
		return models.NewForbiddenError("only moderators can do this")
	}
	return nil
}

func requireStatus(sub *models.MaterialSubmission, want models.SubmissionStatus, action string) error {
	if sub.Status != want {
		return models.NewBusinessRuleError("cannot %s a submission with status %s", action, sub.Status)
	}
	return nil
}

// notFound turns gorm's missing-record error into the typed one.
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource)
	}
	return err
}
