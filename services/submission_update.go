package services

import (
	"fmt"

	"content-hub-cms/config"
	"content-hub-cms/models"
	"content-hub-cms/repositories"
)

// mergeOps reconciles a stored list with a patch list keyed by id. Stored
// rows missing from the patch are removed, entries without an id are
// created and the rest are patched in place.
type mergeOps[R any, I any] struct {
	rowID   func(row *R) uint
	inputID func(in I) *uint
	create  func(in I) error
	update  func(row *R, in I) error
	remove  func(row *R) error
}

func (m mergeOps[R, I]) apply(stored []R, patch []I) error {
	byID := make(map[uint]*R, len(stored))
	for i := range stored {
		byID[m.rowID(&stored[i])] = &stored[i]
	}
	kept := make(map[uint]bool, len(patch))
	for _, in := range patch {
		id := m.inputID(in)
		if id == nil {
			continue
		}
		if _, ok := byID[*id]; !ok {
			return models.NewBusinessRuleError("id %d does not belong to this submission", *id)
		}
		if kept[*id] {
			return models.NewBusinessRuleError("id %d appears more than once", *id)
		}
		kept[*id] = true
	}

	for i := range stored {
		if !kept[m.rowID(&stored[i])] {
			if err := m.remove(&stored[i]); err != nil {
				return err
			}
		}
	}
	for _, in := range patch {
		var err error
		if id := m.inputID(in); id == nil {
			err = m.create(in)
		} else {
			err = m.update(byID[*id], in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// submissionMerger applies a content patch to a stored submission tree.
type submissionMerger struct {
	tx      *repositories.Repositories
	builder *submissionBuilder
	sub     *models.MaterialSubmission
	fx      *effects
}

// patchContent merges req into sub and returns the reloaded tree. Delete
// submissions carry no editable content and are returned as they are.
func patchContent(tx *repositories.Repositories, limits config.SubmissionConfig, b *submissionBuilder, sub *models.MaterialSubmission, req *models.SubmissionRequest, fx *effects) (*models.MaterialSubmission, error) {
	if req == nil || sub.Type == models.ChangeDelete {
		return sub, nil
	}
	if req.Type != "" && req.Type != sub.Type {
		return nil, models.NewValidationError("type", "the type of a submission cannot change")
	}
	m := &submissionMerger{tx: tx, builder: b, sub: sub, fx: fx}
	if err := m.mergeMaterial(req.Material); err != nil {
		return nil, err
	}
	if req.MaterialState != nil {
		if err := m.mergeMaterialState(req.MaterialState); err != nil {
			return nil, err
		}
	}
	if req.VersionSubmissions != nil {
		if err := m.mergeVersions(req.VersionSubmissions); err != nil {
			return nil, err
		}
	}

	fresh, err := tx.Submissions.LoadTree(sub.ID)
	if err != nil {
		return nil, err
	}
	if err := checkLimits(limits, fresh.Type, fresh.Material.Category, shapesOfTree(fresh)); err != nil {
		return nil, err
	}
	return fresh, nil
}

// mergeMaterial patches identity fields, which only a new material may
// change.
func (m *submissionMerger) mergeMaterial(in models.MaterialInput) error {
	if m.sub.Type != models.ChangeCreate {
		return nil
	}
	material := m.sub.Material
	changed := false
	if in.Category != "" && in.Category != material.Category {
		if !in.Category.IsValid() {
			return models.NewValidationError("material.category", "category is invalid")
		}
		material.Category = in.Category
		changed = true
	}
	if in.Edition != nil {
		if !in.Edition.IsValid() {
			return models.NewValidationError("material.edition", "edition is invalid")
		}
		material.Edition = in.Edition
		changed = true
	}
	if in.Slug != nil {
		if err := checkSlugFree(m.tx, *in.Slug, material.ID); err != nil {
			return err
		}
		material.Slug = in.Slug
		changed = true
	}
	if !changed {
		return nil
	}
	return m.tx.Materials.Save(material)
}

func (m *submissionMerger) mergeMaterialState(in *models.MaterialStateInput) error {
	state := m.sub.MaterialState
	if state == nil {
		created, err := m.builder.createMaterialState(m.sub.MaterialID, in)
		if err != nil {
			return err
		}
		m.sub.MaterialStateID = &created.ID
		return m.tx.Submissions.Save(m.sub)
	}

	if m.builder.actor.IsModerator() && in.AuthorID != nil {
		state.AuthorID = in.AuthorID
		if err := m.tx.Materials.Save(state); err != nil {
			return err
		}
	}
	if in.Localizations == nil {
		return nil
	}
	if len(in.Localizations) == 0 {
		return models.NewValidationError("material_state.localizations", "at least one localization is required")
	}
	return mergeOps[models.MaterialLocalization, models.MaterialLocalizationInput]{
		rowID:   func(l *models.MaterialLocalization) uint { return l.ID },
		inputID: func(in models.MaterialLocalizationInput) *uint { return in.ID },
		create: func(in models.MaterialLocalizationInput) error {
			l := newMaterialLocalization(state.ID, in)
			return m.tx.Materials.Create(&l)
		},
		update: func(l *models.MaterialLocalization, in models.MaterialLocalizationInput) error {
			applyMaterialLocalization(l, in)
			return m.tx.Materials.Save(l)
		},
		remove: func(l *models.MaterialLocalization) error { return m.tx.Materials.DeleteRow(l) },
	}.apply(state.Localizations, in.Localizations)
}

func (m *submissionMerger) mergeVersions(patch []models.VersionSubmissionInput) error {
	return mergeOps[models.MaterialVersionSubmission, models.VersionSubmissionInput]{
		rowID:   func(vs *models.MaterialVersionSubmission) uint { return vs.ID },
		inputID: func(in models.VersionSubmissionInput) *uint { return in.ID },
		create:  m.addVersion,
		update:  m.updateVersion,
		remove: func(vs *models.MaterialVersionSubmission) error {
			return deleteNode(m.tx, vs, m.fx)
		},
	}.apply(m.sub.VersionSubmissions, patch)
}

func (m *submissionMerger) addVersion(in models.VersionSubmissionInput) error {
	if err := m.validateVersion(in, "version_submissions"); err != nil {
		return err
	}
	t := &target{versions: map[uint]*models.MaterialVersion{}, files: map[uint]*models.MaterialFile{}}
	if err := m.builder.resolveVersion(t, m.sub.MaterialID, in); err != nil {
		return err
	}
	_, err := m.builder.addVersion(m.sub, t.versions, t.files, in)
	return err
}

func (m *submissionMerger) validateVersion(in models.VersionSubmissionInput, path string) error {
	verr := &models.ValidationError{Errors: map[string][]string{}}
	validateVersionInput(m.sub.Type, path, in, func(field, msg string) {
		verr.Errors[field] = append(verr.Errors[field], msg)
	})
	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

func (m *submissionMerger) updateVersion(vs *models.MaterialVersionSubmission, in models.VersionSubmissionInput) error {
	path := fmt.Sprintf("version_submissions[id=%d]", vs.ID)
	if in.Type != vs.Type {
		return models.NewValidationError(path+".type", "the type of a version submission cannot change")
	}
	if vs.Type == models.ChangeDelete {
		return nil
	}

	if in.VersionState != nil {
		if err := m.mergeVersionState(vs, in.VersionState); err != nil {
			return err
		}
	}
	if in.FileSubmissions == nil {
		return nil
	}
	return mergeOps[models.MaterialFileSubmission, models.FileSubmissionInput]{
		rowID:   func(fs *models.MaterialFileSubmission) uint { return fs.ID },
		inputID: func(in models.FileSubmissionInput) *uint { return in.ID },
		create: func(in models.FileSubmissionInput) error {
			return m.addFile(vs, in, path)
		},
		update: func(fs *models.MaterialFileSubmission, in models.FileSubmissionInput) error {
			return m.updateFile(fs, in, path)
		},
		remove: func(fs *models.MaterialFileSubmission) error {
			return deleteNode(m.tx, fs, m.fx)
		},
	}.apply(vs.FileSubmissions, in.FileSubmissions)
}

func (m *submissionMerger) mergeVersionState(vs *models.MaterialVersionSubmission, in *models.VersionStateInput) error {
	state := vs.VersionState
	if state == nil {
		created, err := m.builder.createVersionState(vs.VersionID, in)
		if err != nil {
			return err
		}
		vs.VersionStateID = &created.ID
		return m.tx.Submissions.SaveNode(vs)
	}

	if state.Number != in.Number {
		state.Number = in.Number
		if err := m.tx.Materials.Save(state); err != nil {
			return err
		}
	}
	if in.Localizations == nil {
		return nil
	}
	return mergeOps[models.MaterialVersionLocalization, models.VersionLocalizationInput]{
		rowID:   func(l *models.MaterialVersionLocalization) uint { return l.ID },
		inputID: func(in models.VersionLocalizationInput) *uint { return in.ID },
		create: func(in models.VersionLocalizationInput) error {
			l := newVersionLocalization(state.ID, in)
			return m.tx.Materials.Create(&l)
		},
		update: func(l *models.MaterialVersionLocalization, in models.VersionLocalizationInput) error {
			l.Language = in.Language
			l.Changelog = in.Changelog
			return m.tx.Materials.Save(l)
		},
		remove: func(l *models.MaterialVersionLocalization) error { return m.tx.Materials.DeleteRow(l) },
	}.apply(state.Localizations, in.Localizations)
}

func (m *submissionMerger) addFile(vs *models.MaterialVersionSubmission, in models.FileSubmissionInput, path string) error {
	verr := &models.ValidationError{Errors: map[string][]string{}}
	validateFileInput(vs.Type, path+".file_submissions", in, func(field, msg string) {
		verr.Errors[field] = append(verr.Errors[field], msg)
	})
	if len(verr.Errors) > 0 {
		return verr
	}

	files := map[uint]*models.MaterialFile{}
	if in.Type != models.ChangeCreate {
		file, err := m.tx.Materials.FindPublishedFile(vs.VersionID, *in.File.ID)
		if err != nil {
			return notFound(err, "material file")
		}
		files[file.ID] = file
	}
	_, err := m.builder.buildFile(vs, files, in)
	return err
}

func (m *submissionMerger) updateFile(fs *models.MaterialFileSubmission, in models.FileSubmissionInput, path string) error {
	if in.Type != fs.Type {
		return models.NewValidationError(fmt.Sprintf("%s.file_submissions[id=%d].type", path, fs.ID), "the type of a file submission cannot change")
	}
	if fs.Type == models.ChangeDelete {
		return nil
	}
	if fs.Type == models.ChangeCreate && fs.File != nil {
		applyFileInput(fs.File, in.File)
		if err := m.tx.Materials.Save(fs.File); err != nil {
			return err
		}
	}
	if in.FileState == nil {
		return nil
	}

	state := fs.FileState
	if state == nil {
		created, err := m.builder.createFileState(fs.FileID, in.FileState)
		if err != nil {
			return err
		}
		fs.FileStateID = &created.ID
		return m.tx.Submissions.SaveNode(fs)
	}
	if in.FileState.Localizations == nil {
		return nil
	}
	return mergeOps[models.MaterialFileLocalization, models.FileLocalizationInput]{
		rowID:   func(l *models.MaterialFileLocalization) uint { return l.ID },
		inputID: func(in models.FileLocalizationInput) *uint { return in.ID },
		create: func(in models.FileLocalizationInput) error {
			l := newFileLocalization(state.ID, in)
			return m.tx.Materials.Create(&l)
		},
		update: func(l *models.MaterialFileLocalization, in models.FileLocalizationInput) error {
			l.Language = in.Language
			l.Name = in.Name
			return m.tx.Materials.Save(l)
		},
		remove: func(l *models.MaterialFileLocalization) error { return m.tx.Materials.DeleteRow(l) },
	}.apply(state.Localizations, in.FileState.Localizations)
}
