package services

import (
	"time"

	"content-hub-cms/models"
	"content-hub-cms/repositories"
)

// submissionBuilder writes new submission nodes together with the
// unpublished rows they propose.
type submissionBuilder struct {
	tx    *repositories.Repositories
	actor models.Actor
	now   time.Time
}

// target is a material resolved for a new submission, with the stored
// versions and files its children point at.
type target struct {
	material *models.Material
	versions map[uint]*models.MaterialVersion
	files    map[uint]*models.MaterialFile
}

// resolve loads and checks everything an Update or Delete request refers
// to. Nothing is written.
func (b *submissionBuilder) resolve(req *models.SubmissionRequest) (*target, error) {
	t := &target{
		versions: map[uint]*models.MaterialVersion{},
		files:    map[uint]*models.MaterialFile{},
	}
	if req.Type == models.ChangeCreate {
		if req.Material.Slug != nil {
			if err := checkSlugFree(b.tx, *req.Material.Slug, 0); err != nil {
				return nil, err
			}
		}
		return t, nil
	}

	material, err := b.tx.Materials.FindPublishedMaterial(*req.Material.ID)
	if err != nil {
		return nil, notFound(err, "material")
	}
	if err := checkOwnership(b.tx, b.actor, material); err != nil {
		return nil, err
	}
	if err := checkNoOpenSubmission(b.tx, material.ID); err != nil {
		return nil, err
	}
	t.material = material

	if req.Type == models.ChangeDelete {
		return t, nil
	}
	for _, vs := range req.VersionSubmissions {
		if err := b.resolveVersion(t, material.ID, vs); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (b *submissionBuilder) resolveVersion(t *target, materialID uint, in models.VersionSubmissionInput) error {
	if in.Type == models.ChangeCreate {
		return nil
	}
	version, err := b.tx.Materials.FindPublishedVersion(materialID, *in.VersionID)
	if err != nil {
		return notFound(err, "material version")
	}
	t.versions[version.ID] = version
	if in.Type == models.ChangeDelete {
		return nil
	}
	for _, fs := range in.FileSubmissions {
		if fs.Type == models.ChangeCreate {
			continue
		}
		file, err := b.tx.Materials.FindPublishedFile(version.ID, *fs.File.ID)
		if err != nil {
			return notFound(err, "material file")
		}
		t.files[file.ID] = file
	}
	return nil
}

// build writes the submission described by req. Call resolve first.
func (b *submissionBuilder) build(req *models.SubmissionRequest, t *target, status models.SubmissionStatus) (*models.MaterialSubmission, error) {
	material := t.material
	if req.Type == models.ChangeCreate {
		material = &models.Material{
			Slug:     req.Material.Slug,
			Category: req.Material.Category,
			Edition:  req.Material.Edition,
		}
		if err := b.tx.Materials.Create(material); err != nil {
			return nil, err
		}
	}

	sub := &models.MaterialSubmission{
		MaterialID:  material.ID,
		Material:    material,
		SubmitterID: b.actor.ID,
		Type:        req.Type,
		Status:      status,
		CreatedAt:   b.now,
		UpdatedAt:   b.now,
	}
	if req.MaterialState != nil && req.Type != models.ChangeDelete {
		state, err := b.createMaterialState(material.ID, req.MaterialState)
		if err != nil {
			return nil, err
		}
		sub.MaterialStateID = &state.ID
		sub.MaterialState = state
	}
	if err := b.tx.Submissions.Create(sub); err != nil {
		return nil, err
	}

	if req.Type != models.ChangeDelete {
		for _, in := range req.VersionSubmissions {
			if _, err := b.addVersion(sub, t.versions, t.files, in); err != nil {
				return nil, err
			}
		}
	}
	sub.LinkTree()
	return sub, nil
}

func (b *submissionBuilder) createMaterialState(materialID uint, in *models.MaterialStateInput) (*models.MaterialState, error) {
	state := &models.MaterialState{
		MaterialID:    materialID,
		AuthorID:      b.authorID(in.AuthorID),
		Localizations: make([]models.MaterialLocalization, 0, len(in.Localizations)),
	}
	for _, l := range in.Localizations {
		state.Localizations = append(state.Localizations, newMaterialLocalization(0, l))
	}
	if err := b.tx.Materials.Create(state); err != nil {
		return nil, err
	}
	return state, nil
}

// authorID keeps non-moderators from attributing content to someone else.
func (b *submissionBuilder) authorID(requested *uint) *uint {
	if b.actor.IsModerator() && requested != nil {
		return requested
	}
	id := b.actor.ID
	return &id
}

// addVersion appends one version submission to sub. Targets of Update and
// Delete nodes come from the resolved maps.
func (b *submissionBuilder) addVersion(sub *models.MaterialSubmission, versions map[uint]*models.MaterialVersion, files map[uint]*models.MaterialFile, in models.VersionSubmissionInput) (*models.MaterialVersionSubmission, error) {
	var version *models.MaterialVersion
	if in.Type == models.ChangeCreate {
		version = &models.MaterialVersion{MaterialID: sub.MaterialID}
		if err := b.tx.Materials.Create(version); err != nil {
			return nil, err
		}
	} else {
		version = versions[*in.VersionID]
	}

	vs := models.MaterialVersionSubmission{
		VersionID:            version.ID,
		Version:              version,
		MaterialSubmissionID: sub.ID,
		Type:                 in.Type,
	}
	if in.VersionState != nil && in.Type != models.ChangeDelete {
		state, err := b.createVersionState(version.ID, in.VersionState)
		if err != nil {
			return nil, err
		}
		vs.VersionStateID = &state.ID
		vs.VersionState = state
	}
	if err := b.tx.Submissions.CreateVersionSubmission(&vs); err != nil {
		return nil, err
	}

	if in.Type != models.ChangeDelete {
		for _, fin := range in.FileSubmissions {
			fs, err := b.buildFile(&vs, files, fin)
			if err != nil {
				return nil, err
			}
			vs.FileSubmissions = append(vs.FileSubmissions, *fs)
		}
	}
	sub.VersionSubmissions = append(sub.VersionSubmissions, vs)
	return &sub.VersionSubmissions[len(sub.VersionSubmissions)-1], nil
}

func (b *submissionBuilder) createVersionState(versionID uint, in *models.VersionStateInput) (*models.MaterialVersionState, error) {
	state := &models.MaterialVersionState{
		VersionID:     versionID,
		Number:        in.Number,
		Localizations: make([]models.MaterialVersionLocalization, 0, len(in.Localizations)),
	}
	for _, l := range in.Localizations {
		state.Localizations = append(state.Localizations, newVersionLocalization(0, l))
	}
	if err := b.tx.Materials.Create(state); err != nil {
		return nil, err
	}
	return state, nil
}

// buildFile writes one file submission under vs.
func (b *submissionBuilder) buildFile(vs *models.MaterialVersionSubmission, files map[uint]*models.MaterialFile, in models.FileSubmissionInput) (*models.MaterialFileSubmission, error) {
	var file *models.MaterialFile
	if in.Type == models.ChangeCreate {
		file = &models.MaterialFile{VersionID: vs.VersionID}
		applyFileInput(file, in.File)
		if err := b.tx.Materials.Create(file); err != nil {
			return nil, err
		}
	} else {
		file = files[*in.File.ID]
	}

	fs := &models.MaterialFileSubmission{
		FileID:              file.ID,
		File:                file,
		VersionSubmissionID: vs.ID,
		Type:                in.Type,
	}
	if in.FileState != nil && in.Type != models.ChangeDelete {
		state, err := b.createFileState(file.ID, in.FileState)
		if err != nil {
			return nil, err
		}
		fs.FileStateID = &state.ID
		fs.FileState = state
	}
	if err := b.tx.Submissions.CreateFileSubmission(fs); err != nil {
		return nil, err
	}
	return fs, nil
}

func (b *submissionBuilder) createFileState(fileID uint, in *models.FileStateInput) (*models.MaterialFileState, error) {
	state := &models.MaterialFileState{
		FileID:        fileID,
		Localizations: make([]models.MaterialFileLocalization, 0, len(in.Localizations)),
	}
	for _, l := range in.Localizations {
		state.Localizations = append(state.Localizations, newFileLocalization(0, l))
	}
	if err := b.tx.Materials.Create(state); err != nil {
		return nil, err
	}
	return state, nil
}

func newMaterialLocalization(stateID uint, in models.MaterialLocalizationInput) models.MaterialLocalization {
	l := models.MaterialLocalization{MaterialStateID: stateID}
	applyMaterialLocalization(&l, in)
	return l
}

func applyMaterialLocalization(l *models.MaterialLocalization, in models.MaterialLocalizationInput) {
	l.Language = in.Language
	l.Cover = in.Cover
	l.Title = in.Title
	l.Description = in.Description
	l.Content = in.Content
}

func newVersionLocalization(stateID uint, in models.VersionLocalizationInput) models.MaterialVersionLocalization {
	return models.MaterialVersionLocalization{
		VersionStateID: stateID,
		Language:       in.Language,
		Changelog:      in.Changelog,
	}
}

func newFileLocalization(stateID uint, in models.FileLocalizationInput) models.MaterialFileLocalization {
	return models.MaterialFileLocalization{
		FileStateID: stateID,
		Language:    in.Language,
		Name:        in.Name,
	}
}

func applyFileInput(file *models.MaterialFile, in models.FileInput) {
	if in.Path != nil {
		file.Path = in.Path
	}
	if in.URL != nil {
		file.URL = in.URL
	}
	if in.Size != nil {
		file.Size = in.Size
	}
	if in.Extension != nil {
		file.Extension = in.Extension
	}
}
