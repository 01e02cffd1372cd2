package services

import "content-hub-cms/models"

// canView reports whether actor may read sub at all.
func canView(sub *models.MaterialSubmission, actor models.Actor) bool {
	return actor.IsModerator() || sub.SubmitterID == actor.ID
}

// viewFor shapes a submission for the actor. Moderators see the assignment
// and every action; submitters do not see moderator assignment actions.
func viewFor(sub *models.MaterialSubmission, actor models.Actor) models.SubmissionView {
	view := models.SubmissionView{
		ID:                 sub.ID,
		MaterialID:         sub.MaterialID,
		SubmitterID:        sub.SubmitterID,
		Type:               sub.Type,
		Status:             sub.Status,
		IsClosed:           sub.IsClosed(),
		MaterialState:      sub.MaterialState,
		VersionSubmissions: make([]models.VersionSubmissionView, 0, len(sub.VersionSubmissions)),
		Actions:            make([]models.MaterialSubmissionAction, 0, len(sub.Actions)),
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
	if sub.Material != nil {
		material := *sub.Material
		material.States = nil
		material.Versions = nil
		view.Material = &material
	}

	moderator := actor.IsModerator()
	if moderator {
		view.AssignedModeratorID = sub.AssignedModeratorID
	}
	for _, action := range sub.Actions {
		if !moderator && action.Type == models.ActionAssignModerator {
			continue
		}
		view.Actions = append(view.Actions, action)
	}

	for i := range sub.VersionSubmissions {
		vs := &sub.VersionSubmissions[i]
		vv := models.VersionSubmissionView{
			ID:              vs.ID,
			VersionID:       vs.VersionID,
			Type:            vs.Type,
			Status:          vs.Status(),
			IsClosed:        vs.IsClosed(),
			UpdatedAt:       vs.UpdatedAt(),
			Version:         vs.Version,
			VersionState:    vs.VersionState,
			FileSubmissions: make([]models.FileSubmissionView, 0, len(vs.FileSubmissions)),
		}
		for _, fs := range vs.FileSubmissions {
			vv.FileSubmissions = append(vv.FileSubmissions, models.FileSubmissionView{
				ID:        fs.ID,
				FileID:    fs.FileID,
				Type:      fs.Type,
				File:      fs.File,
				FileState: fs.FileState,
			})
		}
		view.VersionSubmissions = append(view.VersionSubmissions, vv)
	}
	return view
}

// materialView projects a published material onto its current states.
func materialView(material *models.Material) models.MaterialView {
	view := models.MaterialView{
		ID:            material.ID,
		Category:      material.Category,
		Edition:       material.Edition,
		ViewCount:     material.ViewCount,
		DownloadCount: material.DownloadCount,
		State:         material.CurrentState(),
		Versions:      make([]models.MaterialVersionView, 0, len(material.Versions)),
	}
	if material.Slug != nil {
		view.Slug = *material.Slug
	}
	if material.PublishedAt != nil {
		view.PublishedAt = *material.PublishedAt
	}
	for i := range material.Versions {
		version := &material.Versions[i]
		vv := models.MaterialVersionView{
			ID:    version.ID,
			State: version.CurrentState(),
			Files: make([]models.MaterialFileView, 0, len(version.Files)),
		}
		if version.PublishedAt != nil {
			vv.PublishedAt = *version.PublishedAt
		}
		for j := range version.Files {
			file := &version.Files[j]
			vv.Files = append(vv.Files, models.MaterialFileView{
				ID:        file.ID,
				Path:      file.Path,
				URL:       file.URL,
				Size:      file.Size,
				Extension: file.Extension,
				State:     file.CurrentState(),
			})
		}
		view.Versions = append(view.Versions, vv)
	}
	return view
}
