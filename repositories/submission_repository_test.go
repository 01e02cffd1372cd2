package repositories_test

import (
	"testing"
	"time"

	"content-hub-cms/models"
	"content-hub-cms/repositories"
	"content-hub-cms/repositories/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSubmission(t *testing.T, repo repositories.SubmissionRepository, materialID, submitterID uint, status models.SubmissionStatus, updatedAt time.Time) *models.MaterialSubmission {
	t.Helper()
	sub := &models.MaterialSubmission{
		MaterialID:  materialID,
		SubmitterID: submitterID,
		Type:        models.ChangeUpdate,
		Status:      status,
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
	require.NoError(t, repo.Create(sub))
	return sub
}

func TestOpenSubmissionIndexRejectsSecondOpen(t *testing.T) {
	db := testutil.DB(t)
	repo := repositories.NewSubmissionRepository(db)
	user := testutil.SeedUser(t, db, "author", models.RoleUser)
	m := testutil.SeedPublishedMaterial(t, db, "indexed", models.CategoryArticles, user.ID, seededAt)

	seedSubmission(t, repo, m.ID, user.ID, models.StatusAccepted, seededAt)
	seedSubmission(t, repo, m.ID, user.ID, models.StatusRejected, seededAt)
	seedSubmission(t, repo, m.ID, user.ID, models.StatusDraft, seededAt)

	second := &models.MaterialSubmission{MaterialID: m.ID, SubmitterID: user.ID, Type: models.ChangeUpdate, Status: models.StatusPending}
	err := repo.Create(second)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	open, err := repo.HasOpenForMaterial(m.ID)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCountOpenBySubmitter(t *testing.T) {
	db := testutil.DB(t)
	repo := repositories.NewSubmissionRepository(db)
	user := testutil.SeedUser(t, db, "author", models.RoleUser)
	a := testutil.SeedPublishedMaterial(t, db, "a", models.CategoryArticles, user.ID, seededAt)
	b := testutil.SeedPublishedMaterial(t, db, "b", models.CategoryArticles, user.ID, seededAt)
	c := testutil.SeedPublishedMaterial(t, db, "c", models.CategoryArticles, user.ID, seededAt)

	seedSubmission(t, repo, a.ID, user.ID, models.StatusDraft, seededAt)
	seedSubmission(t, repo, b.ID, user.ID, models.StatusPending, seededAt)
	seedSubmission(t, repo, c.ID, user.ID, models.StatusAccepted, seededAt)

	count, err := repo.CountOpenBySubmitter(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListClosedBefore(t *testing.T) {
	db := testutil.DB(t)
	repo := repositories.NewSubmissionRepository(db)
	user := testutil.SeedUser(t, db, "author", models.RoleUser)
	m := testutil.SeedPublishedMaterial(t, db, "old", models.CategoryArticles, user.ID, seededAt)

	old := seedSubmission(t, repo, m.ID, user.ID, models.StatusAccepted, seededAt)
	seedSubmission(t, repo, m.ID, user.ID, models.StatusRejected, seededAt.Add(30*24*time.Hour))
	seedSubmission(t, repo, m.ID, user.ID, models.StatusDraft, seededAt)

	ids, err := repo.ListClosedBefore(seededAt.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uint{old.ID}, ids)
}

func TestLoadTreeLinksChildren(t *testing.T) {
	db := testutil.DB(t)
	repos := repositories.New(db)
	user := testutil.SeedUser(t, db, "author", models.RoleUser)
	m := testutil.SeedPublishedMaterial(t, db, "tree", models.CategoryMods, user.ID, seededAt)
	version := m.Versions[0]
	file := version.Files[0]

	sub := seedSubmission(t, repos.Submissions, m.ID, user.ID, models.StatusPending, seededAt)
	vs := &models.MaterialVersionSubmission{VersionID: version.ID, MaterialSubmissionID: sub.ID, Type: models.ChangeUpdate}
	require.NoError(t, repos.Submissions.CreateVersionSubmission(vs))
	fs := &models.MaterialFileSubmission{FileID: file.ID, VersionSubmissionID: vs.ID, Type: models.ChangeDelete}
	require.NoError(t, repos.Submissions.CreateFileSubmission(fs))
	require.NoError(t, repos.Materials.SoftDelete(&file))

	tree, err := repos.Submissions.LoadTree(sub.ID)
	require.NoError(t, err)
	require.NotNil(t, tree.Material)
	require.Len(t, tree.VersionSubmissions, 1)
	loaded := tree.VersionSubmissions[0]
	assert.Equal(t, models.StatusPending, loaded.Status())
	require.Len(t, loaded.FileSubmissions, 1)
	require.NotNil(t, loaded.FileSubmissions[0].File, "soft-deleted file must still load")
	assert.True(t, loaded.FileSubmissions[0].File.DeletedAt.Valid)
	assert.Equal(t, models.StatusPending, loaded.FileSubmissions[0].Status())
}

func TestDeleteNodeRemovesActions(t *testing.T) {
	db := testutil.DB(t)
	repo := repositories.NewSubmissionRepository(db)
	user := testutil.SeedUser(t, db, "author", models.RoleUser)
	m := testutil.SeedPublishedMaterial(t, db, "logged", models.CategoryArticles, user.ID, seededAt)
	sub := seedSubmission(t, repo, m.ID, user.ID, models.StatusPending, seededAt)
	require.NoError(t, repo.CreateAction(&models.MaterialSubmissionAction{SubmissionID: sub.ID, UserID: &user.ID, Type: models.ActionSubmit}))

	require.NoError(t, repo.DeleteNode(sub))

	_, err := repo.LoadTree(sub.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var actions int64
	require.NoError(t, db.Model(&models.MaterialSubmissionAction{}).Count(&actions).Error)
	assert.Zero(t, actions)
}
