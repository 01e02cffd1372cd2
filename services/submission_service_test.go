package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-hub-cms/config"
	"content-hub-cms/logger"
	"content-hub-cms/models"
	"content-hub-cms/notification"
	"content-hub-cms/repositories"
	"content-hub-cms/repositories/testutil"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	events []notification.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event notification.Event) error {
	n.events = append(n.events, event)
	return nil
}

type recordingStore struct {
	removed []string
}

func (s *recordingStore) Remove(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	return nil
}

type SubmissionServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	repos     *repositories.Repositories
	clock     *fixedClock
	notifier  *recordingNotifier
	store     *recordingStore
	service   SubmissionService
	author    models.Actor
	other     models.Actor
	moderator models.Actor
}

func TestSubmissionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SubmissionServiceTestSuite))
}

func (suite *SubmissionServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = testutil.DB(suite.T())
	suite.repos = repositories.New(suite.db)
	suite.clock = &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	suite.notifier = &recordingNotifier{}
	suite.store = &recordingStore{}
	limits := config.SubmissionConfig{OpenLimit: 5, MaxNewVersions: 1, MaxFilesPerVersion: 3, Retention: 14 * 24 * time.Hour}
	suite.service = NewSubmissionService(suite.repos, suite.notifier, suite.store, suite.clock, limits, logger.Nop())

	author := testutil.SeedUser(suite.T(), suite.db, "author", models.RoleUser)
	other := testutil.SeedUser(suite.T(), suite.db, "other", models.RoleUser)
	moderator := testutil.SeedUser(suite.T(), suite.db, "moderator", models.RoleModerator)
	suite.author = models.Actor{ID: author.ID, Role: author.Role}
	suite.other = models.Actor{ID: other.ID, Role: other.Role}
	suite.moderator = models.Actor{ID: moderator.ID, Role: moderator.Role}
}

func ptr[T any](v T) *T { return &v }

func newModRequest(slug string) models.SubmissionRequest {
	return models.SubmissionRequest{
		Type:     models.ChangeCreate,
		Material: models.MaterialInput{Category: models.CategoryMods, Slug: ptr(slug)},
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "Cool mod"}},
		},
		VersionSubmissions: []models.VersionSubmissionInput{{
			Type:         models.ChangeCreate,
			VersionState: &models.VersionStateInput{Number: "1.0"},
			FileSubmissions: []models.FileSubmissionInput{{
				Type:      models.ChangeCreate,
				File:      models.FileInput{Path: ptr("uploads/" + slug + ".jar")},
				FileState: &models.FileStateInput{Localizations: []models.FileLocalizationInput{{Language: "en", Name: slug + ".jar"}}},
			}},
		}},
	}
}

func newArticleRequest(title string) models.SubmissionRequest {
	return models.SubmissionRequest{
		Type:     models.ChangeCreate,
		Material: models.MaterialInput{Category: models.CategoryArticles},
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: title, Content: "body"}},
		},
	}
}

func (suite *SubmissionServiceTestSuite) seedLive(slug string, category models.Category) *models.Material {
	return testutil.SeedPublishedMaterial(suite.T(), suite.db, slug, category, suite.author.ID, suite.clock.Now().Add(-48*time.Hour))
}

func (suite *SubmissionServiceTestSuite) tree(id uint) *models.MaterialSubmission {
	sub, err := suite.repos.Submissions.LoadTree(id)
	suite.Require().NoError(err)
	return sub
}

func (suite *SubmissionServiceTestSuite) material(id uint) *models.Material {
	m, err := suite.repos.Materials.FindAnyMaterial(id)
	suite.Require().NoError(err)
	return m
}

func (suite *SubmissionServiceTestSuite) count(model interface{}) int64 {
	var n int64
	suite.Require().NoError(suite.db.Unscoped().Model(model).Count(&n).Error)
	return n
}

func (suite *SubmissionServiceTestSuite) TestCreateDraftPublishesNothing() {
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, newModRequest("cool-mod"))
	suite.Require().NoError(err)

	sub := suite.tree(id)
	suite.Equal(models.StatusDraft, sub.Status)
	suite.Equal(suite.author.ID, sub.SubmitterID)
	m := suite.material(sub.MaterialID)
	suite.Nil(m.PublishedAt)
	suite.Require().Len(m.States, 1)
	suite.Nil(m.States[0].PublishedAt)
	suite.Nil(m.CurrentState())
	suite.Equal(suite.author.ID, *m.States[0].AuthorID)
	suite.Require().Len(m.Versions, 1)
	suite.Nil(m.Versions[0].PublishedAt)
	suite.Nil(m.Versions[0].States[0].PublishedAt)
	suite.Require().Len(m.Versions[0].Files, 1)
	suite.Nil(m.Versions[0].Files[0].PublishedAt)
	suite.Nil(m.Versions[0].Files[0].States[0].PublishedAt)

	suite.Empty(sub.Actions)
	suite.Empty(suite.notifier.events)
}

func (suite *SubmissionServiceTestSuite) TestSubmitNewLogsAndNotifiesModerators() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newModRequest("cool-mod"))
	suite.Require().NoError(err)

	sub := suite.tree(id)
	suite.Equal(models.StatusPending, sub.Status)
	suite.Require().Len(sub.Actions, 1)
	suite.Equal(models.ActionSubmit, sub.Actions[0].Type)
	suite.Equal(suite.author.ID, *sub.Actions[0].UserID)

	suite.Require().Len(suite.notifier.events, 1)
	suite.Equal(notification.KindSubmitted, suite.notifier.events[0].Kind)
	suite.Equal([]uint{suite.moderator.ID}, suite.notifier.events[0].RecipientIDs)
}

func (suite *SubmissionServiceTestSuite) TestAcceptCreatePublishesWholeTreeAtOneTime() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newModRequest("cool-mod"))
	suite.Require().NoError(err)
	suite.clock.Advance(time.Hour)
	now := suite.clock.Now()

	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{}))

	sub := suite.tree(id)
	suite.Equal(models.StatusAccepted, sub.Status)
	suite.True(sub.IsClosed())
	suite.Equal(suite.moderator.ID, *sub.AssignedModeratorID)
	suite.Equal(models.ActionAccept, sub.Actions[len(sub.Actions)-1].Type)

	m := suite.material(sub.MaterialID)
	suite.Equal("cool-mod", *m.Slug)
	for _, at := range []*time.Time{
		m.PublishedAt,
		m.States[0].PublishedAt,
		m.Versions[0].PublishedAt,
		m.Versions[0].States[0].PublishedAt,
		m.Versions[0].Files[0].PublishedAt,
		m.Versions[0].Files[0].States[0].PublishedAt,
	} {
		suite.Require().NotNil(at)
		suite.WithinDuration(now, *at, time.Millisecond)
	}

	live, err := NewMaterialService(suite.repos).GetPublishedBySlug(suite.ctx, "cool-mod")
	suite.Require().NoError(err)
	suite.Equal("Cool mod", live.State.Localizations[0].Title)
	suite.Require().Len(live.Versions, 1)
	suite.Equal("1.0", live.Versions[0].State.Number)
	suite.Require().Len(live.Versions[0].Files, 1)
	suite.Equal("cool-mod.jar", live.Versions[0].Files[0].State.Localizations[0].Name)
}

func (suite *SubmissionServiceTestSuite) TestAcceptArticleSynthesizesBareVersion() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("Patch notes"))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{Slug: ptr("patch-notes")}))

	m := suite.material(suite.tree(id).MaterialID)
	suite.NotNil(m.PublishedAt)
	suite.Require().Len(m.Versions, 1)
	suite.NotNil(m.Versions[0].PublishedAt)
	suite.Empty(m.Versions[0].States)
	suite.Empty(m.Versions[0].Files)
}

func (suite *SubmissionServiceTestSuite) TestAcceptCreateRequiresSlug() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("No slug yet"))
	suite.Require().NoError(err)

	err = suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{})
	var verr *models.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.Contains(verr.Errors, "slug")
	suite.Equal(models.StatusPending, suite.tree(id).Status)

	suite.seedLive("taken-slug", models.CategoryArticles)
	err = suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{Slug: ptr("taken-slug")})
	var rule *models.BusinessRuleError
	suite.ErrorAs(err, &rule)
}

func (suite *SubmissionServiceTestSuite) TestAcceptGuards() {
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, newModRequest("draft-mod"))
	suite.Require().NoError(err)

	var forbidden *models.ForbiddenError
	suite.ErrorAs(suite.service.Accept(suite.ctx, suite.author, id, models.AcceptRequest{}), &forbidden)

	var rule *models.BusinessRuleError
	suite.ErrorAs(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{}), &rule)

	var missing *models.NotFoundError
	suite.ErrorAs(suite.service.Accept(suite.ctx, suite.moderator, 9999, models.AcceptRequest{}), &missing)
}

func (suite *SubmissionServiceTestSuite) TestAcceptDeleteSoftDeletesMaterial() {
	live := suite.seedLive("old-pack", models.CategoryResourcePacks)
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeDelete,
		Material: models.MaterialInput{ID: &live.ID},
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{}))

	m := suite.material(live.ID)
	suite.True(m.DeletedAt.Valid)
	suite.Require().NotNil(m.PublishedAt)
	suite.WithinDuration(*live.PublishedAt, *m.PublishedAt, time.Millisecond)
	_, err = suite.repos.Materials.FindPublishedBySlug("old-pack")
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	// the accepted deletion is purged together with its submission
	suite.Require().NoError(suite.service.Delete(suite.ctx, suite.moderator, id))
	suite.Zero(suite.count(&models.Material{}))
	suite.Zero(suite.count(&models.MaterialFile{}))
	suite.Zero(suite.count(&models.MaterialSubmission{}))
	suite.Equal([]string{"files/old-pack.zip"}, suite.store.removed)
}

func (suite *SubmissionServiceTestSuite) TestDeleteUnacceptedCreatePurgesMaterial() {
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, newModRequest("withdrawn"))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Delete(suite.ctx, suite.author, id))

	for _, model := range []interface{}{
		&models.Material{}, &models.MaterialState{}, &models.MaterialLocalization{},
		&models.MaterialVersion{}, &models.MaterialVersionState{},
		&models.MaterialFile{}, &models.MaterialFileState{}, &models.MaterialFileLocalization{},
		&models.MaterialSubmission{}, &models.MaterialVersionSubmission{}, &models.MaterialFileSubmission{},
	} {
		suite.Zero(suite.count(model), "%T", model)
	}
	suite.Equal([]string{"uploads/withdrawn.jar"}, suite.store.removed)
}

func (suite *SubmissionServiceTestSuite) TestDeleteUpdateKeepsLiveMaterial() {
	live := suite.seedLive("kept", models.CategoryArticles)
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeUpdate,
		Material: models.MaterialInput{ID: &live.ID},
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "Renamed"}},
		},
	})
	suite.Require().NoError(err)
	suite.Len(suite.material(live.ID).States, 2)

	suite.Require().NoError(suite.service.Delete(suite.ctx, suite.author, id))

	m := suite.material(live.ID)
	suite.False(m.DeletedAt.Valid)
	suite.NotNil(m.PublishedAt)
	suite.Require().Len(m.States, 1)
	suite.Equal("Seeded kept", m.CurrentState().Localizations[0].Title)
	suite.Zero(suite.count(&models.MaterialSubmission{}))
	suite.Empty(suite.store.removed)
}

func (suite *SubmissionServiceTestSuite) TestDeleteAcceptedCreateKeepsPublishedContent() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newModRequest("accepted-mod"))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{}))

	var rule *models.BusinessRuleError
	suite.ErrorAs(suite.service.Delete(suite.ctx, suite.author, id), &rule)

	suite.Require().NoError(suite.service.Delete(suite.ctx, suite.moderator, id))
	_, err = suite.repos.Materials.FindPublishedBySlug("accepted-mod")
	suite.NoError(err)
	suite.Equal(int64(1), suite.count(&models.MaterialFile{}))
	suite.Empty(suite.store.removed)
}

func (suite *SubmissionServiceTestSuite) TestSecondOpenSubmissionIsRejected() {
	live := suite.seedLive("busy", models.CategoryArticles)
	req := models.SubmissionRequest{Type: models.ChangeDelete, Material: models.MaterialInput{ID: &live.ID}}
	_, err := suite.service.CreateDraft(suite.ctx, suite.author, req)
	suite.Require().NoError(err)

	_, err = suite.service.SubmitNew(suite.ctx, suite.moderator, req)
	var rule *models.BusinessRuleError
	suite.Require().ErrorAs(err, &rule)
	suite.Equal("material already has an open submission", rule.Message)
	suite.Equal(int64(1), suite.count(&models.MaterialSubmission{}))
}

func (suite *SubmissionServiceTestSuite) TestOwnershipRequiredForUpdate() {
	live := suite.seedLive("not-yours", models.CategoryArticles)
	req := models.SubmissionRequest{Type: models.ChangeDelete, Material: models.MaterialInput{ID: &live.ID}}

	_, err := suite.service.CreateDraft(suite.ctx, suite.other, req)
	var forbidden *models.ForbiddenError
	suite.ErrorAs(err, &forbidden)

	_, err = suite.service.CreateDraft(suite.ctx, suite.moderator, req)
	suite.NoError(err)
}

func (suite *SubmissionServiceTestSuite) TestOpenSubmissionQuota() {
	for i := 0; i < 5; i++ {
		_, err := suite.service.CreateDraft(suite.ctx, suite.author, newArticleRequest("article"))
		suite.Require().NoError(err)
	}

	_, err := suite.service.CreateDraft(suite.ctx, suite.author, newArticleRequest("one too many"))
	var rule *models.BusinessRuleError
	suite.ErrorAs(err, &rule)

	_, err = suite.service.CreateDraft(suite.ctx, suite.moderator, newArticleRequest("moderators are exempt"))
	suite.NoError(err)
}

func (suite *SubmissionServiceTestSuite) TestCountLimits() {
	var rule *models.BusinessRuleError

	noVersions := newModRequest("empty-mod")
	noVersions.VersionSubmissions = nil
	_, err := suite.service.CreateDraft(suite.ctx, suite.author, noVersions)
	suite.ErrorAs(err, &rule)

	twoVersions := newModRequest("two-versions")
	twoVersions.VersionSubmissions = append(twoVersions.VersionSubmissions, twoVersions.VersionSubmissions[0])
	_, err = suite.service.CreateDraft(suite.ctx, suite.author, twoVersions)
	suite.ErrorAs(err, &rule)

	fourFiles := newModRequest("four-files")
	file := fourFiles.VersionSubmissions[0].FileSubmissions[0]
	fourFiles.VersionSubmissions[0].FileSubmissions = []models.FileSubmissionInput{file, file, file, file}
	_, err = suite.service.CreateDraft(suite.ctx, suite.author, fourFiles)
	suite.ErrorAs(err, &rule)

	articleWithVersion := newArticleRequest("versioned article")
	articleWithVersion.VersionSubmissions = newModRequest("x").VersionSubmissions
	_, err = suite.service.CreateDraft(suite.ctx, suite.author, articleWithVersion)
	suite.ErrorAs(err, &rule)

	suite.Zero(suite.count(&models.Material{}))
}

func (suite *SubmissionServiceTestSuite) TestCreateValidation() {
	_, err := suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeCreate,
		Material: models.MaterialInput{Category: "videos"},
	})
	var verr *models.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.Contains(verr.Errors, "material.category")
	suite.Contains(verr.Errors, "material_state")

	_, err = suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{Type: models.ChangeUpdate})
	suite.Require().ErrorAs(err, &verr)
	suite.Contains(verr.Errors, "material.id")
}

func (suite *SubmissionServiceTestSuite) TestRequestChangesAndRejectLeaveContentAlone() {
	live := suite.seedLive("reviewed", models.CategoryArticles)
	before := suite.material(live.ID)
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeUpdate,
		Material: models.MaterialInput{ID: &live.ID},
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "Proposed"}},
		},
	})
	suite.Require().NoError(err)
	suite.clock.Advance(time.Minute)

	suite.Require().NoError(suite.service.RequestChanges(suite.ctx, suite.moderator, id, models.RequestChangesRequest{
		ActionDetails: models.MessageDetails{Message: "add a description"},
	}))
	sub := suite.tree(id)
	suite.Equal(models.StatusDraft, sub.Status)
	suite.WithinDuration(suite.clock.Now(), sub.UpdatedAt, time.Millisecond)
	last := sub.Actions[len(sub.Actions)-1]
	suite.Equal(models.ActionRequestChanges, last.Type)
	suite.Equal("add a description", last.Details["message"])
	suite.Equal(notification.KindChangesRequested, suite.notifier.events[len(suite.notifier.events)-1].Kind)
	suite.Equal([]uint{suite.author.ID}, suite.notifier.events[len(suite.notifier.events)-1].RecipientIDs)

	suite.Require().NoError(suite.service.Submit(suite.ctx, suite.author, id, nil))
	suite.Require().NoError(suite.service.Reject(suite.ctx, suite.moderator, id, models.RejectRequest{
		ActionDetails: models.ReasonDetails{Reason: "duplicate"},
	}))
	sub = suite.tree(id)
	suite.Equal(models.StatusRejected, sub.Status)
	suite.Equal("duplicate", sub.Actions[len(sub.Actions)-1].Details["reason"])

	after := suite.material(live.ID)
	suite.True(before.UpdatedAt.Equal(after.UpdatedAt))
	suite.True(before.PublishedAt.Equal(*after.PublishedAt))
	suite.Equal(before.CurrentState().ID, after.CurrentState().ID)
	suite.Nil(sub.MaterialState.PublishedAt)

	var rule *models.BusinessRuleError
	suite.ErrorAs(suite.service.Reject(suite.ctx, suite.moderator, id, models.RejectRequest{}), &rule)
}

func (suite *SubmissionServiceTestSuite) TestReconsiderReopensRejected() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("second look"))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Reject(suite.ctx, suite.moderator, id, models.RejectRequest{ActionDetails: models.ReasonDetails{Reason: "spam"}}))

	suite.Require().NoError(suite.service.Reconsider(suite.ctx, suite.moderator, id, models.ReconsiderRequest{ActionDetails: models.MessageDetails{Message: "not spam"}}))

	sub := suite.tree(id)
	suite.Equal(models.StatusPending, sub.Status)
	suite.Equal(models.ActionReconsider, sub.Actions[len(sub.Actions)-1].Type)
}

func (suite *SubmissionServiceTestSuite) TestReconsiderRespectsSubmitterQuota() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("turned down"))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Reject(suite.ctx, suite.moderator, id, models.RejectRequest{ActionDetails: models.ReasonDetails{Reason: "spam"}}))

	var drafts []uint
	for i := 0; i < 5; i++ {
		draftID, err := suite.service.CreateDraft(suite.ctx, suite.author, newArticleRequest("article"))
		suite.Require().NoError(err)
		drafts = append(drafts, draftID)
	}

	var rule *models.BusinessRuleError
	err = suite.service.Reconsider(suite.ctx, suite.moderator, id, models.ReconsiderRequest{ActionDetails: models.MessageDetails{Message: "not spam"}})
	suite.Require().ErrorAs(err, &rule)
	suite.Equal(models.StatusRejected, suite.tree(id).Status)

	suite.Require().NoError(suite.service.Delete(suite.ctx, suite.author, drafts[0]))
	suite.Require().NoError(suite.service.Reconsider(suite.ctx, suite.moderator, id, models.ReconsiderRequest{ActionDetails: models.MessageDetails{Message: "not spam"}}))
	suite.Equal(models.StatusPending, suite.tree(id).Status)
}

func (suite *SubmissionServiceTestSuite) TestUpdateMergesLocalizationsById() {
	live := suite.seedLive("merged", models.CategoryArticles)
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeUpdate,
		Material: models.MaterialInput{ID: &live.ID},
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{
				{Language: "en", Title: "English"},
				{Language: "de", Title: "Deutsch"},
			},
		},
	})
	suite.Require().NoError(err)
	pending := suite.tree(id).MaterialState
	en := pending.Localizations[0]

	suite.Require().NoError(suite.service.Update(suite.ctx, suite.author, id, models.SubmissionRequest{
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{
				{ID: &en.ID, Language: "en", Title: "English v2"},
				{Language: "fr", Title: "Francais"},
			},
		},
	}))

	merged := suite.tree(id).MaterialState
	suite.Equal(pending.ID, merged.ID)
	suite.Require().Len(merged.Localizations, 2)
	suite.Equal(en.ID, merged.Localizations[0].ID)
	suite.Equal("English v2", merged.Localizations[0].Title)
	suite.Equal("fr", merged.Localizations[1].Language)
	var german int64
	suite.Require().NoError(suite.db.Model(&models.MaterialLocalization{}).Where("language = ?", "de").Count(&german).Error)
	suite.Zero(german)
}

func (suite *SubmissionServiceTestSuite) TestAcceptUpdatePublishesPatchedState() {
	live := suite.seedLive("retitled", models.CategoryArticles)
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeUpdate,
		Material: models.MaterialInput{ID: &live.ID},
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "First try"}},
		},
	})
	suite.Require().NoError(err)
	draftLoc := suite.tree(id).MaterialState.Localizations[0]

	// patched in place when the id is kept
	suite.Require().NoError(suite.service.Submit(suite.ctx, suite.author, id, &models.SubmissionRequest{
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{ID: &draftLoc.ID, Language: "en", Title: "Better title"}},
		},
	}))
	// replaced when the id is omitted
	suite.Require().NoError(suite.service.Update(suite.ctx, suite.moderator, id, models.SubmissionRequest{
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "Final title"}},
		},
	}))
	var oldRow int64
	suite.Require().NoError(suite.db.Model(&models.MaterialLocalization{}).Where("id = ?", draftLoc.ID).Count(&oldRow).Error)
	suite.Zero(oldRow)

	suite.clock.Advance(time.Hour)
	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{}))

	m := suite.material(live.ID)
	suite.WithinDuration(*live.PublishedAt, *m.PublishedAt, time.Millisecond)
	suite.Len(m.States, 2)
	suite.Equal("Final title", m.CurrentState().Localizations[0].Title)
	suite.Equal("retitled", *m.Slug)
}

func (suite *SubmissionServiceTestSuite) TestUpdateCannotChangeIdentityOfLiveMaterial() {
	live := suite.seedLive("fixed-slug", models.CategoryArticles)
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeUpdate,
		Material: models.MaterialInput{ID: &live.ID},
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Update(suite.ctx, suite.author, id, models.SubmissionRequest{
		Material: models.MaterialInput{Slug: ptr("new-slug"), Category: models.CategoryNews},
	}))

	m := suite.material(live.ID)
	suite.Equal("fixed-slug", *m.Slug)
	suite.Equal(models.CategoryArticles, m.Category)
}

func (suite *SubmissionServiceTestSuite) TestUpdateSkipsDeleteSubmissions() {
	live := suite.seedLive("doomed", models.CategoryArticles)
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeDelete,
		Material: models.MaterialInput{ID: &live.ID},
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.Update(suite.ctx, suite.author, id, models.SubmissionRequest{
		MaterialState: &models.MaterialStateInput{
			Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "ignored"}},
		},
	}))

	suite.Nil(suite.tree(id).MaterialState)
	suite.Len(suite.material(live.ID).States, 1)
}

func (suite *SubmissionServiceTestSuite) TestUpdatePermissions() {
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, newArticleRequest("mine"))
	suite.Require().NoError(err)
	patch := models.SubmissionRequest{Material: models.MaterialInput{Slug: ptr("mine")}}

	var forbidden *models.ForbiddenError
	suite.ErrorAs(suite.service.Update(suite.ctx, suite.moderator, id, patch), &forbidden)
	suite.NoError(suite.service.Update(suite.ctx, suite.author, id, patch))

	suite.Require().NoError(suite.service.Submit(suite.ctx, suite.author, id, nil))
	suite.ErrorAs(suite.service.Update(suite.ctx, suite.author, id, patch), &forbidden)
	suite.NoError(suite.service.Update(suite.ctx, suite.moderator, id, patch))
}

func (suite *SubmissionServiceTestSuite) TestFailedPatchRollsBack() {
	id, err := suite.service.CreateDraft(suite.ctx, suite.author, newModRequest("atomic"))
	suite.Require().NoError(err)

	// dropping the only version breaks the downloadable rule after the
	// version was already removed inside the transaction
	err = suite.service.Update(suite.ctx, suite.author, id, models.SubmissionRequest{
		MaterialState:      &models.MaterialStateInput{Localizations: []models.MaterialLocalizationInput{{Language: "en", Title: "Changed"}}},
		VersionSubmissions: []models.VersionSubmissionInput{},
	})
	var rule *models.BusinessRuleError
	suite.Require().ErrorAs(err, &rule)

	sub := suite.tree(id)
	suite.Require().Len(sub.VersionSubmissions, 1)
	suite.Equal("Cool mod", sub.MaterialState.Localizations[0].Title)
	suite.Equal(int64(1), suite.count(&models.MaterialVersion{}))
	suite.Equal(int64(1), suite.count(&models.MaterialFile{}))
}

func (suite *SubmissionServiceTestSuite) TestStorageFailureDuringAcceptRollsBack() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newModRequest("fragile"))
	suite.Require().NoError(err)
	notified := len(suite.notifier.events)

	// files are published last, after the material and version rows
	suite.Require().NoError(suite.db.Callback().Update().Before("gorm:update").Register("test:fail_file_update", func(db *gorm.DB) {
		if db.Statement.Table == "material_files" {
			_ = db.AddError(errors.New("disk full"))
		}
	}))

	err = suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{})
	var processing *models.ProcessingError
	suite.Require().ErrorAs(err, &processing)
	suite.EqualError(processing.Unwrap(), "disk full")

	sub := suite.tree(id)
	suite.Equal(models.StatusPending, sub.Status)
	suite.Nil(sub.AssignedModeratorID)
	suite.Equal(models.ActionSubmit, sub.Actions[len(sub.Actions)-1].Type)

	m := suite.material(sub.MaterialID)
	suite.Equal("fragile", *m.Slug)
	for _, at := range []*time.Time{
		m.PublishedAt,
		m.States[0].PublishedAt,
		m.Versions[0].PublishedAt,
		m.Versions[0].States[0].PublishedAt,
		m.Versions[0].Files[0].PublishedAt,
		m.Versions[0].Files[0].States[0].PublishedAt,
	} {
		suite.Nil(at)
	}
	suite.Len(suite.notifier.events, notified)
}

func (suite *SubmissionServiceTestSuite) TestAcceptVersionAndFileChanges() {
	live := suite.seedLive("evolving", models.CategoryMods)
	version := live.Versions[0]
	oldFile := version.Files[0]

	id, err := suite.service.SubmitNew(suite.ctx, suite.author, models.SubmissionRequest{
		Type:     models.ChangeUpdate,
		Material: models.MaterialInput{ID: &live.ID},
		VersionSubmissions: []models.VersionSubmissionInput{{
			Type:         models.ChangeUpdate,
			VersionID:    &version.ID,
			VersionState: &models.VersionStateInput{Number: "1.1"},
			FileSubmissions: []models.FileSubmissionInput{
				{Type: models.ChangeDelete, File: models.FileInput{ID: &oldFile.ID}},
				{
					Type:      models.ChangeCreate,
					File:      models.FileInput{URL: ptr("https://cdn.example.com/evolving-1.1.zip")},
					FileState: &models.FileStateInput{Localizations: []models.FileLocalizationInput{{Language: "en", Name: "evolving-1.1.zip"}}},
				},
			},
		}},
	})
	suite.Require().NoError(err)

	before, err := suite.repos.Materials.FindPublishedBySlug("evolving")
	suite.Require().NoError(err)
	suite.Equal("1.0", before.Versions[0].CurrentState().Number)
	suite.Len(before.Versions[0].Files, 1)

	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, id, models.AcceptRequest{}))

	after, err := suite.repos.Materials.FindPublishedBySlug("evolving")
	suite.Require().NoError(err)
	suite.Require().Len(after.Versions, 1)
	suite.Equal(version.ID, after.Versions[0].ID)
	suite.Equal("1.1", after.Versions[0].CurrentState().Number)
	suite.Require().Len(after.Versions[0].Files, 1)
	suite.NotEqual(oldFile.ID, after.Versions[0].Files[0].ID)
	suite.Equal("evolving-1.1.zip", after.Versions[0].Files[0].CurrentState().Localizations[0].Name)

	all := suite.material(live.ID)
	suite.Len(all.Versions[0].Files, 2)
	suite.True(all.Versions[0].Files[0].DeletedAt.Valid)
}

func (suite *SubmissionServiceTestSuite) TestAssignModeratorAndMessages() {
	id, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("chatty"))
	suite.Require().NoError(err)

	var rule *models.BusinessRuleError
	suite.ErrorAs(suite.service.AssignModerator(suite.ctx, suite.moderator, id, models.AssignModeratorRequest{ModeratorID: suite.other.ID}), &rule)
	suite.Require().NoError(suite.service.AssignModerator(suite.ctx, suite.moderator, id, models.AssignModeratorRequest{ModeratorID: suite.moderator.ID}))

	suite.Require().NoError(suite.service.PostMessage(suite.ctx, suite.author, id, models.MessageRequest{Message: "any news?"}))
	last := suite.notifier.events[len(suite.notifier.events)-1]
	suite.Equal(notification.KindMessage, last.Kind)
	suite.Equal([]uint{suite.moderator.ID}, last.RecipientIDs)

	var forbidden *models.ForbiddenError
	suite.ErrorAs(suite.service.PostMessage(suite.ctx, suite.other, id, models.MessageRequest{Message: "hi"}), &forbidden)

	sub := suite.tree(id)
	suite.Equal(suite.moderator.ID, *sub.AssignedModeratorID)
	suite.Equal(models.StatusPending, sub.Status)

	asAuthor, err := suite.service.Get(suite.ctx, suite.author, id)
	suite.Require().NoError(err)
	suite.Nil(asAuthor.AssignedModeratorID)
	for _, action := range asAuthor.Actions {
		suite.NotEqual(models.ActionAssignModerator, action.Type)
	}
	asModerator, err := suite.service.Get(suite.ctx, suite.moderator, id)
	suite.Require().NoError(err)
	suite.Equal(suite.moderator.ID, *asModerator.AssignedModeratorID)
	suite.Len(asModerator.Actions, len(asAuthor.Actions)+1)
}

func (suite *SubmissionServiceTestSuite) TestListIsRoleShaped() {
	draftID, err := suite.service.CreateDraft(suite.ctx, suite.author, newArticleRequest("draft"))
	suite.Require().NoError(err)
	pendingID, err := suite.service.SubmitNew(suite.ctx, suite.other, newArticleRequest("pending"))
	suite.Require().NoError(err)

	mine, err := suite.service.List(suite.ctx, suite.author, models.SubmissionListParams{})
	suite.Require().NoError(err)
	suite.Require().Len(mine, 1)
	suite.Equal(draftID, mine[0].ID)

	queue, err := suite.service.List(suite.ctx, suite.moderator, models.SubmissionListParams{})
	suite.Require().NoError(err)
	suite.Require().Len(queue, 1)
	suite.Equal(pendingID, queue[0].ID)

	_, err = suite.service.List(suite.ctx, suite.moderator, models.SubmissionListParams{Status: "bogus"})
	var verr *models.ValidationError
	suite.ErrorAs(err, &verr)

	// other users' submissions look missing rather than forbidden
	var missing *models.NotFoundError
	_, err = suite.service.Get(suite.ctx, suite.other, draftID)
	suite.ErrorAs(err, &missing)
}

func (suite *SubmissionServiceTestSuite) TestSweepClosedRemovesOldSubmissionsOnly() {
	acceptedID, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("accepted"))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Accept(suite.ctx, suite.moderator, acceptedID, models.AcceptRequest{Slug: ptr("accepted")}))
	rejectedID, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("rejected"))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Reject(suite.ctx, suite.moderator, rejectedID, models.RejectRequest{ActionDetails: models.ReasonDetails{Reason: "no"}}))

	suite.clock.Advance(15 * 24 * time.Hour)
	openID, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("still open"))
	suite.Require().NoError(err)
	recentID, err := suite.service.SubmitNew(suite.ctx, suite.author, newArticleRequest("recent"))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.Reject(suite.ctx, suite.moderator, recentID, models.RejectRequest{ActionDetails: models.ReasonDetails{Reason: "no"}}))

	swept, err := suite.service.SweepClosed(suite.ctx, suite.clock.Now().Add(-14*24*time.Hour))
	suite.Require().NoError(err)
	suite.Equal(2, swept)

	for _, id := range []uint{acceptedID, rejectedID} {
		_, err := suite.repos.Submissions.LoadTree(id)
		suite.ErrorIs(err, gorm.ErrRecordNotFound)
	}
	suite.tree(openID)
	suite.tree(recentID)

	// accepted content stays live, never-published content goes
	_, err = suite.repos.Materials.FindPublishedBySlug("accepted")
	suite.NoError(err)
	suite.Equal(int64(3), suite.count(&models.Material{}))

	swept, err = suite.service.SweepClosed(suite.ctx, suite.clock.Now().Add(-14*24*time.Hour))
	suite.Require().NoError(err)
	suite.Zero(swept)
}

func (suite *SubmissionServiceTestSuite) TestDisposalMatrix() {
	cases := []struct {
		kind   models.ChangeKind
		status models.SubmissionStatus
		want   disposal
	}{
		{models.ChangeCreate, models.StatusDraft, purgeEntity},
		{models.ChangeCreate, models.StatusPending, purgeEntity},
		{models.ChangeCreate, models.StatusRejected, purgeEntity},
		{models.ChangeCreate, models.StatusAccepted, keepEntity},
		{models.ChangeDelete, models.StatusAccepted, purgeEntity},
		{models.ChangeDelete, models.StatusPending, keepEntity},
		{models.ChangeDelete, models.StatusRejected, keepEntity},
		{models.ChangeUpdate, models.StatusAccepted, keepEntity},
		{models.ChangeUpdate, models.StatusDraft, keepEntity},
	}
	for _, tc := range cases {
		suite.Equal(tc.want, disposalFor(tc.kind, tc.status), "%s/%s", tc.kind, tc.status)
	}
}
