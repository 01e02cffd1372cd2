package testutil

import (
	"fmt"
	"testing"
	"time"

	"content-hub-cms/models"

	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, db *gorm.DB, username string, role models.UserRole) *models.User {
	tb.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw",
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedPublishedMaterial stores a live material authored by authorID with
// one published state. Downloadable categories also get one published
// version holding one published file stored under files/<slug>.zip.
func SeedPublishedMaterial(tb testing.TB, db *gorm.DB, slug string, category models.Category, authorID uint, at time.Time) *models.Material {
	tb.Helper()
	m := &models.Material{
		Slug:        &slug,
		Category:    category,
		PublishedAt: &at,
		States: []models.MaterialState{{
			AuthorID:    &authorID,
			PublishedAt: &at,
			Localizations: []models.MaterialLocalization{
				{Language: "en", Title: "Seeded " + slug, Description: "seed"},
			},
		}},
	}
	if category.IsDownloadable() {
		path := fmt.Sprintf("files/%s.zip", slug)
		m.Versions = []models.MaterialVersion{{
			PublishedAt: &at,
			States: []models.MaterialVersionState{{
				Number:      "1.0",
				PublishedAt: &at,
				Localizations: []models.MaterialVersionLocalization{
					{Language: "en", Changelog: "first release"},
				},
			}},
			Files: []models.MaterialFile{{
				Path:        &path,
				PublishedAt: &at,
				States: []models.MaterialFileState{{
					PublishedAt: &at,
					Localizations: []models.MaterialFileLocalization{
						{Language: "en", Name: slug + ".zip"},
					},
				}},
			}},
		}}
	}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("seed material: %v", err)
	}
	return m
}
