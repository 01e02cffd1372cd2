package models

import (
	"time"

	"gorm.io/gorm"
)

type Material struct {
	ID            uint              `json:"id" gorm:"primarykey"`
	Slug          *string           `json:"slug" gorm:"uniqueIndex"`
	Category      Category          `json:"category" gorm:"not null;index"`
	Edition       *Edition          `json:"edition"`
	ViewCount     int64             `json:"view_count" gorm:"default:0"`
	DownloadCount int64             `json:"download_count" gorm:"default:0"`
	PublishedAt   *time.Time        `json:"published_at"`
	States        []MaterialState   `json:"states,omitempty" gorm:"foreignKey:MaterialID"`
	Versions      []MaterialVersion `json:"versions,omitempty" gorm:"foreignKey:MaterialID"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `json:"deleted_at" gorm:"index"`
}

func (m *Material) MarkPublished(at time.Time) { m.PublishedAt = &at }
func (m *Material) IsPublished() bool          { return isSet(m.PublishedAt) }

// CurrentState returns the latest published state, or nil while the
// material has never been published. Only loaded states are considered.
func (m *Material) CurrentState() *MaterialState {
	return currentOf(m.States)
}

type MaterialState struct {
	ID            uint                   `json:"id" gorm:"primarykey"`
	MaterialID    uint                   `json:"material_id" gorm:"not null;index"`
	AuthorID      *uint                  `json:"author_id"`
	PublishedAt   *time.Time             `json:"published_at"`
	Localizations []MaterialLocalization `json:"localizations" gorm:"foreignKey:MaterialStateID"`
	CreatedAt     time.Time              `json:"created_at"`
}

func (s *MaterialState) MarkPublished(at time.Time)   { s.PublishedAt = &at }
func (s *MaterialState) IsPublished() bool            { return isSet(s.PublishedAt) }
func (s *MaterialState) stateKey() (uint, *time.Time) { return s.ID, s.PublishedAt }

type MaterialLocalization struct {
	ID              uint    `json:"id" gorm:"primarykey"`
	MaterialStateID uint    `json:"material_state_id" gorm:"not null;index"`
	Language        string  `json:"language" gorm:"size:8;not null"`
	Cover           *string `json:"cover"`
	Title           string  `json:"title" gorm:"not null"`
	Description     string  `json:"description"`
	Content         string  `json:"content" gorm:"type:text"`
}
