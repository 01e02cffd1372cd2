package models

import (
	"time"

	"gorm.io/gorm"
)

type MaterialFile struct {
	ID          uint                `json:"id" gorm:"primarykey"`
	VersionID   uint                `json:"version_id" gorm:"not null;index"`
	Path        *string             `json:"path"`
	URL         *string             `json:"url"`
	Size        *int64              `json:"size"`
	Extension   *string             `json:"extension" gorm:"size:16"`
	PublishedAt *time.Time          `json:"published_at"`
	States      []MaterialFileState `json:"states,omitempty" gorm:"foreignKey:FileID"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	DeletedAt   gorm.DeletedAt      `json:"deleted_at" gorm:"index"`
}

func (f *MaterialFile) MarkPublished(at time.Time) { f.PublishedAt = &at }
func (f *MaterialFile) IsPublished() bool          { return isSet(f.PublishedAt) }

func (f *MaterialFile) CurrentState() *MaterialFileState {
	return currentOf(f.States)
}

type MaterialFileState struct {
	ID            uint                       `json:"id" gorm:"primarykey"`
	FileID        uint                       `json:"file_id" gorm:"not null;index"`
	PublishedAt   *time.Time                 `json:"published_at"`
	Localizations []MaterialFileLocalization `json:"localizations" gorm:"foreignKey:FileStateID"`
	CreatedAt     time.Time                  `json:"created_at"`
}

func (s *MaterialFileState) MarkPublished(at time.Time)   { s.PublishedAt = &at }
func (s *MaterialFileState) IsPublished() bool            { return isSet(s.PublishedAt) }
func (s *MaterialFileState) stateKey() (uint, *time.Time) { return s.ID, s.PublishedAt }

type MaterialFileLocalization struct {
	ID          uint   `json:"id" gorm:"primarykey"`
	FileStateID uint   `json:"file_state_id" gorm:"not null;index"`
	Language    string `json:"language" gorm:"size:8;not null"`
	Name        string `json:"name" gorm:"not null"`
}
