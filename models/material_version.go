package models

import (
	"time"

	"gorm.io/gorm"
)

type MaterialVersion struct {
	ID          uint                   `json:"id" gorm:"primarykey"`
	MaterialID  uint                   `json:"material_id" gorm:"not null;index"`
	PublishedAt *time.Time             `json:"published_at"`
	States      []MaterialVersionState `json:"states,omitempty" gorm:"foreignKey:VersionID"`
	Files       []MaterialFile         `json:"files,omitempty" gorm:"foreignKey:VersionID"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	DeletedAt   gorm.DeletedAt         `json:"deleted_at" gorm:"index"`
}

func (v *MaterialVersion) MarkPublished(at time.Time) { v.PublishedAt = &at }
func (v *MaterialVersion) IsPublished() bool          { return isSet(v.PublishedAt) }

func (v *MaterialVersion) CurrentState() *MaterialVersionState {
	return currentOf(v.States)
}

type MaterialVersionState struct {
	ID            uint                          `json:"id" gorm:"primarykey"`
	VersionID     uint                          `json:"version_id" gorm:"not null;index"`
	Number        string                        `json:"number" gorm:"size:50;not null"`
	PublishedAt   *time.Time                    `json:"published_at"`
	Localizations []MaterialVersionLocalization `json:"localizations" gorm:"foreignKey:VersionStateID"`
	CreatedAt     time.Time                     `json:"created_at"`
}

func (s *MaterialVersionState) MarkPublished(at time.Time)   { s.PublishedAt = &at }
func (s *MaterialVersionState) IsPublished() bool            { return isSet(s.PublishedAt) }
func (s *MaterialVersionState) stateKey() (uint, *time.Time) { return s.ID, s.PublishedAt }

type MaterialVersionLocalization struct {
	ID             uint   `json:"id" gorm:"primarykey"`
	VersionStateID uint   `json:"version_state_id" gorm:"not null;index"`
	Language       string `json:"language" gorm:"size:8;not null"`
	Changelog      string `json:"changelog" gorm:"type:text"`
}
