package models

import (
	"time"

	"gorm.io/datatypes"
)

type ActionType string

const (
	ActionSubmit          ActionType = "submit"
	ActionRequestChanges  ActionType = "request_changes"
	ActionAccept          ActionType = "accept"
	ActionReject          ActionType = "reject"
	ActionAssignModerator ActionType = "assign_moderator"
	ActionReconsider      ActionType = "reconsider"
	ActionMessage         ActionType = "message"
)

// MaterialSubmissionAction is an append-only audit record. UserID is nil for
// system actions.
type MaterialSubmissionAction struct {
	ID           uint              `json:"id" gorm:"primarykey"`
	SubmissionID uint              `json:"submission_id" gorm:"not null;index"`
	UserID       *uint             `json:"user_id"`
	Type         ActionType        `json:"type" gorm:"size:32;not null"`
	Details      datatypes.JSONMap `json:"details"`
	CreatedAt    time.Time         `json:"created_at"`
}
