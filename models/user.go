package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// IsModerator reports whether the role may review submissions. Admins are
// moderators too.
func (r UserRole) IsModerator() bool {
	return r == RoleModerator || r == RoleAdmin
}

type User struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	Username  string         `json:"username" gorm:"uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Role      UserRole       `json:"role" gorm:"default:'user'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role UserRole
}

func (a Actor) IsModerator() bool {
	return a.Role.IsModerator()
}
