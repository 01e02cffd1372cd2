package models

import "time"

type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role,omitempty" validate:"omitempty,oneof=user moderator admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SubmissionRequest is the nested payload used to create a submission and to
// patch one. On patches a nil list leaves the stored list untouched and a
// non-nil list replaces it by id.
type SubmissionRequest struct {
	Material           MaterialInput            `json:"material"`
	MaterialState      *MaterialStateInput      `json:"material_state"`
	Type               ChangeKind               `json:"type" validate:"omitempty,oneof=create update delete"`
	VersionSubmissions []VersionSubmissionInput `json:"version_submissions" validate:"omitempty,dive"`
}

type MaterialInput struct {
	ID       *uint    `json:"id"`
	Slug     *string  `json:"slug" validate:"omitempty,min=3,max=100"`
	Category Category `json:"category"`
	Edition  *Edition `json:"edition"`
}

type MaterialStateInput struct {
	AuthorID      *uint                       `json:"author_id"`
	Localizations []MaterialLocalizationInput `json:"localizations" validate:"omitempty,dive"`
}

type MaterialLocalizationInput struct {
	ID          *uint   `json:"id"`
	Language    string  `json:"language" validate:"required,len=2"`
	Cover       *string `json:"cover"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=1000"`
	Content     string  `json:"content"`
}

type VersionSubmissionInput struct {
	ID              *uint                 `json:"id"`
	VersionID       *uint                 `json:"version_id"`
	VersionState    *VersionStateInput    `json:"version_state"`
	Type            ChangeKind            `json:"type" validate:"required,oneof=create update delete"`
	FileSubmissions []FileSubmissionInput `json:"file_submissions" validate:"omitempty,dive"`
}

type VersionStateInput struct {
	Number        string                     `json:"number" validate:"required,max=50"`
	Localizations []VersionLocalizationInput `json:"localizations" validate:"omitempty,dive"`
}

type VersionLocalizationInput struct {
	ID        *uint  `json:"id"`
	Language  string `json:"language" validate:"required,len=2"`
	Changelog string `json:"changelog"`
}

type FileSubmissionInput struct {
	ID        *uint           `json:"id"`
	File      FileInput       `json:"file"`
	FileState *FileStateInput `json:"file_state"`
	Type      ChangeKind      `json:"type" validate:"required,oneof=create update delete"`
}

type FileInput struct {
	ID        *uint   `json:"id"`
	Path      *string `json:"path" validate:"omitempty,max=512"`
	URL       *string `json:"url" validate:"omitempty,url"`
	Size      *int64  `json:"size" validate:"omitempty,min=0"`
	Extension *string `json:"extension" validate:"omitempty,max=16"`
}

type FileStateInput struct {
	Localizations []FileLocalizationInput `json:"localizations" validate:"omitempty,dive"`
}

type FileLocalizationInput struct {
	ID       *uint  `json:"id"`
	Language string `json:"language" validate:"required,len=2"`
	Name     string `json:"name" validate:"required,max=255"`
}

type AcceptRequest struct {
	Slug *string `json:"slug" validate:"omitempty,min=3,max=100"`
}

type MessageDetails struct {
	Message string `json:"message" validate:"required,max=5000"`
}

type ReasonDetails struct {
	Reason string `json:"reason" validate:"required,max=5000"`
}

// RequestChangesRequest carries the mandatory message and an optional content
// patch applied while the submission goes back to draft.
type RequestChangesRequest struct {
	*SubmissionRequest
	ActionDetails MessageDetails `json:"action_details"`
}

type RejectRequest struct {
	ActionDetails ReasonDetails `json:"action_details"`
}

type ReconsiderRequest struct {
	ActionDetails MessageDetails `json:"action_details"`
}

type AssignModeratorRequest struct {
	ModeratorID uint `json:"moderator_id" validate:"required"`
}

type MessageRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

type SubmissionListParams struct {
	Status SubmissionStatus `form:"status"`
}

// SubmissionView is the role-shaped read model of a submission tree.
type SubmissionView struct {
	ID                  uint                       `json:"id"`
	MaterialID          uint                       `json:"material_id"`
	SubmitterID         uint                       `json:"submitter_id"`
	AssignedModeratorID *uint                      `json:"assigned_moderator_id,omitempty"`
	Type                ChangeKind                 `json:"type"`
	Status              SubmissionStatus           `json:"status"`
	IsClosed            bool                       `json:"is_closed"`
	Material            *Material                  `json:"material,omitempty"`
	MaterialState       *MaterialState             `json:"material_state,omitempty"`
	VersionSubmissions  []VersionSubmissionView    `json:"version_submissions"`
	Actions             []MaterialSubmissionAction `json:"actions"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

type VersionSubmissionView struct {
	ID              uint                  `json:"id"`
	VersionID       uint                  `json:"version_id"`
	Type            ChangeKind            `json:"type"`
	Status          SubmissionStatus      `json:"status"`
	IsClosed        bool                  `json:"is_closed"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Version         *MaterialVersion      `json:"version,omitempty"`
	VersionState    *MaterialVersionState `json:"version_state,omitempty"`
	FileSubmissions []FileSubmissionView  `json:"file_submissions"`
}

type FileSubmissionView struct {
	ID        uint               `json:"id"`
	FileID    uint               `json:"file_id"`
	Type      ChangeKind         `json:"type"`
	File      *MaterialFile      `json:"file,omitempty"`
	FileState *MaterialFileState `json:"file_state,omitempty"`
}

// MaterialView is the public read model: current states only.
type MaterialView struct {
	ID            uint                  `json:"id"`
	Slug          string                `json:"slug"`
	Category      Category              `json:"category"`
	Edition       *Edition              `json:"edition"`
	ViewCount     int64                 `json:"view_count"`
	DownloadCount int64                 `json:"download_count"`
	PublishedAt   time.Time             `json:"published_at"`
	State         *MaterialState        `json:"state"`
	Versions      []MaterialVersionView `json:"versions"`
}

type MaterialVersionView struct {
	ID          uint                  `json:"id"`
	PublishedAt time.Time             `json:"published_at"`
	State       *MaterialVersionState `json:"state"`
	Files       []MaterialFileView    `json:"files"`
}

type MaterialFileView struct {
	ID        uint               `json:"id"`
	Path      *string            `json:"path"`
	URL       *string            `json:"url"`
	Size      *int64             `json:"size"`
	Extension *string            `json:"extension"`
	State     *MaterialFileState `json:"state"`
}
