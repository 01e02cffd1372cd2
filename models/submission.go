package models

import "time"

type SubmissionStatus string

const (
	StatusDraft    SubmissionStatus = "draft"
	StatusPending  SubmissionStatus = "pending"
	StatusAccepted SubmissionStatus = "accepted"
	StatusRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

func (s SubmissionStatus) IsClosed() bool {
	return s == StatusAccepted || s == StatusRejected
}

// MaterialSubmission is the root of a proposed change-set against one
// Material. The partial unique index keeps a single draft or pending
// submission per material.
type MaterialSubmission struct {
	ID                  uint                        `json:"id" gorm:"primarykey"`
	MaterialID          uint                        `json:"material_id" gorm:"not null;uniqueIndex:idx_material_open_submission,where:status <> 'accepted' AND status <> 'rejected'"`
	Material            *Material                   `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
	MaterialStateID     *uint                       `json:"material_state_id"`
	MaterialState       *MaterialState              `json:"material_state,omitempty" gorm:"foreignKey:MaterialStateID"`
	SubmitterID         uint                        `json:"submitter_id" gorm:"not null;index"`
	AssignedModeratorID *uint                       `json:"assigned_moderator_id"`
	Type                ChangeKind                  `json:"type" gorm:"size:16;not null"`
	Status              SubmissionStatus            `json:"status" gorm:"size:16;not null;index"`
	VersionSubmissions  []MaterialVersionSubmission `json:"version_submissions,omitempty" gorm:"foreignKey:MaterialSubmissionID"`
	Actions             []MaterialSubmissionAction  `json:"actions,omitempty" gorm:"foreignKey:SubmissionID"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at" gorm:"autoUpdateTime:false;index"`
}

func (s *MaterialSubmission) IsClosed() bool { return s.Status.IsClosed() }

// LinkTree points every version and file submission back at its parent so
// the derived status accessors work. Call it after loading or appending.
func (s *MaterialSubmission) LinkTree() {
	for i := range s.VersionSubmissions {
		vs := &s.VersionSubmissions[i]
		vs.parent = s
		for j := range vs.FileSubmissions {
			vs.FileSubmissions[j].parent = vs
		}
	}
}

func (s *MaterialSubmission) ChangeKind() ChangeKind { return s.Type }

func (s *MaterialSubmission) Entity() Publishable {
	if s.Material == nil {
		return nil
	}
	return s.Material
}

func (s *MaterialSubmission) PendingState() Publishable {
	if s.MaterialState == nil {
		return nil
	}
	return s.MaterialState
}

func (s *MaterialSubmission) Children() []SubmissionNode {
	nodes := make([]SubmissionNode, 0, len(s.VersionSubmissions))
	for i := range s.VersionSubmissions {
		nodes = append(nodes, &s.VersionSubmissions[i])
	}
	return nodes
}

func (s *MaterialSubmission) SubmissionStatus() SubmissionStatus { return s.Status }

// MaterialVersionSubmission has no lifecycle of its own; status, closedness
// and updated_at come from the parent MaterialSubmission.
type MaterialVersionSubmission struct {
	ID                   uint                     `json:"id" gorm:"primarykey"`
	VersionID            uint                     `json:"version_id" gorm:"not null;index"`
	Version              *MaterialVersion         `json:"version,omitempty" gorm:"foreignKey:VersionID"`
	MaterialSubmissionID uint                     `json:"material_submission_id" gorm:"not null;index"`
	VersionStateID       *uint                    `json:"version_state_id"`
	VersionState         *MaterialVersionState    `json:"version_state,omitempty" gorm:"foreignKey:VersionStateID"`
	Type                 ChangeKind               `json:"type" gorm:"size:16;not null"`
	FileSubmissions      []MaterialFileSubmission `json:"file_submissions,omitempty" gorm:"foreignKey:VersionSubmissionID"`

	parent *MaterialSubmission
}

func (v *MaterialVersionSubmission) Parent() *MaterialSubmission { return v.parent }

func (v *MaterialVersionSubmission) Status() SubmissionStatus {
	if v.parent == nil {
		return ""
	}
	return v.parent.Status
}

func (v *MaterialVersionSubmission) IsClosed() bool { return v.Status().IsClosed() }

func (v *MaterialVersionSubmission) UpdatedAt() time.Time {
	if v.parent == nil {
		return time.Time{}
	}
	return v.parent.UpdatedAt
}

func (v *MaterialVersionSubmission) ChangeKind() ChangeKind { return v.Type }

func (v *MaterialVersionSubmission) Entity() Publishable {
	if v.Version == nil {
		return nil
	}
	return v.Version
}

func (v *MaterialVersionSubmission) PendingState() Publishable {
	if v.VersionState == nil {
		return nil
	}
	return v.VersionState
}

func (v *MaterialVersionSubmission) Children() []SubmissionNode {
	nodes := make([]SubmissionNode, 0, len(v.FileSubmissions))
	for i := range v.FileSubmissions {
		nodes = append(nodes, &v.FileSubmissions[i])
	}
	return nodes
}

func (v *MaterialVersionSubmission) SubmissionStatus() SubmissionStatus { return v.Status() }

// MaterialFileSubmission is a leaf of the submission tree.
type MaterialFileSubmission struct {
	ID                  uint               `json:"id" gorm:"primarykey"`
	FileID              uint               `json:"file_id" gorm:"not null;index"`
	File                *MaterialFile      `json:"file,omitempty" gorm:"foreignKey:FileID"`
	VersionSubmissionID uint               `json:"version_submission_id" gorm:"not null;index"`
	FileStateID         *uint              `json:"file_state_id"`
	FileState           *MaterialFileState `json:"file_state,omitempty" gorm:"foreignKey:FileStateID"`
	Type                ChangeKind         `json:"type" gorm:"size:16;not null"`

	parent *MaterialVersionSubmission
}

func (f *MaterialFileSubmission) Status() SubmissionStatus {
	if f.parent == nil {
		return ""
	}
	return f.parent.Status()
}

func (f *MaterialFileSubmission) ChangeKind() ChangeKind { return f.Type }

func (f *MaterialFileSubmission) Entity() Publishable {
	if f.File == nil {
		return nil
	}
	return f.File
}

func (f *MaterialFileSubmission) PendingState() Publishable {
	if f.FileState == nil {
		return nil
	}
	return f.FileState
}

func (f *MaterialFileSubmission) Children() []SubmissionNode { return nil }

func (f *MaterialFileSubmission) SubmissionStatus() SubmissionStatus { return f.Status() }
