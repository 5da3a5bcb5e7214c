package models

import "time"

// SubmissionStatus tracks the review state of an assignment submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionGraded   SubmissionStatus = "GRADED"
	SubmissionReturned SubmissionStatus = "RETURNED"
)

// Assignment is graded work attached to a lesson.
type Assignment struct {
	ID            uint                   `gorm:"primaryKey" json:"id"`
	LessonID      uint                   `gorm:"index;not null" json:"lesson_id"`
	Lesson        *Lesson                `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
	Title         string                 `gorm:"size:200;not null" json:"title"`
	Description   string                 `gorm:"type:text" json:"description"`
	DueDate       time.Time              `gorm:"index" json:"due_date"`
	MaxPoints     int                    `gorm:"not null;default:100" json:"max_points"`
	AttachmentURL string                 `gorm:"size:512" json:"attachment_url"`
	Submissions   []AssignmentSubmission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// AssignmentSubmission is unique per (student, assignment); resubmitting overwrites it.
type AssignmentSubmission struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	StudentID    uint             `gorm:"not null;uniqueIndex:idx_submission_student_assignment" json:"student_id"`
	Student      *User            `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"student,omitempty"`
	AssignmentID uint             `gorm:"not null;uniqueIndex:idx_submission_student_assignment" json:"assignment_id"`
	Assignment   *Assignment      `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	FileURL      string           `gorm:"size:512" json:"file_url"`
	Text         string           `gorm:"type:text" json:"text"`
	Status       SubmissionStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	Grade        *float64         `json:"grade"`
	Feedback     string           `gorm:"type:text" json:"feedback"`
	GradedByID   *uint            `json:"graded_by_id"`
	GradedBy     *User            `gorm:"foreignKey:GradedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	GradedAt     *time.Time       `json:"graded_at"`
	SubmittedAt  time.Time        `json:"submitted_at"`
}
