package models

import "time"

// Enrollment holds one student's progress through one course.
// CompletedAt is set once, the first time Progress reaches 100.
type Enrollment struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	StudentID      uint             `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	Student        *User            `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CourseID       uint             `gorm:"not null;uniqueIndex:idx_enrollment_student_course;index" json:"course_id"`
	Course         *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	IsActive       bool             `gorm:"not null;default:true" json:"is_active"`
	Progress       float64          `gorm:"not null;default:0" json:"progress"`
	CompletedAt    *time.Time       `json:"completed_at"`
	LessonProgress []LessonProgress `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	EnrolledAt     time.Time        `gorm:"autoCreateTime" json:"enrolled_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// LessonProgress is unique per (enrollment, lesson).
type LessonProgress struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	EnrollmentID     uint       `gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson" json:"enrollment_id"`
	LessonID         uint       `gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson" json:"lesson_id"`
	Lesson           *Lesson    `gorm:"foreignKey:LessonID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lesson,omitempty"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt      *time.Time `gorm:"index" json:"completed_at"`
	TimeSpentMinutes int        `gorm:"not null;default:0" json:"time_spent_minutes"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Certificate is issued once per completed enrollment.
type Certificate struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	EnrollmentID uint        `gorm:"uniqueIndex;not null" json:"enrollment_id"`
	Enrollment   *Enrollment `gorm:"foreignKey:EnrollmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"enrollment,omitempty"`
	Code         string      `gorm:"size:50;uniqueIndex;not null" json:"code"`
	IssuedAt     time.Time   `json:"issued_at"`
}
