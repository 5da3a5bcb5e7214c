package models

import "time"

// CourseLevel is the advertised difficulty of a course.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "BEGINNER"
	LevelIntermediate CourseLevel = "INTERMEDIATE"
	LevelAdvanced     CourseLevel = "ADVANCED"
)

// Course is owned by exactly one instructor; only published courses are visible to students.
type Course struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Title         string       `gorm:"size:200;not null" json:"title"`
	Description   string       `gorm:"type:text;not null" json:"description"`
	InstructorID  uint         `gorm:"index;not null" json:"instructor_id"`
	Instructor    *User        `gorm:"foreignKey:InstructorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"instructor,omitempty"`
	ThumbnailURL  string       `gorm:"size:512" json:"thumbnail_url"`
	Level         CourseLevel  `gorm:"size:20;not null;default:BEGINNER;index" json:"level"`
	DurationWeeks int          `gorm:"not null;default:4" json:"duration_weeks"`
	IsPublished   bool         `gorm:"not null;default:false;index" json:"is_published"`
	Lessons       []Lesson     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lessons,omitempty"`
	Enrollments   []Enrollment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Lesson belongs to one course and is ordered by an integer unique within the course.
type Lesson struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	CourseID        uint         `gorm:"not null;uniqueIndex:idx_lesson_course_order" json:"course_id"`
	Title           string       `gorm:"size:200;not null" json:"title"`
	Description     string       `gorm:"type:text" json:"description"`
	Order           int          `gorm:"column:sort_order;not null;default:1;uniqueIndex:idx_lesson_course_order" json:"order"`
	VideoURL        string       `gorm:"size:512" json:"video_url"`
	DurationMinutes int          `gorm:"not null;default:10" json:"duration_minutes"`
	Content         string       `gorm:"type:text" json:"content"`
	AttachmentURL   string       `gorm:"size:512" json:"attachment_url"`
	IsPublished     bool         `gorm:"not null;default:false" json:"is_published"`
	Quiz            *Quiz        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"quiz,omitempty"`
	Assignments     []Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"assignments,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
