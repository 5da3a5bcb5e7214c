package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionType distinguishes multiple-choice from true/false questions.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MC"
	QuestionTrueFalse      QuestionType = "TF"
)

const (
	DefaultPassingScore     = 70
	DefaultTimeLimitMinutes = 30
)

// Quiz is attached to at most one lesson. New quizzes default to
// DefaultPassingScore and DefaultTimeLimitMinutes.
type Quiz struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	LessonID         uint       `gorm:"uniqueIndex;not null" json:"lesson_id"`
	Lesson           *Lesson    `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description"`
	PassingScore     int        `gorm:"not null" json:"passing_score"`
	TimeLimitMinutes int        `gorm:"not null" json:"time_limit_minutes"`
	Questions        []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"questions,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Question carries a point value of at least one.
type Question struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	QuizID    uint         `gorm:"index;not null" json:"quiz_id"`
	Text      string       `gorm:"type:text;not null" json:"text"`
	Type      QuestionType `gorm:"size:2;not null;default:MC" json:"type"`
	Points    int          `gorm:"not null;default:1" json:"points"`
	Order     int          `gorm:"column:sort_order;not null;default:1" json:"order"`
	Answers   []Answer     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"answers,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Answer is one option of a question. Exactly one correct answer per question is
// expected but not enforced.
type Answer struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Text       string `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
	Order      int    `gorm:"column:sort_order;not null;default:1" json:"order"`
}

// QuizAttempt is an append-only record of one submission.
type QuizAttempt struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	StudentID    uint           `gorm:"index;not null" json:"student_id"`
	Student      *User          `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	QuizID       uint           `gorm:"index;not null" json:"quiz_id"`
	Quiz         *Quiz          `gorm:"foreignKey:QuizID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"quiz,omitempty"`
	Score        float64        `gorm:"not null" json:"score"`
	PointsEarned int            `gorm:"not null;default:0" json:"points_earned"`
	TotalPoints  int            `gorm:"not null;default:0" json:"total_points"`
	IsPassed     bool           `gorm:"not null;default:false" json:"is_passed"`
	Selections   datatypes.JSON `json:"selections"`
	Anomalies    datatypes.JSON `json:"anomalies,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	SubmittedAt  time.Time      `gorm:"index" json:"submitted_at"`
}
