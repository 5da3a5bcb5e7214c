package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/eduvolve/models"
)

// AssignmentInput creates or replaces an assignment.
type AssignmentInput struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description" validate:"required"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	MaxPoints     int       `json:"max_points" validate:"omitempty,gte=1,lte=1000"`
	AttachmentURL string    `json:"attachment_url" validate:"omitempty,url,max=512"`
}

// SubmissionInput is a student's work. At least one of FileURL and Text is required.
type SubmissionInput struct {
	FileURL string `json:"file_url" validate:"required_without=Text,omitempty,url,max=512"`
	Text    string `json:"text" validate:"required_without=FileURL"`
}

// GradeInput grades a submission on a 0-100 scale.
type GradeInput struct {
	Grade    *float64                `json:"grade" validate:"required,gte=0,lte=100"`
	Feedback string                  `json:"feedback"`
	Status   models.SubmissionStatus `json:"status" validate:"omitempty,oneof=GRADED RETURNED"`
}

func (s *Service) managedAssignment(tx *gorm.DB, actor Actor, assignmentID uint) (*models.Assignment, error) {
	var a models.Assignment
	if err := tx.First(&a, assignmentID).Error; err != nil {
		return nil, wrapDB(err, "assignment %d", assignmentID)
	}
	if _, _, err := s.managedLesson(tx, actor, a.LessonID); err != nil {
		return nil, err
	}
	return &a, nil
}

func applyAssignmentInput(a *models.Assignment, in AssignmentInput) {
	a.Title = strings.TrimSpace(in.Title)
	a.Description = in.Description
	a.DueDate = in.DueDate
	a.MaxPoints = in.MaxPoints
	if a.MaxPoints == 0 {
		a.MaxPoints = 100
	}
	a.AttachmentURL = in.AttachmentURL
}

// CreateAssignment attaches an assignment to a managed lesson.
func (s *Service) CreateAssignment(ctx context.Context, actor Actor, lessonID uint, in AssignmentInput) (*models.Assignment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Assignment
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if _, _, err := s.managedLesson(tx, actor, lessonID); err != nil {
			return err
		}
		a := models.Assignment{LessonID: lessonID}
		applyAssignmentInput(&a, in)
		if err := tx.Create(&a).Error; err != nil {
			return wrapDB(err, "create assignment")
		}
		out = &a
		return nil
	})
	return out, err
}

// UpdateAssignment replaces an assignment's fields.
func (s *Service) UpdateAssignment(ctx context.Context, actor Actor, assignmentID uint, in AssignmentInput) (*models.Assignment, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Assignment
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		a, err := s.managedAssignment(tx, actor, assignmentID)
		if err != nil {
			return err
		}
		applyAssignmentInput(a, in)
		if err := tx.Save(a).Error; err != nil {
			return wrapDB(err, "update assignment %d", assignmentID)
		}
		out = a
		return nil
	})
	return out, err
}

// DeleteAssignment removes an assignment and its submissions.
func (s *Service) DeleteAssignment(ctx context.Context, actor Actor, assignmentID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		a, err := s.managedAssignment(tx, actor, assignmentID)
		if err != nil {
			return err
		}
		return tx.Delete(a).Error
	})
}

// SubmitAssignment stores the student's work. A resubmission overwrites the
// single existing row and sends it back to PENDING; a previous grade stays
// visible until the work is graded again.
func (s *Service) SubmitAssignment(ctx context.Context, actor Actor, assignmentID uint, in SubmissionInput) (*models.AssignmentSubmission, bool, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, false, err
	}
	if err := s.check(in); err != nil {
		return nil, false, err
	}
	var (
		out         models.AssignmentSubmission
		resubmitted bool
	)
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var a models.Assignment
		if err := tx.Preload("Lesson").First(&a, assignmentID).Error; err != nil {
			return wrapDB(err, "assignment %d", assignmentID)
		}
		if a.Lesson == nil {
			return notFound("lesson %d", a.LessonID)
		}
		if _, err := lockEnrollment(tx, actor.UserID, a.Lesson.CourseID); err != nil {
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND assignment_id = ?", actor.UserID, a.ID).
			Limit(1).Find(&out).Error
		if err != nil {
			return fmt.Errorf("load submission: %w", err)
		}
		now := s.clock.Now()
		if out.ID != 0 {
			resubmitted = true
			out.FileURL, out.Text = in.FileURL, in.Text
			out.Status, out.SubmittedAt = models.SubmissionPending, now
			return tx.Model(&out).
				Select("file_url", "text", "status", "submitted_at").
				Updates(&out).Error
		}
		out = models.AssignmentSubmission{
			StudentID:    actor.UserID,
			AssignmentID: a.ID,
			FileURL:      in.FileURL,
			Text:         in.Text,
			Status:       models.SubmissionPending,
			SubmittedAt:  now,
		}
		if err := tx.Create(&out).Error; err != nil {
			return wrapDB(err, "create submission")
		}
		if now.After(a.DueDate) {
			s.log.Info("late submission", zap.Uint("assignment_id", a.ID), zap.Uint("student_id", actor.UserID))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, resubmitted, nil
}

// ListSubmissions shows all submissions for a managed assignment, newest first.
func (s *Service) ListSubmissions(ctx context.Context, actor Actor, assignmentID uint) ([]models.AssignmentSubmission, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.managedAssignment(db, actor, assignmentID); err != nil {
		return nil, err
	}
	var subs []models.AssignmentSubmission
	if err := db.Preload("Student").Where("assignment_id = ?", assignmentID).Order("submitted_at DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// MySubmission returns the student's submission for an assignment, if any.
func (s *Service) MySubmission(ctx context.Context, actor Actor, assignmentID uint) (*models.AssignmentSubmission, error) {
	var sub models.AssignmentSubmission
	err := s.db.WithContext(ctx).Where("student_id = ? AND assignment_id = ?", actor.UserID, assignmentID).First(&sub).Error
	if err != nil {
		return nil, wrapDB(err, "submission for assignment %d", assignmentID)
	}
	return &sub, nil
}

// GradeSubmission records a grade from the course's instructor.
func (s *Service) GradeSubmission(ctx context.Context, actor Actor, submissionID uint, in GradeInput) (*models.AssignmentSubmission, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out models.AssignmentSubmission
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, submissionID).Error; err != nil {
			return wrapDB(err, "submission %d", submissionID)
		}
		if _, err := s.managedAssignment(tx, actor, out.AssignmentID); err != nil {
			return err
		}
		now := s.clock.Now()
		grade, grader := *in.Grade, actor.UserID
		out.Grade, out.Feedback, out.GradedByID, out.GradedAt = &grade, in.Feedback, &grader, &now
		out.Status = in.Status
		if out.Status == "" {
			out.Status = models.SubmissionGraded
		}
		return tx.Model(&out).
			Select("grade", "feedback", "graded_by_id", "graded_at", "status").
			Updates(&out).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("submission graded", zap.Uint("submission_id", submissionID), zap.Uint("grader_id", actor.UserID))
	return &out, nil
}
