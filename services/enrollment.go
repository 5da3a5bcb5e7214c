package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
)

// EnrollResult reports whether an enrollment was created or reactivated.
type EnrollResult struct {
	Enrollment    models.Enrollment `json:"enrollment"`
	Created       bool              `json:"created"`
	PointsAwarded int               `json:"points_awarded"`
}

// LessonView is what a learner sees when opening a lesson.
type LessonView struct {
	Lesson      models.Lesson          `json:"lesson"`
	Course      models.Course          `json:"course"`
	Enrollment  *models.Enrollment     `json:"enrollment,omitempty"`
	Progress    *models.LessonProgress `json:"progress,omitempty"`
	PrevID      *uint                  `json:"prev_lesson_id,omitempty"`
	NextID      *uint                  `json:"next_lesson_id,omitempty"`
	QuizID      *uint                  `json:"quiz_id,omitempty"`
	Assignments []models.Assignment    `json:"assignments"`
}

// CompletionResult is the outcome of marking a lesson complete.
type CompletionResult struct {
	AlreadyCompleted bool                `json:"already_completed"`
	PointsEarned     int                 `json:"points_earned"`
	Progress         float64             `json:"progress"`
	CourseCompleted  bool                `json:"course_completed"`
	Certificate      *models.Certificate `json:"certificate,omitempty"`
}

// CertificateView is the public verification payload.
type CertificateView struct {
	Code           string `json:"code"`
	IssuedAt       string `json:"issued_at"`
	StudentName    string `json:"student_name"`
	CourseTitle    string `json:"course_title"`
	InstructorName string `json:"instructor_name"`
}

// Enroll signs a student up for a published course. The first enrollment
// earns EnrollmentPoints; enrolling again only reactivates the existing row.
func (s *Service) Enroll(ctx context.Context, actor Actor, courseID uint) (*EnrollResult, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	var res EnrollResult
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		var course models.Course
		if err := tx.Where("is_published = ?", true).First(&course, courseID).Error; err != nil {
			return wrapDB(err, "course %d", courseID)
		}

		var e models.Enrollment
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND course_id = ?", u.ID, course.ID).
			Limit(1).Find(&e).Error
		if err != nil {
			return fmt.Errorf("load enrollment: %w", err)
		}
		if e.ID != 0 {
			if !e.IsActive {
				if err := tx.Model(&e).Update("is_active", true).Error; err != nil {
					return fmt.Errorf("reactivate enrollment: %w", err)
				}
				e.IsActive = true
			}
			res.Enrollment = e
			return nil
		}

		e = models.Enrollment{StudentID: u.ID, CourseID: course.ID, IsActive: true}
		if err := tx.Create(&e).Error; err != nil {
			return wrapDB(err, "create enrollment")
		}
		if err := s.awardPoints(tx, u, engine.EnrollmentPoints, "enrollment"); err != nil {
			return err
		}
		res = EnrollResult{Enrollment: e, Created: true, PointsAwarded: engine.EnrollmentPoints}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Drop deactivates the student's enrollment. Progress and points are kept.
func (s *Service) Drop(ctx context.Context, actor Actor, courseID uint) error {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return err
	}
	return s.transaction(ctx, func(tx *gorm.DB) error {
		e, err := lockEnrollment(tx, actor.UserID, courseID)
		if err != nil {
			return err
		}
		return tx.Model(e).Update("is_active", false).Error
	})
}

// ViewLesson opens a lesson. Students need an active enrollment and get a
// progress row created on first view; staff see the lesson without tracking.
func (s *Service) ViewLesson(ctx context.Context, actor Actor, lessonID uint) (*LessonView, error) {
	var view LessonView
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&view.Lesson, lessonID).Error; err != nil {
			return wrapDB(err, "lesson %d", lessonID)
		}
		if err := tx.Preload("Instructor").First(&view.Course, view.Lesson.CourseID).Error; err != nil {
			return wrapDB(err, "course %d", view.Lesson.CourseID)
		}
		manage := canManage(actor, &view.Course)
		if !view.Lesson.IsPublished && !manage {
			return notFound("lesson %d", lessonID)
		}

		if actor.Role == models.RoleStudent {
			var e models.Enrollment
			err := tx.Where("student_id = ? AND course_id = ? AND is_active = ?", actor.UserID, view.Course.ID, true).
				First(&e).Error
			if err != nil {
				return wrapDB(err, "active enrollment in course %d", view.Course.ID)
			}
			lp, err := getOrCreateProgress(tx, e.ID, view.Lesson.ID)
			if err != nil {
				return err
			}
			view.Enrollment, view.Progress = &e, lp
		}

		return s.fillLessonNeighbors(tx, &view, manage)
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) fillLessonNeighbors(tx *gorm.DB, view *LessonView, manage bool) error {
	siblings := func() *gorm.DB {
		q := tx.Model(&models.Lesson{}).Where("course_id = ?", view.Lesson.CourseID)
		if !manage {
			q = q.Where("is_published = ?", true)
		}
		return q
	}
	var prev, next []uint
	if err := siblings().Where("sort_order < ?", view.Lesson.Order).Order("sort_order DESC").Limit(1).Pluck("id", &prev).Error; err != nil {
		return fmt.Errorf("previous lesson: %w", err)
	}
	if err := siblings().Where("sort_order > ?", view.Lesson.Order).Order("sort_order ASC").Limit(1).Pluck("id", &next).Error; err != nil {
		return fmt.Errorf("next lesson: %w", err)
	}
	if len(prev) > 0 {
		view.PrevID = &prev[0]
	}
	if len(next) > 0 {
		view.NextID = &next[0]
	}

	var quizIDs []uint
	if err := tx.Model(&models.Quiz{}).Where("lesson_id = ?", view.Lesson.ID).Limit(1).Pluck("id", &quizIDs).Error; err != nil {
		return fmt.Errorf("lesson quiz: %w", err)
	}
	if len(quizIDs) > 0 {
		view.QuizID = &quizIDs[0]
	}
	if err := tx.Where("lesson_id = ?", view.Lesson.ID).Order("due_date ASC").Find(&view.Assignments).Error; err != nil {
		return fmt.Errorf("lesson assignments: %w", err)
	}
	return nil
}

// getOrCreateProgress relies on the unique (enrollment, lesson) index so two
// concurrent first views leave a single row.
func getOrCreateProgress(tx *gorm.DB, enrollmentID, lessonID uint) (*models.LessonProgress, error) {
	lp := models.LessonProgress{EnrollmentID: enrollmentID, LessonID: lessonID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lp).Error; err != nil {
		return nil, fmt.Errorf("create lesson progress: %w", err)
	}
	var out models.LessonProgress
	err := tx.Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).First(&out).Error
	if err != nil {
		return nil, wrapDB(err, "lesson progress")
	}
	return &out, nil
}

// CompleteLesson marks a lesson complete for the student, awards
// LessonCompletionPoints once, and recomputes course progress. Reaching 100%
// for the first time awards the completion bonus and issues a certificate.
func (s *Service) CompleteLesson(ctx context.Context, actor Actor, lessonID uint) (*CompletionResult, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	var res CompletionResult
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var lesson models.Lesson
		if err := tx.First(&lesson, lessonID).Error; err != nil {
			return wrapDB(err, "lesson %d", lessonID)
		}
		u, err := lockUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		e, err := lockEnrollment(tx, u.ID, lesson.CourseID)
		if err != nil {
			return err
		}
		lp, err := getOrCreateProgress(tx, e.ID, lesson.ID)
		if err != nil {
			return err
		}
		if lp.IsCompleted {
			res = CompletionResult{AlreadyCompleted: true, Progress: e.Progress}
			return nil
		}

		now := s.clock.Now()
		lp.IsCompleted, lp.CompletedAt = true, &now
		if err := tx.Model(lp).Select("is_completed", "completed_at").Updates(lp).Error; err != nil {
			return fmt.Errorf("save lesson progress: %w", err)
		}
		if err := s.awardPoints(tx, u, engine.LessonCompletionPoints, "lesson completed"); err != nil {
			return err
		}
		out, cert, err := s.refreshProgress(tx, u, e)
		if err != nil {
			return err
		}
		res = CompletionResult{
			PointsEarned:    engine.LessonCompletionPoints,
			Progress:        out.Progress,
			CourseCompleted: out.JustCompleted,
			Certificate:     cert,
		}
		if out.JustCompleted {
			res.PointsEarned += engine.CourseCompletionBonus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// refreshProgress recomputes e from the database. u and e must already be
// locked by the caller, in that order.
func (s *Service) refreshProgress(tx *gorm.DB, u *models.User, e *models.Enrollment) (engine.ProgressOutcome, *models.Certificate, error) {
	var total, completed int64
	if err := tx.Model(&models.Lesson{}).Where("course_id = ?", e.CourseID).Count(&total).Error; err != nil {
		return engine.ProgressOutcome{}, nil, fmt.Errorf("count lessons: %w", err)
	}
	if err := tx.Model(&models.LessonProgress{}).Where("enrollment_id = ? AND is_completed = ?", e.ID, true).Count(&completed).Error; err != nil {
		return engine.ProgressOutcome{}, nil, fmt.Errorf("count completed lessons: %w", err)
	}

	out := engine.ApplyProgress(e, completed, total, s.clock.Now())
	if err := tx.Model(e).Select("progress", "completed_at").Updates(e).Error; err != nil {
		return out, nil, fmt.Errorf("save progress: %w", err)
	}
	if !out.JustCompleted {
		return out, nil, nil
	}

	s.log.Info("course completed", zap.Uint("user_id", u.ID), zap.Uint("course_id", e.CourseID))
	if err := s.awardPoints(tx, u, engine.CourseCompletionBonus, "course completed"); err != nil {
		return out, nil, err
	}
	cert, err := s.issueCertificate(tx, e)
	return out, cert, err
}

// recomputeCourse refreshes every enrollment of a course after its lesson set changed.
func (s *Service) recomputeCourse(tx *gorm.DB, courseID uint) error {
	var rows []models.Enrollment
	if err := tx.Select("id", "student_id").Where("course_id = ?", courseID).Order("id").Find(&rows).Error; err != nil {
		return fmt.Errorf("list enrollments: %w", err)
	}
	for _, row := range rows {
		u, err := lockUser(tx, row.StudentID)
		if err != nil {
			return err
		}
		var e models.Enrollment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, row.ID).Error; err != nil {
			return wrapDB(err, "enrollment %d", row.ID)
		}
		if _, _, err := s.refreshProgress(tx, u, &e); err != nil {
			return err
		}
	}
	return nil
}

func newCertificateCode() string {
	return "EDU-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}

// issueCertificate creates the enrollment's certificate unless it already has one.
func (s *Service) issueCertificate(tx *gorm.DB, e *models.Enrollment) (*models.Certificate, error) {
	cert := models.Certificate{EnrollmentID: e.ID, Code: newCertificateCode(), IssuedAt: s.clock.Now()}
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "enrollment_id"}}, DoNothing: true}).
		Create(&cert).Error
	if err != nil {
		return nil, fmt.Errorf("issue certificate: %w", err)
	}
	var out models.Certificate
	if err := tx.Where("enrollment_id = ?", e.ID).First(&out).Error; err != nil {
		return nil, wrapDB(err, "certificate for enrollment %d", e.ID)
	}
	s.log.Info("certificate issued", zap.Uint("enrollment_id", e.ID), zap.String("code", out.Code))
	return &out, nil
}

// Certificates lists the student's certificates, newest first.
func (s *Service) Certificates(ctx context.Context, actor Actor) ([]models.Certificate, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	var certs []models.Certificate
	err := s.db.WithContext(ctx).
		Preload("Enrollment.Course").
		Joins("JOIN enrollments ON enrollments.id = certificates.enrollment_id").
		Where("enrollments.student_id = ?", actor.UserID).
		Order("certificates.issued_at DESC").
		Find(&certs).Error
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// VerifyCertificate looks a certificate up by its public code.
func (s *Service) VerifyCertificate(ctx context.Context, code string) (*CertificateView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var cert models.Certificate
	err := s.db.WithContext(ctx).
		Preload("Enrollment.Student").
		Preload("Enrollment.Course.Instructor").
		Where("code = ?", code).
		First(&cert).Error
	if err != nil {
		return nil, wrapDB(err, "certificate %s", code)
	}
	view := &CertificateView{Code: cert.Code, IssuedAt: cert.IssuedAt.Format("2006-01-02")}
	if e := cert.Enrollment; e != nil {
		if e.Student != nil {
			view.StudentName = e.Student.FullName()
		}
		if e.Course != nil {
			view.CourseTitle = e.Course.Title
			if e.Course.Instructor != nil {
				view.InstructorName = e.Course.Instructor.FullName()
			}
		}
	}
	return view, nil
}
