package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
)

// CourseInput creates or replaces a course's editable fields.
type CourseInput struct {
	Title         string             `json:"title" validate:"required,max=200"`
	Description   string             `json:"description" validate:"required"`
	ThumbnailURL  string             `json:"thumbnail_url" validate:"omitempty,url,max=512"`
	Level         models.CourseLevel `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	DurationWeeks int                `json:"duration_weeks" validate:"gte=0,lte=104"`
	IsPublished   bool               `json:"is_published"`
}

// LessonInput creates or replaces a lesson. A nil Order appends the lesson after the last one.
type LessonInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	Order           *int   `json:"order" validate:"omitempty,gte=1"`
	VideoURL        string `json:"video_url" validate:"max=512"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,lte=1440"`
	Content         string `json:"content"`
	AttachmentURL   string `json:"attachment_url" validate:"omitempty,url,max=512"`
	IsPublished     bool   `json:"is_published"`
}

// CourseFilter narrows the public catalog.
type CourseFilter struct {
	Search   string
	Level    string
	Page     int
	PageSize int
}

// CourseDetail is a course with its visible lessons and, for students, their enrollment.
type CourseDetail struct {
	Course       models.Course      `json:"course"`
	TotalLessons int64              `json:"total_lessons"`
	Enrolled     int64              `json:"enrolled_students"`
	Enrollment   *models.Enrollment `json:"enrollment,omitempty"`
	CanManage    bool               `json:"can_manage"`
}

// canManage reports whether actor may edit the course. Admins manage every course.
func canManage(actor Actor, c *models.Course) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleInstructor:
		return c.InstructorID == actor.UserID
	case models.RoleStudent:
		return false
	default:
		return false
	}
}

func (s *Service) managedCourse(tx *gorm.DB, actor Actor, courseID uint) (*models.Course, error) {
	var c models.Course
	if err := tx.First(&c, courseID).Error; err != nil {
		return nil, wrapDB(err, "course %d", courseID)
	}
	if !canManage(actor, &c) {
		return nil, fmt.Errorf("course %d belongs to another instructor: %w", courseID, ErrForbidden)
	}
	return &c, nil
}

func (s *Service) managedLesson(tx *gorm.DB, actor Actor, lessonID uint) (*models.Lesson, *models.Course, error) {
	var l models.Lesson
	if err := tx.First(&l, lessonID).Error; err != nil {
		return nil, nil, wrapDB(err, "lesson %d", lessonID)
	}
	c, err := s.managedCourse(tx, actor, l.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return &l, c, nil
}

func applyCourseInput(c *models.Course, in CourseInput) {
	c.Title = strings.TrimSpace(in.Title)
	c.Description = in.Description
	c.ThumbnailURL = in.ThumbnailURL
	c.Level = in.Level
	if c.Level == "" {
		c.Level = models.LevelBeginner
	}
	c.DurationWeeks = in.DurationWeeks
	if c.DurationWeeks == 0 {
		c.DurationWeeks = 4
	}
	c.IsPublished = in.IsPublished
}

// CreateCourse is instructor only; the actor becomes the owner.
func (s *Service) CreateCourse(ctx context.Context, actor Actor, in CourseInput) (*models.Course, error) {
	if err := requireRole(actor, models.RoleInstructor); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	c := models.Course{InstructorID: actor.UserID}
	applyCourseInput(&c, in)
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, wrapDB(err, "create course")
	}
	s.log.Info("course created", zap.Uint("course_id", c.ID), zap.Uint("instructor_id", actor.UserID))
	return &c, nil
}

// UpdateCourse replaces the editable fields of a managed course.
func (s *Service) UpdateCourse(ctx context.Context, actor Actor, courseID uint, in CourseInput) (*models.Course, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Course
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.managedCourse(tx, actor, courseID)
		if err != nil {
			return err
		}
		applyCourseInput(c, in)
		if err := tx.Save(c).Error; err != nil {
			return wrapDB(err, "update course %d", courseID)
		}
		out = c
		return nil
	})
	return out, err
}

// DeleteCourse removes a managed course with its lessons and enrollments.
func (s *Service) DeleteCourse(ctx context.Context, actor Actor, courseID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.managedCourse(tx, actor, courseID)
		if err != nil {
			return err
		}
		if err := tx.Delete(c).Error; err != nil {
			return wrapDB(err, "delete course %d", courseID)
		}
		s.log.Info("course deleted", zap.Uint("course_id", courseID), zap.Uint("actor_id", actor.UserID))
		return nil
	})
}

// ListCourses returns published courses, newest first.
func (s *Service) ListCourses(ctx context.Context, f CourseFilter) ([]models.Course, int64, error) {
	page, pageSize := pageBounds(f.Page, f.PageSize, 100)
	q := s.db.WithContext(ctx).Model(&models.Course{}).Where("is_published = ?", true)
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Level != "" {
		q = q.Where("level = ?", strings.ToUpper(f.Level))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	var courses []models.Course
	err := q.Preload("Instructor").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&courses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	return courses, total, nil
}

// InstructorCourses lists every course the actor owns, published or not.
func (s *Service) InstructorCourses(ctx context.Context, actor Actor) ([]models.Course, error) {
	if err := requireRole(actor, models.RoleInstructor); err != nil {
		return nil, err
	}
	var courses []models.Course
	if err := s.db.WithContext(ctx).Where("instructor_id = ?", actor.UserID).Order("created_at DESC, id DESC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return courses, nil
}

// GetCourse shows a course. Unpublished courses and lessons are only visible to
// those who can manage them.
func (s *Service) GetCourse(ctx context.Context, actor Actor, courseID uint) (*CourseDetail, error) {
	db := s.db.WithContext(ctx)
	var c models.Course
	if err := db.Preload("Instructor").First(&c, courseID).Error; err != nil {
		return nil, wrapDB(err, "course %d", courseID)
	}
	manage := canManage(actor, &c)
	if !c.IsPublished && !manage {
		return nil, notFound("course %d", courseID)
	}

	lessons := db.Where("course_id = ?", c.ID).Order("sort_order ASC")
	if !manage {
		lessons = lessons.Where("is_published = ?", true)
	}
	if err := lessons.Find(&c.Lessons).Error; err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	detail := &CourseDetail{Course: c, CanManage: manage}
	if err := db.Model(&models.Lesson{}).Where("course_id = ?", c.ID).Count(&detail.TotalLessons).Error; err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}
	if err := db.Model(&models.Enrollment{}).Where("course_id = ? AND is_active = ?", c.ID, true).Count(&detail.Enrolled).Error; err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	if actor.Role == models.RoleStudent {
		var e models.Enrollment
		err := db.Where("student_id = ? AND course_id = ?", actor.UserID, c.ID).Limit(1).Find(&e).Error
		if err != nil {
			return nil, fmt.Errorf("load enrollment: %w", err)
		}
		if e.ID != 0 {
			detail.Enrollment = &e
		}
	}
	return detail, nil
}

func applyLessonInput(l *models.Lesson, in LessonInput) {
	l.Title = strings.TrimSpace(in.Title)
	l.Description = in.Description
	l.VideoURL = engine.EmbedURL(in.VideoURL)
	l.DurationMinutes = in.DurationMinutes
	if l.DurationMinutes == 0 {
		l.DurationMinutes = 10
	}
	l.Content = in.Content
	l.AttachmentURL = in.AttachmentURL
	l.IsPublished = in.IsPublished
}

func orderTaken(tx *gorm.DB, courseID uint, order int, exceptID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Lesson{}).
		Where("course_id = ? AND sort_order = ? AND id <> ?", courseID, order, exceptID).
		Count(&n).Error
	return n > 0, err
}

// CreateLesson appends a lesson to a managed course and recomputes every
// enrollment's progress, since the lesson total changed.
func (s *Service) CreateLesson(ctx context.Context, actor Actor, courseID uint, in LessonInput) (*models.Lesson, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Lesson
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.managedCourse(tx, actor, courseID); err != nil {
			return err
		}
		l := models.Lesson{CourseID: courseID}
		applyLessonInput(&l, in)
		if in.Order != nil {
			l.Order = *in.Order
		} else {
			var last int
			if err := tx.Model(&models.Lesson{}).Where("course_id = ?", courseID).
				Select("COALESCE(MAX(sort_order), 0)").Scan(&last).Error; err != nil {
				return fmt.Errorf("next lesson order: %w", err)
			}
			l.Order = last + 1
		}
		taken, err := orderTaken(tx, courseID, l.Order, 0)
		if err != nil {
			return fmt.Errorf("check lesson order: %w", err)
		}
		if taken {
			return conflict("course %d already has a lesson at position %d", courseID, l.Order)
		}
		if err := tx.Create(&l).Error; err != nil {
			return wrapDB(err, "create lesson")
		}
		out = &l
		return s.recomputeCourse(tx, courseID)
	})
	return out, err
}

// UpdateLesson replaces a lesson's fields. Order keeps its value when nil.
func (s *Service) UpdateLesson(ctx context.Context, actor Actor, lessonID uint, in LessonInput) (*models.Lesson, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Lesson
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		l, _, err := s.managedLesson(tx, actor, lessonID)
		if err != nil {
			return err
		}
		applyLessonInput(l, in)
		if in.Order != nil && *in.Order != l.Order {
			taken, err := orderTaken(tx, l.CourseID, *in.Order, l.ID)
			if err != nil {
				return fmt.Errorf("check lesson order: %w", err)
			}
			if taken {
				return conflict("course %d already has a lesson at position %d", l.CourseID, *in.Order)
			}
			l.Order = *in.Order
		}
		if err := tx.Save(l).Error; err != nil {
			return wrapDB(err, "update lesson %d", lessonID)
		}
		out = l
		return nil
	})
	return out, err
}

// DeleteLesson removes a lesson and recomputes progress for the course.
func (s *Service) DeleteLesson(ctx context.Context, actor Actor, lessonID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		l, _, err := s.managedLesson(tx, actor, lessonID)
		if err != nil {
			return err
		}
		if err := tx.Where("lesson_id = ?", l.ID).Delete(&models.LessonProgress{}).Error; err != nil {
			return fmt.Errorf("delete lesson progress: %w", err)
		}
		if err := tx.Delete(l).Error; err != nil {
			return wrapDB(err, "delete lesson %d", lessonID)
		}
		return s.recomputeCourse(tx, l.CourseID)
	})
}
