package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/eduvolve/models"
)

// Dashboard carries exactly one role-specific section.
type Dashboard struct {
	Role       models.Role          `json:"role"`
	Admin      *AdminDashboard      `json:"admin,omitempty"`
	Instructor *InstructorDashboard `json:"instructor,omitempty"`
	Student    *StudentDashboard    `json:"student,omitempty"`
}

// AdminDashboard holds platform totals.
type AdminDashboard struct {
	TotalUsers           int64         `json:"total_users"`
	TotalStudents        int64         `json:"total_students"`
	TotalInstructors     int64         `json:"total_instructors"`
	TotalCourses         int64         `json:"total_courses"`
	PublishedCourses     int64         `json:"published_courses"`
	TotalEnrollments     int64         `json:"total_enrollments"`
	CompletedEnrollments int64         `json:"completed_enrollments"`
	RecentUsers          []models.User `json:"recent_users"`
}

// CourseStats summarizes one instructor course.
type CourseStats struct {
	Course         models.Course `json:"course"`
	Lessons        int64         `json:"lessons"`
	ActiveStudents int64         `json:"active_students"`
	CompletionRate float64       `json:"completion_rate"`
}

// InstructorDashboard covers the instructor's own courses.
type InstructorDashboard struct {
	Courses            []CourseStats                 `json:"courses"`
	TotalStudents      int64                         `json:"total_students"`
	PendingSubmissions []models.AssignmentSubmission `json:"pending_submissions"`
}

// StudentDashboard covers the student's enrollments and gamification state.
type StudentDashboard struct {
	Enrollments      []models.Enrollment     `json:"enrollments"`
	CompletedCourses int64                   `json:"completed_courses"`
	TotalPoints      int                     `json:"total_points"`
	CurrentStreak    int                     `json:"current_streak"`
	LongestStreak    int                     `json:"longest_streak"`
	Badges           []models.UserBadge      `json:"badges"`
	RecentProgress   []models.LessonProgress `json:"recent_progress"`
	Rank             int64                   `json:"rank"`
}

// Dashboard dispatches on the actor's role.
func (s *Service) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	user, err := s.GetUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := &Dashboard{Role: user.Role}
	switch user.Role {
	case models.RoleAdmin:
		out.Admin, err = adminDashboard(db)
	case models.RoleInstructor:
		out.Instructor, err = instructorDashboard(db, user.ID)
	case models.RoleStudent:
		out.Student, err = s.studentDashboard(ctx, db, user)
	default:
		return nil, fmt.Errorf("user %d has role %q: %w", user.ID, user.Role, ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func adminDashboard(db *gorm.DB) (*AdminDashboard, error) {
	d := &AdminDashboard{}
	counts := []struct {
		dst   *int64
		model interface{}
		where []interface{}
	}{
		{&d.TotalUsers, &models.User{}, nil},
		{&d.TotalStudents, &models.User{}, []interface{}{"role = ?", models.RoleStudent}},
		{&d.TotalInstructors, &models.User{}, []interface{}{"role = ?", models.RoleInstructor}},
		{&d.TotalCourses, &models.Course{}, nil},
		{&d.PublishedCourses, &models.Course{}, []interface{}{"is_published = ?", true}},
		{&d.TotalEnrollments, &models.Enrollment{}, nil},
		{&d.CompletedEnrollments, &models.Enrollment{}, []interface{}{"completed_at IS NOT NULL"}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if len(c.where) > 0 {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("admin dashboard counts: %w", err)
		}
	}
	if err := db.Order("created_at DESC, id DESC").Limit(10).Find(&d.RecentUsers).Error; err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	return d, nil
}

func instructorDashboard(db *gorm.DB, instructorID uint) (*InstructorDashboard, error) {
	var courses []models.Course
	if err := db.Where("instructor_id = ?", instructorID).Order("created_at DESC, id DESC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("instructor courses: %w", err)
	}
	d := &InstructorDashboard{Courses: make([]CourseStats, 0, len(courses))}
	for _, c := range courses {
		st := CourseStats{Course: c}
		if err := db.Model(&models.Lesson{}).Where("course_id = ?", c.ID).Count(&st.Lessons).Error; err != nil {
			return nil, fmt.Errorf("count lessons: %w", err)
		}
		active := db.Model(&models.Enrollment{}).Where("course_id = ? AND is_active = ?", c.ID, true)
		if err := active.Count(&st.ActiveStudents).Error; err != nil {
			return nil, fmt.Errorf("count students: %w", err)
		}
		if st.ActiveStudents > 0 {
			var avg float64
			if err := db.Model(&models.Enrollment{}).Where("course_id = ? AND is_active = ?", c.ID, true).
				Select("COALESCE(AVG(progress), 0)").Scan(&avg).Error; err != nil {
				return nil, fmt.Errorf("completion rate: %w", err)
			}
			st.CompletionRate = avg
		}
		d.TotalStudents += st.ActiveStudents
		d.Courses = append(d.Courses, st)
	}

	err := db.Preload("Student").Preload("Assignment").
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id").
		Joins("JOIN lessons ON lessons.id = assignments.lesson_id").
		Joins("JOIN courses ON courses.id = lessons.course_id").
		Where("courses.instructor_id = ? AND assignment_submissions.status = ?", instructorID, models.SubmissionPending).
		Order("assignment_submissions.submitted_at ASC").
		Limit(20).
		Find(&d.PendingSubmissions).Error
	if err != nil {
		return nil, fmt.Errorf("pending submissions: %w", err)
	}
	return d, nil
}

func (s *Service) studentDashboard(ctx context.Context, db *gorm.DB, u *models.User) (*StudentDashboard, error) {
	d := &StudentDashboard{
		TotalPoints:   u.TotalPoints,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
	}
	if err := db.Preload("Course").Where("student_id = ? AND is_active = ?", u.ID, true).
		Order("enrolled_at DESC").Find(&d.Enrollments).Error; err != nil {
		return nil, fmt.Errorf("enrollments: %w", err)
	}
	if err := db.Model(&models.Enrollment{}).Where("student_id = ? AND completed_at IS NOT NULL", u.ID).
		Count(&d.CompletedCourses).Error; err != nil {
		return nil, fmt.Errorf("completed courses: %w", err)
	}
	if err := db.Preload("Badge").Where("user_id = ?", u.ID).Order("earned_at DESC").Find(&d.Badges).Error; err != nil {
		return nil, fmt.Errorf("badges: %w", err)
	}
	err := db.Preload("Lesson").
		Joins("JOIN enrollments ON enrollments.id = lesson_progresses.enrollment_id").
		Where("enrollments.student_id = ? AND lesson_progresses.is_completed = ?", u.ID, true).
		Order("lesson_progresses.completed_at DESC").
		Limit(5).
		Find(&d.RecentProgress).Error
	if err != nil {
		return nil, fmt.Errorf("recent progress: %w", err)
	}
	rank, err := s.Rank(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	d.Rank = rank
	return d, nil
}
