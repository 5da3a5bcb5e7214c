package controllers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/utils"
)

// StatsController provides platform statistics such as counts and daily views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the platform.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var studentCount, courseCount, enrollmentCount, certificateCount, dailyViews int64

	if err := db.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&studentCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		studentCount = 0
	}
	if err := db.Model(&models.Course{}).Where("is_published = ?", true).Count(&courseCount).Error; err != nil {
		courseCount = 0
	}
	if err := db.Model(&models.Enrollment{}).Where("is_active = ?", true).Count(&enrollmentCount).Error; err != nil {
		enrollmentCount = 0
	}
	if err := db.Model(&models.Certificate{}).Count(&certificateCount).Error; err != nil {
		certificateCount = 0
	}

	// Sum of today's recorded views across all tracked paths
	today := time.Now().Format("2006-01-02")
	if err := db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	utils.Success(ctx, gin.H{
		"student_count":     studentCount,
		"course_count":      courseCount,
		"enrollment_count":  enrollmentCount,
		"certificate_count": certificateCount,
		"daily_view_count":  dailyViews,
	})
}

// GetCourseStats returns total views and active enrollments for one course.
func (s *StatsController) GetCourseStats(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	db := s.db.WithContext(ctx.Request.Context())

	var views int64
	if err := db.Model(&models.PageView{}).
		Where("path = ?", fmt.Sprintf("/api/v1/courses/%d", id)).
		Select("COALESCE(SUM(count),0)").
		Scan(&views).Error; err != nil {
		views = 0
	}

	var lessonIDs []uint
	if err := db.Model(&models.Lesson{}).Where("course_id = ?", id).Pluck("id", &lessonIDs).Error; err != nil {
		lessonIDs = nil
	}
	var lessonViews int64
	if len(lessonIDs) > 0 {
		paths := make([]string, 0, len(lessonIDs))
		for _, lid := range lessonIDs {
			paths = append(paths, fmt.Sprintf("/api/v1/lessons/%d", lid))
		}
		if err := db.Model(&models.PageView{}).
			Where("path IN ?", paths).
			Select("COALESCE(SUM(count),0)").
			Scan(&lessonViews).Error; err != nil {
			lessonViews = 0
		}
	}

	var active int64
	if err := db.Model(&models.Enrollment{}).Where("course_id = ? AND is_active = ?", id, true).Count(&active).Error; err != nil {
		active = 0
	}

	utils.Success(ctx, gin.H{
		"views":           views,
		"lesson_views":    lessonViews,
		"active_students": active,
	})
}
