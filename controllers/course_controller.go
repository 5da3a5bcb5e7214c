package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/middleware"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// CourseController serves the catalog, course management and enrollment.
type CourseController struct {
	svc *services.Service
}

// NewCourseController creates a CourseController.
func NewCourseController(svc *services.Service) *CourseController {
	return &CourseController{svc: svc}
}

func sanitizeCourse(in *services.CourseInput) {
	in.Title = utils.SanitizePlain(in.Title)
	in.Description = utils.Sanitize(in.Description)
}

// ListCourses returns the published catalog.
func (c *CourseController) ListCourses(ctx *gin.Context) {
	f := services.CourseFilter{
		Search:   ctx.Query("search"),
		Level:    ctx.Query("level"),
		Page:     queryInt(ctx, "page", 1),
		PageSize: queryInt(ctx, "page_size", 20),
	}
	courses, total, err := c.svc.ListCourses(ctx.Request.Context(), f)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if f.PageSize > 100 {
		f.PageSize = 20
	}
	utils.Success(ctx, gin.H{
		"items":      courses,
		"pagination": pagination(f.Page, f.PageSize, total),
	})
}

// GetCourse shows one course. Anonymous callers only see published content.
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	caller, _ := middleware.CurrentActor(ctx)
	detail, err := c.svc.GetCourse(ctx.Request.Context(), caller, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, detail)
}

// MyCourses lists the instructor's own courses.
func (c *CourseController) MyCourses(ctx *gin.Context) {
	courses, err := c.svc.InstructorCourses(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, courses)
}

// CreateCourse creates a course owned by the caller.
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req services.CourseInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeCourse(&req)
	course, err := c.svc.CreateCourse(ctx.Request.Context(), actor(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, course)
}

// UpdateCourse replaces a managed course's fields.
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.CourseInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeCourse(&req)
	course, err := c.svc.UpdateCourse(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, course)
}

// DeleteCourse removes a managed course.
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.svc.DeleteCourse(ctx.Request.Context(), actor(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}

// Enroll signs the student up for a course.
func (c *CourseController) Enroll(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	res, err := c.svc.Enroll(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		pointsChanged()
	}
	utils.Respond(ctx, status, 0, "success", res)
}

// Drop deactivates the student's enrollment.
func (c *CourseController) Drop(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.svc.Drop(ctx.Request.Context(), actor(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"dropped": id})
}
