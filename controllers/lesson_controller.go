package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// LessonController serves lesson authoring, viewing and completion.
type LessonController struct {
	svc *services.Service
}

// NewLessonController creates a LessonController.
func NewLessonController(svc *services.Service) *LessonController {
	return &LessonController{svc: svc}
}

func sanitizeLesson(in *services.LessonInput) {
	in.Title = utils.SanitizePlain(in.Title)
	in.Description = utils.Sanitize(in.Description)
	in.Content = utils.Sanitize(in.Content)
}

// CreateLesson appends a lesson to a course.
func (l *LessonController) CreateLesson(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.LessonInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeLesson(&req)
	lesson, err := l.svc.CreateLesson(ctx.Request.Context(), actor(ctx), courseID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, lesson)
}

// UpdateLesson replaces a lesson's fields.
func (l *LessonController) UpdateLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.LessonInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeLesson(&req)
	lesson, err := l.svc.UpdateLesson(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, lesson)
}

// DeleteLesson removes a lesson.
func (l *LessonController) DeleteLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := l.svc.DeleteLesson(ctx.Request.Context(), actor(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	pointsChanged()
	utils.Success(ctx, gin.H{"deleted": id})
}

// ViewLesson opens a lesson for the caller.
func (l *LessonController) ViewLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := l.svc.ViewLesson(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// CompleteLesson marks the lesson complete for the student.
func (l *LessonController) CompleteLesson(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	res, err := l.svc.CompleteLesson(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if res.PointsEarned > 0 {
		pointsChanged()
	}
	utils.Success(ctx, res)
}
