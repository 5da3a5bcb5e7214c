package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// AssignmentController serves assignments, submissions and grading.
type AssignmentController struct {
	svc *services.Service
}

// NewAssignmentController creates an AssignmentController.
func NewAssignmentController(svc *services.Service) *AssignmentController {
	return &AssignmentController{svc: svc}
}

func sanitizeAssignment(in *services.AssignmentInput) {
	in.Title = utils.SanitizePlain(in.Title)
	in.Description = utils.Sanitize(in.Description)
}

// CreateAssignment attaches an assignment to a lesson.
func (a *AssignmentController) CreateAssignment(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.AssignmentInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeAssignment(&req)
	out, err := a.svc.CreateAssignment(ctx.Request.Context(), actor(ctx), lessonID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, out)
}

// UpdateAssignment replaces an assignment's fields.
func (a *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.AssignmentInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeAssignment(&req)
	out, err := a.svc.UpdateAssignment(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, out)
}

// DeleteAssignment removes an assignment.
func (a *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := a.svc.DeleteAssignment(ctx.Request.Context(), actor(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}

// Submit stores or replaces the student's submission.
func (a *AssignmentController) Submit(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.SubmissionInput
	if !bindJSON(ctx, &req) {
		return
	}
	req.Text = utils.Sanitize(req.Text)
	sub, resubmitted, err := a.svc.SubmitAssignment(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	status := http.StatusCreated
	if resubmitted {
		status = http.StatusOK
	}
	utils.Respond(ctx, status, 0, "success", gin.H{"submission": sub, "resubmitted": resubmitted})
}

// MySubmission returns the caller's submission for an assignment.
func (a *AssignmentController) MySubmission(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	sub, err := a.svc.MySubmission(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}

// ListSubmissions lists every submission for a managed assignment.
func (a *AssignmentController) ListSubmissions(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	subs, err := a.svc.ListSubmissions(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, subs)
}

// Grade records a grade for a submission.
func (a *AssignmentController) Grade(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.GradeInput
	if !bindJSON(ctx, &req) {
		return
	}
	req.Feedback = utils.Sanitize(req.Feedback)
	sub, err := a.svc.GradeSubmission(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}
