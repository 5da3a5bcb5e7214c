package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// AdminController serves platform administration.
type AdminController struct {
	svc *services.Service
}

// NewAdminController creates an AdminController.
func NewAdminController(svc *services.Service) *AdminController {
	return &AdminController{svc: svc}
}

// ListUsers returns paginated users, optionally filtered by role.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, pageSize := queryInt(ctx, "page", 1), queryInt(ctx, "page_size", 20)
	if pageSize > 100 {
		pageSize = 20
	}
	users, total, err := a.svc.ListUsers(ctx.Request.Context(), actor(ctx), ctx.Query("role"), page, pageSize)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"items":      users,
		"pagination": pagination(page, pageSize, total),
	})
}

// QuizAnomalies lists questions with zero or several correct answers.
func (a *AdminController) QuizAnomalies(ctx *gin.Context) {
	list, err := a.svc.QuizAnomalies(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

// ReconcileBadges grants missing badges to every user.
func (a *AdminController) ReconcileBadges(ctx *gin.Context) {
	granted, err := a.svc.ReconcileAllBadges(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"granted": granted})
}
