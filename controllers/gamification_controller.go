package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/middleware"
	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// GamificationController serves standings, profiles, dashboards and certificates.
type GamificationController struct {
	svc *services.Service
}

// NewGamificationController creates a GamificationController.
func NewGamificationController(svc *services.Service) *GamificationController {
	return &GamificationController{svc: svc}
}

// Leaderboard returns the top students. Authenticated students also get their own rank.
func (g *GamificationController) Leaderboard(ctx *gin.Context) {
	cfg := config.Get()
	key := leaderboardCachePrefix + "top"

	var entries []services.LeaderboardEntry
	if !utils.CacheGetJSON(key, &entries) {
		var err error
		entries, err = g.svc.Leaderboard(ctx.Request.Context(), cfg.LeaderboardSize)
		if err != nil {
			respondError(ctx, err)
			return
		}
		utils.CacheSetJSON(key, entries, time.Duration(cfg.LeaderboardCacheSecs)*time.Second)
	}

	data := gin.H{"items": entries}
	if caller, ok := middleware.CurrentActor(ctx); ok && caller.Role == models.RoleStudent {
		rank, err := g.svc.Rank(ctx.Request.Context(), caller.UserID)
		if err != nil {
			respondError(ctx, err)
			return
		}
		data["my_rank"] = rank
	}
	utils.Success(ctx, data)
}

// Profile returns the caller with earned badges and the catalog.
func (g *GamificationController) Profile(ctx *gin.Context) {
	view, err := g.svc.Profile(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// Dashboard returns the role-specific dashboard.
func (g *GamificationController) Dashboard(ctx *gin.Context) {
	d, err := g.svc.Dashboard(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, d)
}

// Certificates lists the student's certificates.
func (g *GamificationController) Certificates(ctx *gin.Context) {
	certs, err := g.svc.Certificates(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, certs)
}

// VerifyCertificate checks a certificate code publicly.
func (g *GamificationController) VerifyCertificate(ctx *gin.Context) {
	view, err := g.svc.VerifyCertificate(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}
