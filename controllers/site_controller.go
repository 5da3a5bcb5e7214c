package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/utils"
)

// SiteController serves configuration-driven site content.
type SiteController struct{}

func NewSiteController() *SiteController { return &SiteController{} }

// GetAnnouncement returns the announcement bar configured via config.
func (s *SiteController) GetAnnouncement(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"platform": cfg.PlatformName,
		"title":    cfg.NoticeTitle,
		"html":     utils.Sanitize(cfg.NoticeHTML),
	})
}
