package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/eduvolve/middleware"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

const leaderboardCachePrefix = "leaderboard:"

// respondError maps service sentinels to HTTP status and envelope codes.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40000, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40100, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40900, err.Error())
	default:
		utils.Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// bindJSON decodes the body and writes a 400 on failure.
func bindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return false
	}
	return true
}

// pathID parses a positive numeric path parameter.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func queryInt(ctx *gin.Context, name string, def int) int {
	if v := strings.TrimSpace(ctx.Query(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// actor returns the caller set by AuthRequired. Routes behind it always have one.
func actor(ctx *gin.Context) services.Actor {
	a, _ := middleware.CurrentActor(ctx)
	return a
}

func pagination(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// pointsChanged drops cached standings after a mutation that may move points.
func pointsChanged() {
	utils.InvalidateByPrefix(leaderboardCachePrefix)
}

func sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := utils.SanitizePlain(*v)
	return &s
}
