package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/middleware"
	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// AuthController handles registration, sessions and the caller's own account.
type AuthController struct {
	svc *services.Service
}

// NewAuthController creates an AuthController.
func NewAuthController(svc *services.Service) *AuthController {
	return &AuthController{svc: svc}
}

func tokenTTL() time.Duration {
	return time.Duration(config.Get().TokenTTLHours) * time.Hour
}

func issueSession(ctx *gin.Context, user *models.User, status int) {
	token, err := utils.GenerateToken(*user, tokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token": token,
		"user":  user,
	})
}

// Register creates a local account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(ctx, &req) {
		return
	}

	// Anti-abuse: ban check, cooldown, per-IP daily limit
	ip := ctx.ClientIP()
	if utils.RegistrationIsBanned(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "registration from this address is temporarily blocked")
		return
	}
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again shortly")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	req.FirstName = utils.SanitizePlain(req.FirstName)
	req.LastName = utils.SanitizePlain(req.LastName)
	user, err := a.svc.Register(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrConflict) {
			utils.RegistrationFailRecord(ip)
		}
		respondError(ctx, err)
		return
	}
	utils.RegistrationDailyIncrement(ip)
	issueSession(ctx, user, http.StatusCreated)
}

// Login authenticates with username and password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.svc.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if user.IsStudent() {
		pointsChanged()
	}
	issueSession(ctx, user, http.StatusOK)
}

// Logout revokes the presented token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims, token, ok := middleware.CurrentClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	expiresAt := time.Now().Add(tokenTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.svc.GetUser(ctx.Request.Context(), actor(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// UpdateProfile edits the caller's identity fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req services.ProfileInput
	if !bindJSON(ctx, &req) {
		return
	}
	req.FirstName = sanitizeOptional(req.FirstName)
	req.LastName = sanitizeOptional(req.LastName)
	req.Bio = sanitizeOptional(req.Bio)
	req.Phone = sanitizeOptional(req.Phone)
	user, err := a.svc.UpdateProfile(ctx.Request.Context(), actor(ctx), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}
