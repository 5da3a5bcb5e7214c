package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the role claim inside Gin context.
	ContextRoleKey = "role"
	// ContextTokenKey keeps the raw bearer token for logout.
	ContextTokenKey = "token"
	// ContextClaimsKey keeps the parsed claims.
	ContextClaimsKey = "claims"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		setIdentity(ctx, tokenString, claims)
		ctx.Next()
	}
}

// OptionalAuth attaches the identity when a valid bearer token is present and
// lets anonymous requests through untouched.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString := strings.TrimSpace(parts[1])
			if tokenString != "" && !utils.IsTokenBlacklisted(tokenString) {
				if claims, err := utils.ParseToken(tokenString); err == nil {
					setIdentity(ctx, tokenString, claims)
				}
			}
		}
		ctx.Next()
	}
}

func setIdentity(ctx *gin.Context, token string, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextRoleKey, claims.Role)
	ctx.Set(ContextTokenKey, token)
	ctx.Set(ContextClaimsKey, claims)
}

// RequireRole rejects authenticated callers outside roles. It must run after AuthRequired.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor, ok := CurrentActor(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				ctx.Next()
				return
			}
		}
		utils.Error(ctx, http.StatusForbidden, 40300, "insufficient role")
		ctx.Abort()
	}
}

// CurrentActor returns the authenticated caller, if any.
func CurrentActor(ctx *gin.Context) (services.Actor, bool) {
	id := ctx.GetUint(ContextUserIDKey)
	if id == 0 {
		return services.Actor{}, false
	}
	role, _ := ctx.Get(ContextRoleKey)
	r, _ := role.(models.Role)
	return services.Actor{UserID: id, Role: r}, true
}

// CurrentClaims returns the parsed token claims and the raw token.
func CurrentClaims(ctx *gin.Context) (*utils.Claims, string, bool) {
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok {
		return nil, "", false
	}
	claims, ok := v.(*utils.Claims)
	if !ok {
		return nil, "", false
	}
	return claims, ctx.GetString(ContextTokenKey), true
}
