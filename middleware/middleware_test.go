package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
}

func bearer(t *testing.T, id uint, role models.Role) string {
	t.Helper()
	token, err := utils.GenerateToken(models.User{ID: id, Username: "u", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func do(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAndRoles(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		a, _ := CurrentActor(c)
		c.String(http.StatusOK, "%d:%s", a.UserID, a.Role)
	})
	r.GET("/admin", AuthRequired(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	if w := do(r, http.MethodGet, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: want=401 got=%d", w.Code)
	}
	if w := do(r, http.MethodGet, "/me", "Token abc"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad scheme: want=401 got=%d", w.Code)
	}
	w := do(r, http.MethodGet, "/me", bearer(t, 9, models.RoleInstructor))
	if w.Code != http.StatusOK || w.Body.String() != "9:INSTRUCTOR" {
		t.Fatalf("valid token: code=%d body=%s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/admin", bearer(t, 9, models.RoleInstructor)); w.Code != http.StatusForbidden {
		t.Fatalf("instructor on admin route: want=403 got=%d", w.Code)
	}
	if w := do(r, http.MethodGet, "/admin", bearer(t, 1, models.RoleAdmin)); w.Code != http.StatusNoContent {
		t.Fatalf("admin route: want=204 got=%d", w.Code)
	}

	revoked := bearer(t, 9, models.RoleStudent)
	utils.BlacklistToken(revoked[len("Bearer "):], time.Now().Add(time.Hour))
	if w := do(r, http.MethodGet, "/me", revoked); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: want=401 got=%d", w.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", OptionalAuth(), func(c *gin.Context) {
		a, ok := CurrentActor(c)
		c.String(http.StatusOK, "%v:%d", ok, a.UserID)
	})
	if w := do(r, http.MethodGet, "/x", ""); w.Body.String() != "false:0" {
		t.Fatalf("anonymous: %s", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/x", "Bearer garbage"); w.Code != http.StatusOK || w.Body.String() != "false:0" {
		t.Fatalf("invalid token must pass anonymously: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/x", bearer(t, 4, models.RoleStudent)); w.Body.String() != "true:4" {
		t.Fatalf("valid token: %s", w.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(4)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d inside burst rejected", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("burst exhausted but request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("other clients have their own bucket")
	}
	now = now.Add(15 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatalf("token should refill after 15s")
	}

	now = now.Add(10 * time.Minute)
	rl.Allow("9.9.9.9")
	if _, ok := rl.visitors["5.6.7.8"]; ok {
		t.Fatalf("idle visitor not evicted")
	}
}

func TestRateLimiterSweepsOnInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiter(60)
	rl.now = func() time.Time { return now }

	// sweeps at start and at start+5m1s; the next one is due after start+10m1s
	rl.Allow("9.9.9.9")
	now = start.Add(4 * time.Minute)
	rl.Allow("1.1.1.1")
	now = start.Add(limiterIdleTTL + time.Second)
	rl.Allow("2.2.2.2")
	if _, ok := rl.visitors["9.9.9.9"]; ok {
		t.Fatalf("idle visitor not evicted by the due sweep")
	}

	now = start.Add(9*time.Minute + 30*time.Second)
	rl.Allow("2.2.2.2")
	if _, ok := rl.visitors["1.1.1.1"]; !ok {
		t.Fatalf("sweep ran before the interval elapsed")
	}

	now = start.Add(2*limiterIdleTTL + 2*time.Second)
	rl.Allow("2.2.2.2")
	if _, ok := rl.visitors["1.1.1.1"]; ok {
		t.Fatalf("idle visitor not evicted after the interval")
	}
	if _, ok := rl.visitors["2.2.2.2"]; !ok {
		t.Fatalf("active visitor evicted")
	}
}

func TestPageViewRecorder(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.PageView{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := gin.New()
	r.Use(PageViewRecorder(db, "/api/v1/lessons/:id"))
	r.GET("/api/v1/lessons/:id", func(c *gin.Context) {
		if c.Param("id") == "404" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/api/v1/courses", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		do(r, http.MethodGet, "/api/v1/lessons/12", "")
	}
	do(r, http.MethodGet, "/api/v1/lessons/404", "")
	do(r, http.MethodGet, "/api/v1/courses", "")

	var views []models.PageView
	if err := db.Find(&views).Error; err != nil {
		t.Fatalf("load views: %v", err)
	}
	if len(views) != 1 || views[0].Path != "/api/v1/lessons/12" || views[0].Count != 3 {
		t.Fatalf("page views: %+v", views)
	}
}
