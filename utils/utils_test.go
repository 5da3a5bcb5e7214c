package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/eduvolve/config"
	"github.com/cppla/eduvolve/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret", PlatformName: "EduVolve"})
}

func TestTokenRoundTrip(t *testing.T) {
	user := models.User{ID: 7, Username: "ada", Role: models.RoleStudent}
	token, err := GenerateToken(user, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "ada" || claims.Role != models.RoleStudent {
		t.Fatalf("claims: %+v", claims)
	}
	if claims.Issuer != "EduVolve" {
		t.Fatalf("issuer: want=EduVolve got=%s", claims.Issuer)
	}
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(models.User{ID: 1, Username: "ada", Role: models.RoleStudent}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken(expired); err == nil {
		t.Fatalf("expired token accepted")
	}
	badRole, err := GenerateToken(models.User{ID: 1, Username: "ada", Role: "ROOT"}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken(badRole); err == nil {
		t.Fatalf("token with unknown role accepted")
	}
	if _, err := ParseToken("not.a.token"); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestBlacklistWithoutRedis(t *testing.T) {
	BlacklistToken("tok-a", time.Now().Add(time.Minute))
	if !IsTokenBlacklisted("tok-a") {
		t.Fatalf("token should be revoked")
	}
	BlacklistToken("tok-b", time.Now().Add(-time.Minute))
	if IsTokenBlacklisted("tok-b") {
		t.Fatalf("already expired token should not be stored")
	}
	if IsTokenBlacklisted("tok-c") {
		t.Fatalf("unknown token reported revoked")
	}
}

func TestRegistrationChecksPassWithoutRedis(t *testing.T) {
	if RegistrationIsBanned("10.0.0.1") || !RegistrationCooldownTry("10.0.0.1") || !RegistrationDailyLimitCheck("10.0.0.1") {
		t.Fatalf("registration throttles must be open when redis is disabled")
	}
	if _, ok := CacheGetBytes("anything"); ok {
		t.Fatalf("cache must miss when redis is disabled")
	}
}

func TestSanitize(t *testing.T) {
	got := Sanitize(`<p onclick="x()">hi</p><script>alert(1)</script>`)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") || !strings.Contains(got, "<p>hi</p>") {
		t.Fatalf("Sanitize: got=%q", got)
	}
	if got := SanitizePlain("  <b>Go</b> basics "); got != "Go basics" {
		t.Fatalf("SanitizePlain: got=%q", got)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") || CheckPassword(hash, "battery staple") {
		t.Fatalf("bcrypt comparison mismatch")
	}
}

func TestGinzapLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Ginzap(zap.New(core), time.RFC3339, true))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) {
		c.Set("user_id", uint(3))
		c.Status(http.StatusInternalServerError)
	})

	want := map[string]zapcore.Level{
		"/ok":      zapcore.InfoLevel,
		"/missing": zapcore.WarnLevel,
		"/boom":    zapcore.ErrorLevel,
	}
	for path, lvl := range want {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		entries := logs.FilterMessage(path).All()
		if len(entries) != 1 || entries[0].Level != lvl {
			t.Fatalf("%s: want one %s entry, got %+v", path, lvl, entries)
		}
	}
	if logs.FilterField(zap.Any("user_id", uint(3))).Len() != 1 {
		t.Fatalf("user_id field missing from error entry")
	}
}

func TestRecoveryWithZap(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(RecoveryWithZap(zap.New(core), false))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":50000`) {
		t.Fatalf("body: %s", w.Body.String())
	}
	if logs.Len() != 1 {
		t.Fatalf("want one logged panic, got %d", logs.Len())
	}
}

func TestServeUntilStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- serveUntil(ctx, srv) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serveUntil: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestCacheWithoutLoggerDoesNotPanic(t *testing.T) {
	redisOnce.Do(func() {})
	prevClient, prevSugar := redisClient, Sugar
	redisClient = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	Sugar = nil
	t.Cleanup(func() {
		_ = redisClient.Close()
		redisClient, Sugar = prevClient, prevSugar
	})

	var out map[string]int
	if CacheGetJSON("leaderboard:top", &out) {
		t.Fatalf("unreachable redis must report a miss")
	}
	CacheSetJSON("leaderboard:top", map[string]int{"a": 1}, time.Second)
}
