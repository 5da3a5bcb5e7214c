package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/eduvolve/models"
)

// testClock is a settable clock shared by a test and its service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) AddDays(n int) {
	c.mu.Lock()
	c.now = c.now.AddDate(0, 0, n)
	c.mu.Unlock()
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *Service
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	svc := New(db, Options{AdminUsernames: []string{"root"}}, clock, nil)
	f := &fixture{t: t, ctx: context.Background(), db: db, svc: svc, clock: clock}
	if err := svc.SeedBadges(f.ctx); err != nil {
		t.Fatalf("seed badges: %v", err)
	}
	return f
}

func (f *fixture) user(username string, role models.Role) Actor {
	f.t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Role: role}
	if err := f.db.Create(&u).Error; err != nil {
		f.t.Fatalf("create user %s: %v", username, err)
	}
	return Actor{UserID: u.ID, Role: role}
}

func (f *fixture) reload(a Actor) models.User {
	f.t.Helper()
	var u models.User
	if err := f.db.First(&u, a.UserID).Error; err != nil {
		f.t.Fatalf("reload user %d: %v", a.UserID, err)
	}
	return u
}

// course creates a published course owned by instructor with n published lessons.
func (f *fixture) course(instructor Actor, n int) (*models.Course, []models.Lesson) {
	f.t.Helper()
	c, err := f.svc.CreateCourse(f.ctx, instructor, CourseInput{
		Title:       "Go Basics",
		Description: "Types, functions and packages",
		IsPublished: true,
	})
	if err != nil {
		f.t.Fatalf("create course: %v", err)
	}
	lessons := make([]models.Lesson, 0, n)
	for i := 0; i < n; i++ {
		l, err := f.svc.CreateLesson(f.ctx, instructor, c.ID, LessonInput{
			Title:       fmt.Sprintf("Lesson %d", i+1),
			IsPublished: true,
		})
		if err != nil {
			f.t.Fatalf("create lesson %d: %v", i+1, err)
		}
		lessons = append(lessons, *l)
	}
	return c, lessons
}

func (f *fixture) enroll(student Actor, courseID uint) {
	f.t.Helper()
	if _, err := f.svc.Enroll(f.ctx, student, courseID); err != nil {
		f.t.Fatalf("enroll: %v", err)
	}
}

func (f *fixture) badgeNames(a Actor) map[string]bool {
	f.t.Helper()
	var ubs []models.UserBadge
	if err := f.db.Preload("Badge").Where("user_id = ?", a.UserID).Find(&ubs).Error; err != nil {
		f.t.Fatalf("load badges: %v", err)
	}
	out := map[string]bool{}
	for _, ub := range ubs {
		out[ub.Badge.Name] = true
	}
	return out
}

func (f *fixture) count(model interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	if err := f.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		f.t.Fatalf("count: %v", err)
	}
	return n
}
