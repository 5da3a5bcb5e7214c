// Package services orchestrates the engines against the database. Handlers
// pass an explicit Actor into every call; the services enforce role checks and
// run each gamification or progress mutation in a single transaction that
// locks the student's user row first and the enrollment row second.
package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   models.Role
}

// Options tunes policy that comes from configuration.
type Options struct {
	AdminUsernames  []string
	LeaderboardSize int
}

// Service implements the application operations.
type Service struct {
	db       *gorm.DB
	clock    engine.Clock
	log      *zap.Logger
	validate *validator.Validate
	opts     Options
}

// New builds a Service. A nil clock uses the wall clock and a nil logger discards output.
func New(db *gorm.DB, opts Options, clock engine.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 50
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{db: db, clock: clock, log: log, validate: v, opts: opts}
}

// DB exposes the handle for read-only reporting queries.
func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// check runs struct validation and reports the first failing field.
func (s *Service) check(in interface{}) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("%s must satisfy %s=%s: %w", fe.Field(), fe.Tag(), fe.Param(), ErrValidation)
		}
		return fmt.Errorf("%s must satisfy %s: %w", fe.Field(), fe.Tag(), ErrValidation)
	}
	return fmt.Errorf("%v: %w", err, ErrValidation)
}

// requireRole rejects actors outside roles.
func requireRole(a Actor, roles ...models.Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	labels := make([]string, 0, len(roles))
	for _, r := range roles {
		labels = append(labels, strings.ToLower(r.Label()))
	}
	return fmt.Errorf("only %s accounts can do this: %w", strings.Join(labels, " or "), ErrForbidden)
}

func lockUser(tx *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error; err != nil {
		return nil, wrapDB(err, "user %d", id)
	}
	return &u, nil
}

func lockEnrollment(tx *gorm.DB, studentID, courseID uint) (*models.Enrollment, error) {
	var e models.Enrollment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ? AND is_active = ?", studentID, courseID, true).
		First(&e).Error
	if err != nil {
		return nil, wrapDB(err, "active enrollment in course %d", courseID)
	}
	return &e, nil
}

func pageBounds(page, pageSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxSize {
		pageSize = 20
	}
	return page, pageSize
}
