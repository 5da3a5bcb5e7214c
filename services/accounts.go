package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cppla/eduvolve/models"
	"github.com/cppla/eduvolve/utils"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// RegisterInput is the self-service signup form.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"max=30"`
	LastName  string `json:"last_name" validate:"max=30"`
	Role      string `json:"role" validate:"required"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Confirm   string `json:"confirm" validate:"required,eqfield=Password"`
}

// ProfileInput updates identity fields. Nil pointers leave a field unchanged.
type ProfileInput struct {
	Email          *string `json:"email" validate:"omitempty,email,max=255"`
	FirstName      *string `json:"first_name" validate:"omitempty,max=30"`
	LastName       *string `json:"last_name" validate:"omitempty,max=30"`
	Bio            *string `json:"bio" validate:"omitempty,max=2000"`
	Phone          *string `json:"phone" validate:"omitempty,max=15"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,url,max=512"`
	DateOfBirth    *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

// ProfileView is a user with earned badges and the full catalog.
type ProfileView struct {
	User    models.User        `json:"user"`
	Earned  []models.UserBadge `json:"earned_badges"`
	Catalog []models.Badge     `json:"all_badges"`
	Rank    int64              `json:"rank,omitempty"`
}

// Register creates an account. Admin and Instructor roles cannot be picked
// freely: usernames listed in Options.AdminUsernames become admins, everyone
// else must choose Instructor or Student.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if !usernamePattern.MatchString(in.Username) {
		return nil, invalid("username may only contain letters, digits and @.+-_")
	}

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if s.isAdminUsername(in.Username) {
		role = models.RoleAdmin
	} else if !role.SelfRegisterable() {
		return nil, invalid("role %s cannot be chosen at registration", role.Label())
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         role,
	}
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return nil, conflict("username %q already exists", user.Username)
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, wrapDB(err, "create user %q", user.Username)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return &user, nil
}

func (s *Service) isAdminUsername(username string) bool {
	for _, u := range s.opts.AdminUsernames {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

// Authenticate checks credentials and, for students, starts the session by
// advancing the daily streak.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if user.IsStudent() {
		return s.RecordSessionStart(ctx, Actor{UserID: user.ID, Role: user.Role})
	}
	return &user, nil
}

// GetUser loads the actor's own record.
func (s *Service) GetUser(ctx context.Context, actor Actor) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, actor.UserID).Error; err != nil {
		return nil, wrapDB(err, "user %d", actor.UserID)
	}
	return &u, nil
}

// UpdateProfile edits identity fields. Points and streaks are never touched here.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*models.User, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	set("email", in.Email)
	set("first_name", in.FirstName)
	set("last_name", in.LastName)
	set("bio", in.Bio)
	set("phone", in.Phone)
	set("profile_picture", in.ProfilePicture)
	if in.DateOfBirth != nil {
		if *in.DateOfBirth == "" {
			updates["date_of_birth"] = nil
		} else {
			t, err := time.Parse("2006-01-02", *in.DateOfBirth)
			if err != nil {
				return nil, invalid("date_of_birth: %v", err)
			}
			updates["date_of_birth"] = datatypes.Date(t)
		}
	}

	user, err := s.GetUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetUser(ctx, actor)
}

// Profile returns the actor's badges next to the catalog. Students also get their rank.
func (s *Service) Profile(ctx context.Context, actor Actor) (*ProfileView, error) {
	user, err := s.GetUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{User: *user}
	db := s.db.WithContext(ctx)
	if err := db.Preload("Badge").Where("user_id = ?", user.ID).Order("earned_at ASC").Find(&view.Earned).Error; err != nil {
		return nil, fmt.Errorf("load earned badges: %w", err)
	}
	if err := db.Order("points_required ASC, id ASC").Find(&view.Catalog).Error; err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}
	if user.IsStudent() {
		if view.Rank, err = s.Rank(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// ListUsers pages through all accounts. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor Actor, role string, page, pageSize int) ([]models.User, int64, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, 0, err
	}
	page, pageSize = pageBounds(page, pageSize, 100)
	q := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		r, err := models.ParseRole(role)
		if err != nil {
			return nil, 0, invalid("%v", err)
		}
		q = q.Where("role = ?", r)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []models.User
	if err := q.Order("created_at DESC, id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}
