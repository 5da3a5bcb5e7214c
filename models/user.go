package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an account of any role. Passwords are stored as bcrypt hashes only.
// The gamification fields are only ever moved by the engine package.
type User struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Username         string          `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email            string          `gorm:"size:255" json:"email"`
	FirstName        string          `gorm:"size:30" json:"first_name"`
	LastName         string          `gorm:"size:30" json:"last_name"`
	PasswordHash     string          `gorm:"size:255" json:"-"`
	Role             Role            `gorm:"size:20;index;not null" json:"role"`
	Bio              string          `gorm:"type:text" json:"bio"`
	ProfilePicture   string          `gorm:"size:512" json:"profile_picture"`
	Phone            string          `gorm:"size:15" json:"phone"`
	DateOfBirth      *datatypes.Date `json:"date_of_birth"`
	TotalPoints      int             `gorm:"not null;default:0;index" json:"total_points"`
	CurrentStreak    int             `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int             `gorm:"not null;default:0" json:"longest_streak"`
	LastActivityDate *datatypes.Date `json:"last_activity_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BeforeCreate rejects rows whose role is outside the closed set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	return nil
}

// IsStudent reports whether the user holds the Student role.
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}
