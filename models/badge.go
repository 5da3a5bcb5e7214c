package models

import "time"

// Badge is a catalog entry unlocked by crossing a point threshold and,
// optionally, a longest-streak threshold.
type Badge struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Icon           string    `gorm:"size:50;not null;default:trophy" json:"icon"`
	Color          string    `gorm:"size:20;not null;default:primary" json:"color"`
	PointsRequired int       `gorm:"not null;default:0;index" json:"points_required"`
	StreakRequired int       `gorm:"not null;default:0" json:"streak_required"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserBadge records that a user earned a badge. Rows are never revoked.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	User     *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BadgeID  uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge    *Badge    `gorm:"foreignKey:BadgeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"badge,omitempty"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`
}

// DefaultBadges is the starter catalog seeded on first boot.
func DefaultBadges() []Badge {
	return []Badge{
		{Name: "Beginner", Description: "Welcome aboard! You've earned your first points.", Icon: "star", Color: "secondary", PointsRequired: 0},
		{Name: "Quick Learner", Description: "Earned 100 points", Icon: "lightning", Color: "primary", PointsRequired: 100},
		{Name: "Dedicated Student", Description: "Earned 500 points", Icon: "book", Color: "info", PointsRequired: 500},
		{Name: "Rising Star", Description: "Earned 1000 points", Icon: "star-fill", Color: "warning", PointsRequired: 1000},
		{Name: "Master Learner", Description: "Earned 5000 points", Icon: "trophy", Color: "success", PointsRequired: 5000},
		{Name: "Fire Streak", Description: "Maintained a 7-day learning streak", Icon: "fire", Color: "danger", StreakRequired: 7},
	}
}
