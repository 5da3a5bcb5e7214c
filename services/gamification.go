package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
)

// LeaderboardEntry is one student's standing. Students with equal points share a rank.
type LeaderboardEntry struct {
	Rank          int64  `json:"rank"`
	UserID        uint   `json:"user_id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	TotalPoints   int    `json:"total_points"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

// awardPoints adds amount to a user row the caller has already locked, then
// reconciles badges in the same transaction.
func (s *Service) awardPoints(tx *gorm.DB, u *models.User, amount int, reason string) error {
	engine.AddPoints(u, amount)
	if err := tx.Model(u).Update("total_points", u.TotalPoints).Error; err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	s.log.Info("points awarded",
		zap.Uint("user_id", u.ID),
		zap.Int("amount", amount),
		zap.String("reason", reason),
		zap.Int("total_points", u.TotalPoints),
	)
	_, err := s.reconcileBadges(tx, u)
	return err
}

// reconcileBadges grants every catalog badge u now qualifies for. It is safe to
// run repeatedly: existing rows are left alone and nothing is revoked.
func (s *Service) reconcileBadges(tx *gorm.DB, u *models.User) ([]models.Badge, error) {
	var catalog []models.Badge
	if err := tx.Order("points_required ASC, id ASC").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}
	var ownedIDs []uint
	if err := tx.Model(&models.UserBadge{}).Where("user_id = ?", u.ID).Pluck("badge_id", &ownedIDs).Error; err != nil {
		return nil, fmt.Errorf("load user badges: %w", err)
	}
	owned := make(map[uint]bool, len(ownedIDs))
	for _, id := range ownedIDs {
		owned[id] = true
	}

	return s.grantBadges(tx, u, engine.EligibleBadges(u, catalog, owned))
}

// grantBadges inserts a UserBadge per candidate and returns only the rows that
// were actually created. A row inserted concurrently is skipped silently.
func (s *Service) grantBadges(tx *gorm.DB, u *models.User, candidates []models.Badge) ([]models.Badge, error) {
	var granted []models.Badge
	for _, b := range candidates {
		ub := models.UserBadge{UserID: u.ID, BadgeID: b.ID, EarnedAt: s.clock.Now()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ub)
		if res.Error != nil {
			return nil, fmt.Errorf("grant badge %q: %w", b.Name, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		s.log.Info("badge earned", zap.Uint("user_id", u.ID), zap.String("badge", b.Name))
		granted = append(granted, b)
	}
	return granted, nil
}

// RecordSessionStart advances the daily streak for a student at login and
// reconciles streak badges. Other roles are returned untouched.
func (s *Service) RecordSessionStart(ctx context.Context, actor Actor) (*models.User, error) {
	var out *models.User
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		out = u
		if !u.IsStudent() {
			return nil
		}
		if !engine.UpdateStreak(u, s.clock.Now()) {
			return nil
		}
		if err := tx.Model(u).Select("current_streak", "longest_streak", "last_activity_date").Updates(u).Error; err != nil {
			return fmt.Errorf("save streak: %w", err)
		}
		_, err = s.reconcileBadges(tx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReconcileBadges grants any badges the actor qualifies for.
func (s *Service) ReconcileBadges(ctx context.Context, actor Actor) ([]models.Badge, error) {
	var earned []models.Badge
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		earned, err = s.reconcileBadges(tx, u)
		return err
	})
	return earned, err
}

// ReconcileAllBadges walks every user after a catalog change. Admin only.
func (s *Service) ReconcileAllBadges(ctx context.Context, actor Actor) (int, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return 0, err
	}
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	granted := 0
	for _, id := range ids {
		earned, err := s.ReconcileBadges(ctx, Actor{UserID: id})
		if err != nil {
			return granted, err
		}
		granted += len(earned)
	}
	s.log.Info("badge reconciliation finished", zap.Int("users", len(ids)), zap.Int("granted", granted))
	return granted, nil
}

// SeedBadges inserts the default catalog, skipping names that already exist.
func (s *Service) SeedBadges(ctx context.Context) error {
	badges := models.DefaultBadges()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&badges).Error
	if err != nil {
		return fmt.Errorf("seed badges: %w", err)
	}
	return nil
}

// Leaderboard lists the top students by points.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > s.opts.LeaderboardSize {
		limit = s.opts.LeaderboardSize
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleStudent).
		Order("total_points DESC, id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	out := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		rank := int64(i + 1)
		if i > 0 && u.TotalPoints == users[i-1].TotalPoints {
			rank = out[i-1].Rank
		}
		out = append(out, LeaderboardEntry{
			Rank:          rank,
			UserID:        u.ID,
			Username:      u.Username,
			FullName:      u.FullName(),
			TotalPoints:   u.TotalPoints,
			CurrentStreak: u.CurrentStreak,
			LongestStreak: u.LongestStreak,
		})
	}
	return out, nil
}

// Rank is one plus the number of students with strictly more points than the user.
func (s *Service) Rank(ctx context.Context, userID uint) (int64, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return 0, wrapDB(err, "user %d", userID)
	}
	var ahead int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND total_points > ?", models.RoleStudent, u.TotalPoints).
		Count(&ahead).Error
	if err != nil {
		return 0, fmt.Errorf("count rank: %w", err)
	}
	return ahead + 1, nil
}
