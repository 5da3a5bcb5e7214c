package engine

import "github.com/cppla/eduvolve/models"

// BadgeEarned reports whether u meets every threshold of b.
func BadgeEarned(u *models.User, b models.Badge) bool {
	return u.TotalPoints >= b.PointsRequired && u.LongestStreak >= b.StreakRequired
}

// EligibleBadges returns catalog badges u has earned but does not own yet.
// It never proposes removing a badge.
func EligibleBadges(u *models.User, catalog []models.Badge, owned map[uint]bool) []models.Badge {
	var out []models.Badge
	for _, b := range catalog {
		if owned[b.ID] {
			continue
		}
		if BadgeEarned(u, b) {
			out = append(out, b)
		}
	}
	return out
}
