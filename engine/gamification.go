package engine

import (
	"time"

	"gorm.io/datatypes"

	"github.com/cppla/eduvolve/models"
)

// Point awards used by the request flows.
const (
	EnrollmentPoints       = 10
	LessonCompletionPoints = 20
)

// AddPoints adds amount to the user's total. Callers only pass non-negative amounts.
func AddPoints(u *models.User, amount int) {
	u.TotalPoints += amount
}

// UpdateStreak records activity on today's calendar date and reports whether
// the user changed. A second call on the same day is a no-op. A gap of more than
// one day, or a last activity in the future, restarts the streak at 1.
func UpdateStreak(u *models.User, today time.Time) bool {
	day := truncateDay(today)

	if u.LastActivityDate == nil {
		u.CurrentStreak = 1
	} else {
		switch daysBetween(time.Time(*u.LastActivityDate), day) {
		case 0:
			return false
		case 1:
			u.CurrentStreak++
		default:
			u.CurrentStreak = 1
		}
	}
	if u.LongestStreak < u.CurrentStreak {
		u.LongestStreak = u.CurrentStreak
	}

	d := datatypes.Date(day)
	u.LastActivityDate = &d
	return true
}
