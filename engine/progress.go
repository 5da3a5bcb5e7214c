package engine

import (
	"math"
	"time"

	"github.com/cppla/eduvolve/models"
)

// CourseCompletionBonus is awarded once per enrollment when progress first reaches 100.
const CourseCompletionBonus = 100

// ProgressOutcome is the result of recomputing an enrollment's progress.
type ProgressOutcome struct {
	Progress      float64
	JustCompleted bool
}

// ComputeProgress returns 100*completed/total rounded half to even at two
// decimals, or 0 for an empty course.
func ComputeProgress(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.RoundToEven(float64(completed)/float64(total)*100*100) / 100
}

// ApplyProgress stores the recomputed progress on e. CompletedAt is set only the
// first time progress reaches 100, and JustCompleted reports that transition so
// the caller can award CourseCompletionBonus exactly once.
func ApplyProgress(e *models.Enrollment, completed, total int64, now time.Time) ProgressOutcome {
	e.Progress = ComputeProgress(completed, total)
	out := ProgressOutcome{Progress: e.Progress}
	if e.Progress == 100 && e.CompletedAt == nil {
		t := now
		e.CompletedAt = &t
		out.JustCompleted = true
	}
	return out
}
