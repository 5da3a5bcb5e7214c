package services

import (
	"errors"
	"testing"
	"time"

	"github.com/cppla/eduvolve/models"
)

func (f *fixture) assignment(instructor Actor) (*models.Assignment, models.Lesson) {
	f.t.Helper()
	_, lessons := f.course(instructor, 1)
	a, err := f.svc.CreateAssignment(f.ctx, instructor, lessons[0].ID, AssignmentInput{
		Title:       "Write a CLI",
		Description: "Parse flags and print a greeting",
		DueDate:     f.clock.Now().Add(7 * 24 * time.Hour),
	})
	if err != nil {
		f.t.Fatalf("create assignment: %v", err)
	}
	return a, lessons[0]
}

func TestCreateAssignmentDefaultsAndOwnership(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	a, lesson := f.assignment(instructor)
	if a.MaxPoints != 100 {
		t.Fatalf("max points: want=100 got=%d", a.MaxPoints)
	}

	other := f.user("linus", models.RoleInstructor)
	_, err := f.svc.CreateAssignment(f.ctx, other, lesson.ID, AssignmentInput{
		Title:       "Hijack",
		Description: "x",
		DueDate:     f.clock.Now(),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign instructor: want ErrForbidden got %v", err)
	}
	if _, err := f.svc.CreateAssignment(f.ctx, instructor, lesson.ID, AssignmentInput{Title: "No due date", Description: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing due date: want ErrValidation got %v", err)
	}
}

func TestSubmitAndResubmitAssignment(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	a, lesson := f.assignment(instructor)
	student := f.user("ada", models.RoleStudent)

	if _, _, err := f.svc.SubmitAssignment(f.ctx, student, a.ID, SubmissionInput{Text: "draft"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("not enrolled: want ErrNotFound got %v", err)
	}
	f.enroll(student, lesson.CourseID)

	if _, _, err := f.svc.SubmitAssignment(f.ctx, student, a.ID, SubmissionInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty submission: want ErrValidation got %v", err)
	}
	if _, _, err := f.svc.SubmitAssignment(f.ctx, student, a.ID, SubmissionInput{FileURL: "not a url"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad url: want ErrValidation got %v", err)
	}

	sub, resubmitted, err := f.svc.SubmitAssignment(f.ctx, student, a.ID, SubmissionInput{Text: "first draft"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resubmitted || sub.Status != models.SubmissionPending {
		t.Fatalf("first submit: resubmitted=%v status=%s", resubmitted, sub.Status)
	}

	grade := 62.5
	if _, err := f.svc.GradeSubmission(f.ctx, instructor, sub.ID, GradeInput{Grade: &grade, Feedback: "needs tests"}); err != nil {
		t.Fatalf("grade: %v", err)
	}

	f.clock.AddDays(1)
	again, resubmitted, err := f.svc.SubmitAssignment(f.ctx, student, a.ID, SubmissionInput{FileURL: "https://example.com/cli.zip"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !resubmitted || again.ID != sub.ID {
		t.Fatalf("resubmit must reuse row %d: got %d resubmitted=%v", sub.ID, again.ID, resubmitted)
	}
	if n := f.count(&models.AssignmentSubmission{}, "student_id = ?", student.UserID); n != 1 {
		t.Fatalf("submissions: want=1 got=%d", n)
	}

	mine, err := f.svc.MySubmission(f.ctx, student, a.ID)
	if err != nil {
		t.Fatalf("my submission: %v", err)
	}
	if mine.Status != models.SubmissionPending || mine.FileURL != "https://example.com/cli.zip" || mine.Text != "" {
		t.Fatalf("resubmitted row: %+v", mine)
	}
	if mine.Grade == nil || *mine.Grade != 62.5 {
		t.Fatalf("previous grade should stay visible: %v", mine.Grade)
	}
	if !mine.SubmittedAt.Equal(f.clock.Now()) {
		t.Fatalf("submitted_at: want=%v got=%v", f.clock.Now(), mine.SubmittedAt)
	}
}

func TestGradeSubmission(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	a, lesson := f.assignment(instructor)
	student := f.user("ada", models.RoleStudent)
	f.enroll(student, lesson.CourseID)
	sub, _, err := f.svc.SubmitAssignment(f.ctx, student, a.ID, SubmissionInput{Text: "done"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, g := range []float64{-1, 100.5} {
		g := g
		if _, err := f.svc.GradeSubmission(f.ctx, instructor, sub.ID, GradeInput{Grade: &g}); !errors.Is(err, ErrValidation) {
			t.Fatalf("grade %v: want ErrValidation got %v", g, err)
		}
	}
	if _, err := f.svc.GradeSubmission(f.ctx, instructor, sub.ID, GradeInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing grade: want ErrValidation got %v", err)
	}

	other := f.user("linus", models.RoleInstructor)
	full := 100.0
	if _, err := f.svc.GradeSubmission(f.ctx, other, sub.ID, GradeInput{Grade: &full}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign instructor: want ErrForbidden got %v", err)
	}

	graded, err := f.svc.GradeSubmission(f.ctx, instructor, sub.ID, GradeInput{Grade: &full, Feedback: "great"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.Status != models.SubmissionGraded || graded.GradedByID == nil || *graded.GradedByID != instructor.UserID {
		t.Fatalf("graded row: %+v", graded)
	}

	list, err := f.svc.ListSubmissions(f.ctx, instructor, a.ID)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(list) != 1 || list[0].Student == nil || list[0].Student.Username != "ada" {
		t.Fatalf("submission list: %+v", list)
	}
	if _, err := f.svc.ListSubmissions(f.ctx, student, a.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("student listing: want ErrForbidden got %v", err)
	}
}
