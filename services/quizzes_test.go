package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
)

type quizSetup struct {
	quiz      *models.Quiz
	questions []*models.Question
	lesson    models.Lesson
	instructor   Actor
}

// newQuiz builds a quiz with four one-point questions whose first answer is correct.
func (f *fixture) newQuiz(instructor Actor) quizSetup {
	f.t.Helper()
	_, lessons := f.course(instructor, 1)
	quiz, err := f.svc.CreateQuiz(f.ctx, instructor, lessons[0].ID, QuizInput{Title: "Checkpoint"})
	if err != nil {
		f.t.Fatalf("create quiz: %v", err)
	}
	setup := quizSetup{quiz: quiz, lesson: lessons[0], instructor: instructor}
	for i := 0; i < 4; i++ {
		q, err := f.svc.CreateQuestion(f.ctx, instructor, quiz.ID, QuestionInput{
			Text: "Which one?",
			Answers: []AnswerInput{
				{Text: "right", IsCorrect: true},
				{Text: "wrong"},
			},
		})
		if err != nil {
			f.t.Fatalf("create question %d: %v", i, err)
		}
		setup.questions = append(setup.questions, q)
	}
	return setup
}

func right(q *models.Question) uint { return q.Answers[0].ID }
func wrong(q *models.Question) uint { return q.Answers[1].ID }

func TestCreateQuizDefaultsAndSingleQuizPerLesson(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	_, lessons := f.course(instructor, 2)

	q, err := f.svc.CreateQuiz(f.ctx, instructor, lessons[0].ID, QuizInput{Title: "Defaults"})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if q.PassingScore != models.DefaultPassingScore || q.TimeLimitMinutes != models.DefaultTimeLimitMinutes {
		t.Fatalf("defaults: got %d/%d", q.PassingScore, q.TimeLimitMinutes)
	}
	if _, err := f.svc.CreateQuiz(f.ctx, instructor, lessons[0].ID, QuizInput{Title: "Again"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second quiz: want ErrConflict got %v", err)
	}

	zero := 0
	open, err := f.svc.CreateQuiz(f.ctx, instructor, lessons[1].ID, QuizInput{Title: "Open", PassingScore: &zero})
	if err != nil {
		t.Fatalf("create quiz with zero threshold: %v", err)
	}
	var stored models.Quiz
	f.db.First(&stored, open.ID)
	if stored.PassingScore != 0 {
		t.Fatalf("passing score 0 must be stored, got %d", stored.PassingScore)
	}

	other := f.user("linus", models.RoleInstructor)
	if _, err := f.svc.UpdateQuiz(f.ctx, other, q.ID, QuizInput{Title: "Mine"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign instructor: want ErrForbidden got %v", err)
	}
}

func TestSubmitQuizScoresAndAwardsPoints(t *testing.T) {
	f := newFixture(t)
	setup := f.newQuiz(f.user("grace", models.RoleInstructor))
	student := f.user("ada", models.RoleStudent)
	f.enroll(student, setup.lesson.CourseID)
	before := f.reload(student).TotalPoints

	qs := setup.questions
	res, err := f.svc.SubmitQuiz(f.ctx, student, setup.quiz.ID, SubmitQuizInput{Answers: engine.Selections{
		qs[0].ID: right(qs[0]),
		qs[1].ID: right(qs[1]),
		qs[2].ID: right(qs[2]),
		qs[3].ID: wrong(qs[3]),
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Attempt.Score != 75 || !res.Attempt.IsPassed {
		t.Fatalf("attempt: want 75 passed got %v %v", res.Attempt.Score, res.Attempt.IsPassed)
	}
	if res.PointsAwarded != 3 {
		t.Fatalf("points awarded: want=3 got=%d", res.PointsAwarded)
	}
	if got := f.reload(student).TotalPoints; got != before+3 {
		t.Fatalf("total points: want=%d got=%d", before+3, got)
	}
	if res.Correct[qs[3].ID] || !res.Correct[qs[0].ID] {
		t.Fatalf("correct map: %v", res.Correct)
	}

	var sel engine.Selections
	if err := json.Unmarshal(res.Attempt.Selections, &sel); err != nil {
		t.Fatalf("decode selections: %v", err)
	}
	if sel[qs[3].ID] != wrong(qs[3]) {
		t.Fatalf("selections not stored: %v", sel)
	}
}

func TestFailingAttemptAwardsNothingAndAttemptsAppend(t *testing.T) {
	f := newFixture(t)
	setup := f.newQuiz(f.user("grace", models.RoleInstructor))
	student := f.user("ada", models.RoleStudent)
	f.enroll(student, setup.lesson.CourseID)
	before := f.reload(student).TotalPoints

	qs := setup.questions
	for i := 0; i < 2; i++ {
		res, err := f.svc.SubmitQuiz(f.ctx, student, setup.quiz.ID, SubmitQuizInput{Answers: engine.Selections{
			qs[0].ID: right(qs[0]),
		}})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if res.Attempt.IsPassed || res.PointsAwarded != 0 {
			t.Fatalf("attempt %d should fail without points: %+v", i, res)
		}
	}
	if got := f.reload(student).TotalPoints; got != before {
		t.Fatalf("total points changed: want=%d got=%d", before, got)
	}
	if n := f.count(&models.QuizAttempt{}, "student_id = ?", student.UserID); n != 2 {
		t.Fatalf("attempts: want=2 got=%d", n)
	}

	view, err := f.svc.GetQuiz(f.ctx, student, setup.quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(view.Attempts) != 2 || view.TotalPoints != 4 || len(view.Questions) != 4 {
		t.Fatalf("quiz view: attempts=%d total=%d questions=%d", len(view.Attempts), view.TotalPoints, len(view.Questions))
	}
}

func TestSubmitQuizRequiresEnrollment(t *testing.T) {
	f := newFixture(t)
	setup := f.newQuiz(f.user("grace", models.RoleInstructor))
	student := f.user("ada", models.RoleStudent)

	if _, err := f.svc.SubmitQuiz(f.ctx, student, setup.quiz.ID, SubmitQuizInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("not enrolled: want ErrNotFound got %v", err)
	}
	if _, err := f.svc.GetQuiz(f.ctx, student, setup.quiz.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("view not enrolled: want ErrNotFound got %v", err)
	}
	if _, err := f.svc.SubmitQuiz(f.ctx, setup.instructor, setup.quiz.ID, SubmitQuizInput{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructor submit: want ErrForbidden got %v", err)
	}
	if _, err := f.svc.GetQuiz(f.ctx, setup.instructor, setup.quiz.ID); err != nil {
		t.Fatalf("owner preview: %v", err)
	}
	other := f.user("linus", models.RoleInstructor)
	if _, err := f.svc.GetQuiz(f.ctx, other, setup.quiz.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign preview: want ErrForbidden got %v", err)
	}
}

func TestAnomalousQuestionsAreScoredAndReported(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	setup := f.newQuiz(instructor)
	student := f.user("ada", models.RoleStudent)
	f.enroll(student, setup.lesson.CourseID)

	none, err := f.svc.CreateQuestion(f.ctx, instructor, setup.quiz.ID, QuestionInput{
		Text:    "Broken",
		Answers: []AnswerInput{{Text: "a"}, {Text: "b"}},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	both, err := f.svc.CreateQuestion(f.ctx, instructor, setup.quiz.ID, QuestionInput{
		Text:    "Ambiguous",
		Answers: []AnswerInput{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	res, err := f.svc.SubmitQuiz(f.ctx, student, setup.quiz.ID, SubmitQuizInput{Answers: engine.Selections{
		none.ID: none.Answers[0].ID,
		both.ID: both.Answers[1].ID,
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct[both.ID] || res.Correct[none.ID] {
		t.Fatalf("correct map: %v", res.Correct)
	}
	if len(res.Anomalies) != 2 || res.Anomalies[0].Kind != engine.AnomalyNoCorrectAnswer {
		t.Fatalf("anomalies: %+v", res.Anomalies)
	}
	var stored []engine.Anomaly
	if err := json.Unmarshal(res.Attempt.Anomalies, &stored); err != nil || len(stored) != 2 {
		t.Fatalf("attempt anomalies: %v %v", stored, err)
	}

	list, err := f.svc.QuizAnomalies(f.ctx, instructor)
	if err != nil {
		t.Fatalf("list anomalies: %v", err)
	}
	if len(list) != 2 || list[1].Kind != engine.AnomalyMultipleCorrect || list[1].CorrectCount != 2 {
		t.Fatalf("anomaly report: %+v", list)
	}
	other := f.user("linus", models.RoleInstructor)
	if list, err := f.svc.QuizAnomalies(f.ctx, other); err != nil || len(list) != 0 {
		t.Fatalf("foreign instructor report: %v %v", list, err)
	}
	admin := f.user("root", models.RoleAdmin)
	if list, err := f.svc.QuizAnomalies(f.ctx, admin); err != nil || len(list) != 2 {
		t.Fatalf("admin report: %v %v", list, err)
	}
	if _, err := f.svc.QuizAnomalies(f.ctx, student); !errors.Is(err, ErrForbidden) {
		t.Fatalf("student report: want ErrForbidden got %v", err)
	}
}

func TestUpdateQuestionReplacesAnswers(t *testing.T) {
	f := newFixture(t)
	instructor := f.user("grace", models.RoleInstructor)
	setup := f.newQuiz(instructor)
	q := setup.questions[0]

	updated, err := f.svc.UpdateQuestion(f.ctx, instructor, q.ID, QuestionInput{
		Text:   "Pick the prime",
		Points: 5,
		Answers: []AnswerInput{
			{Text: "4"},
			{Text: "6"},
			{Text: "7", IsCorrect: true},
		},
	})
	if err != nil {
		t.Fatalf("update question: %v", err)
	}
	if updated.Points != 5 || len(updated.Answers) != 3 {
		t.Fatalf("updated question: %+v", updated)
	}
	if n := f.count(&models.Answer{}, "question_id = ?", q.ID); n != 3 {
		t.Fatalf("answers: want=3 got=%d", n)
	}
	if _, err := f.svc.CreateQuestion(f.ctx, instructor, setup.quiz.ID, QuestionInput{
		Text:    "Too few",
		Answers: []AnswerInput{{Text: "only", IsCorrect: true}},
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("single answer: want ErrValidation got %v", err)
	}
}

func TestGetAttemptOwnOnly(t *testing.T) {
	f := newFixture(t)
	setup := f.newQuiz(f.user("grace", models.RoleInstructor))
	ada := f.user("ada", models.RoleStudent)
	bob := f.user("bob", models.RoleStudent)
	f.enroll(ada, setup.lesson.CourseID)

	res, err := f.svc.SubmitQuiz(f.ctx, ada, setup.quiz.ID, SubmitQuizInput{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Attempt.Score != 0 || res.Attempt.IsPassed {
		t.Fatalf("blank submission: %+v", res.Attempt)
	}
	if _, err := f.svc.GetAttempt(f.ctx, ada, res.Attempt.ID); err != nil {
		t.Fatalf("own attempt: %v", err)
	}
	if _, err := f.svc.GetAttempt(f.ctx, bob, res.Attempt.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign attempt: want ErrNotFound got %v", err)
	}
}
