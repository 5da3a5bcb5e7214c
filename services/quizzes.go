package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cppla/eduvolve/engine"
	"github.com/cppla/eduvolve/models"
)

// QuizInput creates or replaces quiz settings. Nil thresholds take the defaults on create.
type QuizInput struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description"`
	PassingScore     *int   `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	TimeLimitMinutes *int   `json:"time_limit_minutes" validate:"omitempty,gte=1,lte=600"`
}

// AnswerInput is one option of a question.
type AnswerInput struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionInput creates or replaces a question together with its answers.
type QuestionInput struct {
	Text    string              `json:"text" validate:"required"`
	Type    models.QuestionType `json:"type" validate:"omitempty,oneof=MC TF"`
	Points  int                 `json:"points" validate:"omitempty,gte=1,lte=1000"`
	Order   *int                `json:"order" validate:"omitempty,gte=1"`
	Answers []AnswerInput       `json:"answers" validate:"required,min=2,max=10,dive"`
}

// SubmitQuizInput maps question IDs to the chosen answer IDs.
type SubmitQuizInput struct {
	Answers   engine.Selections `json:"answers"`
	StartedAt *time.Time        `json:"started_at"`
}

// AnswerView hides correctness from learners.
type AnswerView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// QuestionView is a question as shown to a learner.
type QuestionView struct {
	ID      uint                `json:"id"`
	Text    string              `json:"text"`
	Type    models.QuestionType `json:"type"`
	Points  int                 `json:"points"`
	Answers []AnswerView        `json:"answers"`
}

// QuizView is a quiz ready to be taken plus the learner's earlier attempts.
type QuizView struct {
	ID               uint                 `json:"id"`
	LessonID         uint                 `json:"lesson_id"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	PassingScore     int                  `json:"passing_score"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	TotalPoints      int                  `json:"total_points"`
	Questions        []QuestionView       `json:"questions"`
	Attempts         []models.QuizAttempt `json:"attempts,omitempty"`
}

// AttemptResult is a freshly scored attempt.
type AttemptResult struct {
	Attempt       models.QuizAttempt `json:"attempt"`
	Correct       map[uint]bool      `json:"correct"`
	PointsAwarded int                `json:"points_awarded"`
	Anomalies     []engine.Anomaly   `json:"anomalies,omitempty"`
}

// QuestionAnomaly points an operator at a question with zero or several correct answers.
type QuestionAnomaly struct {
	QuizID       uint               `json:"quiz_id"`
	QuizTitle    string             `json:"quiz_title"`
	QuestionID   uint               `json:"question_id"`
	QuestionText string             `json:"question_text"`
	Kind         engine.AnomalyKind `json:"kind"`
	CorrectCount int                `json:"correct_count"`
}

func orderedQuestions(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC, id ASC") }

func loadQuizWithQuestions(tx *gorm.DB, quizID uint) (*models.Quiz, error) {
	var q models.Quiz
	err := tx.Preload("Questions", orderedQuestions).
		Preload("Questions.Answers", orderedQuestions).
		First(&q, quizID).Error
	if err != nil {
		return nil, wrapDB(err, "quiz %d", quizID)
	}
	return &q, nil
}

func (s *Service) managedQuiz(tx *gorm.DB, actor Actor, quizID uint) (*models.Quiz, error) {
	var q models.Quiz
	if err := tx.First(&q, quizID).Error; err != nil {
		return nil, wrapDB(err, "quiz %d", quizID)
	}
	if _, _, err := s.managedLesson(tx, actor, q.LessonID); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuiz attaches the lesson's single quiz.
func (s *Service) CreateQuiz(ctx context.Context, actor Actor, lessonID uint, in QuizInput) (*models.Quiz, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Quiz
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if _, _, err := s.managedLesson(tx, actor, lessonID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Quiz{}).Where("lesson_id = ?", lessonID).Count(&n).Error; err != nil {
			return fmt.Errorf("check existing quiz: %w", err)
		}
		if n > 0 {
			return conflict("lesson %d already has a quiz", lessonID)
		}
		q := models.Quiz{
			LessonID:         lessonID,
			Title:            strings.TrimSpace(in.Title),
			Description:      in.Description,
			PassingScore:     models.DefaultPassingScore,
			TimeLimitMinutes: models.DefaultTimeLimitMinutes,
		}
		if in.PassingScore != nil {
			q.PassingScore = *in.PassingScore
		}
		if in.TimeLimitMinutes != nil {
			q.TimeLimitMinutes = *in.TimeLimitMinutes
		}
		if err := tx.Create(&q).Error; err != nil {
			return wrapDB(err, "create quiz")
		}
		out = &q
		return nil
	})
	return out, err
}

// UpdateQuiz replaces quiz settings; nil thresholds are left as they are.
func (s *Service) UpdateQuiz(ctx context.Context, actor Actor, quizID uint, in QuizInput) (*models.Quiz, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Quiz
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		q, err := s.managedQuiz(tx, actor, quizID)
		if err != nil {
			return err
		}
		q.Title, q.Description = strings.TrimSpace(in.Title), in.Description
		if in.PassingScore != nil {
			q.PassingScore = *in.PassingScore
		}
		if in.TimeLimitMinutes != nil {
			q.TimeLimitMinutes = *in.TimeLimitMinutes
		}
		if err := tx.Save(q).Error; err != nil {
			return wrapDB(err, "update quiz %d", quizID)
		}
		out = q
		return nil
	})
	return out, err
}

// DeleteQuiz removes a quiz with its questions and attempts.
func (s *Service) DeleteQuiz(ctx context.Context, actor Actor, quizID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		q, err := s.managedQuiz(tx, actor, quizID)
		if err != nil {
			return err
		}
		return tx.Delete(q).Error
	})
}

// ManageQuiz returns the full quiz, correctness flags included, with its anomalies.
func (s *Service) ManageQuiz(ctx context.Context, actor Actor, quizID uint) (*models.Quiz, []engine.Anomaly, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.managedQuiz(db, actor, quizID); err != nil {
		return nil, nil, err
	}
	q, err := loadQuizWithQuestions(db, quizID)
	if err != nil {
		return nil, nil, err
	}
	var anomalies []engine.Anomaly
	for _, qu := range q.Questions {
		if a, ok := engine.InspectQuestion(qu); ok {
			anomalies = append(anomalies, a)
		}
	}
	return q, anomalies, nil
}

func buildAnswers(in []AnswerInput) []models.Answer {
	out := make([]models.Answer, 0, len(in))
	for i, a := range in {
		out = append(out, models.Answer{Text: strings.TrimSpace(a.Text), IsCorrect: a.IsCorrect, Order: i + 1})
	}
	return out
}

func (s *Service) warnIfAnomalous(q models.Question) {
	if a, ok := engine.InspectQuestion(q); ok {
		s.log.Warn("question saved with unexpected correct answers",
			zap.Uint("quiz_id", q.QuizID),
			zap.Uint("question_id", q.ID),
			zap.String("kind", string(a.Kind)),
			zap.Int("correct_count", a.CorrectCount),
		)
	}
}

// CreateQuestion adds a question and its answers to a managed quiz.
func (s *Service) CreateQuestion(ctx context.Context, actor Actor, quizID uint, in QuestionInput) (*models.Question, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Question
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if _, err := s.managedQuiz(tx, actor, quizID); err != nil {
			return err
		}
		q := models.Question{QuizID: quizID, Text: in.Text, Type: in.Type, Points: in.Points, Answers: buildAnswers(in.Answers)}
		if q.Type == "" {
			q.Type = models.QuestionMultipleChoice
		}
		if q.Points == 0 {
			q.Points = 1
		}
		if in.Order != nil {
			q.Order = *in.Order
		} else {
			var last int
			if err := tx.Model(&models.Question{}).Where("quiz_id = ?", quizID).
				Select("COALESCE(MAX(sort_order), 0)").Scan(&last).Error; err != nil {
				return fmt.Errorf("next question order: %w", err)
			}
			q.Order = last + 1
		}
		if err := tx.Create(&q).Error; err != nil {
			return wrapDB(err, "create question")
		}
		s.warnIfAnomalous(q)
		out = &q
		return nil
	})
	return out, err
}

// UpdateQuestion replaces a question and all of its answers.
func (s *Service) UpdateQuestion(ctx context.Context, actor Actor, questionID uint, in QuestionInput) (*models.Question, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var out *models.Question
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.First(&q, questionID).Error; err != nil {
			return wrapDB(err, "question %d", questionID)
		}
		if _, err := s.managedQuiz(tx, actor, q.QuizID); err != nil {
			return err
		}
		q.Text = in.Text
		if in.Type != "" {
			q.Type = in.Type
		}
		if in.Points != 0 {
			q.Points = in.Points
		}
		if in.Order != nil {
			q.Order = *in.Order
		}
		if err := tx.Save(&q).Error; err != nil {
			return wrapDB(err, "update question %d", questionID)
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("replace answers: %w", err)
		}
		q.Answers = buildAnswers(in.Answers)
		for i := range q.Answers {
			q.Answers[i].QuestionID = q.ID
		}
		if err := tx.Create(&q.Answers).Error; err != nil {
			return fmt.Errorf("replace answers: %w", err)
		}
		s.warnIfAnomalous(q)
		out = &q
		return nil
	})
	return out, err
}

// DeleteQuestion removes a question and its answers.
func (s *Service) DeleteQuestion(ctx context.Context, actor Actor, questionID uint) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.First(&q, questionID).Error; err != nil {
			return wrapDB(err, "question %d", questionID)
		}
		if _, err := s.managedQuiz(tx, actor, q.QuizID); err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		return tx.Delete(&q).Error
	})
}

// quizCourse resolves the course a quiz belongs to.
func quizCourse(tx *gorm.DB, q *models.Quiz) (*models.Course, error) {
	var lesson models.Lesson
	if err := tx.First(&lesson, q.LessonID).Error; err != nil {
		return nil, wrapDB(err, "lesson %d", q.LessonID)
	}
	var c models.Course
	if err := tx.First(&c, lesson.CourseID).Error; err != nil {
		return nil, wrapDB(err, "course %d", lesson.CourseID)
	}
	return &c, nil
}

// GetQuiz shows a quiz without correctness flags. Students need an active
// enrollment in the quiz's course; staff who manage the course may preview it.
func (s *Service) GetQuiz(ctx context.Context, actor Actor, quizID uint) (*QuizView, error) {
	db := s.db.WithContext(ctx)
	q, err := loadQuizWithQuestions(db, quizID)
	if err != nil {
		return nil, err
	}
	course, err := quizCourse(db, q)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == models.RoleStudent:
		var n int64
		if err := db.Model(&models.Enrollment{}).
			Where("student_id = ? AND course_id = ? AND is_active = ?", actor.UserID, course.ID, true).
			Count(&n).Error; err != nil {
			return nil, fmt.Errorf("check enrollment: %w", err)
		}
		if n == 0 {
			return nil, notFound("active enrollment in course %d", course.ID)
		}
	case !canManage(actor, course):
		return nil, fmt.Errorf("quiz %d belongs to another instructor: %w", quizID, ErrForbidden)
	}

	view := &QuizView{
		ID:               q.ID,
		LessonID:         q.LessonID,
		Title:            q.Title,
		Description:      q.Description,
		PassingScore:     q.PassingScore,
		TimeLimitMinutes: q.TimeLimitMinutes,
		Questions:        make([]QuestionView, 0, len(q.Questions)),
	}
	for _, qu := range q.Questions {
		view.TotalPoints += qu.Points
		qv := QuestionView{ID: qu.ID, Text: qu.Text, Type: qu.Type, Points: qu.Points}
		for _, a := range qu.Answers {
			qv.Answers = append(qv.Answers, AnswerView{ID: a.ID, Text: a.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	if actor.Role == models.RoleStudent {
		if err := db.Where("student_id = ? AND quiz_id = ?", actor.UserID, q.ID).
			Order("submitted_at DESC").Find(&view.Attempts).Error; err != nil {
			return nil, fmt.Errorf("load attempts: %w", err)
		}
	}
	return view, nil
}

// SubmitQuiz scores a submission and appends an attempt. A passing attempt
// awards its earned points. Questions with zero or several correct answers are
// still scored, recorded on the attempt and logged for review.
func (s *Service) SubmitQuiz(ctx context.Context, actor Actor, quizID uint, in SubmitQuizInput) (*AttemptResult, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	var res AttemptResult
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		q, err := loadQuizWithQuestions(tx, quizID)
		if err != nil {
			return err
		}
		course, err := quizCourse(tx, q)
		if err != nil {
			return err
		}
		u, err := lockUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		if _, err := lockEnrollment(tx, u.ID, course.ID); err != nil {
			return err
		}

		sel := in.Answers
		if sel == nil {
			sel = engine.Selections{}
		}
		scored := engine.ScoreQuiz(q.PassingScore, q.Questions, sel)

		selJSON, err := json.Marshal(sel)
		if err != nil {
			return fmt.Errorf("encode selections: %w", err)
		}
		now := s.clock.Now()
		attempt := models.QuizAttempt{
			StudentID:    u.ID,
			QuizID:       q.ID,
			Score:        scored.Score,
			PointsEarned: scored.EarnedPoints,
			TotalPoints:  scored.TotalPoints,
			IsPassed:     scored.Passed,
			Selections:   datatypes.JSON(selJSON),
			StartedAt:    now,
			SubmittedAt:  now,
		}
		if in.StartedAt != nil && !in.StartedAt.After(now) {
			attempt.StartedAt = *in.StartedAt
		}
		if len(scored.Anomalies) > 0 {
			anJSON, err := json.Marshal(scored.Anomalies)
			if err != nil {
				return fmt.Errorf("encode anomalies: %w", err)
			}
			attempt.Anomalies = datatypes.JSON(anJSON)
			s.log.Warn("quiz scored with anomalous questions",
				zap.Uint("quiz_id", q.ID),
				zap.Uint("student_id", u.ID),
				zap.Any("anomalies", scored.Anomalies),
			)
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return wrapDB(err, "create quiz attempt")
		}

		res = AttemptResult{Attempt: attempt, Correct: scored.Correct, Anomalies: scored.Anomalies}
		if scored.Passed && scored.EarnedPoints > 0 {
			if err := s.awardPoints(tx, u, scored.EarnedPoints, "quiz passed"); err != nil {
				return err
			}
			res.PointsAwarded = scored.EarnedPoints
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetAttempt returns one of the actor's own attempts.
func (s *Service) GetAttempt(ctx context.Context, actor Actor, attemptID uint) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	err := s.db.WithContext(ctx).Preload("Quiz").
		Where("id = ? AND student_id = ?", attemptID, actor.UserID).
		First(&a).Error
	if err != nil {
		return nil, wrapDB(err, "quiz attempt %d", attemptID)
	}
	return &a, nil
}

// QuizAnomalies lists questions whose answer sets break the one-correct-answer
// rule. Admins see every quiz, instructors only their own courses.
func (s *Service) QuizAnomalies(ctx context.Context, actor Actor) ([]QuestionAnomaly, error) {
	if err := requireRole(actor, models.RoleAdmin, models.RoleInstructor); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.Quiz{}).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Answers", orderedQuestions)
	if actor.Role == models.RoleInstructor {
		q = q.Joins("JOIN lessons ON lessons.id = quizzes.lesson_id").
			Joins("JOIN courses ON courses.id = lessons.course_id").
			Where("courses.instructor_id = ?", actor.UserID)
	}
	var quizzes []models.Quiz
	if err := q.Order("quizzes.id ASC").Find(&quizzes).Error; err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}

	out := []QuestionAnomaly{}
	for _, quiz := range quizzes {
		for _, qu := range quiz.Questions {
			a, ok := engine.InspectQuestion(qu)
			if !ok {
				continue
			}
			out = append(out, QuestionAnomaly{
				QuizID:       quiz.ID,
				QuizTitle:    quiz.Title,
				QuestionID:   qu.ID,
				QuestionText: qu.Text,
				Kind:         a.Kind,
				CorrectCount: a.CorrectCount,
			})
		}
	}
	return out, nil
}
