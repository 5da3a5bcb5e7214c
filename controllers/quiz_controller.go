package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/eduvolve/services"
	"github.com/cppla/eduvolve/utils"
)

// QuizController serves quiz authoring, taking and scoring.
type QuizController struct {
	svc *services.Service
}

// NewQuizController creates a QuizController.
func NewQuizController(svc *services.Service) *QuizController {
	return &QuizController{svc: svc}
}

func sanitizeQuestion(in *services.QuestionInput) {
	in.Text = utils.Sanitize(in.Text)
	for i := range in.Answers {
		in.Answers[i].Text = utils.SanitizePlain(in.Answers[i].Text)
	}
}

// CreateQuiz attaches a quiz to a lesson.
func (q *QuizController) CreateQuiz(ctx *gin.Context) {
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.QuizInput
	if !bindJSON(ctx, &req) {
		return
	}
	req.Title = utils.SanitizePlain(req.Title)
	req.Description = utils.Sanitize(req.Description)
	quiz, err := q.svc.CreateQuiz(ctx.Request.Context(), actor(ctx), lessonID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, quiz)
}

// UpdateQuiz replaces quiz settings.
func (q *QuizController) UpdateQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.QuizInput
	if !bindJSON(ctx, &req) {
		return
	}
	req.Title = utils.SanitizePlain(req.Title)
	req.Description = utils.Sanitize(req.Description)
	quiz, err := q.svc.UpdateQuiz(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, quiz)
}

// DeleteQuiz removes a quiz.
func (q *QuizController) DeleteQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := q.svc.DeleteQuiz(ctx.Request.Context(), actor(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}

// ManageQuiz returns the quiz with correctness flags and its anomalies.
func (q *QuizController) ManageQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	quiz, anomalies, err := q.svc.ManageQuiz(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"quiz": quiz, "anomalies": anomalies})
}

// CreateQuestion adds a question with its answers.
func (q *QuizController) CreateQuestion(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.QuestionInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeQuestion(&req)
	question, err := q.svc.CreateQuestion(ctx.Request.Context(), actor(ctx), quizID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, question)
}

// UpdateQuestion replaces a question and its answers.
func (q *QuizController) UpdateQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.QuestionInput
	if !bindJSON(ctx, &req) {
		return
	}
	sanitizeQuestion(&req)
	question, err := q.svc.UpdateQuestion(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, question)
}

// DeleteQuestion removes a question.
func (q *QuizController) DeleteQuestion(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := q.svc.DeleteQuestion(ctx.Request.Context(), actor(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": id})
}

// GetQuiz shows a quiz without correctness flags.
func (q *QuizController) GetQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := q.svc.GetQuiz(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// SubmitQuiz scores the student's answers.
func (q *QuizController) SubmitQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req services.SubmitQuizInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := q.svc.SubmitQuiz(ctx.Request.Context(), actor(ctx), id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if res.PointsAwarded > 0 {
		pointsChanged()
	}
	utils.Created(ctx, res)
}

// GetAttempt returns one of the caller's attempts.
func (q *QuizController) GetAttempt(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	attempt, err := q.svc.GetAttempt(ctx.Request.Context(), actor(ctx), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, attempt)
}
