package engine

import (
	"sort"

	"github.com/cppla/eduvolve/models"
)

// Selections maps a question ID to the answer ID the student picked.
type Selections map[uint]uint

// AnomalyKind names a data problem detected while scoring.
type AnomalyKind string

const (
	AnomalyNoCorrectAnswer AnomalyKind = "no_correct_answer"
	AnomalyMultipleCorrect AnomalyKind = "multiple_correct_answers"
)

// Anomaly flags a question whose answer set breaks the one-correct-answer rule.
type Anomaly struct {
	QuestionID   uint        `json:"question_id"`
	Kind         AnomalyKind `json:"kind"`
	CorrectCount int         `json:"correct_count"`
}

// QuizResult is the outcome of scoring one submission.
type QuizResult struct {
	TotalPoints  int
	EarnedPoints int
	Score        float64
	Passed       bool
	Correct      map[uint]bool
	Anomalies    []Anomaly
}

// InspectQuestion reports whether q has zero or several correct answers.
func InspectQuestion(q models.Question) (Anomaly, bool) {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	switch {
	case n == 0:
		return Anomaly{QuestionID: q.ID, Kind: AnomalyNoCorrectAnswer}, true
	case n > 1:
		return Anomaly{QuestionID: q.ID, Kind: AnomalyMultipleCorrect, CorrectCount: n}, true
	default:
		return Anomaly{}, false
	}
}

// ScoreQuiz grades selections against questions. A question earns its points
// when the selected answer belongs to it and is marked correct, so a question
// with several correct answers credits any of them and one with none can never
// be earned. Selections for unknown questions or foreign answers are ignored.
// An empty quiz scores 0 and does not pass.
func ScoreQuiz(passingScore int, questions []models.Question, sel Selections) QuizResult {
	res := QuizResult{Correct: make(map[uint]bool, len(questions))}

	for _, q := range questions {
		res.TotalPoints += q.Points
		if a, ok := InspectQuestion(q); ok {
			res.Anomalies = append(res.Anomalies, a)
		}

		picked, ok := sel[q.ID]
		if !ok {
			res.Correct[q.ID] = false
			continue
		}
		hit := false
		for _, a := range q.Answers {
			if a.ID == picked && a.IsCorrect {
				hit = true
				break
			}
		}
		res.Correct[q.ID] = hit
		if hit {
			res.EarnedPoints += q.Points
		}
	}

	if res.TotalPoints > 0 {
		res.Score = float64(res.EarnedPoints*100) / float64(res.TotalPoints)
		res.Passed = res.Score >= float64(passingScore)
	}
	sort.Slice(res.Anomalies, func(i, j int) bool { return res.Anomalies[i].QuestionID < res.Anomalies[j].QuestionID })
	return res
}
