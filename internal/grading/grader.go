// Package grading implements automatic quiz scoring. It is a pure,
// stateless package: callers pass the assignment's questions and the
// student's answers and get back per-question results plus totals, with no
// repository or clock access. Callers must guard with Assignment.IsQuiz();
// grading a non-quiz question list is meaningless.
package grading

import (
	"strconv"
	"strings"

	"github.com/openlms/assignment-service/internal/models"
)

// AnswerResult is the per-question outcome of auto-grading.
type AnswerResult struct {
	QuestionID string  `json:"question_id"`
	IsCorrect  *bool   `json:"is_correct"`
	Points     float64 `json:"points"`
	MaxPoints  float64 `json:"max_points"`
}

// Result holds the outcome of grading one submission against one
// assignment's question list.
type Result struct {
	TotalScore  float64        `json:"total_score"`
	TotalPoints float64        `json:"total_points"`
	Answers     []AnswerResult `json:"answers"`
}

// Grade scores the given answers against the question list. Answers are
// matched to questions by question id, never by position. A question with no
// matching answer is scored against an empty answer. Score accumulation uses
// unrounded float arithmetic; rounding is a display concern.
func Grade(questions []models.Question, answers []models.Answer) Result {
	byQuestion := make(map[string]models.Answer, len(answers))
	for _, a := range answers {
		if _, seen := byQuestion[a.QuestionID]; !seen {
			byQuestion[a.QuestionID] = a
		}
	}

	result := Result{Answers: make([]AnswerResult, 0, len(questions))}
	for _, q := range questions {
		answer := byQuestion[q.ID] // zero value when the student skipped it
		graded := gradeOne(q, answer)
		result.TotalPoints += q.Points
		result.TotalScore += graded.Points
		result.Answers = append(result.Answers, graded)
	}

	return result
}

// Apply merges an auto-grading result onto submitted answers in place,
// matching by question id. Answers whose question id is absent from the
// result (stale or unknown ids) stay ungraded with zero points.
func Apply(result Result, answers []models.Answer) []models.Answer {
	byQuestion := make(map[string]AnswerResult, len(result.Answers))
	for _, r := range result.Answers {
		byQuestion[r.QuestionID] = r
	}

	for i := range answers {
		r, ok := byQuestion[answers[i].QuestionID]
		if !ok {
			answers[i].IsCorrect = nil
			answers[i].Points = 0
			continue
		}
		answers[i].IsCorrect = r.IsCorrect
		answers[i].Points = r.Points
		answers[i].MaxPoints = r.MaxPoints
	}

	return answers
}

func gradeOne(q models.Question, a models.Answer) AnswerResult {
	graded := AnswerResult{QuestionID: q.ID, MaxPoints: q.Points}

	switch q.Kind {
	case models.QuestionMultipleChoice:
		correct := equalsCorrectChoice(q, a.Answer)
		graded.IsCorrect = &correct
		if correct {
			graded.Points = q.Points
		}

	case models.QuestionIdentification:
		correct := normalize(a.Answer) == normalize(q.CorrectAnswer)
		graded.IsCorrect = &correct
		if correct {
			graded.Points = q.Points
		}

	case models.QuestionEnumeration:
		graded.Points, graded.IsCorrect = gradeEnumeration(q, a.Answers)

	default:
		// essay, file_upload: a teacher assigns points manually.
	}

	return graded
}

// equalsCorrectChoice matches a multiple-choice answer against the expected
// one. The submitted value may be the option text or a numeric option index;
// an in-range index is resolved to its option text before comparing.
func equalsCorrectChoice(q models.Question, answer string) bool {
	value := answer
	if idx, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil && idx >= 0 && idx < len(q.Options) {
		value = q.Options[idx]
	}
	return normalize(value) == normalize(q.CorrectAnswer)
}

// gradeEnumeration awards partial credit proportional to the number of
// student entries found in the correct set. Student duplicates are not
// de-duplicated; each matching entry counts. Full correctness additionally
// requires the entry counts to match exactly.
func gradeEnumeration(q models.Question, answers []string) (float64, *bool) {
	correctSet := make(map[string]struct{}, len(q.CorrectAnswers))
	for _, c := range q.CorrectAnswers {
		correctSet[normalize(c)] = struct{}{}
	}

	correctCount := 0
	for _, a := range answers {
		if _, ok := correctSet[normalize(a)]; ok {
			correctCount++
		}
	}

	// Guard the divide-by-zero: an enumeration with no expected entries is
	// worth nothing regardless of what the student supplied.
	points := 0.0
	if len(q.CorrectAnswers) > 0 {
		points = float64(correctCount) / float64(len(q.CorrectAnswers)) * q.Points
	}
	correct := correctCount == len(q.CorrectAnswers) && len(answers) == len(q.CorrectAnswers)
	return points, &correct
}

// normalize applies the matching rules shared by all objective question
// kinds: surrounding whitespace is ignored and comparison is
// case-insensitive.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
