package grading

import (
	"testing"

	"github.com/openlms/assignment-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcQuestion(id, correct string, points float64, options ...string) models.Question {
	return models.Question{
		ID:            id,
		Text:          "pick one",
		Kind:          models.QuestionMultipleChoice,
		Options:       options,
		CorrectAnswer: correct,
		Points:        points,
	}
}

func TestGrade_MultipleChoice(t *testing.T) {
	questions := []models.Question{mcQuestion("q1", "Paris", 2, "London", "Paris", "Rome")}

	t.Run("exact match", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "Paris"}})
		assert.Equal(t, 2.0, result.TotalScore)
		assert.Equal(t, 2.0, result.TotalPoints)
		require.Len(t, result.Answers, 1)
		require.NotNil(t, result.Answers[0].IsCorrect)
		assert.True(t, *result.Answers[0].IsCorrect)
		assert.Equal(t, 2.0, result.Answers[0].MaxPoints)
	})

	t.Run("match is case-insensitive and trimmed", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "  paris "}})
		assert.Equal(t, 2.0, result.TotalScore)
	})

	t.Run("option index resolves to option text", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "1"}})
		assert.Equal(t, 2.0, result.TotalScore)
	})

	t.Run("out-of-range index falls back to text compare", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "7"}})
		assert.Equal(t, 0.0, result.TotalScore)
		require.NotNil(t, result.Answers[0].IsCorrect)
		assert.False(t, *result.Answers[0].IsCorrect)
	})

	t.Run("wrong answer earns zero", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "Rome"}})
		assert.Equal(t, 0.0, result.TotalScore)
	})
}

func TestGrade_Identification(t *testing.T) {
	questions := []models.Question{{
		ID:            "q1",
		Kind:          models.QuestionIdentification,
		CorrectAnswer: "paris",
		Points:        1,
	}}

	result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "Paris "}})
	assert.Equal(t, 1.0, result.TotalScore)
	require.NotNil(t, result.Answers[0].IsCorrect)
	assert.True(t, *result.Answers[0].IsCorrect)

	result = Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "London"}})
	assert.Equal(t, 0.0, result.TotalScore)
}

func TestGrade_Enumeration(t *testing.T) {
	questions := []models.Question{{
		ID:             "q1",
		Kind:           models.QuestionEnumeration,
		CorrectAnswers: []string{"a", "b", "c"},
		Points:         3,
	}}

	t.Run("partial credit is proportional", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answers: []string{"a", "b"}}})
		assert.InDelta(t, 2.0, result.TotalScore, 1e-9) // (2/3) * 3
		require.NotNil(t, result.Answers[0].IsCorrect)
		assert.False(t, *result.Answers[0].IsCorrect)
	})

	t.Run("full credit in any order", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answers: []string{"c", "A", " b "}}})
		assert.InDelta(t, 3.0, result.TotalScore, 1e-9)
		assert.True(t, *result.Answers[0].IsCorrect)
	})

	t.Run("wrong entries earn nothing", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answers: []string{"x", "y", "z"}}})
		assert.Equal(t, 0.0, result.TotalScore)
		assert.False(t, *result.Answers[0].IsCorrect)
	})

	t.Run("duplicates each count but block full correctness", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answers: []string{"a", "a", "b"}}})
		assert.InDelta(t, 3.0, result.TotalScore, 1e-9) // 3 matching entries out of 3 expected
		assert.False(t, *result.Answers[0].IsCorrect)   // membership matches, counts do not
	})

	t.Run("extra entry blocks full correctness", func(t *testing.T) {
		result := Grade(questions, []models.Answer{{QuestionID: "q1", Answers: []string{"a", "b", "c", "d"}}})
		assert.InDelta(t, 3.0, result.TotalScore, 1e-9)
		assert.False(t, *result.Answers[0].IsCorrect)
	})

	t.Run("empty correct set scores zero", func(t *testing.T) {
		empty := []models.Question{{ID: "q1", Kind: models.QuestionEnumeration, Points: 5}}
		result := Grade(empty, []models.Answer{{QuestionID: "q1", Answers: []string{"a"}}})
		assert.Equal(t, 0.0, result.TotalScore)
		assert.Equal(t, 5.0, result.TotalPoints)
		assert.False(t, *result.Answers[0].IsCorrect)
	})
}

func TestGrade_ManualKindsStayUngraded(t *testing.T) {
	questions := []models.Question{
		{ID: "q1", Kind: models.QuestionEssay, Points: 10},
		{ID: "q2", Kind: models.QuestionFileUpload, Points: 5},
	}
	answers := []models.Answer{
		{QuestionID: "q1", Answer: "a long essay"},
		{QuestionID: "q2", Files: []models.FileRef{{ID: "f1", URL: "https://cdn/f1"}}},
	}

	result := Grade(questions, answers)
	assert.Equal(t, 0.0, result.TotalScore)
	assert.Equal(t, 15.0, result.TotalPoints)
	for _, a := range result.Answers {
		assert.Nil(t, a.IsCorrect)
		assert.Equal(t, 0.0, a.Points)
	}
}

func TestGrade_MatchesByQuestionIDNotPosition(t *testing.T) {
	questions := []models.Question{
		mcQuestion("q1", "red", 1),
		mcQuestion("q2", "blue", 1),
	}
	// Answers supplied in reverse order still land on the right questions.
	answers := []models.Answer{
		{QuestionID: "q2", Answer: "blue"},
		{QuestionID: "q1", Answer: "green"},
	}

	result := Grade(questions, answers)
	assert.Equal(t, 1.0, result.TotalScore)
	assert.Equal(t, "q1", result.Answers[0].QuestionID)
	assert.False(t, *result.Answers[0].IsCorrect)
	assert.True(t, *result.Answers[1].IsCorrect)
}

func TestGrade_MissingAnswerTreatedAsEmpty(t *testing.T) {
	questions := []models.Question{
		mcQuestion("q1", "red", 1),
		mcQuestion("q2", "blue", 1),
	}

	result := Grade(questions, []models.Answer{{QuestionID: "q1", Answer: "red"}})
	assert.Equal(t, 1.0, result.TotalScore)
	assert.Equal(t, 2.0, result.TotalPoints)
	require.Len(t, result.Answers, 2)
	assert.False(t, *result.Answers[1].IsCorrect)
}

func TestGrade_FullMarksWhenAllObjectiveAnswersCorrect(t *testing.T) {
	questions := []models.Question{
		mcQuestion("q1", "red", 2),
		{ID: "q2", Kind: models.QuestionIdentification, CorrectAnswer: "go", Points: 3},
		{ID: "q3", Kind: models.QuestionEnumeration, CorrectAnswers: []string{"x", "y"}, Points: 4},
	}
	answers := []models.Answer{
		{QuestionID: "q1", Answer: "red"},
		{QuestionID: "q2", Answer: "Go"},
		{QuestionID: "q3", Answers: []string{"y", "x"}},
	}

	result := Grade(questions, answers)
	assert.InDelta(t, 9.0, result.TotalScore, 1e-9)
	assert.Equal(t, result.TotalPoints, result.TotalScore)
}

func TestApply(t *testing.T) {
	questions := []models.Question{mcQuestion("q1", "red", 2)}
	answers := []models.Answer{
		{QuestionID: "q1", Answer: "red"},
		{QuestionID: "deleted-question", Answer: "whatever", Points: 9},
	}

	merged := Apply(Grade(questions, answers), answers)

	require.NotNil(t, merged[0].IsCorrect)
	assert.True(t, *merged[0].IsCorrect)
	assert.Equal(t, 2.0, merged[0].Points)
	assert.Equal(t, 2.0, merged[0].MaxPoints)

	// An answer referencing a question no longer on the assignment is left
	// ungraded with zero points.
	assert.Nil(t, merged[1].IsCorrect)
	assert.Equal(t, 0.0, merged[1].Points)
}
