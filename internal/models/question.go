package models

type QuestionKind string

const (
	QuestionMultipleChoice QuestionKind = "multiple_choice"
	QuestionIdentification QuestionKind = "identification"
	QuestionEnumeration    QuestionKind = "enumeration"
	QuestionEssay          QuestionKind = "essay"
	QuestionFileUpload     QuestionKind = "file_upload"
)

// Question is a quiz question embedded in an assignment. Questions have no
// lifecycle of their own; the owning assignment's jsonb column is the single
// source of truth. The ID stays stable across edits so answers can be
// correlated back to their question even after reordering.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Kind           QuestionKind `json:"kind"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswer  string       `json:"correct_answer,omitempty"`
	CorrectAnswers []string     `json:"correct_answers,omitempty"`
	Points         float64      `json:"points"`
	Order          int          `json:"order"`
}

// AutoGradable reports whether the question kind can be scored without a
// teacher. Essay and file-upload answers always need manual points.
func (q Question) AutoGradable() bool {
	switch q.Kind {
	case QuestionMultipleChoice, QuestionIdentification, QuestionEnumeration:
		return true
	default:
		return false
	}
}
