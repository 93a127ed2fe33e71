package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssignmentKind string

const (
	KindMiniProject  AssignmentKind = "mini_project"
	KindMajorProject AssignmentKind = "major_project"
	KindQuiz         AssignmentKind = "quiz"
	KindAssignment   AssignmentKind = "assignment"
	KindEssay        AssignmentKind = "essay"
)

// FileRef is an opaque reference to an uploaded attachment. The binary lives
// in external storage; only the storage id and public URL are persisted.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

type Assignment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string        `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Kind        AssignmentKind `json:"kind" gorm:"not null;size:20;index" validate:"required,assignment_kind"`
	LessonID    *uint          `json:"lesson_id" gorm:"index"`
	DueDate     *time.Time     `json:"due_date"`

	// Questions are embedded documents, only meaningful for quizzes.
	// TotalPoints is derived from them and recomputed on every question
	// change; it must always equal the sum of the question point values.
	Questions   datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb"`
	TotalPoints float64                       `json:"total_points"`

	AllowAutomaticGrading bool `json:"allow_automatic_grading"`
	AllowResubmission     bool `json:"allow_resubmission"`

	Attachments datatypes.JSONSlice[FileRef] `json:"attachments" gorm:"type:jsonb"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Creator User `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsQuiz reports whether the assignment carries gradable questions.
func (a *Assignment) IsQuiz() bool {
	return a.Kind == KindQuiz
}

// QuestionByID looks a question up by its stable id. Lookup is by id, never
// by position, so reordering questions between submission and grading is
// harmless.
func (a *Assignment) QuestionByID(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
