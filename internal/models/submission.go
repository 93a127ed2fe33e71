package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Answer is one student response to one question, embedded in a submission.
// IsCorrect is tri-state: nil means "not auto-gradable / not yet graded"
// (essay and file-upload answers), distinct from an explicit false.
type Answer struct {
	QuestionID string    `json:"question_id"`
	Answer     string    `json:"answer,omitempty"`
	Answers    []string  `json:"answers,omitempty"`
	Files      []FileRef `json:"files,omitempty"`

	IsCorrect *bool   `json:"is_correct,omitempty"`
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Feedback  *string `json:"feedback,omitempty"`
}

// Submission is one student's attempt at an assignment. Exactly one row
// exists per (assignment, student) pair; resubmissions mutate it in place
// and keep a single-depth snapshot of the attempt they replaced.
type Submission struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	AssignmentID uint   `json:"assignment_id" gorm:"not null;uniqueIndex:idx_submissions_assignment_student"`
	StudentID    string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_submissions_assignment_student"`

	Content string                       `json:"content" gorm:"type:text"`
	Answers datatypes.JSONSlice[Answer]  `json:"answers" gorm:"type:jsonb"`
	Files   datatypes.JSONSlice[FileRef] `json:"files" gorm:"type:jsonb"`

	// Grading state. TotalPoints is a snapshot of the points scale at
	// grading time and may drift from the assignment if its questions are
	// edited later.
	Grade       *float64   `json:"grade"`
	TotalPoints float64    `json:"total_points"`
	Feedback    *string    `json:"feedback"`
	IsGraded    bool       `json:"is_graded"`
	AutoGraded  bool       `json:"auto_graded"`
	GradedAt    *time.Time `json:"graded_at"`

	SubmittedAt   time.Time  `json:"submitted_at"`
	Resubmitted   bool       `json:"resubmitted"`
	ResubmittedAt *time.Time `json:"resubmitted_at"`

	// Single-slot history: overwritten, never appended, on each
	// resubmission. Only the immediately preceding attempt is retained.
	PreviousContent *string                      `json:"previous_content,omitempty"`
	PreviousAnswers datatypes.JSONSlice[Answer]  `json:"previous_answers,omitempty" gorm:"type:jsonb"`
	PreviousFiles   datatypes.JSONSlice[FileRef] `json:"previous_files,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Assignment Assignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
	Student    User       `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

func (Submission) TableName() string {
	return "submissions"
}

// AnswerByQuestionID returns a pointer into the answers slice for in-place
// grading edits.
func (s *Submission) AnswerByQuestionID(questionID string) *Answer {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}
