package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/openlms/assignment-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type AssignmentFilters struct {
	Kind      *models.AssignmentKind `json:"kind"`
	LessonID  *uint                  `json:"lesson_id"`
	CreatedBy *string                `json:"created_by"`
	DateFrom  *time.Time             `json:"date_from"`
	DateTo    *time.Time             `json:"date_to"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
	SortBy    string                 `json:"sort_by"`    // "created_at", "title", "due_date"
	SortOrder string                 `json:"sort_order"` // "asc", "desc"
}

type SubmissionFilters struct {
	IsGraded  *bool   `json:"is_graded"`
	StudentID *string `json:"student_id"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

// ===== REPOSITORY INTERFACES =====

// AssignmentRepository covers assignment persistence.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error // Soft delete
	List(ctx context.Context, filters AssignmentFilters) ([]*models.Assignment, int64, error)
}

// SubmissionRepository covers submission persistence. Create relies on the
// storage-level unique index on (assignment_id, student_id); callers detect
// the double-submit race through IsDuplicateKeyError.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID uint, studentID string) (*models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	GetByAssignment(ctx context.Context, assignmentID uint, filters SubmissionFilters) ([]*models.Submission, int64, error)
	GetByStudentAndLesson(ctx context.Context, studentID string, lessonID uint) ([]*models.Submission, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

// Repository aggregates the per-aggregate repositories.
type Repository interface {
	Assignment() AssignmentRepository
	Submission() SubmissionRepository
	User() UserRepository
}

// ===== ERROR CLASSIFICATION =====

// IsNotFoundError reports whether err is the storage layer's record-missing error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a unique-constraint violation.
// Requires gorm's error translation to be enabled on the connection.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
