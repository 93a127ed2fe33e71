package postgres

import (
	"context"
	"fmt"

	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

// Create inserts a new submission. The unique index on
// (assignment_id, student_id) makes a concurrent double-submit surface as a
// duplicate-key error rather than a second row.
func (s *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by ID including the student
func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ctx).
		Preload("Student").
		First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetByAssignmentAndStudent retrieves the single submission for the pair
func (s *SubmissionPostgreSQL) GetByAssignmentAndStudent(ctx context.Context, assignmentID uint, studentID string) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// Update persists in-place mutations (resubmission, grading)
func (s *SubmissionPostgreSQL) Update(ctx context.Context, submission *models.Submission) error {
	if err := s.db.WithContext(ctx).Save(submission).Error; err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return nil
}

// GetByAssignment retrieves all submissions for an assignment with filtering
func (s *SubmissionPostgreSQL) GetByAssignment(ctx context.Context, assignmentID uint, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID)

	if filters.IsGraded != nil {
		query = query.Where("is_graded = ?", *filters.IsGraded)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	query = applySorting(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"submitted_at": true, "graded_at": true, "grade": true,
	})
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var submissions []*models.Submission
	if err := query.Preload("Student").Find(&submissions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, total, nil
}

// GetByStudentAndLesson retrieves a student's submissions across every
// assignment in a lesson
func (s *SubmissionPostgreSQL) GetByStudentAndLesson(ctx context.Context, studentID string, lessonID uint) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := s.db.WithContext(ctx).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("submissions.student_id = ? AND assignments.lesson_id = ?", studentID, lessonID).
		Preload("Assignment").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions by lesson: %w", err)
	}
	return submissions, nil
}
