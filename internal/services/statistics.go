package services

import (
	"context"
	"fmt"
	"time"

	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
)

const statsCacheTTL = 2 * time.Minute

// GradeDistribution buckets graded submissions by raw score.
type GradeDistribution struct {
	Excellent        int `json:"excellent"`         // >= 90
	Good             int `json:"good"`              // [80, 90)
	Satisfactory     int `json:"satisfactory"`      // [70, 80)
	NeedsImprovement int `json:"needs_improvement"` // < 70
	Ungraded         int `json:"ungraded"`
}

// SubmissionStats summarizes submissions for one assignment. Average covers
// graded submissions only; buckets use the raw stored grade, not a
// percentage of total points.
type SubmissionStats struct {
	AssignmentID uint                 `json:"assignment_id"`
	Total        int                  `json:"total"`
	Graded       int                  `json:"graded"`
	Ungraded     int                  `json:"ungraded"`
	Average      float64              `json:"average"`
	Distribution GradeDistribution    `json:"distribution"`
	Submissions  []*models.Submission `json:"submissions"`
}

func (s *submissionService) Statistics(ctx context.Context, assignmentID uint, actor models.Principal) (*SubmissionStats, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if err := s.canGrade(assignment, actor); err != nil {
		return nil, err
	}

	cacheKey := statsCacheKey(assignmentID)
	var cached SubmissionStats
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	submissions, _, err := s.repo.Submission().GetByAssignment(ctx, assignmentID, repositories.SubmissionFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	stats := computeStats(assignmentID, submissions)

	if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
		s.logger.Warn("Failed to cache statistics", "assignment_id", assignmentID, "error", err)
	}

	return stats, nil
}

func computeStats(assignmentID uint, submissions []*models.Submission) *SubmissionStats {
	stats := &SubmissionStats{
		AssignmentID: assignmentID,
		Total:        len(submissions),
		Submissions:  submissions,
	}

	var sum float64
	for _, sub := range submissions {
		if !sub.IsGraded || sub.Grade == nil {
			stats.Ungraded++
			stats.Distribution.Ungraded++
			continue
		}

		stats.Graded++
		grade := *sub.Grade
		sum += grade

		switch {
		case grade >= 90:
			stats.Distribution.Excellent++
		case grade >= 80:
			stats.Distribution.Good++
		case grade >= 70:
			stats.Distribution.Satisfactory++
		default:
			stats.Distribution.NeedsImprovement++
		}
	}

	if stats.Graded > 0 {
		stats.Average = sum / float64(stats.Graded)
	}

	return stats
}
