package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openlms/assignment-service/internal/cache"
	"github.com/openlms/assignment-service/internal/events"
	"github.com/openlms/assignment-service/internal/grading"
	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
	"github.com/openlms/assignment-service/internal/storage"
	"github.com/openlms/assignment-service/internal/validator"
)

// SubmissionService orchestrates the create-or-resubmit flow, invokes the
// auto-grader for quizzes, and applies manual teacher grading.
type SubmissionService interface {
	Submit(ctx context.Context, assignmentID uint, req *SubmitRequest, actor models.Principal) (*models.Submission, error)
	GradeManually(ctx context.Context, assignmentID, submissionID uint, req *ManualGradeRequest, actor models.Principal) (*models.Submission, error)
	GetByID(ctx context.Context, id uint, actor models.Principal) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID uint, filters repositories.SubmissionFilters, actor models.Principal) ([]*models.Submission, int64, error)
	ListByStudentAndLesson(ctx context.Context, lessonID uint, actor models.Principal) ([]*models.Submission, error)
	Statistics(ctx context.Context, assignmentID uint, actor models.Principal) (*SubmissionStats, error)
}

// UploadFile is one attachment payload handed down from the transport layer.
type UploadFile struct {
	Name string
	Data []byte
}

type SubmitRequest struct {
	Content string `json:"content"`

	// Answers arrive as loosely-typed JSON; malformed payloads degrade to
	// an empty answer list (observed upstream behavior, see DESIGN.md).
	Answers json.RawMessage `json:"answers"`

	Files []UploadFile `json:"-"`
}

// AnswerGradeOverride is one per-question manual grading entry.
type AnswerGradeOverride struct {
	QuestionID string   `json:"question_id" validate:"required"`
	Points     *float64 `json:"points" validate:"omitempty,min=0"`
	IsCorrect  *bool    `json:"is_correct"`
	Feedback   *string  `json:"feedback"`
}

type ManualGradeRequest struct {
	Grade    *float64              `json:"grade" validate:"omitempty,min=0"`
	Feedback *string               `json:"feedback"`
	Answers  []AnswerGradeOverride `json:"answers" validate:"omitempty,dive"`
}

// rawAnswer is the loosely-typed inbound shape for a quiz answer. FileIndex
// points into the uploaded files of the same request, matching files to
// file-upload questions positionally.
type rawAnswer struct {
	QuestionID string   `json:"question_id"`
	Answer     string   `json:"answer"`
	Answers    []string `json:"answers"`
	FileIndex  *int     `json:"file_index"`
}

type submissionService struct {
	repo      repositories.Repository
	files     storage.FileStore
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSubmissionService(
	repo repositories.Repository,
	files storage.FileStore,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) SubmissionService {
	return &submissionService{
		repo:      repo,
		files:     files,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ===== SUBMIT =====

func (s *submissionService) Submit(ctx context.Context, assignmentID uint, req *SubmitRequest, actor models.Principal) (*models.Submission, error) {
	s.logger.Info("Submitting assignment",
		"assignment_id", assignmentID,
		"student_id", actor.ID,
		"files", len(req.Files))

	assignment, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	existing, err := s.repo.Submission().GetByAssignmentAndStudent(ctx, assignmentID, actor.ID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}

	isResubmission := existing != nil
	if isResubmission && !assignment.AllowResubmission {
		return nil, ErrResubmissionNotAllowed
	}

	answers, fileIndexes := parseAnswers(req.Answers)

	// Upload attachments before touching the submission row. A failing
	// upload aborts the whole call; files uploaded before the failure are
	// not cleaned up (known gap, see DESIGN.md).
	uploaded, err := s.uploadFiles(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	unclaimed := attachFilesToAnswers(answers, fileIndexes, uploaded)

	now := time.Now()
	var submission *models.Submission
	if isResubmission {
		submission = existing
		snapshotPreviousAttempt(submission)
		submission.Content = req.Content
		submission.Answers = answers
		submission.Files = unclaimed
		submission.Resubmitted = true
		submission.ResubmittedAt = &now
		submission.SubmittedAt = now
	} else {
		submission = &models.Submission{
			AssignmentID: assignmentID,
			StudentID:    actor.ID,
			Content:      req.Content,
			Answers:      answers,
			Files:        unclaimed,
			SubmittedAt:  now,
		}
	}

	if assignment.IsQuiz() && assignment.AllowAutomaticGrading && len(answers) > 0 {
		result := grading.Grade(assignment.Questions, answers)
		submission.Answers = grading.Apply(result, answers)
		grade := result.TotalScore
		submission.Grade = &grade
		submission.TotalPoints = result.TotalPoints
		submission.AutoGraded = true
		submission.IsGraded = true
		submission.GradedAt = &now
	}

	if isResubmission {
		if err := s.repo.Submission().Update(ctx, submission); err != nil {
			return nil, fmt.Errorf("failed to update submission: %w", err)
		}
	} else {
		if err := s.repo.Submission().Create(ctx, submission); err != nil {
			// Two concurrent first-submits race on the unique
			// (assignment_id, student_id) index; the loser gets told to
			// retry as a resubmission.
			if repositories.IsDuplicateKeyError(err) {
				s.logger.Warn("Concurrent duplicate submission",
					"assignment_id", assignmentID,
					"student_id", actor.ID)
				return nil, ErrAlreadySubmitted
			}
			return nil, fmt.Errorf("failed to create submission: %w", err)
		}
	}

	s.invalidateStatsCache(ctx, assignmentID)
	s.publishSubmissionReceived(ctx, submission)
	if submission.AutoGraded {
		s.publishSubmissionGraded(ctx, submission)
	}

	s.logger.Info("Assignment submitted",
		"submission_id", submission.ID,
		"assignment_id", assignmentID,
		"student_id", actor.ID,
		"resubmitted", submission.Resubmitted,
		"auto_graded", submission.AutoGraded)

	return submission, nil
}

// ===== MANUAL GRADING =====

func (s *submissionService) GradeManually(ctx context.Context, assignmentID, submissionID uint, req *ManualGradeRequest, actor models.Principal) (*models.Submission, error) {
	s.logger.Info("Grading submission manually",
		"assignment_id", assignmentID,
		"submission_id", submissionID,
		"user_id", actor.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	submission, err := s.repo.Submission().GetByID(ctx, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission.AssignmentID != assignmentID {
		return nil, ErrSubmissionNotFound
	}

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

	if len(req.Answers) > 0 && assignment.IsQuiz() {
		for _, override := range req.Answers {
			answer := submission.AnswerByQuestionID(override.QuestionID)
			if answer == nil {
				continue
			}
			if override.Points != nil {
				answer.Points = *override.Points
			}
			if override.IsCorrect != nil {
				answer.IsCorrect = override.IsCorrect
			}
			if override.Feedback != nil {
				answer.Feedback = override.Feedback
			}
		}

		// Per-answer edits take precedence over the stored total: unless
		// the caller sent an explicit grade, recompute it from scratch.
		if req.Grade == nil {
			var total float64
			for _, a := range submission.Answers {
				total += a.Points
			}
			submission.Grade = &total
		}
	}

	if req.Grade != nil {
		submission.Grade = req.Grade
	}
	if req.Feedback != nil {
		submission.Feedback = req.Feedback
	}

	now := time.Now()
	submission.IsGraded = true
	submission.GradedAt = &now
	if submission.TotalPoints == 0 {
		submission.TotalPoints = assignment.TotalPoints
	}

	if err := s.repo.Submission().Update(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	s.invalidateStatsCache(ctx, assignmentID)
	s.publishSubmissionGraded(ctx, submission)

	s.logger.Info("Submission graded",
		"submission_id", submissionID,
		"grade", submission.Grade)

	return submission, nil
}

// ===== READS =====

func (s *submissionService) GetByID(ctx context.Context, id uint, actor models.Principal) (*models.Submission, error) {
	submission, err := s.repo.Submission().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if actor.Role == models.RoleStudent && submission.StudentID != actor.ID {
		return nil, NewPermissionError(actor.ID, id, "submission", "read", "not owner")
	}

	return submission, nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uint, filters repositories.SubmissionFilters, actor models.Principal) ([]*models.Submission, int64, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, 0, ErrAssignmentNotFound
		}
		return nil, 0, fmt.Errorf("failed to get assignment: %w", err)
	}

	if err := s.canGrade(assignment, actor); err != nil {
		return nil, 0, err
	}

	submissions, total, err := s.repo.Submission().GetByAssignment(ctx, assignmentID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, total, nil
}

func (s *submissionService) ListByStudentAndLesson(ctx context.Context, lessonID uint, actor models.Principal) ([]*models.Submission, error) {
	submissions, err := s.repo.Submission().GetByStudentAndLesson(ctx, actor.ID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student submissions: %w", err)
	}
	return submissions, nil
}

// ===== HELPERS =====

func (s *submissionService) canGrade(assignment *models.Assignment, actor models.Principal) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleTeacher && assignment.CreatedBy == actor.ID {
		return nil
	}
	return NewPermissionError(actor.ID, assignment.ID, "assignment", "grade", "not owner or admin")
}

func (s *submissionService) uploadFiles(ctx context.Context, files []UploadFile) ([]models.FileRef, error) {
	if len(files) == 0 {
		return nil, nil
	}

	refs := make([]models.FileRef, 0, len(files))
	for _, f := range files {
		ref, err := s.files.Store(ctx, f.Name, f.Data)
		if err != nil {
			s.logger.Error("Attachment upload failed",
				"file", f.Name,
				"uploaded_so_far", len(refs),
				"error", err)
			return nil, fmt.Errorf("failed to store attachment: %w", err)
		}
		refs = append(refs, *ref)
	}
	return refs, nil
}

func (s *submissionService) invalidateStatsCache(ctx context.Context, assignmentID uint) {
	if err := s.cache.Delete(ctx, statsCacheKey(assignmentID)); err != nil {
		s.logger.Warn("Failed to invalidate statistics cache",
			"assignment_id", assignmentID,
			"error", err)
	}
}

func (s *submissionService) publishSubmissionReceived(ctx context.Context, submission *models.Submission) {
	eventType := events.EventSubmissionReceived
	if submission.Resubmitted {
		eventType = events.EventSubmissionResubmitted
	}
	event := events.NewEvent(eventType, events.SubmissionReceivedEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Resubmitted:  submission.Resubmitted,
		SubmittedAt:  submission.SubmittedAt,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish submission event",
			"submission_id", submission.ID,
			"error", err)
	}
}

func (s *submissionService) publishSubmissionGraded(ctx context.Context, submission *models.Submission) {
	var grade float64
	if submission.Grade != nil {
		grade = *submission.Grade
	}
	gradedAt := time.Now()
	if submission.GradedAt != nil {
		gradedAt = *submission.GradedAt
	}
	event := events.NewEvent(events.EventSubmissionGraded, events.SubmissionGradedEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Grade:        grade,
		TotalPoints:  submission.TotalPoints,
		AutoGraded:   submission.AutoGraded,
		GradedAt:     gradedAt,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish grading event",
			"submission_id", submission.ID,
			"error", err)
	}
}

// parseAnswers converts the inbound answers payload to the strict Answer
// shape and returns the positional file indexes claimed by file-upload
// answers. Malformed payloads degrade to an empty list.
func parseAnswers(raw json.RawMessage) ([]models.Answer, map[int]int) {
	fileIndexes := make(map[int]int)
	if len(raw) == 0 {
		return nil, fileIndexes
	}

	var rawAnswers []rawAnswer
	if err := json.Unmarshal(raw, &rawAnswers); err != nil {
		return []models.Answer{}, fileIndexes
	}

	answers := make([]models.Answer, 0, len(rawAnswers))
	for i, ra := range rawAnswers {
		answers = append(answers, models.Answer{
			QuestionID: ra.QuestionID,
			Answer:     ra.Answer,
			Answers:    ra.Answers,
		})
		if ra.FileIndex != nil {
			fileIndexes[i] = *ra.FileIndex
		}
	}
	return answers, fileIndexes
}

// attachFilesToAnswers hands uploaded files to the answers that claimed them
// by index and returns the unclaimed remainder for the submission itself.
func attachFilesToAnswers(answers []models.Answer, fileIndexes map[int]int, uploaded []models.FileRef) []models.FileRef {
	claimed := make(map[int]bool, len(fileIndexes))
	for answerIdx, fileIdx := range fileIndexes {
		if answerIdx >= len(answers) || fileIdx < 0 || fileIdx >= len(uploaded) {
			continue
		}
		answers[answerIdx].Files = append(answers[answerIdx].Files, uploaded[fileIdx])
		claimed[fileIdx] = true
	}

	var unclaimed []models.FileRef
	for i, ref := range uploaded {
		if !claimed[i] {
			unclaimed = append(unclaimed, ref)
		}
	}
	return unclaimed
}

// snapshotPreviousAttempt copies the current attempt into the single-slot
// history fields, overwriting whatever snapshot was there before.
func snapshotPreviousAttempt(submission *models.Submission) {
	content := submission.Content
	submission.PreviousContent = &content
	submission.PreviousAnswers = submission.Answers
	submission.PreviousFiles = submission.Files
}
