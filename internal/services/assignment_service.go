package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openlms/assignment-service/internal/cache"
	"github.com/openlms/assignment-service/internal/events"
	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
	"github.com/openlms/assignment-service/internal/validator"
)

const assignmentCacheTTL = 5 * time.Minute

// AssignmentService owns assignment definitions, including embedded quiz
// questions and the derived total-points value.
type AssignmentService interface {
	Create(ctx context.Context, req *CreateAssignmentRequest, actor models.Principal) (*models.Assignment, error)
	Update(ctx context.Context, id uint, req *UpdateAssignmentRequest, actor models.Principal) (*models.Assignment, error)
	GetByID(ctx context.Context, id uint) (*models.Assignment, error)
	List(ctx context.Context, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error)
}

type CreateAssignmentRequest struct {
	Title       string                `json:"title" validate:"required,min=1,max=200"`
	Description *string               `json:"description" validate:"omitempty,max=2000"`
	Kind        models.AssignmentKind `json:"kind" validate:"required,assignment_kind"`
	LessonID    *uint                 `json:"lesson_id"`
	DueDate     *time.Time            `json:"due_date"`

	// Questions arrive as loosely-typed JSON and are normalized at this
	// boundary.
	Questions json.RawMessage `json:"questions"`

	AllowAutomaticGrading *bool              `json:"allow_automatic_grading"`
	AllowResubmission     bool               `json:"allow_resubmission"`
	Attachments           []models.FileRef   `json:"attachments"`
}

type UpdateAssignmentRequest struct {
	Title       *string                `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=2000"`
	Kind        *models.AssignmentKind `json:"kind" validate:"omitempty,assignment_kind"`
	LessonID    *uint                  `json:"lesson_id"`
	DueDate     *time.Time             `json:"due_date"`

	Questions json.RawMessage `json:"questions"`

	AllowAutomaticGrading *bool            `json:"allow_automatic_grading"`
	AllowResubmission     *bool            `json:"allow_resubmission"`
	Attachments           []models.FileRef `json:"attachments"`
}

type assignmentService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssignmentService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) AssignmentService {
	return &assignmentService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// ===== CORE OPERATIONS =====

func (s *assignmentService) Create(ctx context.Context, req *CreateAssignmentRequest, actor models.Principal) (*models.Assignment, error) {
	s.logger.Info("Creating assignment",
		"title", req.Title,
		"kind", req.Kind,
		"user_id", actor.ID)

	if !actor.IsStaff() {
		return nil, NewPermissionError(actor.ID, 0, "assignment", "create", "requires teacher or admin role")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		Title:             req.Title,
		Description:       req.Description,
		Kind:              req.Kind,
		LessonID:          req.LessonID,
		DueDate:           req.DueDate,
		AllowResubmission: req.AllowResubmission,
		Attachments:       req.Attachments,
		CreatedBy:         actor.ID,
	}

	// Auto-grading defaults to enabled only for quizzes when the caller
	// stayed silent; an explicit caller value always wins.
	if req.AllowAutomaticGrading != nil {
		assignment.AllowAutomaticGrading = *req.AllowAutomaticGrading
	} else {
		assignment.AllowAutomaticGrading = req.Kind == models.KindQuiz
	}

	if req.Kind == models.KindQuiz && req.Questions != nil {
		assignment.Questions = normalizeQuestions(req.Questions)
		assignment.TotalPoints = sumQuestionPoints(assignment.Questions)
	}

	if err := s.repo.Assignment().Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.publishAssignmentEvent(ctx, events.EventAssignmentCreated, assignment)

	s.logger.Info("Assignment created",
		"assignment_id", assignment.ID,
		"total_points", assignment.TotalPoints,
		"questions", len(assignment.Questions))

	return assignment, nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, req *UpdateAssignmentRequest, actor models.Principal) (*models.Assignment, error) {
	s.logger.Info("Updating assignment", "assignment_id", id, "user_id", actor.ID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if err := s.canModify(assignment, actor); err != nil {
		return nil, err
	}

	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Description != nil {
		assignment.Description = req.Description
	}
	if req.Kind != nil {
		assignment.Kind = *req.Kind
	}
	if req.LessonID != nil {
		assignment.LessonID = req.LessonID
	}
	if req.DueDate != nil {
		assignment.DueDate = req.DueDate
	}
	if req.AllowAutomaticGrading != nil {
		assignment.AllowAutomaticGrading = *req.AllowAutomaticGrading
	}
	if req.AllowResubmission != nil {
		assignment.AllowResubmission = *req.AllowResubmission
	}
	if req.Attachments != nil {
		assignment.Attachments = req.Attachments
	}

	if assignment.Kind == models.KindQuiz && req.Questions != nil {
		assignment.Questions = normalizeQuestions(req.Questions)
		assignment.TotalPoints = sumQuestionPoints(assignment.Questions)
	}

	if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	s.invalidateAssignmentCache(ctx, id)
	s.publishAssignmentEvent(ctx, events.EventAssignmentUpdated, assignment)

	return assignment, nil
}

func (s *assignmentService) GetByID(ctx context.Context, id uint) (*models.Assignment, error) {
	cacheKey := assignmentCacheKey(id)

	var cached models.Assignment
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey, assignment, assignmentCacheTTL); err != nil {
		s.logger.Warn("Failed to cache assignment", "assignment_id", id, "error", err)
	}

	return assignment, nil
}

func (s *assignmentService) List(ctx context.Context, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	assignments, total, err := s.repo.Assignment().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, total, nil
}

// ===== HELPERS =====

func (s *assignmentService) canModify(assignment *models.Assignment, actor models.Principal) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleTeacher && assignment.CreatedBy == actor.ID {
		return nil
	}
	return NewPermissionError(actor.ID, assignment.ID, "assignment", "update", "not owner or admin")
}

func (s *assignmentService) invalidateAssignmentCache(ctx context.Context, id uint) {
	for _, key := range []string{assignmentCacheKey(id), statsCacheKey(id)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to invalidate cache", "key", key, "error", err)
		}
	}
}

func (s *assignmentService) publishAssignmentEvent(ctx context.Context, eventType events.EventType, assignment *models.Assignment) {
	event := events.NewEvent(eventType, events.AssignmentEvent{
		AssignmentID: assignment.ID,
		Title:        assignment.Title,
		Kind:         string(assignment.Kind),
		DueDate:      assignment.DueDate,
		CreatorID:    assignment.CreatedBy,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish assignment event",
			"assignment_id", assignment.ID,
			"event_type", eventType,
			"error", err)
	}
}

func assignmentCacheKey(id uint) string {
	return fmt.Sprintf("assignment:%d", id)
}

func statsCacheKey(id uint) string {
	return fmt.Sprintf("stats:assignment:%d", id)
}

// ===== QUESTION NORMALIZATION =====

// rawQuestion is the loosely-typed inbound shape for a quiz question.
type rawQuestion struct {
	ID             string              `json:"id"`
	Text           string              `json:"text"`
	Kind           models.QuestionKind `json:"kind"`
	Options        []string            `json:"options"`
	CorrectAnswer  string              `json:"correct_answer"`
	CorrectAnswers []string            `json:"correct_answers"`
	Points         *float64            `json:"points"`
	Order          *int                `json:"order"`
}

// normalizeQuestions converts the inbound questions payload into the strict
// Question shape: missing kinds default to multiple choice, missing points
// to 1, missing order to the list index, and missing ids get a fresh uuid.
// A payload that is not a well-formed question list degrades to an empty
// list rather than failing the request; that mirrors observed upstream
// behavior and is flagged in DESIGN.md.
func normalizeQuestions(raw json.RawMessage) []models.Question {
	var rawQuestions []rawQuestion
	if err := json.Unmarshal(raw, &rawQuestions); err != nil {
		return []models.Question{}
	}

	questions := make([]models.Question, 0, len(rawQuestions))
	for i, rq := range rawQuestions {
		q := models.Question{
			ID:             rq.ID,
			Text:           rq.Text,
			Kind:           rq.Kind,
			Options:        rq.Options,
			CorrectAnswer:  rq.CorrectAnswer,
			CorrectAnswers: rq.CorrectAnswers,
			Points:         1,
			Order:          i,
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Kind == "" {
			q.Kind = models.QuestionMultipleChoice
		}
		if rq.Points != nil && *rq.Points > 0 {
			q.Points = *rq.Points
		}
		if rq.Order != nil {
			q.Order = *rq.Order
		}
		questions = append(questions, q)
	}

	return questions
}

func sumQuestionPoints(questions []models.Question) float64 {
	var total float64
	for _, q := range questions {
		total += q.Points
	}
	return total
}
