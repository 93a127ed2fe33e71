package services

import (
	"errors"
	"fmt"

	apperrors "github.com/openlms/assignment-service/internal/errors"
	"github.com/openlms/assignment-service/internal/storage"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Assignment specific errors
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrAssignmentAccessDenied = errors.New("access denied to assignment")

	// Submission specific errors
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrResubmissionNotAllowed = errors.New("assignment does not allow resubmission")
	ErrAlreadySubmitted       = errors.New("already submitted - retry as resubmission")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// PermissionError carries enough context to log and explain a denial.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsForbidden checks if error represents an authorization failure
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrAssignmentAccessDenied) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsInvalidRequest checks if error represents a request the caller can correct
func IsInvalidRequest(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrResubmissionNotAllowed) ||
		errors.Is(err, ErrAlreadySubmitted) {
		return true
	}
	var ve ValidationErrors
	return errors.As(err, &ve)
}

// IsStorage checks if error came from the attachment storage backend
func IsStorage(err error) bool {
	var se *storage.Error
	return errors.As(err, &se)
}
