package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openlms/assignment-service/internal/auth"
	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/services"
)

// parseIDParam parses a numeric path parameter. On failure it writes the 400
// response itself and returns 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// requirePrincipal fetches the authenticated principal or writes a 401.
func (h *BaseHandler) requirePrincipal(c *gin.Context) (models.Principal, bool) {
	principal, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return models.Principal{}, false
	}
	return principal, true
}

// handleServiceError maps service-layer errors onto HTTP responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
			Code:    "ALREADY_SUBMITTED",
		})
	case errors.Is(err, services.ErrResubmissionNotAllowed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
			Code:    "RESUBMISSION_NOT_ALLOWED",
		})
	case services.IsInvalidRequest(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
			Code:    "INVALID_REQUEST",
		})
	case services.IsForbidden(err):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
			Code:    "FORBIDDEN",
		})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
			Code:    "NOT_FOUND",
		})
	case services.IsStorage(err):
		h.LogError(c, err, "Storage backend failure")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "File storage temporarily unavailable",
			Code:    "STORAGE_ERROR",
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
	}
}
