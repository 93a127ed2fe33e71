package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openlms/assignment-service/internal/repositories"
	"github.com/openlms/assignment-service/internal/services"
	"github.com/openlms/assignment-service/internal/utils"
)

// maxUploadBytes caps a single attachment at 25 MiB.
const maxUploadBytes = 25 << 20

type SubmissionHandler struct {
	BaseHandler
	submissionService services.SubmissionService
}

func NewSubmissionHandler(submissionService services.SubmissionService, logger utils.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
	}
}

// SubmitAssignment submits or resubmits an assignment
// @Summary Submit assignment
// @Description Accepts multipart form data with text content, a JSON answers array and file attachments. Resubmitting replaces the previous attempt when the assignment allows it.
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param content formData string false "Free-text content"
// @Param answers formData string false "Answers JSON array"
// @Param files formData file false "Attachments"
// @Success 201 {object} models.Submission
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /assignments/{id}/submissions [post]
func (h *SubmissionHandler) SubmitAssignment(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "id")
	if assignmentID == 0 {
		return
	}

	principal, ok := h.requirePrincipal(c)
	if !ok {
		return
	}

	req, err := parseSubmitForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting assignment",
		"assignment_id", assignmentID,
		"files", len(req.Files))

	submission, err := h.submissionService.Submit(c.Request.Context(), assignmentID, req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if submission.Resubmitted {
		status = http.StatusOK
	}
	c.JSON(status, submission)
}

// GetSubmission retrieves a single submission
// @Summary Get submission
// @Tags submissions
// @Produce json
// @Param id path uint true "Submission ID"
// @Success 200 {object} models.Submission
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	principal, ok := h.requirePrincipal(c)
	if !ok {
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListSubmissions lists all submissions for an assignment
// @Summary List submissions
// @Tags submissions
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param is_graded query bool false "Filter by grading state"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ListResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id}/submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "id")
	if assignmentID == 0 {
		return
	}

	principal, ok := h.requirePrincipal(c)
	if !ok {
		return
	}

	filters := parseSubmissionFilters(c)

	submissions, total, err := h.submissionService.ListByAssignment(c.Request.Context(), assignmentID, filters, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: submissions, Total: total})
}

// ListMySubmissions lists the caller's submissions within a lesson
// @Summary List own submissions by lesson
// @Tags submissions
// @Produce json
// @Param lesson_id query uint true "Lesson ID"
// @Success 200 {object} ListResponse
// @Failure 400 {object} ErrorResponse
// @Router /submissions/mine [get]
func (h *SubmissionHandler) ListMySubmissions(c *gin.Context) {
	principal, ok := h.requirePrincipal(c)
	if !ok {
		return
	}

	lessonID, err := strconv.ParseUint(c.Query("lesson_id"), 10, 32)
	if err != nil || lessonID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid lesson_id",
			Details: "must be a positive integer",
		})
		return
	}

	submissions, err := h.submissionService.ListByStudentAndLesson(c.Request.Context(), uint(lessonID), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: submissions, Total: int64(len(submissions))})
}

// GradeSubmission applies a manual grade to a submission
// @Summary Grade submission
// @Description Applies a teacher grade, optionally with per-answer point overrides. When only overrides are given the total is recomputed from the answers.
// @Tags submissions
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param submission_id path uint true "Submission ID"
// @Param grade body services.ManualGradeRequest true "Grade data"
// @Success 200 {object} models.Submission
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assignments/{id}/submissions/{submission_id}/grade [put]
func (h *SubmissionHandler) GradeSubmission(c *gin.Context) {
	assignmentID := h.parseIDParam(c, "id")
	if assignmentID == 0 {
		return
	}
	submissionID := h.parseIDParam(c, "submission_id")
	if submissionID == 0 {
		return
	}

	var req services.ManualGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	principal, ok := h.requirePrincipal(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Grading submission",
		"assignment_id", assignmentID,
		"submission_id", submissionID)

	submission, err := h.submissionService.GradeManually(c.Request.Context(), assignmentID, submissionID, &req, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// parseSubmitForm reads the multipart submission payload. The answers field
// is carried as a JSON string inside the form.
func parseSubmitForm(c *gin.Context) (*services.SubmitRequest, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		// JSON fallback for submissions without attachments.
		return parseSubmitJSON(c)
	}

	req := &services.SubmitRequest{
		Content: c.PostForm("content"),
	}

	if answers := c.PostForm("answers"); answers != "" {
		req.Answers = json.RawMessage(answers)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	for _, fileHeader := range form.File["files"] {
		if fileHeader.Size > maxUploadBytes {
			return nil, &oversizeFileError{name: fileHeader.Filename}
		}
		f, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			return nil, err
		}
		req.Files = append(req.Files, services.UploadFile{
			Name: fileHeader.Filename,
			Data: data,
		})
	}

	return req, nil
}

func parseSubmitJSON(c *gin.Context) (*services.SubmitRequest, error) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

type oversizeFileError struct {
	name string
}

func (e *oversizeFileError) Error() string {
	return "file too large: " + e.name
}

func parseSubmissionFilters(c *gin.Context) repositories.SubmissionFilters {
	filters := repositories.SubmissionFilters{
		SortBy:    c.DefaultQuery("sort_by", "submitted_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if gradedStr := c.Query("is_graded"); gradedStr != "" {
		if graded, err := strconv.ParseBool(gradedStr); err == nil {
			filters.IsGraded = &graded
		}
	}
	if studentID := c.Query("student_id"); studentID != "" {
		filters.StudentID = &studentID
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = offset
	}

	return filters
}
