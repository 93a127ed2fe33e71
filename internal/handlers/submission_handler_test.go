package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlms/assignment-service/internal/auth"
	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
	"github.com/openlms/assignment-service/internal/services"
	"github.com/openlms/assignment-service/internal/utils"
)

// stubSubmissionService returns canned values so the tests can focus on
// transport concerns.
type stubSubmissionService struct {
	submitFn func(ctx context.Context, assignmentID uint, req *services.SubmitRequest, actor models.Principal) (*models.Submission, error)
	gradeFn  func(ctx context.Context, assignmentID, submissionID uint, req *services.ManualGradeRequest, actor models.Principal) (*models.Submission, error)
}

func (s *stubSubmissionService) Submit(ctx context.Context, assignmentID uint, req *services.SubmitRequest, actor models.Principal) (*models.Submission, error) {
	return s.submitFn(ctx, assignmentID, req, actor)
}

func (s *stubSubmissionService) GradeManually(ctx context.Context, assignmentID, submissionID uint, req *services.ManualGradeRequest, actor models.Principal) (*models.Submission, error) {
	return s.gradeFn(ctx, assignmentID, submissionID, req, actor)
}

func (s *stubSubmissionService) GetByID(ctx context.Context, id uint, actor models.Principal) (*models.Submission, error) {
	return nil, services.ErrSubmissionNotFound
}

func (s *stubSubmissionService) ListByAssignment(ctx context.Context, assignmentID uint, filters repositories.SubmissionFilters, actor models.Principal) ([]*models.Submission, int64, error) {
	return nil, 0, nil
}

func (s *stubSubmissionService) ListByStudentAndLesson(ctx context.Context, lessonID uint, actor models.Principal) ([]*models.Submission, error) {
	return nil, nil
}

func (s *stubSubmissionService) Statistics(ctx context.Context, assignmentID uint, actor models.Principal) (*services.SubmissionStats, error) {
	return nil, nil
}

func testPrincipalMiddleware(principal models.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.SetPrincipal(c, principal)
		c.Next()
	}
}

func newTestRouter(svc services.SubmissionService, principal models.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewSubmissionHandler(svc, utils.NewDevelopmentLogger())

	group := router.Group("/api/v1", testPrincipalMiddleware(principal))
	group.POST("/assignments/:id/submissions", handler.SubmitAssignment)
	group.PUT("/assignments/:id/submissions/:submission_id/grade", handler.GradeSubmission)
	return router
}

func TestSubmitAssignment_MultipartPayload(t *testing.T) {
	var captured *services.SubmitRequest
	svc := &stubSubmissionService{
		submitFn: func(ctx context.Context, assignmentID uint, req *services.SubmitRequest, actor models.Principal) (*models.Submission, error) {
			captured = req
			return &models.Submission{ID: 1, AssignmentID: assignmentID, StudentID: actor.ID}, nil
		},
	}
	router := newTestRouter(svc, models.Principal{ID: "student-1", Role: models.RoleStudent})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("content", "my essay"))
	require.NoError(t, writer.WriteField("answers", `[{"question_id":"q1","answer":"4"}]`))
	part, err := writer.CreateFormFile("files", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("attachment bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/7/submissions", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "my essay", captured.Content)
	assert.JSONEq(t, `[{"question_id":"q1","answer":"4"}]`, string(captured.Answers))
	require.Len(t, captured.Files, 1)
	assert.Equal(t, "notes.txt", captured.Files[0].Name)
	assert.Equal(t, []byte("attachment bytes"), captured.Files[0].Data)
}

func TestSubmitAssignment_ResubmissionDisallowedMapsTo400(t *testing.T) {
	svc := &stubSubmissionService{
		submitFn: func(ctx context.Context, assignmentID uint, req *services.SubmitRequest, actor models.Principal) (*models.Submission, error) {
			return nil, services.ErrResubmissionNotAllowed
		},
	}
	router := newTestRouter(svc, models.Principal{ID: "student-1", Role: models.RoleStudent})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/7/submissions",
		bytes.NewBufferString(`{"content":"again"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RESUBMISSION_NOT_ALLOWED", resp.Code)
}

func TestSubmitAssignment_DuplicateMapsTo409(t *testing.T) {
	svc := &stubSubmissionService{
		submitFn: func(ctx context.Context, assignmentID uint, req *services.SubmitRequest, actor models.Principal) (*models.Submission, error) {
			return nil, services.ErrAlreadySubmitted
		},
	}
	router := newTestRouter(svc, models.Principal{ID: "student-1", Role: models.RoleStudent})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/7/submissions",
		bytes.NewBufferString(`{"content":"race"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGradeSubmission_ForbiddenMapsTo403(t *testing.T) {
	svc := &stubSubmissionService{
		gradeFn: func(ctx context.Context, assignmentID, submissionID uint, req *services.ManualGradeRequest, actor models.Principal) (*models.Submission, error) {
			return nil, services.NewPermissionError(actor.ID, assignmentID, "assignment", "grade", "not owner")
		},
	}
	router := newTestRouter(svc, models.Principal{ID: "teacher-2", Role: models.RoleTeacher})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/assignments/7/submissions/3/grade",
		bytes.NewBufferString(`{"grade": 50}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmitAssignment_InvalidIDParam(t *testing.T) {
	svc := &stubSubmissionService{}
	router := newTestRouter(svc, models.Principal{ID: "student-1", Role: models.RoleStudent})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/abc/submissions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
