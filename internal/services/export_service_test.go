package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/openlms/assignment-service/internal/models"
)

func exportFixture() (*mockRepository, []*models.Submission) {
	grade := 87.5
	gradedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	submissions := []*models.Submission{
		{
			ID:           1,
			AssignmentID: 1,
			StudentID:    "student-1",
			Student:      models.User{ID: "student-1", FullName: "Ada Lovelace"},
			Grade:        &grade,
			TotalPoints:  100,
			IsGraded:     true,
			AutoGraded:   true,
			GradedAt:     &gradedAt,
			SubmittedAt:  gradedAt.Add(-time.Hour),
		},
		{
			ID:           2,
			AssignmentID: 1,
			StudentID:    "student-2",
			Student:      models.User{ID: "student-2", FullName: "Alan Turing"},
			SubmittedAt:  gradedAt,
			Resubmitted:  true,
		},
	}

	repo := newMockRepository()
	repo.assignments.On("GetByID", mock.Anything, uint(1)).Return(&models.Assignment{
		ID:        1,
		Title:     "Quiz",
		Kind:      models.KindQuiz,
		CreatedBy: "teacher-1",
	}, nil)
	repo.submissions.On("GetByAssignment", mock.Anything, uint(1), mock.AnythingOfType("repositories.SubmissionFilters")).
		Return(submissions, int64(len(submissions)), nil)
	return repo, submissions
}

func TestExportSubmissions_XLSX(t *testing.T) {
	repo, _ := exportFixture()
	svc := NewExportService(repo, testLogger())

	result, err := svc.ExportSubmissions(context.Background(), 1, ExportXLSX,
		models.Principal{ID: "teacher-1", Role: models.RoleTeacher})
	require.NoError(t, err)

	assert.Equal(t, "assignment_1_submissions.xlsx", result.FileName)
	assert.Contains(t, result.ContentType, "spreadsheetml")

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Submissions")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Student ID", rows[0][0])
	assert.Equal(t, "student-1", rows[1][0])
	assert.Equal(t, "Ada Lovelace", rows[1][1])
	assert.Equal(t, "87.5", rows[1][2])
	assert.Equal(t, "auto_graded", rows[1][4])
	assert.Equal(t, "pending", rows[2][4])
	assert.Equal(t, "true", rows[2][7])
}

func TestExportSubmissions_CSV(t *testing.T) {
	repo, _ := exportFixture()
	svc := NewExportService(repo, testLogger())

	result, err := svc.ExportSubmissions(context.Background(), 1, ExportCSV,
		models.Principal{ID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Alan Turing", records[2][1])
	assert.Equal(t, "", records[2][2])
}

func TestExportSubmissions_NonOwnerForbidden(t *testing.T) {
	repo, _ := exportFixture()
	svc := NewExportService(repo, testLogger())

	_, err := svc.ExportSubmissions(context.Background(), 1, ExportCSV,
		models.Principal{ID: "teacher-2", Role: models.RoleTeacher})
	assert.True(t, IsForbidden(err))
	repo.submissions.AssertNotCalled(t, "GetByAssignment", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportSubmissions_UnsupportedFormat(t *testing.T) {
	repo, _ := exportFixture()
	svc := NewExportService(repo, testLogger())

	_, err := svc.ExportSubmissions(context.Background(), 1, "pdf",
		models.Principal{ID: "teacher-1", Role: models.RoleTeacher})
	assert.ErrorIs(t, err, ErrUnsupportedExportFormat)
}
