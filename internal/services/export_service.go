package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
)

// ExportFormat selects the file format for submission exports.
type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

var ErrUnsupportedExportFormat = fmt.Errorf("unsupported export format: %w", ErrValidationFailed)

// ExportService renders an assignment's submissions as a downloadable
// spreadsheet for teachers.
type ExportService interface {
	ExportSubmissions(ctx context.Context, assignmentID uint, format ExportFormat, actor models.Principal) (*ExportResult, error)
}

// ExportResult carries the rendered file and its transport metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var exportHeaders = []string{
	"Student ID", "Student Name", "Grade", "Total Points", "Status",
	"Submitted At", "Graded At", "Resubmitted",
}

func (s *exportService) ExportSubmissions(ctx context.Context, assignmentID uint, format ExportFormat, actor models.Principal) (*ExportResult, error) {
	s.logger.Info("Exporting submissions",
		"assignment_id", assignmentID,
		"format", format,
		"user_id", actor.ID)

	assignment, err := s.repo.Assignment().GetByID(ctx, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if actor.Role != models.RoleAdmin &&
		!(actor.Role == models.RoleTeacher && assignment.CreatedBy == actor.ID) {
		return nil, NewPermissionError(actor.ID, assignmentID, "assignment", "export", "not owner or admin")
	}

	submissions, _, err := s.repo.Submission().GetByAssignment(ctx, assignmentID, repositories.SubmissionFilters{
		SortBy:    "submitted_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	rows := buildExportRows(submissions)

	switch format {
	case ExportCSV:
		data, err := renderCSV(rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    exportFileName(assignment, "csv"),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportXLSX, "":
		data, err := renderXLSX(rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			FileName:    exportFileName(assignment, "xlsx"),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, ErrUnsupportedExportFormat
	}
}

func buildExportRows(submissions []*models.Submission) [][]string {
	rows := make([][]string, 0, len(submissions)+1)
	rows = append(rows, exportHeaders)

	for _, sub := range submissions {
		grade := ""
		if sub.Grade != nil {
			grade = strconv.FormatFloat(*sub.Grade, 'f', -1, 64)
		}
		status := "pending"
		if sub.IsGraded {
			status = "graded"
			if sub.AutoGraded {
				status = "auto_graded"
			}
		}
		gradedAt := ""
		if sub.GradedAt != nil {
			gradedAt = sub.GradedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			sub.StudentID,
			sub.Student.FullName,
			grade,
			strconv.FormatFloat(sub.TotalPoints, 'f', -1, 64),
			status,
			sub.SubmittedAt.Format(time.RFC3339),
			gradedAt,
			strconv.FormatBool(sub.Resubmitted),
		})
	}
	return rows
}

func renderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

const exportSheetName = "Submissions"

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write sheet row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportFileName(assignment *models.Assignment, ext string) string {
	return fmt.Sprintf("assignment_%d_submissions.%s", assignment.ID, ext)
}
