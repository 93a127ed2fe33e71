package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlms/assignment-service/internal/services"
	"github.com/openlms/assignment-service/internal/utils"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	submissionHandler *SubmissionHandler
}

func NewHandlerManager(
	assignmentService services.AssignmentService,
	submissionService services.SubmissionService,
	exportService services.ExportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(assignmentService, submissionService, exportService, logger),
		submissionHandler: NewSubmissionHandler(submissionService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "assignment-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		assignments := v1.Group("/assignments")
		{
			assignments.POST("", hm.assignmentHandler.CreateAssignment)
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.PUT("/:id", hm.assignmentHandler.UpdateAssignment)
			assignments.GET("/:id/stats", hm.assignmentHandler.GetAssignmentStats)
			assignments.GET("/:id/export", hm.assignmentHandler.ExportSubmissions)

			// Submission lifecycle
			assignments.POST("/:id/submissions", hm.submissionHandler.SubmitAssignment)
			assignments.GET("/:id/submissions", hm.submissionHandler.ListSubmissions)
			assignments.PUT("/:id/submissions/:submission_id/grade", hm.submissionHandler.GradeSubmission)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.GET("/mine", hm.submissionHandler.ListMySubmissions)
			submissions.GET("/:id", hm.submissionHandler.GetSubmission)
		}
	}
}
