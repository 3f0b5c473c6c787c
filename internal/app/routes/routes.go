package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/thesisflow/internal/app/controllers"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/models/dto"
	"github.com/yigit/thesisflow/internal/middleware"
	"github.com/yigit/thesisflow/internal/pkg/websocket"
)

// Controllers groups the HTTP handlers mounted by SetupRouter
type Controllers struct {
	DefenseRequests *controllers.DefenseRequestController
	Verifications   *controllers.VerificationController
	Jobs            *controllers.JobController
	Faculty         *controllers.FacultyController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	wsHandler *websocket.Handler,
) {
	middleware.RegisterValidators()

	// API version group
	v1 := router.Group("/api/v1")

	// Health check endpoint (public)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewAPIResponse(gin.H{"status": "ok"}))
	})

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		requests := authenticated.Group("/defense-requests")
		{
			requests.POST("", c.DefenseRequests.Submit)
			requests.GET("", c.DefenseRequests.List)
			requests.POST("/bulk-decision", c.DefenseRequests.BulkCoordinatorDecision)
			requests.GET("/:id", c.DefenseRequests.Get)

			// Adviser stage
			requests.POST("/:id/adviser-review", c.DefenseRequests.StartAdviserReview)
			requests.POST("/:id/adviser-decision", c.DefenseRequests.AdviserDecision)
			requests.POST("/:id/forward", c.DefenseRequests.ForwardToCoordinator)

			// Coordinator stage
			requests.POST("/:id/coordinator-decision", c.DefenseRequests.CoordinatorDecision)
			requests.PUT("/:id/panels", c.DefenseRequests.AssignPanels)
			requests.PUT("/:id/schedule", c.DefenseRequests.Schedule)
			requests.POST("/:id/complete", c.DefenseRequests.MarkCompleted)

			// Student corrections
			requests.POST("/:id/retrieve", c.DefenseRequests.Retrieve)
			requests.POST("/:id/resubmit", c.DefenseRequests.Resubmit)

			requests.GET("/:id/verifications", c.Verifications.ListByRequest)
			requests.GET("/:id/student-record", c.Jobs.GetStudentRecord)
		}

		verifications := authenticated.Group("/verifications")
		{
			verifications.POST("", c.Verifications.RecordPayment)
			verifications.GET("", c.Verifications.List)
			verifications.POST("/bulk-decision", c.Verifications.BulkDecide)
			verifications.GET("/:id", c.Verifications.Get)
			verifications.POST("/:id/decision", c.Verifications.Decide)
			verifications.POST("/:id/proof", c.Verifications.UploadProof)
		}

		faculty := authenticated.Group("/faculty")
		{
			faculty.GET("", c.Faculty.List)

			facultyCoordinatorProtected := faculty.Group("")
			facultyCoordinatorProtected.Use(authMiddleware.RoleRequired(models.RoleCoordinator))
			{
				facultyCoordinatorProtected.PUT("", middleware.ValidateRequest(func() interface{} { return &dto.UpsertFacultyRequest{} }), c.Faculty.Upsert)
			}
		}

		// Batch jobs are normally driven by the scheduler; these endpoints let an
		// operator trigger them by hand.
		jobs := authenticated.Group("/jobs")
		jobs.Use(authMiddleware.RoleRequired(models.RoleSystem))
		{
			jobs.POST("/sweep", c.Jobs.Sweep)
			jobs.POST("/sync/:id", c.Jobs.Sync)
			jobs.POST("/resync", c.Jobs.Resync)
		}

		authenticated.GET("/ws/events", wsHandler.HandleConnection)
	}
}
