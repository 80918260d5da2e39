package routes

import (
	"journal-api/controllers"
	"journal-api/middleware"
	"journal-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/refresh", controllers.RefreshToken)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Journal API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth management
			protected.POST("/logout", controllers.Logout)

			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Submissions
			submissions := protected.Group("/submissions")
			{
				submissions.GET("", controllers.GetSubmissions)
				submissions.GET("/:id", controllers.GetSubmission)
				submissions.GET("/:id/history", controllers.GetStatusHistory)

				// Intake: authors create and complete their own submissions
				submissions.POST("", middleware.RequireRole(models.RoleIDAuthor), controllers.CreateSubmission)
				submissions.PUT("/:id", middleware.RequireRole(models.RoleIDAuthor), controllers.UpdateSubmission)
				submissions.PUT("/:id/authors", middleware.RequireRole(models.RoleIDAuthor), controllers.ReplaceAuthors)
				submissions.POST("/:id/submit", middleware.RequireRole(models.RoleIDAuthor), controllers.SubmitSubmission)

				// Workflow commands
				submissions.POST("/:id/send-to-review", middleware.RequireRole(models.RoleIDEditor), controllers.SendToReview)
				submissions.POST("/:id/assign-reviewer", middleware.RequireRole(models.RoleIDEditor), controllers.AssignReviewer)
				submissions.POST("/:id/decision", middleware.RequireRole(models.RoleIDEditor), controllers.RecordDecision)
				submissions.POST("/:id/publish", middleware.RequireRole(models.RoleIDEditor), controllers.Publish)
				submissions.POST("/:id/resubmit", middleware.RequireRole(models.RoleIDAuthor), controllers.Resubmit)

				// Workflow queries
				submissions.GET("/:id/allowed-actions", controllers.GetAllowedActions)
				submissions.GET("/:id/rounds", controllers.GetRounds)
				submissions.GET("/:id/reviews", middleware.RequireRole(models.RoleIDEditor), controllers.GetReviews)
				submissions.GET("/:id/decision", controllers.GetLatestDecision)
			}

			// Review rounds
			protected.GET("/rounds/:round_id/progress", middleware.RequireRole(models.RoleIDEditor), controllers.GetRoundProgress)

			// Reviewer assignments
			assignments := protected.Group("/assignments")
			{
				assignments.GET("", middleware.RequireRole(models.RoleIDReviewer), controllers.GetMyAssignments)
				assignments.POST("/:assignment_id/confirm", middleware.RequireRole(models.RoleIDReviewer), controllers.ConfirmAssignment)
				assignments.POST("/:assignment_id/complete", middleware.RequireRole(models.RoleIDReviewer), controllers.CompleteReview)
				assignments.DELETE("/:assignment_id", middleware.RequireRole(models.RoleIDEditor), controllers.CancelAssignment)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
