package router

import (
	"net/http"

	"content-hub-cms/handlers"
	"content-hub-cms/helper"
	"content-hub-cms/logger"
	"content-hub-cms/metrics"
	"content-hub-cms/middleware"
	"content-hub-cms/models"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Material   *handlers.MaterialHandler
	Submission *handlers.SubmissionHandler
}

// New builds the HTTP surface. Reads of published materials are public,
// everything under material-submissions needs a bearer token.
func New(h Handlers, jwtSecret []byte, httpHelper *helper.HTTPHelper, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(log))
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// Published materials (public)
		v1.GET("/materials/:slug", h.Material.GetMaterial)

		// Protected routes
		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret, httpHelper))
		{
			protected.GET("/profile", h.Auth.GetProfile)

			submissions := protected.Group("/material-submissions")
			{
				submissions.POST("", h.Submission.CreateDraft)
				submissions.POST("/submit", h.Submission.SubmitNew)
				submissions.GET("", h.Submission.List)
				submissions.GET("/:id", h.Submission.Get)
				submissions.PATCH("/:id", h.Submission.Update)
				submissions.DELETE("/:id", h.Submission.Delete)
				submissions.PATCH("/:id/submit", h.Submission.Submit)
				submissions.POST("/:id/messages", h.Submission.PostMessage)

				// Moderator decisions
				moderation := submissions.Group("")
				moderation.Use(middleware.RequireRole(httpHelper, models.RoleModerator, models.RoleAdmin))
				{
					moderation.PATCH("/:id/request-changes", h.Submission.RequestChanges)
					moderation.PATCH("/:id/accept", h.Submission.Accept)
					moderation.PATCH("/:id/reject", h.Submission.Reject)
					moderation.PATCH("/:id/reconsider", h.Submission.Reconsider)
					moderation.PUT("/:id/assigned-moderator", h.Submission.AssignModerator)
				}
			}
		}
	}

	return router
}
