package api

import (
	"net/http"

	accountDelivery "tonedraft-backend/internal/account/delivery"
	draftDelivery "tonedraft-backend/internal/draft/delivery"
	profileDelivery "tonedraft-backend/internal/profile/delivery"
	providerDelivery "tonedraft-backend/internal/provider/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	accountHandler *accountDelivery.AccountHandler,
	providerHandler *providerDelivery.ProviderHandler,
	profileHandler *profileDelivery.ProfileHandler,
	draftHandler *draftDelivery.DraftHandler,
) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(UserIDMiddleware())
		{
			accounts.POST("", accountHandler.Connect)
			accounts.GET("", accountHandler.List)
			accounts.DELETE("/:id", accountHandler.Deactivate)
		}

		// Provider routes (protected)
		providers := api.Group("/providers")
		providers.Use(UserIDMiddleware())
		{
			providers.POST("", providerHandler.Create)
			providers.GET("", providerHandler.List)
			providers.POST("/:id/activate", providerHandler.Activate)
		}

		// Tone profile routes (protected)
		profiles := api.Group("/profiles")
		profiles.Use(UserIDMiddleware())
		{
			profiles.GET("", profileHandler.List)
			profiles.GET("/:relationship", profileHandler.Get)
			profiles.POST("/:relationship/analyze", profileHandler.Analyze)
		}

		// Draft routes (protected)
		drafts := api.Group("/drafts")
		drafts.Use(UserIDMiddleware())
		{
			drafts.GET("", draftHandler.List)
			drafts.GET("/:id", draftHandler.Get)
			drafts.GET("/message/:messageId", draftHandler.GetByMessage)
			drafts.POST("/enqueue", draftHandler.Enqueue)
		}

		// Job routes (protected)
		jobs := api.Group("/jobs")
		jobs.Use(UserIDMiddleware())
		{
			jobs.GET("/:id", draftHandler.JobStatus)
			jobs.DELETE("/:id", draftHandler.CancelJob)
		}
	}
}
