package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"certforge/internal/api/middleware"
	"certforge/internal/config"
)

// RegisterRoutes registers all API routes under /v1.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	storageClient ArtifactStore,
	renderer Renderer,
	logger *slog.Logger,
) {
	certHandler := NewCertificateHandler(db, asynqClient, storageClient, renderer, cfg.API.PublicBaseURL)
	wsHandler := NewWsHandler(redisClient, logger)
	internalSecret := middleware.InternalSecretMiddleware(cfg.API.InternalSecret)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		v1.GET("/verify/:verificationId", certHandler.VerifyCertificate)

		certGroup := v1.Group("/certificates")
		{
			certGroup.GET("/:id/download", certHandler.DownloadCertificate)
			certGroup.GET("/:id/download-link", certHandler.GetDownloadLink)
			certGroup.GET("/:id/view", certHandler.ViewCertificate)
			certGroup.GET("/:id/html", certHandler.DownloadHTML)
			certGroup.POST("/:id/render", internalSecret, certHandler.EnqueueRender)
		}
	}
}
