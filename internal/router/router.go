package router

import (
	"log"
	"net/http"

	"hansa/config"
	"hansa/internal/domain"
	"hansa/internal/handler"
	"hansa/internal/middleware"
	"hansa/internal/repository"
	"hansa/internal/service"
	"hansa/internal/ws"
	"hansa/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, rdb *redis.Client, cloud cloudinary.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	var limiter middleware.Limiter
	if rdb != nil {
		limiter = middleware.NewRedisRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		limiter = middleware.NewInMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	r.Use(middleware.RateLimit(limiter))
	r.Use(middleware.Metrics())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	fcmSvc := service.NewFCMService(cfg.Firebase.ServiceAccountPath)
	if fcmSvc != nil {
		log.Printf("[FCM] Push notifications enabled")
	} else if cfg.Firebase.ServiceAccountPath != "" {
		log.Printf("[FCM] Push notifications disabled: failed to init (check service account file)")
	} else {
		log.Printf("[FCM] Push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, fcmSvc, hub)
	msgSvc := service.NewMessageService(msgRepo, convRepo, userRepo, notifSvc, hub, cloud, service.AttachmentPolicy{
		MaxBytes:         cfg.Upload.MaxAttachmentBytes,
		AllowedMimeTypes: cfg.Upload.AllowedMimeTypes,
	})
	convSvc := service.NewConversationService(convRepo, msgRepo, userRepo, listingRepo, msgSvc, notifSvc, hub)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, userRepo)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc)
	convHandler := handler.NewConversationHandler(convSvc, msgSvc)
	msgHandler := handler.NewMessageHandler(msgSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	listingHandler := handler.NewListingHandler(listingRepo, convRepo, notifSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
			authGroup.POST("/fcm-token", authMw, authHandler.RegisterFCMToken)
		}

		convs := api.Group("/conversations")
		convs.Use(authMw)
		{
			convs.POST("", convHandler.Create)
			convs.GET("", convHandler.List)
			convs.GET("/:id/messages", convHandler.Messages)
			convs.GET("/:id/messages/search", convHandler.Search)
			convs.POST("/:id/messages", msgHandler.Send)
			convs.PATCH("/:id/status", convHandler.SetStatus)
			convs.POST("/:id/read", convHandler.MarkRead)
		}

		msgs := api.Group("/messages")
		msgs.Use(authMw)
		{
			msgs.POST("/:id/delivered", msgHandler.MarkDelivered)
			msgs.POST("/:id/read", msgHandler.MarkRead)
			msgs.DELETE("/:id", msgHandler.Delete)
			msgs.POST("/:id/attachments", msgHandler.UploadAttachment)
		}

		notifs := api.Group("/notifications")
		notifs.Use(authMw)
		{
			notifs.GET("", notificationHandler.List)
			notifs.GET("/unread-count", notificationHandler.UnreadCount)
			notifs.POST("/:id/read", notificationHandler.MarkRead)
			notifs.POST("/read-all", notificationHandler.MarkAllRead)
			notifs.DELETE("/:id", notificationHandler.Delete)
			notifs.GET("/settings", notificationHandler.GetSettings)
			notifs.PATCH("/settings", notificationHandler.UpdateSettings)
		}

		listings := api.Group("/listings")
		{
			listings.GET("/:id", listingHandler.Get)
			listings.GET("/mine", authMw, listingHandler.ListMine)
			listings.POST("", authMw, listingHandler.Create)
			listings.PATCH("/:id", authMw, listingHandler.Update)
			listings.DELETE("/:id", authMw, middleware.RequireRole(domain.RoleAdmin), listingHandler.Remove)
		}
	}

	r.GET("/ws/chat", handler.UpgradeChatWS(&cfg.JWT, hub, convSvc, msgSvc))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": hub.ClientCount()})
	})
	return r
}
