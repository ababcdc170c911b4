package router

import (
	"context"
	"net/http"
	"time"

	"salun/config"
	"salun/internal/handler"
	"salun/internal/middleware"
	"salun/internal/repository"
	"salun/internal/service"
	"salun/internal/ws"
	"salun/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto a gin engine. The REST
// API lives under /api; the push socket is /ws. cloud and fcm may be nil.
// ctx bounds background housekeeping.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, cloud cloudinary.Client, fcm *service.FCMService, hub *ws.Hub) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog())
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewIPRateLimiter(cfg.Server.RateLimit, int(cfg.Server.RateLimit*2), 10*time.Minute)
		go limiter.Run(ctx, time.Minute)
		r.Use(middleware.RateLimit(limiter))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	barcodeRepo := repository.NewBarcodeRepository(db)
	rangeRepo := repository.NewRangeRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	// Services
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, hub, fcm)
	authSvc := service.NewAuthService(cfg, userRepo, notifSvc, hub)
	pointsSvc := service.NewPointsService(db, userRepo, barcodeRepo, rangeRepo, historyRepo, notifSvc, hub)
	userSvc := service.NewUserService(db, userRepo, barcodeRepo, notifSvc, hub)
	barcodeSvc := service.NewBarcodeService(barcodeRepo, rangeRepo, hub)
	rewardSvc := service.NewRewardService(db, rewardRepo, redemptionRepo, pointsSvc, notifSvc, hub, cloud, cfg.Cloudinary.Folder)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc, pointsSvc, authSvc)
	barcodeHandler := handler.NewBarcodeHandler(barcodeSvc, pointsSvc)
	rewardHandler := handler.NewRewardHandler(rewardSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	historyHandler := handler.NewHistoryHandler(pointsSvc)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": hub.ClientCount()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", ws.Upgrade(&cfg.JWT, hub))

	api := r.Group("/api")
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(&cfg.JWT), middleware.ApprovedOnly(userRepo))
	{
		authed.GET("/users/:id", userHandler.Get)
		authed.PUT("/users/:id/password", userHandler.ChangePassword)
		authed.PUT("/device", userHandler.SetDevice)

		authed.GET("/barcodes/user/:id", barcodeHandler.ListByUser)
		authed.POST("/barcodes", barcodeHandler.Scan)

		authed.GET("/rewards", rewardHandler.List)
		authed.GET("/redemptions", rewardHandler.Redemptions)
		authed.POST("/redemptions", rewardHandler.Redeem)

		authed.GET("/notifications", notificationHandler.List)
		authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		authed.DELETE("/notifications/:id", notificationHandler.Delete)

		authed.GET("/history/user/:id", historyHandler.ListByUser)
	}

	admin := authed.Group("")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/users", userHandler.List)
		admin.PUT("/users/:id/status", userHandler.SetStatus)
		admin.PUT("/users/:id/reset-points", userHandler.ResetPoints)
		admin.DELETE("/users/:id", userHandler.Delete)
		admin.POST("/manual-point", userHandler.AdjustPoints)

		admin.GET("/barcodes", barcodeHandler.List)
		admin.DELETE("/barcodes/:id", barcodeHandler.Delete)

		admin.GET("/barcode-ranges", barcodeHandler.Ranges)
		admin.POST("/barcode-ranges", barcodeHandler.CreateRange)
		admin.PUT("/barcode-ranges/:id", barcodeHandler.UpdateRange)
		admin.DELETE("/barcode-ranges/:id", barcodeHandler.DeleteRange)

		admin.POST("/rewards", rewardHandler.Create)
		admin.DELETE("/rewards/:id", rewardHandler.Delete)
		admin.PUT("/redemptions/:id/status", rewardHandler.SetRedemptionStatus)

		admin.GET("/history", historyHandler.List)
	}
	return r
}
