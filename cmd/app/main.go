package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "cpgram-backend/docs"
	"cpgram-backend/internal/common/cache"
	"cpgram-backend/internal/common/config"
	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/common/middleware"
	adminHTTP "cpgram-backend/internal/features/admin/delivery/http"
	adminService "cpgram-backend/internal/features/admin/service"
	broadcastRedis "cpgram-backend/internal/features/broadcast/repository/redis"
	broadcastService "cpgram-backend/internal/features/broadcast/service"
	campaignHTTP "cpgram-backend/internal/features/campaign/delivery/http"
	campaignMongo "cpgram-backend/internal/features/campaign/repository/mongo"
	campaignService "cpgram-backend/internal/features/campaign/service"
	channelHTTP "cpgram-backend/internal/features/channel/delivery/http"
	channelMongo "cpgram-backend/internal/features/channel/repository/mongo"
	channelService "cpgram-backend/internal/features/channel/service"
	crosspromoHTTP "cpgram-backend/internal/features/crosspromo/delivery/http"
	crosspromoMongo "cpgram-backend/internal/features/crosspromo/repository/mongo"
	crosspromoService "cpgram-backend/internal/features/crosspromo/service"
	paymentHTTP "cpgram-backend/internal/features/payment/delivery/http"
	paymentMongo "cpgram-backend/internal/features/payment/repository/mongo"
	paymentService "cpgram-backend/internal/features/payment/service"
	taskHTTP "cpgram-backend/internal/features/task/delivery/http"
	taskMongo "cpgram-backend/internal/features/task/repository/mongo"
	taskService "cpgram-backend/internal/features/task/service"
	userHTTP "cpgram-backend/internal/features/user/delivery/http"
	userMongo "cpgram-backend/internal/features/user/repository/mongo"
	userService "cpgram-backend/internal/features/user/service"
	"cpgram-backend/internal/platform/bugsink"
	"cpgram-backend/internal/platform/metrics"
	"cpgram-backend/internal/platform/mongo"
	"cpgram-backend/internal/platform/rabbit"
	"cpgram-backend/internal/platform/redis"
	"cpgram-backend/internal/platform/telegram"
)

// @title           CP Gram API
// @version         1.0
// @description     API server for the CP Gram Telegram Mini App. Channel owners exchange cross-promotions paid in CP Coins. All endpoints except the bot webhook require init_data authentication.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

// @tag.name users
// @tag.description User accounts and CP Coin balances

// @tag.name channels
// @tag.description Channel registration, validation and moderation

// @tag.name requests
// @tag.description Cross-promo requests between channel owners

// @tag.name campaigns
// @tag.description Two-party campaign lifecycle - posting, completion, rewards

// @tag.name tasks
// @tag.description One-time earning tasks

// @tag.name purchase
// @tag.description CP Coin purchases with Telegram Stars

// @tag.name admin
// @tag.description Moderation, statistics and broadcasts
func main() {
	cfg := config.Load()

	logger.Init("cpgram-backend", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("Starting CP Gram backend")

	if err := bugsink.Init(bugsink.Config{
		Enabled:     cfg.BugSink.Enabled,
		DSN:         cfg.BugSink.DSN,
		Environment: cfg.BugSink.Environment,
		Release:     cfg.BugSink.Release,
	}); err != nil {
		logger.Warn().Err(err).Msg("Error reporting disabled")
	}
	defer bugsink.Close()

	metrics.Init(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Port:    cfg.Metrics.Port,
		Path:    cfg.Metrics.Path,
	})

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	mongoClient, err := mongo.Open(startupCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	if err := mongoClient.EnsureIndexes(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure indexes")
	}
	logger.Info().Msg("MongoDB connection established")

	redisClient, err := redis.Open(startupCtx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	cacheService := cache.NewCacheService(redisClient)
	logger.Info().Msg("Redis connection established")

	gateway, err := telegram.NewGateway(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram gateway")
	}

	rabbitClient := rabbit.NewClient(cfg.Rabbit.URL, cfg.Rabbit.QueueName)

	// Repositories
	userRepository := userMongo.NewUserRepository(mongoClient.DB)
	channelRepository := channelMongo.NewChannelRepository(mongoClient.DB)
	campaignRepository := campaignMongo.NewCampaignRepository(mongoClient.DB)
	requestRepository := crosspromoMongo.NewRequestRepository(mongoClient.DB)
	taskRepository := taskMongo.NewTaskRepository(mongoClient.DB)
	transactionRepository := paymentMongo.NewTransactionRepository(mongoClient.DB)
	progressRepository := broadcastRedis.NewProgressRepository(redisClient.Client)

	// Services
	userSvc := userService.NewUserService(userRepository, cfg.Telegram.AdminIDs)
	channelSvc := channelService.NewChannelService(channelRepository, gateway, cacheService, cfg.Telegram.AdminChatID)
	campaignSvc := campaignService.NewCampaignService(campaignRepository, channelRepository, userSvc)
	requestSvc := crosspromoService.NewRequestService(requestRepository, channelRepository, userSvc, campaignSvc, gateway)
	taskSvc := taskService.NewTaskService(taskRepository, channelRepository, userSvc, campaignSvc,
		gateway, cfg.Telegram.AdminChatID, cfg.Telegram.AppURL)
	paymentSvc := paymentService.NewPaymentService(transactionRepository, userSvc, gateway,
		int(cfg.Purchase.StarsPerCPC), cfg.Telegram.AdminChatID)
	broadcastSvc := broadcastService.NewBroadcastService(progressRepository, userSvc, rabbitClient,
		gateway, cfg.Telegram.AdminChatID)
	statsSvc := adminService.NewStatsService(userRepository, channelRepository, campaignRepository,
		requestRepository, transactionRepository)

	deadlineSvc := campaignService.NewDeadlineService(campaignRepository, channelRepository,
		userSvc, gateway, taskSvc, cfg.Telegram.AppURL)
	if err := deadlineSvc.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	broadcastSvc.StartWorker()
	logger.Info().Msg("Services initialized")

	// Router
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data"}
	router.Use(cors.New(corsConfig))

	// The bot webhook is called by Telegram, not the Mini App, so it lives
	// outside the authenticated group.
	paymentHandler := paymentHTTP.NewPaymentHandler(paymentSvc)
	paymentHandler.RegisterWebhook(router.Group("/api"))

	api := router.Group("/api")
	api.Use(middleware.TelegramInitDataMiddleware())
	api.Use(middleware.AutoCreateUser(userSvc))
	api.Use(middleware.RequireAuth())
	{
		userHTTP.NewUserHandler(userSvc).RegisterRoutes(api)
		channelHTTP.NewChannelHandler(channelSvc).RegisterRoutes(api)
		campaignHTTP.NewCampaignHandler(campaignSvc).RegisterRoutes(api)
		crosspromoHTTP.NewRequestHandler(requestSvc).RegisterRoutes(api)
		taskHTTP.NewTaskHandler(taskSvc).RegisterRoutes(api)
		paymentHandler.RegisterRoutes(api)

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		adminHTTP.NewAdminHandler(statsSvc, broadcastSvc, taskSvc).RegisterRoutes(admin)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "cpgram-backend",
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	deadlineSvc.Stop()
	rabbitClient.Close()
	if err := redisClient.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close Redis connection")
	}
	if err := mongoClient.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Failed to close MongoDB connection")
	}

	logger.Info().Msg("Server exited")
}
