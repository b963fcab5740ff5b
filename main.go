// File: mindmate/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindmate/config"
	"mindmate/cron"
	"mindmate/database"
	recordsRepo "mindmate/database/repository/records"
	"mindmate/handlers"
	"mindmate/middleware"
	"mindmate/routes"
	"mindmate/services/booking"
	"mindmate/services/notification"
	"mindmate/services/scheduling"
	"mindmate/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitDraftCache()
	utils.InitAuthCache()
	if config.AppConfig.FirebaseCredentialsFile != "" {
		utils.FirebaseInit()
	}

	cloudinaryStorageService, err := utils.Cloudinary()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	// repositories.
	records := recordsRepo.NewMongoRecordRepo()

	// services.
	schedClient := scheduling.NewHTTPClient(
		config.AppConfig.SchedulingAPIURL,
		time.Duration(config.AppConfig.SchedulingAPITimeout)*time.Second,
	)

	draftStore := booking.NewRedisDraftStore(utils.GetDraftCacheClient())
	resolver := booking.NewSlotResolver(schedClient, config.AppConfig.BookingHorizonDays)
	uploader := booking.NewEvidenceUploader(cloudinaryStorageService, config.AppConfig.MaxReceiptSizeMB)
	enqueuer := cron.NewEnqueuer()
	defer enqueuer.Close()

	flowService := booking.NewBookingFlowService(
		schedClient,
		draftStore,
		resolver,
		uploader,
		records,
		enqueuer,
	)

	handlers.FlowService = flowService
	handlers.SchedClient = schedClient

	// Background confirmation worker.
	notificationService := notification.NewDefaultNotificationService()
	cron.InitBookingWorker(notificationService)

	routes.RegisterRoutes(router)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
