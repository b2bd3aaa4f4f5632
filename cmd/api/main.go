package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Intruder289/maishaap-backend-sub002/docs" // Swagger docs
	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/database"
	"github.com/Intruder289/maishaap-backend-sub002/internal/handlers"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/metrics"
	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/Intruder289/maishaap-backend-sub002/internal/statemachine"
	"github.com/Intruder289/maishaap-backend-sub002/internal/storage"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Maisha API
// @version 1.0
// @description REST API for property, booking, rent and payment management
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logger.Setup(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(2)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if !cfg.Email.Configured() {
		logger.Warn("Email disabled: set RESEND_API_KEY or EMAIL_HOST")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient == nil {
		logger.Warn("REDIS_URL not set, job locks and gateway tokens stay in process")
	}

	store, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerConcurrency)
	logger.Info("Started background worker", "goroutines", cfg.WorkerConcurrency)

	svcs := services.NewServices(repos, worker, store, cfg, redisClient)
	h := handlers.NewHandlers(svcs, database.Ping(db))
	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if redisClient != nil {
		redisClient.Close()
	}
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedHosts))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.Index)

		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/register", h.Auth.Register)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Gateway callback, authenticated by signature.
		v1.POST("/payments/webhook/azam-pay", h.Payment.Webhook)
		v1.POST("/payments/webhook/azam-pay/", h.Payment.Webhook)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.SecretKey))
		{
			protected.GET("/auth/me", h.Auth.Me)
			protected.PATCH("/users/me", h.User.UpdateMe)
			protected.PATCH("/users/me/change_password", h.User.ChangePassword)

			// Properties and rooms; ownership is checked per record.
			protected.GET("/properties", h.Property.Index)
			protected.POST("/properties", middleware.RequireRole(models.RoleOwner), h.Property.Create)
			protected.GET("/properties/:property_id", h.Property.Show)
			protected.GET("/properties/:property_id/rooms", h.Property.Rooms)
			protected.POST("/properties/:property_id/rooms", middleware.RequireRole(models.RoleOwner), h.Property.CreateRoom)
			protected.PATCH("/rooms/:room_id/status", middleware.RequireRole(models.RoleOwner), h.Property.SetRoomStatus)
			protected.POST("/properties/:property_id/visit-payment", h.Property.VisitPayment)
			protected.GET("/properties/:property_id/visit-status", h.Property.VisitStatus)

			protected.GET("/customers", h.Customer.Index)
			protected.POST("/customers", middleware.RequireRole(models.RoleOwner), h.Customer.Create)
			protected.GET("/customers/:customer_id", h.Customer.Show)

			bookings := protected.Group("/bookings")
			{
				bookings.GET("", h.Booking.Index)
				bookings.POST("", h.Booking.Create)
				bookings.GET("/:booking_id", h.Booking.Show)
				bookings.PATCH("/:booking_id", h.Booking.Update)
				bookings.DELETE("/:booking_id", middleware.RequireRole(models.RoleOwner), h.Booking.Delete)
				bookings.POST("/:booking_id/recalculate", middleware.RequireRole(models.RoleOwner), h.Booking.Recalculate)
				bookings.POST("/:booking_id/payments", h.Payment.CreateForBooking)
				bookings.POST("/:booking_id/confirm", h.Booking.Transition(statemachine.ActionConfirm))
				bookings.POST("/:booking_id/check-in", h.Booking.Transition(statemachine.ActionCheckIn))
				bookings.POST("/:booking_id/check-out", h.Booking.Transition(statemachine.ActionCheckOut))
				bookings.POST("/:booking_id/cancel", h.Booking.Transition(statemachine.ActionCancel))
				bookings.POST("/:booking_id/no-show", h.Booking.Transition(statemachine.ActionNoShow))
			}

			payments := protected.Group("/payments")
			{
				payments.GET("", h.Payment.Index)
				payments.GET("/:payment_id", h.Payment.Show)
				payments.GET("/:payment_id/audits", h.Payment.Audits)
				payments.POST("/:payment_id/refund", middleware.RequireRole(models.RoleOwner), h.Payment.Refund)
				payments.POST("/:payment_id/receipt", h.Payment.UploadReceipt)
				payments.GET("/:payment_id/receipt", h.Payment.DownloadReceipt)
			}

			rent := protected.Group("/rent")
			{
				rent.GET("/invoices", h.Rent.Invoices)
				rent.GET("/invoices/:invoice_id", h.Rent.Invoice)
				rent.POST("/invoices/:invoice_id/mark-paid", middleware.RequireRole(models.RoleOwner), h.Rent.MarkPaid)
				rent.POST("/invoices/:invoice_id/send", middleware.RequireRole(models.RoleOwner), h.Rent.SendInvoice)
				rent.GET("/leases", h.Rent.Leases)
				rent.POST("/leases", middleware.RequireRole(models.RoleOwner), h.Rent.CreateLease)
				rent.GET("/leases/:lease_id", h.Rent.Lease)
				rent.PATCH("/leases/:lease_id", middleware.RequireRole(models.RoleOwner), h.Rent.UpdateLease)
				rent.GET("/leases/:lease_id/late-fee-config", h.Rent.LateFeeConfig)
				rent.PUT("/leases/:lease_id/late-fee-config", middleware.RequireRole(models.RoleOwner), h.Rent.SaveLateFeeConfig)
				rent.POST("/payments", h.Payment.CreateRent)
				rent.POST("/payments/:payment_id/initiate-gateway", h.Payment.InitiateGateway)
				rent.POST("/payments/:payment_id/verify", h.Payment.Verify)
			}

			reminders := protected.Group("/reminders")
			reminders.Use(middleware.RequireRole(models.RoleOwner))
			{
				reminders.GET("", h.Reminder.Index)
				reminders.GET("/settings/:property_id", h.Reminder.Settings)
				reminders.PUT("/settings/:property_id", h.Reminder.UpdateSettings)
				reminders.GET("/templates", h.Reminder.Templates)
				reminders.GET("/templates/:template_id", h.Reminder.Template)
				reminders.GET("/:reminder_id", h.Reminder.Show)
				reminders.GET("/:reminder_id/logs", h.Reminder.Logs)
				reminders.POST("/:reminder_id/send", h.Reminder.Send)
				reminders.POST("/:reminder_id/cancel", h.Reminder.Cancel)
			}

			// Static route first so "mark_all_as_read" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.POST("/mark_all_as_read", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/mark_as_read", h.Notification.MarkAsRead)
				notifications.DELETE("/:notification_id", h.Notification.Delete)
			}

			staff := protected.Group("")
			staff.Use(middleware.RequireStaff())
			{
				staff.GET("/users", h.User.Index)
				staff.POST("/users", h.User.Create)
				staff.PUT("/users/:user_id/toggle_status", h.User.ToggleStatus)

				staff.POST("/properties/:property_id/approve", h.Property.Approve)
				staff.POST("/properties/:property_id/rooms/sync", h.Property.SyncRooms)

				staff.POST("/rent/invoices/generate-monthly", h.Rent.GenerateMonthly)

				staff.POST("/reminders/templates", h.Reminder.CreateTemplate)
				staff.PATCH("/reminders/templates/:template_id", h.Reminder.UpdateTemplate)
				staff.DELETE("/reminders/templates/:template_id", h.Reminder.DeleteTemplate)

				staff.GET("/audits", h.Audit.Index)
				staff.GET("/jobs/stats", h.Job.Stats)
				staff.POST("/jobs/:name/run", h.Job.Run)
			}
		}
	}

	return router
}
