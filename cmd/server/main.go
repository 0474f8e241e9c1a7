package main

import (
	"log"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/handlers"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment, cfg.TursoDatabaseURL, cfg.TursoAuthToken); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.Masjid{},
		&models.User{},
		&models.Applicant{},
		&models.CaseDocument{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.MessageRead{},
		&models.SharedProfile{},
		&models.Notification{},
		&models.AuditLog{},
		&models.MagicLinkToken{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize blob storage (R2 when configured, local fallback)
	services.InitializeStorage(cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.POST("/api/auth/login", handlers.LoginHandler, middleware.LoginRateLimiter.Middleware())
	e.POST("/api/auth/magic-link", handlers.RequestMagicLinkHandler, middleware.MagicLinkRateLimiter.Middleware())
	e.GET("/api/auth/magic-link/verify", handlers.VerifyMagicLinkHandler)
	e.GET("/api/masjids/:slug", handlers.GetMasjidBySlugHandler)
	e.POST("/api/masjids/:slug/apply", handlers.PublicApplyHandler, middleware.PublicFormRateLimiter.Middleware())

	// Shared profile links work anonymously through the opaque id
	e.GET("/api/shared-profiles/:id", handlers.ViewSharedProfileHandler, middleware.OptionalAuth(cfg))

	// Authenticated routes (staff or applicant bearer token)
	authed := e.Group("/api")
	authed.Use(middleware.APIRateLimiter.Middleware())
	authed.Use(middleware.RequireAuth(cfg))
	authed.Use(middleware.AuditContext())
	{
		authed.GET("/me", handlers.MeHandler)

		// Conversations and messages (staff and applicants, service-level authz)
		authed.POST("/conversations/create", handlers.CreateConversationHandler)
		authed.GET("/conversations", handlers.ListConversationsHandler)
		authed.GET("/conversations/:id", handlers.GetConversationHandler)
		authed.POST("/conversations/:id/mark-read", handlers.MarkReadHandler)
		authed.POST("/messages/send", handlers.SendMessageHandler)
		authed.DELETE("/messages/:id", handlers.DeleteMessageHandler)

		// Documents (ownership checked in the handler)
		authed.GET("/documents/:docId", handlers.DownloadDocumentHandler)

		// Staff-only routes
		staff := authed.Group("")
		staff.Use(middleware.RequireStaff())
		{
			staff.POST("/conversations/staff", handlers.CreateStaffThreadHandler)
			staff.PUT("/conversations/:id/archive", handlers.ArchiveConversationHandler)

			staff.GET("/cases", handlers.ListCasesHandler)
			staff.GET("/cases/:id", handlers.GetCaseHandler)
			staff.GET("/cases/:id/summary.pdf", handlers.CaseSummaryPDFHandler)
			staff.PUT("/cases/:id/assign", handlers.AssignCaseHandler)

			staff.GET("/users", handlers.ListUsersHandler)

			staff.GET("/notifications", handlers.ListNotificationsHandler)
			staff.PUT("/notifications/:id/read", handlers.MarkNotificationReadHandler)
			staff.PUT("/notifications/read-all", handlers.MarkAllNotificationsReadHandler)

			staff.GET("/shared-profiles", handlers.ListSharesHandler)
			staff.POST("/shared-profiles", handlers.ShareProfileHandler)
		}

		// Status changes are for approvers and admins
		approvers := authed.Group("")
		approvers.Use(middleware.RequireRole(models.RoleAdmin, models.RoleApprover))
		{
			approvers.PUT("/cases/:id/status", handlers.UpdateCaseStatusHandler)
		}

		// Reports for admins and treasurers
		reports := authed.Group("/reports")
		reports.Use(middleware.RequireRole(models.RoleAdmin, models.RoleTreasurer))
		{
			reports.GET("/cases.xlsx", handlers.ExportCasesHandler)
		}

		// Admin-only routes
		adminRoutes := authed.Group("")
		adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminRoutes.POST("/users", handlers.CreateUserHandler)
			adminRoutes.PUT("/users/:id", handlers.UpdateUserHandler)
			adminRoutes.DELETE("/users/:id", handlers.DeactivateUserHandler)

			adminRoutes.DELETE("/shared-profiles/:id", handlers.RevokeShareHandler)

			adminRoutes.POST("/masjids", handlers.CreateMasjidHandler)
			adminRoutes.DELETE("/masjids/:id", handlers.DeleteMasjidHandler)
		}
	}

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredMagicLinks(db.DB); err != nil {
				log.Printf("Error cleaning up expired magic links: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
