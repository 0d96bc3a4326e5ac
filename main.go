package main

import (
	"database/sql"
	"fmt"
	"log"

	"incident-service/config"
	"incident-service/database"
	"incident-service/export"
	"incident-service/handlers"
	imagepkg "incident-service/image"
	"incident-service/middleware"
	"incident-service/storage"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.AdminEmails.Len() == 0 {
		log.Println("WARNING: ADMIN_EMAILS is empty; no identity will reach the admin panel")
	}

	// Database connection
	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	log.Println("Initializing database schema...")
	if err := database.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize services
	reports := database.NewReportService(db)
	staff := database.NewStaffService(db, cfg.JWTSecret, cfg.AdminEmails)
	normalizer := imagepkg.NewNormalizer(cfg.MaxImageWidth, cfg.JPEGQuality)
	exporter := export.New(cfg.ExportStatusColumn)

	var uploader storage.ObjectStore
	if cfg.PhotoMode == config.PhotoModeUpload {
		uploader, err = storage.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize photo store: %v", err)
		}
	}

	// Setup Gin router
	h := handlers.NewHandlers(cfg, reports, staff, normalizer, uploader, exporter)
	router := setupRouter(h, staff, cfg)

	// Start server
	log.Printf("Incident service starting on port %s (photo mode: %s, max width: %d)",
		cfg.Port, cfg.PhotoMode, cfg.MaxImageWidth)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Printf("ERROR: Failed to open database connection: %v", err)
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		log.Printf("ERROR: Failed to ping database: %v", err)
		return nil, err
	}

	return db, nil
}

func setupRouter(h *handlers.Handlers, staff *database.StaffService, cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// Set trusted proxies from config
	router.SetTrustedProxies(cfg.TrustedProxies)

	// Apply global middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeaders())

	// Health check
	router.GET("/health", h.HealthCheck)

	// Uploaded photos are public read-only static files
	if cfg.PhotoMode == config.PhotoModeUpload {
		router.Static("/uploads", cfg.UploadDir)
	}

	// Public API routes
	api := router.Group("/api/v1")
	{
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/login", h.Login)
	}

	// Authenticated routes
	authed := router.Group("/api/v1")
	authed.Use(middleware.AuthMiddleware(staff))
	{
		authed.GET("/auth/me", h.Me)
		authed.POST("/reports", h.SubmitReport)
	}

	// Admin routes: allow-list enforced server-side on every request
	admin := router.Group("/api/v1")
	admin.Use(middleware.AuthMiddleware(staff), middleware.AdminRequired(cfg.AdminEmails))
	{
		admin.GET("/reports", h.ListReports)
		admin.PATCH("/reports/:id/status", h.UpdateStatus)
		admin.GET("/reports/export", h.ExportReports)
	}

	return router
}
