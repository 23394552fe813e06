package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"orderlens/ai"
	"orderlens/analytics"
	"orderlens/cache"
	"orderlens/config"
	"orderlens/db"
	_ "orderlens/docs" // Swagger docs
	"orderlens/handlers"
	"orderlens/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.GetConfig()

	// Chat history store
	store, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize chat store: %v", err)
	}
	defer store.Close()

	// SQL template cache
	appCache := cache.New(30*time.Minute, 10*time.Minute)

	aiService, err := ai.New(cfg.LLM, appCache)
	if err != nil {
		log.Fatalf("Failed to initialize AI service: %v", err)
	}
	defer aiService.Close()

	sqlService, err := service.NewSQLServerService(cfg.SQLServer, cfg.QueryTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize SQL Server service: %v", err)
	}
	defer sqlService.Close()

	pipeline := service.NewChatPipeline(aiService, sqlService, cfg)
	exportService := service.NewExportService(sqlService, cfg.SQLServer.ArrayParams, cfg.ExportRowCap)
	driverEngine := analytics.NewDriverEngine(sqlService, cfg.SQLServer.ArrayParams)

	h := handlers.New(store, aiService, sqlService, pipeline, exportService, driverEngine, cfg)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD"},
		AllowHeaders:    []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:   []string{"Content-Disposition", "X-Row-Count", "X-Truncated"},
		MaxAge:          24 * time.Hour,
	}))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Routes
	r.GET("/health", h.HealthHandler)
	r.GET("/api/chat/health", h.ChatHealthHandler)
	r.POST("/api/chat", h.ChatHandler)
	r.GET("/api/chat/history/:conversation_id", h.ChatHistoryHandler)
	r.POST("/api/analyze/drivers", h.DriverAnalysisHandler)
	r.GET("/api/dashboard/trend", h.TrendHandler)
	r.POST("/api/export/csv", h.ExportCSVHandler)
	r.POST("/api/sql/execute", h.ExecuteSQLHandler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
