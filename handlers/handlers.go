package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orderlens/ai"
	"orderlens/analytics"
	"orderlens/config"
	"orderlens/db"
	"orderlens/service"
)

// @title           OrderLens Analytics API
// @version         1.0
// @description     Conversational analytics over the orders warehouse - ask questions in plain language, get validated SQL, charts and variance analysis
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:9090
// @BasePath  /

// @schemes   http https

type Handlers struct {
	store      *db.Store
	aiService  *ai.AIService
	sqlService *service.SQLServerService
	pipeline   *service.ChatPipeline
	export     *service.ExportService
	drivers    *analytics.DriverEngine
	cfg        config.Config
}

func New(store *db.Store, aiService *ai.AIService, sqlService *service.SQLServerService,
	pipeline *service.ChatPipeline, export *service.ExportService,
	drivers *analytics.DriverEngine, cfg config.Config) *Handlers {
	return &Handlers{
		store:      store,
		aiService:  aiService,
		sqlService: sqlService,
		pipeline:   pipeline,
		export:     export,
		drivers:    drivers,
		cfg:        cfg,
	}
}

// HealthHandler checks the health status of the service
// @Summary      Health check
// @Description  Check the health status of all services (chat store, AI service, SQL Server)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string  "Service health status"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *gin.Context) {
	status := gin.H{
		"status":     "healthy",
		"db":         "connected",
		"ai_service": "ready",
		"sql_server": "not_configured",
	}

	if h.sqlService != nil && h.sqlService.IsConnected() {
		status["sql_server"] = "connected"
	}

	c.JSON(http.StatusOK, status)
}

// ChatHealthHandler reports whether the chat pipeline is ready
// @Summary      Chat pipeline health
// @Description  Check that the pieces the chat pipeline depends on are available
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string  "Pipeline readiness"
// @Router       /api/chat/health [get]
func (h *Handlers) ChatHealthHandler(c *gin.Context) {
	ready := h.aiService != nil && h.sqlService != nil && h.pipeline != nil
	status := "ready"
	if !ready {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
