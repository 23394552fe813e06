package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderlens/analytics"
	"orderlens/models"
)

// DriverAnalysisHandler explains a metric change between two periods
// @Summary      Analyze metric drivers
// @Description  Decompose the change of a metric between two periods across business dimensions and rank the entities that drove it
// @Tags         Analytics
// @Accept       json
// @Produce      json
// @Param        request  body      models.DriverAnalysisRequest   true  "Metric, periods, filters and dimensions"
// @Success      200      {object}  models.DriverAnalysisResponse  "Driver decomposition"
// @Failure      400      {object}  map[string]string              "Invalid request"
// @Failure      500      {object}  map[string]string              "Analysis failed"
// @Router       /api/analyze/drivers [post]
func (h *Handlers) DriverAnalysisHandler(c *gin.Context) {
	var req models.DriverAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := h.drivers.Analyze(c.Request.Context(), req)
	if err != nil {
		log.Printf("driver analysis failed: %v", err)
		if errors.Is(err, analytics.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Driver analysis failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
