package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"orderlens/models"
	"orderlens/service"
	"orderlens/validation"
)

// ExportCSVHandler downloads full query results as a CSV file
// @Summary      Export query results as CSV
// @Description  Run a validated query and stream the full result as CSV. The export bypasses display limits but keeps its own row cap and every safety check.
// @Tags         Export
// @Accept       json
// @Produce      text/csv
// @Param        request  body      models.ExportCSVRequest  true  "SQL template and active filters"
// @Success      200      {string}  string                   "CSV content"
// @Failure      400      {object}  map[string]string        "Invalid request"
// @Failure      422      {object}  map[string]string        "Query rejected"
// @Failure      500      {object}  map[string]string        "Export failed"
// @Router       /api/export/csv [post]
func (h *Handlers) ExportCSVHandler(c *gin.Context) {
	var req models.ExportCSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var buf bytes.Buffer
	rows, truncated, err := h.export.RunExport(c.Request.Context(), req.SQLQuery, req.Filters, &buf)
	if err != nil {
		var se *validation.SafetyError
		var pe *validation.PlaceholderError
		if errors.As(err, &se) || errors.As(err, &pe) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The query was rejected by the safety check."})
			return
		}
		var mpe *service.MissingParamsError
		if errors.As(err, &mpe) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = fmt.Sprintf("export_%s.csv", time.Now().Format("20060102_150405"))
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Row-Count", fmt.Sprintf("%d", rows))
	if truncated {
		c.Header("X-Truncated", "true")
	}
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
