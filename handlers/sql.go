package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderlens/filter"
	"orderlens/models"
	"orderlens/service"
	"orderlens/validation"
)

// ExecuteSQLHandler runs a hand-written query through the same gates
// @Summary      Execute a read-only SQL query
// @Description  Run a SQL statement against the warehouse. The same safety validation applies as for generated queries; the statement may carry the filter placeholder once to pick up the dashboard filters.
// @Tags         SQL Execution
// @Accept       json
// @Produce      json
// @Param        request  body      models.ExecuteSQLRequest  true  "SQL and optional filters"
// @Success      200      {object}  models.SQLResult          "Query result"
// @Failure      400      {object}  map[string]string         "Invalid request"
// @Failure      422      {object}  map[string]string         "Query rejected"
// @Failure      503      {object}  map[string]string         "SQL Server not configured"
// @Failure      500      {object}  map[string]string         "Execution failed"
// @Router       /api/sql/execute [post]
func (h *Handlers) ExecuteSQLHandler(c *gin.Context) {
	var req models.ExecuteSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if h.sqlService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SQL Server service is not configured"})
		return
	}

	sqlText := req.SQL
	pred := filter.Build(req.Filters, h.cfg.SQLServer.ArrayParams)
	params := pred.Params

	switch n := validation.CountPlaceholders(sqlText); n {
	case 0:
		// plain SQL may still reference filter parameters by name
		bound, err := service.BindReferencedParams(sqlText, pred)
		if err != nil {
			var mpe *service.MissingParamsError
			if errors.As(err, &mpe) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		params = bound
	case 1:
		if err := validation.ValidateSQL(sqlText); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The query was rejected by the safety check."})
			return
		}
		injected, err := validation.InjectPredicate(sqlText, pred.SQL)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The query was rejected by the safety check."})
			return
		}
		sqlText = injected
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The filter placeholder may appear at most once."})
		return
	}

	if err := validation.ValidateSQL(sqlText); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The query was rejected by the safety check."})
		return
	}

	result, err := h.sqlService.Query(c.Request.Context(), sqlText, params, h.cfg.MaxResultRows)
	if err != nil {
		if errors.Is(err, service.ErrTimeout) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "The query took too long."})
			return
		}
		log.Printf("manual query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query execution failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
