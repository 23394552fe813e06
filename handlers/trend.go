package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"orderlens/analytics"
	"orderlens/filter"
	"orderlens/models"
)

// TrendHandler returns the daily revenue and order trend with anomalies
// @Summary      Daily trend with anomaly flags
// @Description  Daily revenue and order counts for the filtered range, with z-score anomaly flags on both series
// @Tags         Analytics
// @Produce      json
// @Param        start_date  query     string  false  "Range start (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "Range end (YYYY-MM-DD)"
// @Param        country     query     []string false "Country filter, repeatable"
// @Param        threshold   query     number  false  "Z-score threshold, default 3.0"
// @Success      200         {object}  models.TrendResponse  "Trend points"
// @Failure      500         {object}  map[string]string     "Query failed"
// @Router       /api/dashboard/trend [get]
func (h *Handlers) TrendHandler(c *gin.Context) {
	filters := models.DashboardFilters{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Countries: c.QueryArray("country"),
	}

	threshold := h.cfg.AnomalyThreshold
	if raw := c.Query("threshold"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			threshold = v
		}
	}

	pred := filter.Build(filters, h.cfg.SQLServer.ArrayParams)
	query := fmt.Sprintf(
		"SELECT order_date, SUM(revenue) AS revenue, COUNT(DISTINCT order_id) AS orders FROM fact_orders WHERE (%s) GROUP BY order_date ORDER BY order_date",
		pred.SQL)

	result, err := h.sqlService.Query(c.Request.Context(), query, pred.Params, h.cfg.MaxResultRows)
	if err != nil {
		log.Printf("trend query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trend data"})
		return
	}

	points := make([]models.TrendPoint, 0, len(result.Rows))
	revenue := make([]float64, 0, len(result.Rows))
	orders := make([]float64, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 3 {
			continue
		}
		p := models.TrendPoint{
			Date:    fmt.Sprintf("%v", row[0]),
			Revenue: asFloat(row[1]),
			Orders:  asFloat(row[2]),
		}
		points = append(points, p)
		revenue = append(revenue, p.Revenue)
		orders = append(orders, p.Orders)
	}

	// each series is judged on its own: a revenue spike does not imply
	// an order spike
	revenueFlags := analytics.Detect(revenue, threshold)
	orderFlags := analytics.Detect(orders, threshold)

	resp := models.TrendResponse{Points: points, Threshold: threshold}
	for i := range points {
		points[i].IsRevenueAnomaly = revenueFlags[i]
		points[i].IsOrderAnomaly = orderFlags[i]
		if revenueFlags[i] {
			resp.RevenueAnomalies++
		}
		if orderFlags[i] {
			resp.OrderAnomalies++
		}
	}

	c.JSON(http.StatusOK, resp)
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
