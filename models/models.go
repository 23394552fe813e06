package models

// DashboardFilters is the filter state sent by the dashboard with every
// chat, trend, export and driver-analysis request. It is never mutated
// after binding; every component receives it read-only.
type DashboardFilters struct {
	StartDate    string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate      string   `json:"end_date,omitempty"`   // YYYY-MM-DD
	Currency     string   `json:"currency,omitempty"`
	Countries    []string `json:"countries,omitempty"`
	ProductTypes []string `json:"product_types,omitempty"`
	Clients      []string `json:"clients,omitempty"`
	Brands       []string `json:"brands,omitempty"`
	Suppliers    []string `json:"suppliers,omitempty"`
}

type ChatRequest struct {
	Message        string           `json:"message"`
	Filters        DashboardFilters `json:"filters"`
	ConversationID string           `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	AnswerText     string                   `json:"answer_text"`
	SQLQuery       string                   `json:"sql_query,omitempty"`
	Data           []map[string]interface{} `json:"data,omitempty"`
	ChartConfig    ChartConfig              `json:"chart_config"`
	RowCount       int                      `json:"row_count"`
	Warnings       []string                 `json:"warnings,omitempty"`
	Error          string                   `json:"error,omitempty"`
	CorrelationID  string                   `json:"correlation_id,omitempty"`
	ConversationID string                   `json:"conversation_id,omitempty"`
}

// ChartConfig tells the frontend how to render a query result. The type is
// one of: metric, table, bar, line, pie, scatter.
type ChartConfig struct {
	Type             string `json:"type"`
	XColumn          string `json:"x_column,omitempty"`
	YColumn          string `json:"y_column,omitempty"`
	SecondaryYColumn string `json:"secondary_y_column,omitempty"`
	Orientation      string `json:"orientation,omitempty"` // "vertical" or "horizontal"
	Title            string `json:"title,omitempty"`
}

// SQLResult is a tabular query result: ordered column names plus typed row
// values as returned by the driver.
type SQLResult struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	Truncated bool            `json:"truncated,omitempty"`
}

type ChatTurn struct {
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Driver analysis wire format.

type Period struct {
	Start string `json:"start" binding:"required"` // YYYY-MM-DD
	End   string `json:"end" binding:"required"`   // YYYY-MM-DD
}

type DriverAnalysisRequest struct {
	Metric        string           `json:"metric" binding:"required"` // revenue, orders, margin, aov
	CurrentPeriod Period           `json:"current_period" binding:"required"`
	PriorPeriod   Period           `json:"prior_period" binding:"required"`
	Filters       DashboardFilters `json:"filters"`
	Dimensions    []string         `json:"dimensions,omitempty"` // defaults to all allowed dimensions
	TopN          int              `json:"top_n,omitempty"`
}

type DriverEntity struct {
	Name                      string   `json:"name"`
	CurrentValue              float64  `json:"current_value"`
	PriorValue                float64  `json:"prior_value"`
	Delta                     float64  `json:"delta"`
	DeltaPct                  *float64 `json:"delta_pct,omitempty"` // nil when prior is zero
	ContributionToTotalChange float64  `json:"contribution_to_total_change"`
}

type DriverSummary struct {
	Dimension    string  `json:"dimension"`
	Entity       string  `json:"entity"`
	Contribution float64 `json:"contribution"`
}

type DriverAnalysisResponse struct {
	Metric         string                    `json:"metric"`
	CurrentTotal   float64                   `json:"current_total"`
	PriorTotal     float64                   `json:"prior_total"`
	TotalChange    float64                   `json:"total_change"`
	TotalChangePct float64                   `json:"total_change_pct"`
	Direction      string                    `json:"direction"` // up, down, flat
	Drivers        map[string][]DriverEntity `json:"drivers"`
	Summary        map[string]DriverSummary  `json:"summary"`
	Warnings       []string                  `json:"warnings,omitempty"`
}

// TrendPoint is one day of the dual-axis sales trend. Anomaly flags are
// annotations only; the raw values are untouched.
type TrendPoint struct {
	Date             string  `json:"date"`
	Revenue          float64 `json:"revenue"`
	Orders           float64 `json:"orders"`
	IsRevenueAnomaly bool    `json:"is_revenue_anomaly"`
	IsOrderAnomaly   bool    `json:"is_order_anomaly"`
}

type TrendResponse struct {
	Points           []TrendPoint `json:"points"`
	RevenueAnomalies int          `json:"revenue_anomalies"`
	OrderAnomalies   int          `json:"order_anomalies"`
	Threshold        float64      `json:"threshold"`
}

type ExportCSVRequest struct {
	SQLQuery string           `json:"sql_query" binding:"required"`
	Filters  DashboardFilters `json:"filters"`
	Filename string           `json:"filename,omitempty"`
}

type ExecuteSQLRequest struct {
	SQL     string           `json:"sql" binding:"required"`
	Filters DashboardFilters `json:"filters"`
}
