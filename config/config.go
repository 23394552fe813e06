package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port   string
	DBPath string // badger chat history store

	LLM       LLMConfig
	SQLServer SQLServerConfig
	Render    RenderConfig

	// QueryTimeout bounds a single analytical query; it is deliberately
	// shorter than the LLM generation timeout.
	QueryTimeout  time.Duration
	MaxResultRows int // rows scanned for on-screen results
	ExportRowCap  int // fixed ceiling for CSV export, independent of MaxResultRows

	AnomalyThreshold float64
}

type LLMConfig struct {
	APIKey             string
	ModelName          string
	APIURL             string
	Timeout            time.Duration
	MinRequestInterval time.Duration
	MaxRetries         int
}

type SQLServerConfig struct {
	Server   string
	Port     string
	Database string
	UserID   string
	Password string
	Encrypt  bool

	// ArrayParams marks dialects that accept a list filter as a single
	// array-typed bound parameter (col = ANY(@p)). SQL Server does not, so
	// the predicate builder falls back to one placeholder per element.
	ArrayParams bool
}

// RenderConfig holds the chart selection thresholds.
type RenderConfig struct {
	MaxDisplayRows     int // chart/table rows shown before truncation
	LongLabelThreshold int // label length that flips bars horizontal
	PieMaxSlices       int
	BarMaxCategories   int
}

func GetConfig() Config {
	return Config{
		Port:   getEnv("PORT", "9090"),
		DBPath: getEnv("DB_PATH", "./data/badger"),
		LLM: LLMConfig{
			APIKey:             getEnv("LLM_API_KEY", ""),
			ModelName:          getEnv("LLM_MODEL", "qwen3-max"),
			APIURL:             getEnv("LLM_API_URL", "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"),
			Timeout:            getDurationEnv("LLM_TIMEOUT_SECONDS", 60*time.Second),
			MinRequestInterval: 500 * time.Millisecond,
			MaxRetries:         getIntEnv("LLM_RETRIES", 2),
		},
		SQLServer: SQLServerConfig{
			Server:      getEnv("SQL_SERVER", "localhost"),
			Port:        getEnv("SQL_PORT", "1433"),
			Database:    getEnv("SQL_DATABASE", "orderlens"),
			UserID:      getEnv("SQL_USER", ""),
			Password:    getEnv("SQL_PASSWORD", ""),
			Encrypt:     getEnv("SQL_ENCRYPT", "true") == "true",
			ArrayParams: getEnv("SQL_ARRAY_PARAMS", "false") == "true",
		},
		Render: RenderConfig{
			MaxDisplayRows:     15,
			LongLabelThreshold: 20,
			PieMaxSlices:       8,
			BarMaxCategories:   20,
		},
		QueryTimeout:     getDurationEnv("SQL_TIMEOUT_SECONDS", 30*time.Second),
		MaxResultRows:    getIntEnv("MAX_RESULT_ROWS", 5000),
		ExportRowCap:     getIntEnv("EXPORT_ROW_CAP", 10000),
		AnomalyThreshold: getFloatEnv("ANOMALY_THRESHOLD", 3.0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}
