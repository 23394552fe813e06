package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"orderlens/config"
	"orderlens/models"
)

// ErrTimeout marks a query that ran past the execution deadline. It is
// not a database failure and must never trigger the repair path.
var ErrTimeout = errors.New("query execution timed out")

// ExecError is an error the database itself reported (bad column, syntax
// past the static checks, arithmetic overflow). These are the only
// failures worth sending back to the model for repair.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string {
	return "query execution failed: " + e.Message
}

type SQLServerService struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewSQLServerService(cfg config.SQLServerConfig, queryTimeout time.Duration) (*SQLServerService, error) {
	if cfg.Server == "" || cfg.Database == "" {
		return nil, fmt.Errorf("SQL Server configuration is incomplete")
	}

	connectionString := buildConnectionString(cfg)

	db, err := sql.Open("sqlserver", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQL Server connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		// Log a warning but do not fail service initialization.
		// This allows the application to start even if SQL Server is temporarily unavailable.
		log.Printf("Warning: failed to ping SQL Server during initialization: %v", err)
	}

	return &SQLServerService{
		db:           db,
		queryTimeout: queryTimeout,
	}, nil
}

func buildConnectionString(cfg config.SQLServerConfig) string {
	connStr := fmt.Sprintf("server=%s;port=%s;database=%s",
		cfg.Server, cfg.Port, cfg.Database)

	if cfg.UserID != "" {
		connStr += fmt.Sprintf(";user id=%s;password=%s", cfg.UserID, cfg.Password)
	} else {
		connStr += ";trusted_connection=true"
	}

	if cfg.Encrypt {
		// Use TLS but skip CA verification so self-signed / internal certs work.
		// NOTE: For production, you should configure proper certificates instead.
		connStr += ";encrypt=true;TrustServerCertificate=true"
	} else {
		connStr += ";encrypt=false"
	}

	return connStr
}

func (s *SQLServerService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Query runs one read-only statement with named parameters under the
// service deadline. At most maxRows rows are scanned; when the database
// has more, the result is marked truncated instead of failing.
func (s *SQLServerService) Query(ctx context.Context, query string, params []sql.NamedArg, maxRows int) (*models.SQLResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("SQL Server connection is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	args := make([]interface{}, len(params))
	for i, p := range params {
		args[i] = p
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classifyExecError(ctx, err)
	}

	result := &models.SQLResult{Columns: columns}

	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, classifyExecError(ctx, err)
		}

		row := make([]interface{}, len(columns))
		for i, val := range values {
			row[i] = normalizeValue(val)
		}
		result.Rows = append(result.Rows, row)
	}

	if !result.Truncated {
		if err := rows.Err(); err != nil {
			return nil, classifyExecError(ctx, err)
		}
	}

	return result, nil
}

// normalizeValue converts driver types into JSON-friendly Go values.
// Numbers stay numeric so downstream chart selection can tell a metric
// column from a label column.
func normalizeValue(val interface{}) interface{} {
	switch v := val.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return v
	}
}

func classifyExecError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ExecError{Message: err.Error()}
}

func (s *SQLServerService) IsConnected() bool {
	if s.db == nil {
		return false
	}
	return s.db.Ping() == nil
}
