package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"orderlens/filter"
	"orderlens/models"
	"orderlens/validation"
)

var limitClauseRe = regexp.MustCompile(`(?i)\s+LIMIT\s+\d+\s*$`)

// MissingParamsError reports @name references in a plain statement that
// no filter parameter can satisfy.
type MissingParamsError struct {
	Names []string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("statement references unbound parameters: %s", strings.Join(e.Names, ", "))
}

// BindReferencedParams resolves a plain statement's @name references
// against the filter predicate's parameters. Only referenced parameters
// are bound; a reference the predicate cannot satisfy is an error, caught
// here instead of surfacing as a database failure.
func BindReferencedParams(sqlText string, pred filter.Predicate) ([]sql.NamedArg, error) {
	refs := validation.ParamRefs(sqlText)
	if len(refs) == 0 {
		return nil, nil
	}

	byName := make(map[string]sql.NamedArg, len(pred.Params))
	for _, p := range pred.Params {
		byName[p.Name] = p
	}

	var params []sql.NamedArg
	var missing []string
	for _, name := range refs {
		p, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		params = append(params, p)
	}
	if len(missing) > 0 {
		return nil, &MissingParamsError{Names: missing}
	}
	return params, nil
}

// ExportService streams full query results as CSV. Exports bypass the
// display caps but never the safety checks, and they carry their own row
// ceiling so a runaway query cannot produce an unbounded file.
type ExportService struct {
	exec        Executor
	arrayParams bool
	rowCap      int
}

func NewExportService(exec Executor, arrayParams bool, rowCap int) *ExportService {
	return &ExportService{exec: exec, arrayParams: arrayParams, rowCap: rowCap}
}

// RunExport validates and runs the statement, then writes header and rows
// to w. The SQL may be a template carrying the filter placeholder once, in
// which case the dashboard predicate is injected; plain SQL without the
// placeholder runs as-is. More than one placeholder is rejected. Returns
// the number of data rows written and whether the cap cut the result.
func (s *ExportService) RunExport(ctx context.Context, sqlText string, filters models.DashboardFilters, w io.Writer) (int, bool, error) {
	prepared := strings.TrimSpace(sqlText)
	prepared = strings.TrimSuffix(prepared, ";")
	// models sometimes emit a LIMIT tail even against SQL Server
	prepared = limitClauseRe.ReplaceAllString(prepared, "")

	var params []sql.NamedArg
	pred := filter.Build(filters, s.arrayParams)
	switch n := validation.CountPlaceholders(prepared); n {
	case 0:
		// plain SQL still gets the filter parameters it references
		if err := validation.ValidateSQL(prepared); err != nil {
			return 0, false, err
		}
		bound, err := BindReferencedParams(prepared, pred)
		if err != nil {
			return 0, false, err
		}
		params = bound
	case 1:
		if err := validation.ValidateSQL(prepared); err != nil {
			return 0, false, err
		}
		injected, err := validation.InjectPredicate(prepared, pred.SQL)
		if err != nil {
			return 0, false, err
		}
		prepared = injected
		params = pred.Params
	default:
		return 0, false, &validation.PlaceholderError{Count: n}
	}

	result, err := s.exec.Query(ctx, prepared, params, s.rowCap)
	if err != nil {
		return 0, false, err
	}

	written, err := WriteCSV(w, result)
	if err != nil {
		return written, result.Truncated, err
	}
	return written, result.Truncated, nil
}

// WriteCSV writes the result's header and rows to w. Nil cells become
// empty fields.
func WriteCSV(w io.Writer, result *models.SQLResult) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(result.Columns); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	written := 0
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, val := range row {
			if val == nil {
				record[i] = ""
			} else {
				record[i] = fmt.Sprintf("%v", val)
			}
		}
		if err := writer.Write(record); err != nil {
			return written, fmt.Errorf("failed to write CSV row: %w", err)
		}
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return written, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return written, nil
}
