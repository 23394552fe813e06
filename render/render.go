package render

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"orderlens/config"
	"orderlens/models"
)

// Chart types the frontend knows how to draw.
const (
	ChartNone    = "none"
	ChartMetric  = "metric"
	ChartTable   = "table"
	ChartBar     = "bar"
	ChartLine    = "line"
	ChartPie     = "pie"
	ChartScatter = "scatter"
)

var dateValueRe = regexp.MustCompile(`^\d{4}-\d{2}(-\d{2})?([T ].*)?$`)

var timeColumnWords = []string{"date", "day", "week", "month", "quarter", "year", "period"}

var proportionWords = []string{"share", "percentage", "percent", "proportion", "breakdown", "distribution", "split", "composition"}

// toFloat reports whether a cell holds a number. DECIMAL columns arrive
// as strings from the driver, so numeric-looking strings count too.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// columnProfile is what Select learns about one result column.
type columnProfile struct {
	name    string
	numeric bool
	timeish bool
}

// profileColumns classifies each column by inspecting its values. A column
// is numeric when every non-nil value parses as a number; it is time-like
// when its name or values look like dates.
func profileColumns(result *models.SQLResult) []columnProfile {
	profiles := make([]columnProfile, len(result.Columns))
	for i, name := range result.Columns {
		p := columnProfile{name: name, numeric: true}

		lower := strings.ToLower(name)
		for _, w := range timeColumnWords {
			if strings.Contains(lower, w) {
				p.timeish = true
				break
			}
		}

		seen := 0
		dateLike := 0
		for _, row := range result.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			seen++
			s, isStr := row[i].(string)
			if isStr && dateValueRe.MatchString(s) {
				dateLike++
				continue
			}
			if _, ok := toFloat(row[i]); !ok {
				p.numeric = false
			}
		}
		if seen == 0 {
			p.numeric = false
		}
		if seen > 0 && dateLike == seen {
			p.timeish = true
			p.numeric = false
		}
		profiles[i] = p
	}
	return profiles
}

// requestedChart detects an explicit chart ask in the question.
func requestedChart(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "pie chart") || strings.Contains(q, "as a pie"):
		return ChartPie
	case strings.Contains(q, "bar chart") || strings.Contains(q, "as bars"):
		return ChartBar
	case strings.Contains(q, "line chart") || strings.Contains(q, "as a line") || strings.Contains(q, "trend line"):
		return ChartLine
	case strings.Contains(q, "scatter"):
		return ChartScatter
	case strings.Contains(q, "as a table") || strings.Contains(q, "in a table"):
		return ChartTable
	default:
		return ""
	}
}

func wantsProportion(question string) bool {
	q := strings.ToLower(question)
	for _, w := range proportionWords {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// Select picks the chart type for a result set. It is deterministic: the
// same result and question always choose the same chart. A chart the user
// asked for wins only when the result shape can actually support it.
func Select(result *models.SQLResult, question string, cfg config.RenderConfig) models.ChartConfig {
	profiles := profileColumns(result)

	var numericCols, labelCols, timeCols []columnProfile
	for _, p := range profiles {
		switch {
		case p.numeric:
			numericCols = append(numericCols, p)
		case p.timeish:
			timeCols = append(timeCols, p)
		default:
			labelCols = append(labelCols, p)
		}
	}

	// single value is a KPI tile
	if len(result.Rows) == 1 && len(result.Columns) == 1 && len(numericCols) == 1 {
		return models.ChartConfig{Type: ChartMetric, YColumn: numericCols[0].name}
	}

	// nothing to plot against, or too wide to chart
	if len(result.Columns) == 1 || len(result.Columns) > 3 {
		return models.ChartConfig{Type: ChartTable}
	}

	preferred := requestedChart(question)
	if preferred == ChartTable {
		return models.ChartConfig{Type: ChartTable}
	}

	// two measures and no axis to label them by
	if len(numericCols) >= 2 && len(labelCols) == 0 && len(timeCols) == 0 {
		return models.ChartConfig{
			Type:    ChartScatter,
			XColumn: numericCols[0].name,
			YColumn: numericCols[1].name,
		}
	}
	if preferred == ChartScatter && len(numericCols) >= 2 {
		return models.ChartConfig{
			Type:    ChartScatter,
			XColumn: numericCols[0].name,
			YColumn: numericCols[1].name,
		}
	}

	axis := ""
	timeAxis := false
	if len(timeCols) > 0 {
		axis = timeCols[0].name
		timeAxis = true
	} else if len(labelCols) > 0 {
		axis = labelCols[0].name
	}

	if axis == "" || len(numericCols) == 0 {
		return models.ChartConfig{Type: ChartTable}
	}

	chart := models.ChartConfig{
		XColumn: axis,
		YColumn: numericCols[0].name,
	}
	if len(numericCols) >= 2 {
		chart.SecondaryYColumn = numericCols[1].name
	}

	if timeAxis && preferred != ChartBar && preferred != ChartPie {
		chart.Type = ChartLine
		return chart
	}

	categories := distinctCount(result, axis)

	// a pie needs one measure. An explicit ask tolerates extra categories
	// because Prepare folds the overflow into Others; an inferred pie only
	// fits when the slices already fit.
	explicitPie := preferred == ChartPie && len(numericCols) == 1 && categories <= cfg.BarMaxCategories
	inferredPie := preferred == "" && wantsProportion(question) &&
		len(numericCols) == 1 && categories <= cfg.PieMaxSlices
	if explicitPie || inferredPie {
		chart.Type = ChartPie
		return chart
	}
	if preferred == ChartLine && timeAxis {
		chart.Type = ChartLine
		return chart
	}

	if categories > cfg.BarMaxCategories && preferred == "" {
		return models.ChartConfig{Type: ChartTable}
	}

	chart.Type = ChartBar
	if longestLabel(result, axis) > cfg.LongLabelThreshold {
		chart.Orientation = "horizontal"
	}
	return chart
}

func columnIndex(result *models.SQLResult, name string) int {
	for i, c := range result.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func distinctCount(result *models.SQLResult, column string) int {
	idx := columnIndex(result, column)
	if idx < 0 {
		return 0
	}
	seen := map[string]struct{}{}
	for _, row := range result.Rows {
		if idx < len(row) {
			seen[fmt.Sprintf("%v", row[idx])] = struct{}{}
		}
	}
	return len(seen)
}

func longestLabel(result *models.SQLResult, column string) int {
	idx := columnIndex(result, column)
	if idx < 0 {
		return 0
	}
	longest := 0
	for _, row := range result.Rows {
		if idx >= len(row) || row[idx] == nil {
			continue
		}
		if l := len(fmt.Sprintf("%v", row[idx])); l > longest {
			longest = l
		}
	}
	return longest
}

// Prepare turns raw rows into display rows for the chosen chart: it
// aggregates duplicate labels, sorts, groups small pie slices into
// "Others" and caps the row count. Warnings describe anything dropped.
func Prepare(result *models.SQLResult, chart *models.ChartConfig, cfg config.RenderConfig) ([]map[string]interface{}, []string) {
	var warnings []string
	rows := toMaps(result)

	if chart.Type == ChartTable || chart.Type == ChartNone || chart.Type == ChartMetric || chart.Type == ChartScatter {
		if len(rows) > cfg.MaxDisplayRows && chart.Type != ChartMetric {
			warnings = append(warnings, fmt.Sprintf("Showing first %d of %d rows.", cfg.MaxDisplayRows, len(rows)))
			rows = rows[:cfg.MaxDisplayRows]
		}
		return rows, warnings
	}

	rows = aggregateByLabel(rows, chart)

	switch chart.Type {
	case ChartLine:
		sortByLabelAsc(rows, chart.XColumn)
	default:
		sortByValueDesc(rows, chart.YColumn)
	}

	if chart.Type == ChartPie && len(rows) > cfg.PieMaxSlices {
		rows = groupOthers(rows, chart, cfg.PieMaxSlices)
		warnings = append(warnings, fmt.Sprintf("Smaller slices were grouped into %q.", othersLabel))
	}

	if len(rows) > cfg.MaxDisplayRows {
		warnings = append(warnings, fmt.Sprintf("Showing top %d of %d categories.", cfg.MaxDisplayRows, len(rows)))
		rows = rows[:cfg.MaxDisplayRows]
	}

	return rows, warnings
}

const othersLabel = "Others"

func toMaps(result *models.SQLResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(result.Rows))
	for _, row := range result.Rows {
		m := make(map[string]interface{}, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// aggregateByLabel sums numeric columns for rows sharing the same axis
// value, so raw order-level rows still chart cleanly.
func aggregateByLabel(rows []map[string]interface{}, chart *models.ChartConfig) []map[string]interface{} {
	order := []string{}
	grouped := map[string]map[string]interface{}{}

	for _, row := range rows {
		key := fmt.Sprintf("%v", row[chart.XColumn])
		agg, ok := grouped[key]
		if !ok {
			dup := make(map[string]interface{}, len(row))
			for k, v := range row {
				dup[k] = v
			}
			grouped[key] = dup
			order = append(order, key)
			continue
		}
		for _, col := range []string{chart.YColumn, chart.SecondaryYColumn} {
			if col == "" {
				continue
			}
			a, aok := toFloat(agg[col])
			b, bok := toFloat(row[col])
			if aok && bok {
				agg[col] = a + b
			}
		}
	}

	out := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		out = append(out, grouped[key])
	}
	return out
}

func sortByValueDesc(rows []map[string]interface{}, column string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := toFloat(rows[i][column])
		b, _ := toFloat(rows[j][column])
		return a > b
	})
}

func sortByLabelAsc(rows []map[string]interface{}, column string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return fmt.Sprintf("%v", rows[i][column]) < fmt.Sprintf("%v", rows[j][column])
	})
}

// groupOthers keeps the largest maxSlices-1 slices and folds the rest
// into a single Others slice. Rows must already be sorted descending.
func groupOthers(rows []map[string]interface{}, chart *models.ChartConfig, maxSlices int) []map[string]interface{} {
	keep := rows[:maxSlices-1]
	rest := rows[maxSlices-1:]

	total := 0.0
	for _, row := range rest {
		if v, ok := toFloat(row[chart.YColumn]); ok {
			total += v
		}
	}

	others := map[string]interface{}{
		chart.XColumn: othersLabel,
		chart.YColumn: total,
	}
	return append(append([]map[string]interface{}{}, keep...), others)
}

// AnswerText writes the one-line summary shown above the chart.
func AnswerText(question string, chart models.ChartConfig, rowCount int) string {
	switch chart.Type {
	case ChartMetric:
		return "Here's the value you asked for."
	case ChartTable:
		return fmt.Sprintf("Here are the results (%d rows).", rowCount)
	case ChartPie:
		return fmt.Sprintf("Here's the breakdown by %s.", chart.XColumn)
	case ChartLine:
		return fmt.Sprintf("Here's the trend over %s.", chart.XColumn)
	case ChartScatter:
		return fmt.Sprintf("Here's %s plotted against %s.", chart.YColumn, chart.XColumn)
	case ChartBar:
		return fmt.Sprintf("Here's %s by %s.", chart.YColumn, chart.XColumn)
	default:
		return fmt.Sprintf("Found %d rows.", rowCount)
	}
}
