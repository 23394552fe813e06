package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"orderlens/filter"
	"orderlens/models"
)

// QueryExecutor is the slice of the SQL service the driver engine needs.
type QueryExecutor interface {
	Query(ctx context.Context, query string, params []sql.NamedArg, maxRows int) (*models.SQLResult, error)
}

// metricAggregates maps a metric name to its T-SQL aggregate. Only these
// metrics can be decomposed; anything else is rejected up front.
var metricAggregates = map[string]string{
	"revenue": "SUM(revenue)",
	"orders":  "COUNT(DISTINCT order_id)",
	"margin":  "SUM(margin)",
	"aov":     "SUM(revenue) / NULLIF(COUNT(DISTINCT order_id), 0)",
}

// allowedDimensions is the closed set of columns a decomposition may group
// by. Dimension names are interpolated into SQL, so nothing outside this
// list is ever accepted.
var allowedDimensions = []string{
	"client_name", "product_brand", "client_country",
	"order_type", "supplier_name", "product_name",
}

// ErrInvalidRequest marks caller mistakes (unknown metric or dimension)
// as opposed to query failures.
var ErrInvalidRequest = errors.New("invalid analysis request")

const defaultTopN = 5

// maxGroupRows bounds the per-dimension aggregate scan. High-cardinality
// dimensions like product_name stay manageable.
const maxGroupRows = 1000

// DriverEngine explains a metric change between two periods by
// decomposing the delta across business dimensions.
type DriverEngine struct {
	exec        QueryExecutor
	arrayParams bool
}

func NewDriverEngine(exec QueryExecutor, arrayParams bool) *DriverEngine {
	return &DriverEngine{exec: exec, arrayParams: arrayParams}
}

func isAllowedDimension(dim string) bool {
	for _, d := range allowedDimensions {
		if d == dim {
			return true
		}
	}
	return false
}

// Analyze compares the metric between the two periods and attributes the
// change to entities within each requested dimension. Non-period filters
// (countries, clients and so on) apply to both periods identically.
func (e *DriverEngine) Analyze(ctx context.Context, req models.DriverAnalysisRequest) (*models.DriverAnalysisResponse, error) {
	agg, ok := metricAggregates[req.Metric]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidRequest, req.Metric)
	}

	dimensions := req.Dimensions
	if len(dimensions) == 0 {
		dimensions = allowedDimensions
	}
	for _, dim := range dimensions {
		if !isAllowedDimension(dim) {
			return nil, fmt.Errorf("%w: dimension %q is not allowed", ErrInvalidRequest, dim)
		}
	}

	topN := req.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	curPred := e.periodPredicate(req.Filters, req.CurrentPeriod, "cur")
	priPred := e.periodPredicate(req.Filters, req.PriorPeriod, "pri")

	currentTotal, priorTotal, err := e.fetchTotals(ctx, agg, curPred, priPred)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch period totals: %w", err)
	}

	totalDelta := currentTotal - priorTotal

	resp := &models.DriverAnalysisResponse{
		Metric:       req.Metric,
		CurrentTotal: currentTotal,
		PriorTotal:   priorTotal,
		TotalChange:  totalDelta,
		Direction:    direction(totalDelta),
		Drivers:      make(map[string][]models.DriverEntity),
		Summary:      make(map[string]models.DriverSummary),
	}
	if priorTotal != 0 {
		resp.TotalChangePct = totalDelta / priorTotal * 100
	}

	type candidate struct {
		dimension string
		entity    models.DriverEntity
	}
	var candidates []candidate

	for _, dim := range dimensions {
		current, curTruncated, err := e.fetchGroups(ctx, dim, agg, curPred)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s for current period: %w", dim, err)
		}
		prior, priTruncated, err := e.fetchGroups(ctx, dim, agg, priPred)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s for prior period: %w", dim, err)
		}
		if curTruncated || priTruncated {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf(
				"Dimension %s has more than %d entities; its decomposition is incomplete and entity deltas may not sum to the total change.",
				dim, maxGroupRows))
		}

		entities := buildDriverRows(current, prior, totalDelta)
		for _, ent := range entities {
			candidates = append(candidates, candidate{dimension: dim, entity: ent})
		}
		if len(entities) > topN {
			entities = entities[:topN]
		}
		resp.Drivers[dim] = entities
	}

	// primary and secondary drivers come from the full candidate set,
	// not the truncated per-dimension lists
	sort.SliceStable(candidates, func(i, j int) bool {
		return math.Abs(candidates[i].entity.Delta) > math.Abs(candidates[j].entity.Delta)
	})
	if len(candidates) > 0 {
		resp.Summary["primary_driver"] = models.DriverSummary{
			Dimension:    candidates[0].dimension,
			Entity:       candidates[0].entity.Name,
			Contribution: candidates[0].entity.ContributionToTotalChange,
		}
	}
	if len(candidates) > 1 {
		resp.Summary["secondary_driver"] = models.DriverSummary{
			Dimension:    candidates[1].dimension,
			Entity:       candidates[1].entity.Name,
			Contribution: candidates[1].entity.ContributionToTotalChange,
		}
	}

	return resp, nil
}

// periodPredicate builds the shared filter predicate with the period's
// dates swapped in, and prefixes parameter names so two periods can share
// one statement without colliding.
func (e *DriverEngine) periodPredicate(f models.DashboardFilters, period models.Period, prefix string) filter.Predicate {
	f.StartDate = period.Start
	f.EndDate = period.End
	pred := filter.Build(f, e.arrayParams)
	return prefixPredicate(pred, prefix)
}

// prefixPredicate renames every bound parameter with the given prefix,
// rewriting the SQL fragment to match. Longer names are replaced first so
// one name is never a prefix of another at rewrite time.
func prefixPredicate(pred filter.Predicate, prefix string) filter.Predicate {
	names := make([]string, len(pred.Params))
	for i, p := range pred.Params {
		names[i] = p.Name
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	out := pred.SQL
	for _, name := range names {
		out = strings.ReplaceAll(out, "@"+name, "@"+prefix+"_"+name)
	}

	params := make([]sql.NamedArg, len(pred.Params))
	for i, p := range pred.Params {
		params[i] = sql.Named(prefix+"_"+p.Name, p.Value)
	}
	return filter.Predicate{SQL: out, Params: params}
}

// fetchTotals gets both period totals in a single round trip.
func (e *DriverEngine) fetchTotals(ctx context.Context, agg string, curPred, priPred filter.Predicate) (float64, float64, error) {
	query := fmt.Sprintf(
		"SELECT 'current' AS period, %s AS value FROM fact_orders WHERE (%s) UNION ALL SELECT 'prior' AS period, %s AS value FROM fact_orders WHERE (%s)",
		agg, curPred.SQL, agg, priPred.SQL)

	params := append(append([]sql.NamedArg{}, curPred.Params...), priPred.Params...)
	result, err := e.exec.Query(ctx, query, params, 10)
	if err != nil {
		return 0, 0, err
	}

	var current, prior float64
	for _, row := range result.Rows {
		if len(row) < 2 {
			continue
		}
		period, _ := row[0].(string)
		value := toFloat(row[1])
		switch period {
		case "current":
			current = value
		case "prior":
			prior = value
		}
	}
	return current, prior, nil
}

// fetchGroups aggregates the metric per entity of one dimension. The
// truncated flag reports that the row cap cut the scan, meaning some
// entities are missing from the map.
func (e *DriverEngine) fetchGroups(ctx context.Context, dimension, agg string, pred filter.Predicate) (map[string]float64, bool, error) {
	query := fmt.Sprintf(
		"SELECT %s AS name, %s AS value FROM fact_orders WHERE (%s) GROUP BY %s",
		dimension, agg, pred.SQL, dimension)

	result, err := e.exec.Query(ctx, query, pred.Params, maxGroupRows)
	if err != nil {
		return nil, false, err
	}

	groups := make(map[string]float64, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 2 || row[0] == nil {
			continue
		}
		name := fmt.Sprintf("%v", row[0])
		groups[name] = toFloat(row[1])
	}
	return groups, result.Truncated, nil
}

// buildDriverRows joins current and prior aggregates over the union of
// entities and computes each entity's movement. An entity missing from a
// period counts as zero there, so churned and new entities both show up.
// Contribution is the entity delta as a share of the total delta; when the
// total didn't move, contributions are zero rather than undefined.
func buildDriverRows(current, prior map[string]float64, totalDelta float64) []models.DriverEntity {
	names := make(map[string]struct{}, len(current)+len(prior))
	for n := range current {
		names[n] = struct{}{}
	}
	for n := range prior {
		names[n] = struct{}{}
	}

	entities := make([]models.DriverEntity, 0, len(names))
	for name := range names {
		cur := current[name]
		pri := prior[name]
		ent := models.DriverEntity{
			Name:         name,
			CurrentValue: cur,
			PriorValue:   pri,
			Delta:        cur - pri,
		}
		if pri != 0 {
			pct := ent.Delta / pri * 100
			ent.DeltaPct = &pct
		}
		if totalDelta != 0 {
			ent.ContributionToTotalChange = ent.Delta / totalDelta * 100
		}
		entities = append(entities, ent)
	}

	sort.SliceStable(entities, func(i, j int) bool {
		di, dj := math.Abs(entities[i].Delta), math.Abs(entities[j].Delta)
		if di != dj {
			return di > dj
		}
		return entities[i].Name < entities[j].Name
	})
	return entities
}

func direction(delta float64) string {
	switch {
	case delta > 0:
		return "up"
	case delta < 0:
		return "down"
	default:
		return "flat"
	}
}

// toFloat coerces driver values; DECIMAL aggregates arrive as strings.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
