package filter

import (
	"database/sql"
	"fmt"
	"strings"

	"orderlens/models"
)

// Predicate is a WHERE fragment plus its bound parameters. Filter values
// only ever travel as parameters, never as SQL text, so the fragment is
// safe to log and to show the model.
type Predicate struct {
	SQL    string
	Params []sql.NamedArg
}

// listColumns maps each list filter to its column and parameter prefix.
var listColumns = []struct {
	column string
	prefix string
	values func(models.DashboardFilters) []string
}{
	{"client_country", "countries", func(f models.DashboardFilters) []string { return f.Countries }},
	{"order_type", "order_types", func(f models.DashboardFilters) []string { return f.ProductTypes }},
	{"client_name", "clients", func(f models.DashboardFilters) []string { return f.Clients }},
	{"product_brand", "brands", func(f models.DashboardFilters) []string { return f.Brands }},
	{"supplier_name", "suppliers", func(f models.DashboardFilters) []string { return f.Suppliers }},
}

// Build turns dashboard filters into a conjunctive predicate. The baseline
// is_test = 0 clause is always present, even with empty filters, so test
// traffic never leaks into results. When arrayParams is set, list filters
// bind as a single array parameter; otherwise one named parameter per
// element, which is what SQL Server requires.
func Build(f models.DashboardFilters, arrayParams bool) Predicate {
	clauses := []string{"is_test = 0"}
	var params []sql.NamedArg

	if f.StartDate != "" {
		clauses = append(clauses, "order_date >= @start_date")
		params = append(params, sql.Named("start_date", f.StartDate))
	}
	if f.EndDate != "" {
		clauses = append(clauses, "order_date <= @end_date")
		params = append(params, sql.Named("end_date", f.EndDate))
	}

	for _, lc := range listColumns {
		values := lc.values(f)
		if len(values) == 0 {
			continue
		}
		if arrayParams {
			clauses = append(clauses, fmt.Sprintf("%s = ANY(@%s)", lc.column, lc.prefix))
			params = append(params, sql.Named(lc.prefix, values))
			continue
		}
		names := make([]string, len(values))
		for i, v := range values {
			name := fmt.Sprintf("%s_%d", lc.prefix, i)
			names[i] = "@" + name
			params = append(params, sql.Named(name, v))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", lc.column, strings.Join(names, ", ")))
	}

	return Predicate{
		SQL:    strings.Join(clauses, " AND "),
		Params: params,
	}
}

// Summary describes the active filters without exposing any value. It is
// the only filter-derived text that may appear in a prompt or cache key.
func Summary(f models.DashboardFilters) string {
	parts := []string{}
	if f.StartDate != "" || f.EndDate != "" {
		parts = append(parts, "date range set")
	}
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s selected", n, what))
		}
	}
	add(len(f.Countries), "countries")
	add(len(f.ProductTypes), "order types")
	add(len(f.Clients), "clients")
	add(len(f.Brands), "brands")
	add(len(f.Suppliers), "suppliers")
	if f.Currency != "" {
		parts = append(parts, "currency set")
	}
	if len(parts) == 0 {
		return "no filters active"
	}
	return strings.Join(parts, ", ")
}
