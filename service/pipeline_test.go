package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderlens/config"
	"orderlens/models"
	"orderlens/validation"
)

type fakeLLM struct {
	sqlTemplate     string
	generateErr     error
	repairSQL       string
	repairErr       error
	generateCalls   int
	repairCalls     int
	invalidateCalls int
}

func (f *fakeLLM) GenerateSQL(_ context.Context, _, _ string) (string, error) {
	f.generateCalls++
	return f.sqlTemplate, f.generateErr
}

func (f *fakeLLM) RepairSQL(_ context.Context, _, _, _, _ string) (string, error) {
	f.repairCalls++
	return f.repairSQL, f.repairErr
}

func (f *fakeLLM) InvalidateSQL(_, _ string) {
	f.invalidateCalls++
}

type fakeExec struct {
	results []*models.SQLResult
	errs    []error
	calls   int
	queries []string
	params  [][]sql.NamedArg
}

func (f *fakeExec) Query(_ context.Context, query string, params []sql.NamedArg, _ int) (*models.SQLResult, error) {
	i := f.calls
	f.calls++
	f.queries = append(f.queries, query)
	f.params = append(f.params, params)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var res *models.SQLResult
	if i < len(f.results) {
		res = f.results[i]
	}
	return res, err
}

func testConfig() config.Config {
	cfg := config.GetConfig()
	cfg.MaxResultRows = 100
	return cfg
}

func barResult() *models.SQLResult {
	return &models.SQLResult{
		Columns: []string{"client_country", "revenue"},
		Rows: [][]interface{}{
			{"AE", 500.0},
			{"SA", 300.0},
		},
	}
}

const goodTemplate = "SELECT client_country, SUM(revenue) AS revenue FROM fact_orders WHERE __ORDERLENS_FILTERS__ GROUP BY client_country"

func TestPipelineHappyPath(t *testing.T) {
	llm := &fakeLLM{sqlTemplate: goodTemplate}
	exec := &fakeExec{results: []*models.SQLResult{barResult()}}
	p := NewChatPipeline(llm, exec, testConfig())

	filters := models.DashboardFilters{
		StartDate: "2026-01-01",
		EndDate:   "2026-03-31",
		Countries: []string{"AE", "SA"},
	}
	resp, err := p.Run(context.Background(), "abc12345", "revenue by country", filters)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "abc12345", resp.CorrelationID)
	assert.Equal(t, 2, resp.RowCount)
	assert.Equal(t, "bar", resp.ChartConfig.Type)
	assert.Len(t, resp.Data, 2)

	// the statement that reached the executor carries the real predicate
	require.Len(t, exec.queries, 1)
	final := exec.queries[0]
	assert.NotContains(t, final, validation.PlaceholderToken)
	assert.Contains(t, final, "is_test = 0")
	assert.Contains(t, final, "order_date >= @start_date")

	// filter values travel as parameters only
	assert.NotContains(t, final, "AE")
	var names []string
	for _, p := range exec.params[0] {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "start_date")
	assert.Contains(t, names, "countries_0")
}

func TestPipelineGenerationFailure(t *testing.T) {
	llm := &fakeLLM{generateErr: errors.New("model unavailable")}
	exec := &fakeExec{}
	p := NewChatPipeline(llm, exec, testConfig())

	_, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailGeneration, pe.Kind)
	assert.Zero(t, exec.calls)
}

func TestPipelineMissingPlaceholder(t *testing.T) {
	llm := &fakeLLM{sqlTemplate: "SELECT SUM(revenue) FROM fact_orders"}
	exec := &fakeExec{}
	p := NewChatPipeline(llm, exec, testConfig())

	_, err := p.Run(context.Background(), "abc12345", "total revenue", models.DashboardFilters{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailPlaceholder, pe.Kind)
	assert.Zero(t, exec.calls, "nothing may reach the database")
}

func TestPipelineUnsafeSQL(t *testing.T) {
	llm := &fakeLLM{sqlTemplate: "DELETE FROM fact_orders WHERE __ORDERLENS_FILTERS__"}
	exec := &fakeExec{}
	p := NewChatPipeline(llm, exec, testConfig())

	_, err := p.Run(context.Background(), "abc12345", "delete everything", models.DashboardFilters{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailUnsafe, pe.Kind)
	assert.Zero(t, exec.calls)

	// the user never sees SQL or internal error detail
	assert.NotContains(t, pe.UserMessage, "DELETE")
	assert.NotContains(t, pe.UserMessage, "SQL:")

	// a rejected template is evicted so a retry reaches the model again
	assert.Equal(t, 1, llm.invalidateCalls)
}

func TestPipelineRepairSucceeds(t *testing.T) {
	llm := &fakeLLM{
		sqlTemplate: "SELECT bad_column FROM fact_orders WHERE __ORDERLENS_FILTERS__",
		repairSQL:   goodTemplate,
	}
	exec := &fakeExec{
		errs:    []error{&ExecError{Message: "Invalid column name 'bad_column'."}},
		results: []*models.SQLResult{nil, barResult()},
	}
	p := NewChatPipeline(llm, exec, testConfig())

	resp, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.RowCount)
	assert.Equal(t, 1, llm.repairCalls)
	assert.Equal(t, 2, exec.calls)
}

func TestPipelineRepairFailsOnce(t *testing.T) {
	llm := &fakeLLM{
		sqlTemplate: "SELECT bad_column FROM fact_orders WHERE __ORDERLENS_FILTERS__",
		repairSQL:   "SELECT still_bad FROM fact_orders WHERE __ORDERLENS_FILTERS__",
	}
	exec := &fakeExec{
		errs: []error{
			&ExecError{Message: "Invalid column name 'bad_column'."},
			&ExecError{Message: "Invalid column name 'still_bad'."},
		},
	}
	p := NewChatPipeline(llm, exec, testConfig())

	_, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailExecution, pe.Kind)
	assert.Equal(t, 1, llm.repairCalls, "repair runs at most once")
	assert.Equal(t, 2, exec.calls)
	assert.Equal(t, 1, llm.invalidateCalls, "a template the database rejects is evicted")
}

func TestPipelineTimeoutSkipsRepair(t *testing.T) {
	llm := &fakeLLM{sqlTemplate: goodTemplate}
	exec := &fakeExec{errs: []error{ErrTimeout}}
	p := NewChatPipeline(llm, exec, testConfig())

	_, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailTimeout, pe.Kind)
	assert.Zero(t, llm.repairCalls, "timeouts are not repairable")
	assert.Equal(t, 1, exec.calls)
	assert.Zero(t, llm.invalidateCalls, "a timeout says nothing about the template")
}

func TestPipelineEmptyResultIsAnswer(t *testing.T) {
	llm := &fakeLLM{sqlTemplate: goodTemplate}
	exec := &fakeExec{results: []*models.SQLResult{{Columns: []string{"client_country", "revenue"}}}}
	p := NewChatPipeline(llm, exec, testConfig())

	resp, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.RowCount)
	assert.Equal(t, "none", resp.ChartConfig.Type)
	assert.Contains(t, resp.AnswerText, "No data")
}

func TestPipelineRepairedTemplateStillChecked(t *testing.T) {
	llm := &fakeLLM{
		sqlTemplate: "SELECT bad_column FROM fact_orders WHERE __ORDERLENS_FILTERS__",
		repairSQL:   "DROP TABLE fact_orders",
	}
	exec := &fakeExec{
		errs: []error{&ExecError{Message: "Invalid column name 'bad_column'."}},
	}
	p := NewChatPipeline(llm, exec, testConfig())

	_, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	// the repaired statement lost the placeholder and is unsafe; either
	// gate may fire, but it must never execute
	assert.Equal(t, 1, exec.calls)
	assert.NotEqual(t, FailExecution, pe.Kind)
}

func TestPipelineTruncationWarning(t *testing.T) {
	res := barResult()
	res.Truncated = true
	llm := &fakeLLM{sqlTemplate: goodTemplate}
	exec := &fakeExec{results: []*models.SQLResult{res}}
	p := NewChatPipeline(llm, exec, testConfig())

	resp, err := p.Run(context.Background(), "abc12345", "revenue by country", models.DashboardFilters{})
	require.NoError(t, err)
	found := false
	for _, w := range resp.Warnings {
		if strings.Contains(w, "truncated") {
			found = true
		}
	}
	assert.True(t, found, "expected truncation warning, got %v", resp.Warnings)
}
