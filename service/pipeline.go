package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"orderlens/config"
	"orderlens/filter"
	"orderlens/models"
	"orderlens/render"
	"orderlens/validation"
)

// FailKind classifies pipeline failures so handlers can pick the right
// status code and user-facing message without parsing error strings.
type FailKind string

const (
	FailGeneration  FailKind = "generation"  // model call failed or returned no SQL
	FailPlaceholder FailKind = "placeholder" // filter token missing or duplicated
	FailUnsafe      FailKind = "unsafe"      // static safety check rejected the SQL
	FailTimeout     FailKind = "timeout"     // execution deadline exceeded
	FailExecution   FailKind = "execution"   // database rejected the query, repair included
)

// PipelineError carries the failure class, a message safe to show users,
// and the underlying error for logs. Raw database errors and SQL text
// stay out of UserMessage.
type PipelineError struct {
	Kind        FailKind
	UserMessage string
	Err         error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// LLMClient is the slice of the AI service the pipeline needs.
type LLMClient interface {
	GenerateSQL(ctx context.Context, question, filterSummary string) (string, error)
	RepairSQL(ctx context.Context, question, filterSummary, badSQL, dbError string) (string, error)
	InvalidateSQL(question, filterSummary string)
}

// Executor runs one validated statement with bound parameters.
type Executor interface {
	Query(ctx context.Context, query string, params []sql.NamedArg, maxRows int) (*models.SQLResult, error)
}

// ChatPipeline turns a natural-language question plus dashboard filters
// into executed, chart-ready results. The model drafts a SQL template
// around an opaque filter token; the template is checked and the real
// predicate injected server-side before anything touches the database.
type ChatPipeline struct {
	llm         LLMClient
	exec        Executor
	arrayParams bool
	maxRows     int
	renderCfg   config.RenderConfig
}

func NewChatPipeline(llm LLMClient, exec Executor, cfg config.Config) *ChatPipeline {
	return &ChatPipeline{
		llm:         llm,
		exec:        exec,
		arrayParams: cfg.SQLServer.ArrayParams,
		maxRows:     cfg.MaxResultRows,
		renderCfg:   cfg.Render,
	}
}

// Run executes the full pipeline for one question. The returned response
// is complete on success; on failure the *PipelineError says what went
// wrong and what the user may be told.
func (p *ChatPipeline) Run(ctx context.Context, correlationID, question string, filters models.DashboardFilters) (*models.ChatResponse, error) {
	summary := filter.Summary(filters)

	template, err := p.llm.GenerateSQL(ctx, question, summary)
	if err != nil {
		log.Printf("[%s] SQL generation failed: %v", correlationID, err)
		return nil, &PipelineError{
			Kind:        FailGeneration,
			UserMessage: "I couldn't turn that question into a query. Try rephrasing it.",
			Err:         err,
		}
	}
	log.Printf("[%s] generated template: %s", correlationID, template)

	if err := p.checkTemplate(template); err != nil {
		log.Printf("[%s] template rejected: %v", correlationID, err)
		// a rejected template must not be served from cache again
		p.llm.InvalidateSQL(question, summary)
		return nil, err
	}

	pred := filter.Build(filters, p.arrayParams)
	finalSQL, err := validation.InjectPredicate(template, pred.SQL)
	if err != nil {
		return nil, &PipelineError{
			Kind:        FailPlaceholder,
			UserMessage: "The generated query didn't respect the dashboard filters. Try again.",
			Err:         err,
		}
	}

	result, err := p.exec.Query(ctx, finalSQL, pred.Params, p.maxRows)
	if err != nil {
		var execErr *ExecError
		if !errors.As(err, &execErr) {
			return nil, p.executeFailure(correlationID, question, summary, err)
		}

		// one repair round, only for errors the database itself reported
		log.Printf("[%s] execution failed, attempting repair: %v", correlationID, execErr)
		result, template, err = p.repairAndRetry(ctx, correlationID, question, summary, template, execErr, pred)
		if err != nil {
			return nil, err
		}
	}

	return p.renderResponse(correlationID, question, template, result), nil
}

// checkTemplate runs the static gates on the model's template, before any
// predicate is injected. Order matters: the placeholder contract first,
// then the safety scan.
func (p *ChatPipeline) checkTemplate(template string) error {
	if err := validation.EnforcePlaceholder(template); err != nil {
		return &PipelineError{
			Kind:        FailPlaceholder,
			UserMessage: "The generated query didn't respect the dashboard filters. Try again.",
			Err:         err,
		}
	}
	if err := validation.ValidateSQL(template); err != nil {
		return &PipelineError{
			Kind:        FailUnsafe,
			UserMessage: "The generated query was rejected by the safety check.",
			Err:         err,
		}
	}
	return nil
}

// repairAndRetry gives the model one shot at fixing a database-reported
// failure. The repaired template goes through every gate again. A second
// failure of any kind ends the pipeline.
func (p *ChatPipeline) repairAndRetry(ctx context.Context, correlationID, question, summary, badTemplate string, execErr *ExecError, pred filter.Predicate) (*models.SQLResult, string, error) {
	repaired, err := p.llm.RepairSQL(ctx, question, summary, badTemplate, execErr.Message)
	if err != nil {
		log.Printf("[%s] repair generation failed: %v", correlationID, err)
		return nil, "", p.executeFailure(correlationID, question, summary, execErr)
	}
	log.Printf("[%s] repaired template: %s", correlationID, repaired)

	if err := p.checkTemplate(repaired); err != nil {
		// the original template is still cached and still broken
		p.llm.InvalidateSQL(question, summary)
		return nil, "", err
	}

	finalSQL, err := validation.InjectPredicate(repaired, pred.SQL)
	if err != nil {
		return nil, "", &PipelineError{
			Kind:        FailPlaceholder,
			UserMessage: "The generated query didn't respect the dashboard filters. Try again.",
			Err:         err,
		}
	}

	result, err := p.exec.Query(ctx, finalSQL, pred.Params, p.maxRows)
	if err != nil {
		return nil, "", p.executeFailure(correlationID, question, summary, err)
	}
	return result, repaired, nil
}

// executeFailure classifies a query failure. A timeout leaves the cached
// template alone, the query itself may be fine under narrower filters;
// anything the database rejected evicts it.
func (p *ChatPipeline) executeFailure(correlationID, question, summary string, err error) *PipelineError {
	if errors.Is(err, ErrTimeout) {
		log.Printf("[%s] query timed out", correlationID)
		return &PipelineError{
			Kind:        FailTimeout,
			UserMessage: "That query took too long. Try narrowing the date range or filters.",
			Err:         err,
		}
	}
	log.Printf("[%s] query failed: %v", correlationID, err)
	p.llm.InvalidateSQL(question, summary)
	return &PipelineError{
		Kind:        FailExecution,
		UserMessage: "I couldn't run that query against the data. Try rephrasing the question.",
		Err:         err,
	}
}

// renderResponse picks a chart, prepares display rows and writes the
// answer text. An empty result is an answer, not an error.
func (p *ChatPipeline) renderResponse(correlationID, question, template string, result *models.SQLResult) *models.ChatResponse {
	resp := &models.ChatResponse{
		CorrelationID: correlationID,
		RowCount:      len(result.Rows),
		SQLQuery:      template,
	}

	if len(result.Rows) == 0 {
		resp.AnswerText = "No data matched your question with the current filters."
		resp.ChartConfig = models.ChartConfig{Type: render.ChartNone}
		return resp
	}

	chart := render.Select(result, question, p.renderCfg)
	rows, warnings := render.Prepare(result, &chart, p.renderCfg)

	if result.Truncated {
		warnings = append(warnings, fmt.Sprintf("Results were truncated to %d rows.", p.maxRows))
	}

	resp.Data = rows
	resp.ChartConfig = chart
	resp.Warnings = warnings
	resp.AnswerText = render.AnswerText(question, chart, len(result.Rows))
	log.Printf("[%s] rendered %d rows as %s chart", correlationID, len(result.Rows), chart.Type)
	return resp
}
