package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"orderlens/cache"
	"orderlens/config"
	"orderlens/validation"
)

type AIService struct {
	apiKey             string
	modelName          string
	cache              *cache.Cache
	httpClient         *http.Client
	apiURL             string
	lastRequestTime    time.Time     // Track last request time for rate limiting
	requestMutex       sync.Mutex    // Mutex to protect lastRequestTime
	minRequestInterval time.Duration // Minimum time between requests
	maxRetries         int
}

type DashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []DashScopeMessage `json:"messages"`
	} `json:"input"`
}

type DashScopeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type DashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func New(cfg config.LLMConfig, c *cache.Cache) (*AIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is not configured")
	}
	return &AIService{
		apiKey:             cfg.APIKey,
		modelName:          cfg.ModelName,
		cache:              c,
		httpClient:         &http.Client{Timeout: cfg.Timeout},
		apiURL:             cfg.APIURL,
		lastRequestTime:    time.Time{},
		minRequestInterval: cfg.MinRequestInterval,
		maxRetries:         cfg.MaxRetries,
	}, nil
}

func (a *AIService) Close() error {
	// HTTP client doesn't require explicit closing
	return nil
}

// rateLimit ensures minimum time between requests to prevent burst rate errors
func (a *AIService) rateLimit() {
	a.requestMutex.Lock()
	defer a.requestMutex.Unlock()

	now := time.Now()
	timeSinceLastRequest := now.Sub(a.lastRequestTime)

	if timeSinceLastRequest < a.minRequestInterval {
		time.Sleep(a.minRequestInterval - timeSinceLastRequest)
	}

	a.lastRequestTime = time.Now()
}

func (a *AIService) callDashScopeAPI(ctx context.Context, messages []DashScopeMessage) (string, error) {
	a.rateLimit()

	reqBody := DashScopeRequest{
		Model: a.modelName,
	}
	reqBody.Input.Messages = messages

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry with exponential backoff on rate limit and transport errors
	baseDelay := 2 * time.Second

	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			a.rateLimit()
		}

		req, err := http.NewRequestWithContext(ctx, "POST", a.apiURL, bytes.NewBuffer(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < a.maxRetries {
				continue
			}
			return "", fmt.Errorf("failed to send request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if attempt < a.maxRetries {
				continue
			}
			return "", fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt < a.maxRetries {
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s, max retries exceeded", resp.StatusCode, string(body))
		}

		if resp.StatusCode != http.StatusOK {
			var errorResp struct {
				Code      string `json:"code"`
				Message   string `json:"message"`
				RequestID string `json:"request_id"`
			}
			if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Code != "" {
				return "", fmt.Errorf("API error (status %d): %s - %s (request_id: %s)",
					resp.StatusCode, errorResp.Code, errorResp.Message, errorResp.RequestID)
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}

		var dashScopeResp DashScopeResponse
		if err := json.Unmarshal(body, &dashScopeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal response: %w", err)
		}

		if dashScopeResp.Code != "" && dashScopeResp.Code != "Success" {
			return "", fmt.Errorf("API error: %s - %s", dashScopeResp.Code, dashScopeResp.Message)
		}

		if len(dashScopeResp.Output.Choices) == 0 {
			return "", fmt.Errorf("no response from AI model")
		}

		return dashScopeResp.Output.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("max retries exceeded")
}

// GenerateSQL produces a SQL template for the question. Templates are
// cached by question and filter shape, so repeat questions skip the model.
func (a *AIService) GenerateSQL(ctx context.Context, question, filterSummary string) (string, error) {
	cacheKey := cache.Key(question, filterSummary)
	if cached, found := a.cache.GetSQL(cacheKey); found {
		return cached, nil
	}

	prompt := BuildSQLPrompt(question, filterSummary)
	messages := []DashScopeMessage{
		{Role: "user", Content: prompt},
	}

	response, err := a.callDashScopeAPI(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	sqlTemplate := ExtractSQL(response)
	if sqlTemplate == "" {
		return "", fmt.Errorf("model response contained no SQL statement")
	}

	// only templates that pass the static gates are worth remembering;
	// a cached bad one would replay the same failure for the whole TTL
	if templatePassesGates(sqlTemplate) {
		a.cache.SetSQL(cacheKey, sqlTemplate)
	}
	return sqlTemplate, nil
}

func templatePassesGates(sqlTemplate string) bool {
	if err := validation.EnforcePlaceholder(sqlTemplate); err != nil {
		return false
	}
	return validation.ValidateSQL(sqlTemplate) == nil
}

// RepairSQL asks the model to fix a query the database rejected. A gated
// repair replaces the cached template, so the next ask of the same
// question starts from the version that works.
func (a *AIService) RepairSQL(ctx context.Context, question, filterSummary, badSQL, dbError string) (string, error) {
	prompt := BuildRepairPrompt(question, filterSummary, badSQL, dbError)
	messages := []DashScopeMessage{
		{Role: "user", Content: prompt},
	}

	response, err := a.callDashScopeAPI(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to repair SQL: %w", err)
	}

	sqlTemplate := ExtractSQL(response)
	if sqlTemplate == "" {
		return "", fmt.Errorf("repair response contained no SQL statement")
	}
	if templatePassesGates(sqlTemplate) {
		a.cache.SetSQL(cache.Key(question, filterSummary), sqlTemplate)
	}
	return sqlTemplate, nil
}

// InvalidateSQL drops a cached template, used after a cached query turns
// out not to execute anymore.
func (a *AIService) InvalidateSQL(question, filterSummary string) {
	a.cache.Delete(cache.Key(question, filterSummary))
}
