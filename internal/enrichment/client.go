package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/GodsB1025/trade-monitor/internal/common"
	"github.com/GodsB1025/trade-monitor/internal/models"
)

const systemPromptTemplate = `You are a trade regulation monitoring assistant. Search the web for the latest regulatory changes, tariff updates, or compliance notices matching the user's keyword.

Respond with a single JSON object:
{"title": "...", "content": "...", "source_url": "...", "importance": "HIGH|MEDIUM|LOW"}

The content field must summarize the update in detail. If no meaningful update exists, respond with exactly: %s`

// Client calls the Anthropic web-search enrichment service with the calling
// discipline the provider requires: a token-bucket rate limit, a semaphore cap
// on in-flight requests, and bounded retry with exponential backoff. Both
// throttles are re-acquired on every attempt so retries queue behind fresh
// work instead of jumping it.
type Client struct {
	config   *common.EnrichmentConfig
	logger   arbor.ILogger
	client   anthropic.Client
	limiter  *rate.Limiter
	sem      chan struct{}
	timeout  time.Duration
	backoff  time.Duration
	sentinel string
}

// NewClient creates an enrichment client. The sentinel is the exact text the
// provider is instructed to return when nothing new was found; the change
// detector filters on it downstream.
func NewClient(config *common.EnrichmentConfig, sentinel string, logger arbor.ILogger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("enrichment API key is required")
	}

	timeout, err := config.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	backoff, err := config.InitialBackoffDuration()
	if err != nil {
		return nil, err
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	c := &Client{
		config:   config,
		logger:   logger,
		client:   anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		limiter:  rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		sem:      make(chan struct{}, maxConcurrent),
		timeout:  timeout,
		backoff:  backoff,
		sentinel: sentinel,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Float64("rate_per_second", config.RatePerSecond).
		Int("max_concurrent", maxConcurrent).
		Int("max_attempts", config.MaxAttempts).
		Msg("Enrichment client initialized")

	return c, nil
}

// FetchLatest runs one enrichment query for a watch keyword. It never returns
// nil: after the retry budget is exhausted the failure is reported in the
// result itself, which callers treat as a no-change outcome for this cycle.
func (c *Client) FetchLatest(ctx context.Context, keyword string) *models.EnrichmentResult {
	attempts := c.config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	backoff := c.backoff
	var lastKind models.ErrorKind

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.fetchOnce(ctx, keyword)
		if err == nil {
			return result
		}

		lastKind = classifyError(err)
		c.logger.Warn().
			Err(err).
			Str("keyword", keyword).
			Str("error_kind", string(lastKind)).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Enrichment attempt failed")

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return &models.EnrichmentResult{ErrorKind: models.ErrorKindTimeout}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return &models.EnrichmentResult{ErrorKind: lastKind}
}

// fetchOnce performs a single throttled attempt. The rate limiter and the
// semaphore gate every attempt, including retries.
func (c *Client) fetchOnce(ctx context.Context, keyword string) (*models.EnrichmentResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: fmt.Sprintf(systemPromptTemplate, c.sentinel)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf("Find the latest trade regulation updates for: %s", keyword),
			)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
					MaxUses: anthropic.Int(int64(c.config.MaxWebSearches)),
				},
			},
		},
	}

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from enrichment provider")
	}

	result, err := parseResponse(text.String(), c.sentinel)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("keyword", keyword).
		Int("summary_length", len(result.SummaryText)).
		Dur("duration", time.Since(startTime)).
		Msg("Enrichment call completed")

	return result, nil
}

// classifyError maps transport and provider failures onto the diagnostic
// error kinds carried in the result.
func classifyError(err error) models.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrorKindTimeout
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			return models.ErrorKindRateLimited
		}
		return models.ErrorKindProvider
	}

	if isParseError(err) {
		return models.ErrorKindParse
	}
	return models.ErrorKindProvider
}
