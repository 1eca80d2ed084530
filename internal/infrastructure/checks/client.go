// Package checks talks to the external SSB/credit-bureau service. The
// client retries transient failures with bounded exponential backoff and
// never fabricates an outcome: an unreachable bureau surfaces as an error so
// the status engine can leave the application in its awaiting state.
package checks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/usecase/status"
)

// Config carries endpoint and retry policy settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RetryBase   time.Duration
	RetryCap    time.Duration
	MaxAttempts int
}

type Client struct {
	http   *http.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient builds the bureau client with sane retry defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 2 * time.Second
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// submitResponse is the bureau's wire format. An empty outcome means the
// check was accepted and will complete asynchronously.
type submitResponse struct {
	AttemptID   string                 `json:"attempt_id"`
	Outcome     string                 `json:"outcome"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
	CompletedAt time.Time              `json:"completed_at"`
}

// Submit sends one check request. It returns a CheckResult when the bureau
// answers synchronously, or (nil, nil) when the outcome is pending.
func (c *Client) Submit(ctx context.Context, sub status.CheckSubmission) (*domain.CheckResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		result, retryable, err := c.post(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("check submission attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, domain.WrapError(domain.ErrCodeExternalService, "check service unreachable", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (*domain.CheckResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/checks", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("check service returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("check service rejected request: %d", resp.StatusCode)
	}

	var payload submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Outcome == "" || payload.Outcome == string(domain.CheckStatusPending) {
		return nil, false, nil
	}
	return &domain.CheckResult{
		AttemptID:   payload.AttemptID,
		Outcome:     domain.CheckStatus(payload.Outcome),
		Detail:      payload.Detail,
		CompletedAt: payload.CompletedAt,
	}, false, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.RetryBase << (attempt - 1)
	if d > c.cfg.RetryCap {
		return c.cfg.RetryCap
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ status.CheckSubmitter = (*Client)(nil)
