package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

// NotifyTimeout bounds a single callback attempt
const NotifyTimeout = 30 * time.Second

// EvaluationNotifier posts completion payloads to the evaluation server
// with exponential backoff.
type EvaluationNotifier struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewEvaluationNotifier creates a notifier that gives up after maxRetries attempts.
func NewEvaluationNotifier(maxRetries int) *EvaluationNotifier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &EvaluationNotifier{
		client: &http.Client{
			Timeout: NotifyTimeout,
		},
		maxRetries: maxRetries,
		baseDelay:  time.Second,
	}
}

// Notify delivers the payload, retrying with doubling delays (1s, 2s, 4s...).
// Returns the last error when every attempt fails.
func (n *EvaluationNotifier) Notify(ctx context.Context, evaluationURL string, payload domain.EvaluationPayload) error {
	logger := NewLogger(ctx)

	delay := n.baseDelay
	var lastErr error
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		logger.LogInfof("notify", "attempt %d: sending payload to %s", attempt, evaluationURL)

		lastErr = n.post(ctx, evaluationURL, payload)
		if lastErr == nil {
			logger.LogInfo("notify", "evaluation server notified")
			return nil
		}

		logger.LogWarnf("notify", "attempt %d failed: %v, retrying in %s", attempt, lastErr, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("notify evaluation server after %d attempts: %w", n.maxRetries, lastErr)
}

func (n *EvaluationNotifier) post(ctx context.Context, evaluationURL string, payload domain.EvaluationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, evaluationURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("callback returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
