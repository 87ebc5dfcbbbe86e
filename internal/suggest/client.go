// Package suggest talks to the triage suggestion service.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// Client calls POST {URL}/suggest with the ticket subject and description.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	logger *zap.Logger
}

// NewClient returns nil when no URL is configured.
func NewClient(cfg config.SuggestConfig, logger *zap.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:    strings.TrimRight(cfg.URL, "/") + "/suggest",
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.Timeout()},
		logger: logger,
	}
}

type suggestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type suggestResponse struct {
	DepartmentGuess string `json:"departmentGuess"`
	PriorityHint    string `json:"priorityHint"`
	NextAction      string `json:"nextAction"`
	Rationale       string `json:"rationale"`
}

// Suggest returns the collaborator's triage guess. Any transport failure,
// non-2xx status or undecodable body is returned as an error.
func (c *Client) Suggest(ctx context.Context, title, description string) (*domain.TriageSuggestion, error) {
	body, err := json.Marshal(suggestRequest{Title: title, Description: description})
	if err != nil {
		return nil, fmt.Errorf("encode suggest request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build suggest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call suggest service: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("suggest call finished",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("suggest service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out suggestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode suggest response: %w", err)
	}

	priority := domain.TicketPriority(strings.ToUpper(out.PriorityHint))
	if !priority.Valid() {
		priority = domain.TicketPriorityNormal
	}
	return &domain.TriageSuggestion{
		DepartmentGuess: out.DepartmentGuess,
		PriorityHint:    priority,
		NextAction:      out.NextAction,
		Rationale:       out.Rationale,
	}, nil
}
