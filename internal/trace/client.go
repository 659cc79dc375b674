// Package trace is the read-only client for the session analysis service.
// The service owns ingestion history and retro analyses; fleetwatch only
// fetches from it on demand.
package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// ErrNotAnalyzed is returned when the service has no retro analysis for a
// session. This is a normal condition, not a fault: analyses are computed
// asynchronously and many sessions never get one.
var ErrNotAnalyzed = errors.New("session not yet analyzed")

// Client fetches session enrichment data over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SubAgentCalls fetches the ordered tool-call list for a session.
func (c *Client) SubAgentCalls(ctx context.Context, sessionID string) ([]models.SubAgentCall, error) {
	var payload struct {
		Calls []models.SubAgentCall `json:"calls"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/sessions/%s/subagents", sessionID), &payload); err != nil {
		return nil, err
	}
	return payload.Calls, nil
}

// ToolHistory fetches the tool-call spans used by the timeline view.
func (c *Client) ToolHistory(ctx context.Context, sessionID string) ([]models.SubAgentCall, error) {
	var payload struct {
		Timeline []models.SubAgentCall `json:"timeline"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/sessions/%s/timeline", sessionID), &payload); err != nil {
		return nil, err
	}
	return payload.Timeline, nil
}

// Retro fetches the retrospective analysis for a session.
// Returns ErrNotAnalyzed when the service reports 404.
func (c *Client) Retro(ctx context.Context, sessionID string) (*models.RetroAnalysis, error) {
	var payload struct {
		Session struct {
			SessionID        string  `json:"session_id"`
			DriftScore       float64 `json:"drift_score"`
			ConvergenceScore float64 `json:"convergence_score"`
			ThrashScore      float64 `json:"thrash_score"`
		} `json:"session"`
		Judgment *struct {
			Outcome            string  `json:"outcome"`
			OutcomeConfidence  float64 `json:"outcome_confidence"`
			OutcomeReasoning   string  `json:"outcome_reasoning"`
			PromptClarity      float64 `json:"prompt_clarity"`
			PromptCompleteness float64 `json:"prompt_completeness"`
		} `json:"judgment"`
		Narrative *struct {
			Narrative string `json:"narrative"`
		} `json:"narrative"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/sessions/%s", sessionID), &payload); err != nil {
		return nil, err
	}

	retro := &models.RetroAnalysis{
		SessionID:        payload.Session.SessionID,
		DriftScore:       payload.Session.DriftScore,
		ConvergenceScore: payload.Session.ConvergenceScore,
		ThrashScore:      payload.Session.ThrashScore,
	}
	if retro.SessionID == "" {
		retro.SessionID = sessionID
	}
	if payload.Judgment != nil {
		retro.Judgment = &models.Judgment{
			Outcome:            models.JudgmentOutcome(payload.Judgment.Outcome),
			OutcomeConfidence:  payload.Judgment.OutcomeConfidence,
			OutcomeReasoning:   payload.Judgment.OutcomeReasoning,
			PromptClarity:      payload.Judgment.PromptClarity,
			PromptCompleteness: payload.Judgment.PromptCompleteness,
		}
	}
	if payload.Narrative != nil {
		retro.Narrative = payload.Narrative.Narrative
	}
	return retro, nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotAnalyzed
	}
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
