package testrounds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a thin HTTP client for the round service.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(cfg *Config) *client {
	return &client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// roundInfo mirrors the service's round response.
type roundInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// scoreboardInfo mirrors the service's scoreboard response.
type scoreboardInfo struct {
	RoundID        string      `json:"round_id"`
	Status         string      `json:"status"`
	ScoringPending bool        `json:"scoring_pending"`
	Scores         []scoreInfo `json:"scores"`
}

type scoreInfo struct {
	ParticipantID string  `json:"participant_id"`
	TotalScore    float64 `json:"total_score"`
	InCycle       bool    `json:"in_cycle"`
	Distance      *int    `json:"distance"`
}

// checkHealth verifies the service is up before generating load.
func (c *client) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// createRound creates a round with the full roster attached.
func (c *client) createRound(ctx context.Context, cfg *Config, roster []string) (string, error) {
	payload := map[string]any{
		"game_id":          "sim-game",
		"lobby_id":         "sim-lobby",
		"round_number":     1,
		"question":         simQuestion,
		"correct_answer":   simAnswer,
		"duration_seconds": cfg.DurationSeconds,
		"participants":     roster,
	}
	var round roundInfo
	if err := c.postJSON(ctx, "/rounds", payload, http.StatusCreated, &round); err != nil {
		return "", fmt.Errorf("create round: %w", err)
	}
	return round.ID, nil
}

func (c *client) startRound(ctx context.Context, roundID string) error {
	if err := c.postJSON(ctx, "/rounds/"+roundID+"/start", nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	return nil
}

func (c *client) submit(ctx context.Context, roundID string, sub submission) error {
	return c.postJSON(ctx, "/rounds/"+roundID+"/submissions", sub, http.StatusAccepted, nil)
}

func (c *client) endRound(ctx context.Context, roundID string) error {
	if err := c.postJSON(ctx, "/rounds/"+roundID+"/end", nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("end round: %w", err)
	}
	return nil
}

// waitForScores polls the scoreboard until scoring lands or the deadline
// passes.
func (c *client) waitForScores(ctx context.Context, roundID string, wait time.Duration) (*scoreboardInfo, error) {
	deadline := time.Now().Add(wait)
	for {
		board, err := c.getScores(ctx, roundID)
		if err != nil {
			return nil, err
		}
		if board.Status == "COMPLETED" && !board.ScoringPending {
			return board, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("scores not ready after %s", wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (c *client) getScores(ctx context.Context, roundID string) (*scoreboardInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rounds/"+roundID+"/scores", http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get scores: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get scores returned %d: %s", resp.StatusCode, string(body))
	}
	var board scoreboardInfo
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}
	return &board, nil
}

// postJSON posts payload and decodes the response into out when non-nil.
func (c *client) postJSON(ctx context.Context, path string, payload any, wantStatus int, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("post %s returned %d: %s", path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
