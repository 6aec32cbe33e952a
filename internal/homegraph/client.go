package homegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lockbridge/internal/device"
	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
)

const (
	defaultTimeout = 10 * time.Second

	// maxResponseBody caps how much of an error response is retained.
	maxResponseBody = 8192
)

// Logger is the logging interface used by the HomeGraph client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client talks to the platform's HomeGraph-style API: proactive state
// reports and request-sync triggers.
type Client struct {
	cfg        config.HomeGraphConfig
	httpClient *http.Client
	logger     Logger
}

// New creates a HomeGraph client.
func New(cfg config.HomeGraphConfig, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether the client is configured to make calls.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// reportStateRequest is the body of a report-state call. States are keyed
// by device ID with the trait fields flattened.
type reportStateRequest struct {
	RequestID   string             `json:"requestId"`
	AgentUserID string             `json:"agentUserId"`
	Payload     reportStatePayload `json:"payload"`
}

type reportStatePayload struct {
	Devices reportStateDevices `json:"devices"`
}

type reportStateDevices struct {
	States map[string]map[string]any `json:"states"`
}

// ReportState pushes the given device states to the platform. Each call
// gets a fresh request ID.
func (c *Client) ReportState(ctx context.Context, agentUserID string, states map[string]device.TraitState) error {
	if !c.cfg.Enabled {
		return nil
	}

	flat := make(map[string]map[string]any, len(states))
	for id, state := range states {
		flat[id] = state.Flatten()
	}

	body := reportStateRequest{
		RequestID:   uuid.NewString(),
		AgentUserID: agentUserID,
		Payload: reportStatePayload{
			Devices: reportStateDevices{States: flat},
		},
	}

	c.logger.Debug("reporting state", "request_id", body.RequestID, "devices", len(flat))

	if _, err := c.post(ctx, c.cfg.BaseURL+":reportStateAndNotification", body); err != nil {
		return fmt.Errorf("report state: %w", err)
	}
	return nil
}

// RequestSync asks the platform to re-run SYNC for the agent user. The raw
// response body is returned so callers relaying the result (the
// /requestsync endpoint) can pass it through unmodified.
func (c *Client) RequestSync(ctx context.Context, agentUserID string) ([]byte, error) {
	if !c.cfg.Enabled {
		return nil, ErrDisabled
	}

	body := map[string]string{"agentUserId": agentUserID}

	raw, err := c.post(ctx, c.cfg.BaseURL+":requestSync", body)
	if err != nil {
		return nil, fmt.Errorf("request sync: %w", err)
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrPlatformRejected, resp.StatusCode, respBody)
	}
	return respBody, nil
}
