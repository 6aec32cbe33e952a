package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
)

const (
	defaultTimeout = 10 * time.Second

	// resultBuffer bounds the results channel. Dispatches beyond a slow
	// consumer drop their result rather than block the worker.
	resultBuffer = 16

	// maxResponseBody caps how much of the vendor response is read for
	// logging. The body is never parsed.
	maxResponseBody = 4096
)

// Vendor status values for the panel lock endpoint.
const (
	statusSecured   = "SECURED"
	statusUnsecured = "UNSECURED"
)

// Logger is the logging interface used by the actuator client.
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

// Result is the outcome of one dispatched actuation. Err is nil when the
// vendor accepted the request.
type Result struct {
	DeviceID string
	Lock     bool
	Err      error
}

// Client calls the downstream lock vendor's panel API. Dispatch is
// fire-and-forget: each call runs in its own goroutine with a bounded
// timeout, and outcomes are observable on Results for logging.
//
// The vendor call is advisory. The local store is authoritative for lock
// state, so a vendor failure never rolls back a committed write.
type Client struct {
	cfg        config.ActuatorConfig
	httpClient *http.Client
	logger     Logger
	results    chan Result

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// New creates an actuator client. When the actuator is disabled in
// configuration, Dispatch becomes a no-op.
func New(cfg config.ActuatorConfig, logger Logger) *Client {
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
		results:    make(chan Result, resultBuffer),
	}
}

// Results returns the channel of dispatch outcomes. The channel is closed
// by Close after all in-flight dispatches finish.
func (c *Client) Results() <-chan Result {
	return c.results
}

// Dispatch sends a lock or unlock request to the vendor in the background.
// It returns immediately; the outcome is delivered on Results.
func (c *Client) Dispatch(deviceID string, lock bool) {
	if !c.cfg.Enabled {
		return
	}

	// The closed check and the Add must be atomic: otherwise a Dispatch
	// racing Close could register after wg.Wait has returned and send on
	// the closed results channel.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()

		err := c.send(ctx, lock)
		if err != nil {
			c.logger.Warn("actuator dispatch failed", "device_id", deviceID, "lock", lock, "error", err)
		}

		select {
		case c.results <- Result{DeviceID: deviceID, Lock: lock, Err: err}:
		default:
			// Nobody is draining results fast enough; the outcome was
			// already logged above.
		}
	}()
}

// Close waits for in-flight dispatches and closes the results channel.
func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.wg.Wait()
		close(c.results)
	})
}

// send performs the vendor API call:
//
//	POST {base}/properties/{property}/units/{unit}/panel/devices/locks/{lock}
//	{"status": "SECURED" | "UNSECURED"}
//
// The response body is read for logging only.
func (c *Client) send(ctx context.Context, lock bool) error {
	status := statusUnsecured
	if lock {
		status = statusSecured
	}

	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	url := fmt.Sprintf("%s/properties/%s/units/%s/panel/devices/locks/%s",
		c.cfg.BaseURL, c.cfg.PropertyID, c.cfg.UnitID, c.cfg.LockID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrVendorRejected, resp.StatusCode, raw)
	}

	c.logger.Debug("actuator dispatched", "status", status, "response", string(raw))
	return nil
}
