package actuator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
)

type capturedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]string
}

func newVendorServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		requests = append(requests, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), requests...)
	}
}

func testConfig(baseURL string) config.ActuatorConfig {
	return config.ActuatorConfig{
		Enabled:    true,
		BaseURL:    baseURL,
		PropertyID: "prop-1",
		UnitID:     "unit-2",
		LockID:     "lock-3",
		AuthToken:  "vendor-token",
		Timeout:    5,
	}
}

func awaitResult(t *testing.T, c *Client) Result {
	t.Helper()
	select {
	case res := <-c.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch result")
		return Result{}
	}
}

func TestDispatch_Lock(t *testing.T) {
	srv, requests := newVendorServer(t, http.StatusOK)
	c := New(testConfig(srv.URL), nil)
	defer c.Close()

	c.Dispatch("lock", true)

	res := awaitResult(t, c)
	if res.Err != nil {
		t.Fatalf("result error = %v", res.Err)
	}
	if res.DeviceID != "lock" || !res.Lock {
		t.Errorf("result = %+v, want lock=true on lock", res)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("vendor requests = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req.method != http.MethodPost {
		t.Errorf("method = %q, want POST", req.method)
	}
	wantPath := "/properties/prop-1/units/unit-2/panel/devices/locks/lock-3"
	if req.path != wantPath {
		t.Errorf("path = %q, want %q", req.path, wantPath)
	}
	if req.auth != "Bearer vendor-token" {
		t.Errorf("auth = %q, want bearer token", req.auth)
	}
	if req.body["status"] != "SECURED" {
		t.Errorf("body status = %q, want SECURED", req.body["status"])
	}
}

func TestDispatch_UnlockSendsUnsecured(t *testing.T) {
	srv, requests := newVendorServer(t, http.StatusOK)
	c := New(testConfig(srv.URL), nil)
	defer c.Close()

	c.Dispatch("lock", false)
	if res := awaitResult(t, c); res.Err != nil {
		t.Fatalf("result error = %v", res.Err)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("vendor requests = %d, want 1", len(reqs))
	}
	if reqs[0].body["status"] != "UNSECURED" {
		t.Errorf("body status = %q, want UNSECURED", reqs[0].body["status"])
	}
}

func TestDispatch_VendorError(t *testing.T) {
	srv, _ := newVendorServer(t, http.StatusBadGateway)
	c := New(testConfig(srv.URL), nil)
	defer c.Close()

	c.Dispatch("lock", true)

	res := awaitResult(t, c)
	if !errors.Is(res.Err, ErrVendorRejected) {
		t.Errorf("result error = %v, want ErrVendorRejected", res.Err)
	}
}

func TestDispatch_Disabled(t *testing.T) {
	srv, requests := newVendorServer(t, http.StatusOK)
	cfg := testConfig(srv.URL)
	cfg.Enabled = false

	c := New(cfg, nil)
	c.Dispatch("lock", true)
	c.Close()

	if len(requests()) != 0 {
		t.Error("disabled actuator made a vendor request")
	}
}

func TestClose_DrainsInFlight(t *testing.T) {
	srv, requests := newVendorServer(t, http.StatusOK)
	c := New(testConfig(srv.URL), nil)

	c.Dispatch("lock", true)
	c.Close()

	if len(requests()) != 1 {
		t.Errorf("vendor requests = %d, want 1 after Close", len(requests()))
	}

	// After Close the results channel is closed.
	for range c.Results() {
	}

	// Dispatch after Close is a no-op.
	c.Dispatch("lock", false)
	if len(requests()) != 1 {
		t.Error("dispatch after Close made a vendor request")
	}
}

func TestDispatch_RacesClose(t *testing.T) {
	srv, _ := newVendorServer(t, http.StatusOK)
	c := New(testConfig(srv.URL), nil)

	// Drain so in-flight dispatches never block on the results buffer.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range c.Results() {
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(lock bool) {
			defer wg.Done()
			c.Dispatch("lock", lock)
		}(i%2 == 0)
	}

	// Close races the dispatches: late ones must be dropped, never sent
	// on the closed results channel.
	c.Close()
	wg.Wait()

	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("results channel was not closed after Close")
	}
}
