package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLockState records a lock state snapshot.
//
// One point is written per committed state change, tagged by device and
// mutation source so lock activity can be graphed per device. The write is
// non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteLockState(deviceID, source string, isLocked, isJammed, online bool) {
	c.WritePoint(
		"lock_state",
		map[string]string{
			"device_id": deviceID,
			"source":    source,
		},
		map[string]interface{}{
			"is_locked": isLocked,
			"is_jammed": isJammed,
			"online":    online,
		},
	)
}

// WriteReportOutcome records the outcome of a state report to the platform.
//
// Tracks report latency and failure rate per device.
func (c *Client) WriteReportOutcome(deviceID string, ok bool, duration time.Duration) {
	c.WritePoint(
		"state_report",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"ok":          ok,
			"duration_ms": float64(duration.Milliseconds()),
		},
	)
}

// WritePoint writes a point to the configured bucket.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
