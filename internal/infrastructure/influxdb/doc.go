// Package influxdb provides optional time-series telemetry for Lock Bridge.
//
// When enabled, every committed lock state change is written as a point
// tagged by device and mutation source, and state-report outcomes are
// recorded with their latency. Telemetry is best-effort: writes are
// batched and non-blocking, and a disabled or unreachable InfluxDB never
// affects fulfillment.
package influxdb
