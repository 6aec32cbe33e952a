// Package homegraph pushes state to the voice platform's graph API.
//
// Two calls are made: reportStateAndNotification after committed state
// writes, and requestSync when the device catalog should be re-enumerated.
// Both carry the configured agent user ID. A disabled client turns
// ReportState into a no-op so the bridge runs without platform credentials.
package homegraph
