// Package reporter propagates committed state changes to downstream sinks.
//
// It subscribes to the device store's change feed and, for every committed
// mutation, makes exactly one state report attempt to the platform, writes
// one history record, and emits one telemetry point. Sinks are independent:
// a failing platform report does not block history or telemetry, and no
// sink failure is retried.
package reporter
