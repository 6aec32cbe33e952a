package reporter

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/lockbridge/internal/device"
)

// reportTimeout bounds each state report call to the platform.
const reportTimeout = 10 * time.Second

// Logger is the logging interface used by the reporter.
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

// StateReporter pushes device states to the platform.
type StateReporter interface {
	ReportState(ctx context.Context, agentUserID string, states map[string]device.TraitState) error
	Enabled() bool
}

// HistoryRecorder persists an audit record per state change.
type HistoryRecorder interface {
	RecordStateChange(ctx context.Context, deviceID string, state device.TraitState, source device.Source) error
}

// Telemetry records lock activity to the time-series store.
type Telemetry interface {
	WriteLockState(deviceID, source string, isLocked, isJammed, online bool)
	WriteReportOutcome(deviceID string, ok bool, duration time.Duration)
}

// Deps contains the dependencies required by the reporter.
// History and Telemetry are optional.
type Deps struct {
	Store       *device.Store
	Reporter    StateReporter
	History     HistoryRecorder
	Telemetry   Telemetry
	AgentUserID string
	Logger      Logger
}

// Reporter subscribes to the device store's change feed and fans each
// committed state mutation out to the platform, the history table and
// telemetry.
//
// Each mutation produces exactly one report attempt: failures are logged
// and dropped, never retried or deduplicated, so a flapping lock cannot
// build an unbounded backlog.
type Reporter struct {
	store       *device.Store
	reporter    StateReporter
	history     HistoryRecorder
	telemetry   Telemetry
	agentUserID string
	logger      Logger

	cancelSub func()
	wg        sync.WaitGroup
	once      sync.Once
}

// New creates a reporter from its dependencies.
func New(deps Deps) *Reporter {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Reporter{
		store:       deps.Store,
		reporter:    deps.Reporter,
		history:     deps.History,
		telemetry:   deps.Telemetry,
		agentUserID: deps.AgentUserID,
		logger:      logger,
	}
}

// Start subscribes to the store and begins processing change events.
// Processing stops when ctx is cancelled or Close is called.
func (r *Reporter) Start(ctx context.Context) {
	events, cancel := r.store.Subscribe()
	r.cancelSub = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				r.handle(ctx, ev)
			}
		}
	}()
}

// Close stops event processing and waits for the in-flight event.
func (r *Reporter) Close() {
	r.once.Do(func() {
		if r.cancelSub != nil {
			r.cancelSub()
		}
		r.wg.Wait()
	})
}

// handle fans one committed state change out to all sinks.
func (r *Reporter) handle(ctx context.Context, ev device.Event) {
	if r.history != nil {
		if err := r.history.RecordStateChange(ctx, ev.DeviceID, ev.State, ev.Source); err != nil {
			r.logger.Warn("history record failed", "device_id", ev.DeviceID, "error", err)
		}
	}

	if r.telemetry != nil && ev.State.LockUnlock != nil {
		lock := ev.State.LockUnlock
		r.telemetry.WriteLockState(ev.DeviceID, string(ev.Source), lock.IsLocked, lock.IsJammed, lock.Online)
	}

	if r.reporter == nil || !r.reporter.Enabled() {
		return
	}

	reportCtx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	start := time.Now()
	err := r.reporter.ReportState(reportCtx, r.agentUserID, map[string]device.TraitState{
		ev.DeviceID: ev.State,
	})
	duration := time.Since(start)

	if r.telemetry != nil {
		r.telemetry.WriteReportOutcome(ev.DeviceID, err == nil, duration)
	}

	if err != nil {
		// One attempt per mutation; the next state change carries the
		// fresh snapshot anyway.
		r.logger.Warn("state report failed", "device_id", ev.DeviceID, "source", ev.Source, "error", err)
		return
	}

	r.logger.Debug("state reported", "device_id", ev.DeviceID, "source", ev.Source, "duration", duration)
}
