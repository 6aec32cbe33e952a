package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/lockbridge/internal/device"
)

// Logger is the logging interface used by the fulfillment service.
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

// Actuator triggers the vendor-side change for a lock command. Dispatch is
// fire-and-forget: the fulfillment response never waits on it.
type Actuator interface {
	Dispatch(deviceID string, lock bool)
}

// Deps contains the dependencies required by the fulfillment service.
type Deps struct {
	Store       *device.Store
	Catalog     device.Catalog
	Actuator    Actuator
	AgentUserID string
	Logger      Logger
}

// Service handles smart home fulfillment intents: SYNC, QUERY, EXECUTE
// and DISCONNECT.
type Service struct {
	store       *device.Store
	catalog     device.Catalog
	actuator    Actuator
	agentUserID string
	logger      Logger
}

// New creates a fulfillment service from its dependencies.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		store:       deps.Store,
		catalog:     deps.Catalog,
		actuator:    deps.Actuator,
		agentUserID: deps.AgentUserID,
		logger:      logger,
	}
}

// Handle dispatches a fulfillment request to the handler for its intent.
// The platform sends exactly one input per request; only the first is
// processed.
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	if len(req.Inputs) == 0 {
		return Response{}, ErrNoInputs
	}
	input := req.Inputs[0]

	s.logger.Info("fulfillment request", "intent", input.Intent, "request_id", req.RequestID)

	var (
		payload any
		err     error
	)
	switch input.Intent {
	case IntentSync:
		payload = s.handleSync()
	case IntentQuery:
		payload, err = s.handleQuery(ctx, input.Payload)
	case IntentExecute:
		payload, err = s.handleExecute(ctx, input.Payload)
	case IntentDisconnect:
		// The platform expects a bare empty object, not the envelope.
		s.handleDisconnect()
		return Response{}, nil
	default:
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownIntent, input.Intent)
	}
	if err != nil {
		return Response{}, err
	}

	return Response{RequestID: req.RequestID, Payload: payload}, nil
}

// handleSync enumerates the device catalog. The catalog is static for the
// process lifetime, so no store access is needed.
func (s *Service) handleSync() SyncPayload {
	return SyncPayload{
		AgentUserID: s.agentUserID,
		Devices:     s.catalog,
	}
}

// handleQuery gathers current state for the requested devices. Devices are
// read concurrently; an unknown device yields an inline error entry rather
// than failing the whole request.
func (s *Service) handleQuery(ctx context.Context, raw json.RawMessage) (QueryPayload, error) {
	var p QueryRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return QueryPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	results := make(map[string]map[string]any, len(p.Devices))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, ref := range p.Devices {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			entry := s.queryDevice(ctx, id)

			mu.Lock()
			results[id] = entry
			mu.Unlock()
		}(ref.ID)
	}
	wg.Wait()

	return QueryPayload{Devices: results}, nil
}

func (s *Service) queryDevice(ctx context.Context, id string) map[string]any {
	state, err := s.store.GetState(ctx, id)
	if err != nil {
		s.logger.Warn("query failed", "device_id", id, "error", err)
		return map[string]any{
			"status":    StatusError,
			"errorCode": ErrorCodeDeviceNotFound,
		}
	}
	return state.Flatten()
}

// handleExecute applies the requested commands. Each target device gets its
// own result entry, and devices within a command group are processed
// concurrently. Vendor-side actuation is dispatched fire-and-forget after
// the local state commit.
func (s *Service) handleExecute(ctx context.Context, raw json.RawMessage) (ExecutePayload, error) {
	var p ExecuteRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ExecutePayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var results []CommandResult
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, cmd := range p.Commands {
		for _, ref := range cmd.Devices {
			wg.Add(1)
			go func(id string, executions []Execution) {
				defer wg.Done()

				result := s.executeDevice(ctx, id, executions)

				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}(ref.ID, cmd.Execution)
		}
	}
	wg.Wait()

	return ExecutePayload{Commands: results}, nil
}

// executeDevice runs all executions of one command group against a single
// device. The first failure decides the device's result; a success carries
// the post-write state.
func (s *Service) executeDevice(ctx context.Context, id string, executions []Execution) CommandResult {
	var states map[string]any

	for _, exec := range executions {
		if exec.Command != CommandLockUnlock {
			s.logger.Warn("unsupported command", "device_id", id, "command", exec.Command)
			return CommandResult{
				IDs:       []string{id},
				Status:    StatusError,
				ErrorCode: ErrorCodeFunctionNotSupported,
			}
		}

		var params LockUnlockParams
		if err := json.Unmarshal(exec.Params, &params); err != nil {
			s.logger.Warn("invalid command params", "device_id", id, "error", err)
			return CommandResult{
				IDs:       []string{id},
				Status:    StatusError,
				ErrorCode: ErrorCodeHardError,
			}
		}

		delta := device.LockUnlockDelta{IsLocked: &params.Lock}
		updated, err := s.store.MergeLockUnlock(ctx, id, delta, device.SourceCommand)
		if err != nil {
			return CommandResult{
				IDs:       []string{id},
				Status:    StatusError,
				ErrorCode: executeErrorCode(err),
			}
		}

		if s.actuator != nil {
			s.actuator.Dispatch(id, params.Lock)
		}

		states = updated.Flatten()
		states["online"] = true
	}

	return CommandResult{
		IDs:    []string{id},
		Status: StatusSuccess,
		States: states,
	}
}

func executeErrorCode(err error) string {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		return ErrorCodeDeviceNotFound
	case errors.Is(err, device.ErrTraitNotSupported):
		return ErrorCodeFunctionNotSupported
	default:
		return ErrorCodeHardError
	}
}

// handleDisconnect acknowledges an account unlink. No stored state is
// removed; the platform simply stops sending intents for this user.
func (s *Service) handleDisconnect() {
	s.logger.Info("account disconnected", "agent_user_id", s.agentUserID)
}
