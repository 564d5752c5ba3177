// Package adapter wraps the two external analyzers behind explicit
// tri-state results. The resolution logic switches exhaustively on the
// result state instead of probing loading/error/data field presence.
package adapter

import "github.com/stratum-ops/opsdeck/src/console/types"

// State tags the active variant of a Result.
type State uint8

const (
	// StateIdle means the adapter has never produced data for the
	// current session.
	StateIdle State = iota
	// StateLoading means a run is in flight.
	StateLoading
	// StateFailed means the last run errored; Err holds the raw text.
	StateFailed
	// StateSucceeded means the last run returned a payload.
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateFailed:
		return "failed"
	case StateSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Result is a tagged adapter outcome: exactly one variant is active.
// The zero value is Idle.
type Result[T any] struct {
	state   State
	err     string
	payload T
}

// Idle returns the no-data-yet variant.
func Idle[T any]() Result[T] { return Result[T]{state: StateIdle} }

// Loading returns the run-in-flight variant.
func Loading[T any]() Result[T] { return Result[T]{state: StateLoading} }

// Failed returns the error variant carrying the raw error text.
func Failed[T any](errText string) Result[T] {
	return Result[T]{state: StateFailed, err: errText}
}

// Succeeded returns the payload-bearing variant.
func Succeeded[T any](payload T) Result[T] {
	return Result[T]{state: StateSucceeded, payload: payload}
}

// State reports which variant is active.
func (r Result[T]) State() State { return r.state }

// Err returns the raw error text; empty unless the state is Failed.
func (r Result[T]) Err() string { return r.err }

// Payload returns the payload; only meaningful when the state is
// Succeeded.
func (r Result[T]) Payload() T { return r.payload }

// SignalResult is the market-sentinel adapter state.
type SignalResult = Result[*types.SignalPacket]

// HedgeResult is the risk-hedger adapter state.
type HedgeResult = Result[types.HedgePayload]
