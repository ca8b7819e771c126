// Package mcircuitbreaker adapts sony/gobreaker's state-change callback
// into a small, domain-owned StateListener interface: callers depend on
// our interface, not on the underlying breaker library's types, so the
// breaker implementation can be swapped without touching call sites.
package mcircuitbreaker

import "github.com/sony/gobreaker"

// State mirrors gobreaker.State without leaking the dependency to callers.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts mirrors gobreaker.Counts.
type Counts struct {
	Requests             uint32
	TotalSuccesses        uint32
	TotalFailures         uint32
	ConsecutiveSuccesses  uint32
	ConsecutiveFailures   uint32
}

// StateChangeEvent is delivered to a StateListener on every breaker
// transition of a substrate client's single "substrate-redis" breaker
// (spec.md §4.1). The bootstrap packages pass no listener, so in the
// running processes these events are dropped.
type StateChangeEvent struct {
	ServiceName string
	FromState   State
	ToState     State
	Counts      Counts
}

// StateListener receives circuit breaker state transitions.
type StateListener interface {
	OnCircuitBreakerStateChange(event StateChangeEvent)
}

// GobreakerAdapter forwards gobreaker.Settings.OnStateChange callbacks to a
// domain StateListener.
type GobreakerAdapter struct {
	listener StateListener
}

// NewGobreakerAdapter builds an adapter forwarding to listener. A nil
// listener is valid and simply drops events.
func NewGobreakerAdapter(listener StateListener) *GobreakerAdapter {
	return &GobreakerAdapter{listener: listener}
}

// OnStateChange implements the signature expected by
// gobreaker.Settings.OnStateChange.
func (a *GobreakerAdapter) OnStateChange(name string, from, to gobreaker.State, counts gobreaker.Counts) {
	if a.listener == nil {
		return
	}

	a.listener.OnCircuitBreakerStateChange(StateChangeEvent{
		ServiceName: name,
		FromState:   convertState(from),
		ToState:     convertState(to),
		Counts: Counts{
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
		},
	})
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
