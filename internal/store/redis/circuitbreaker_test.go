package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return errFail })
		require.Equal(t, errFail, err)
	}
	assert.Equal(t, StateOpen, cb.CurrentState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.Equal(t, ErrCircuitOpen, err)
	assert.False(t, called, "open breaker must not run fn")
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(maxFailures, reset)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errFail })
	}
	require.Equal(t, StateOpen, cb.CurrentState())

	clock.advance(time.Minute)
	assert.Equal(t, ErrCircuitOpen, cb.Execute(func() error { return nil }), "still inside the reset timeout")

	clock.advance(time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_HalfOpenTrialFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)

	var transitions []State
	cb.OnStateChange = func(_, to State) { transitions = append(transitions, to) }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errFail })
	}
	clock.advance(2 * time.Minute)

	assert.Equal(t, errFail, cb.Execute(func() error { return errFail }))
	assert.Equal(t, StateOpen, cb.CurrentState())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateOpen}, transitions)

	// the reopened breaker waits a full timeout from the failed trial call
	clock.advance(30 * time.Second)
	assert.Equal(t, ErrCircuitOpen, cb.Execute(func() error { return nil }))
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Second)

	_ = cb.Execute(func() error { return errFail })
	_ = cb.Execute(func() error { return errFail })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return errFail })
	_ = cb.Execute(func() error { return errFail })

	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
