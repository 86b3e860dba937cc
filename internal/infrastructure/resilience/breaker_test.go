package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var errLaunch = errors.New("launch failed")

func fail() error    { return errLaunch }
func succeed() error { return nil }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		calls         []bool // true = success
		expectedState State
	}{
		{"stays closed on successes", 2, []bool{true, true, true}, StateClosed},
		{"stays closed below threshold", 3, []bool{false, false}, StateClosed},
		{"opens at threshold", 2, []bool{false, false}, StateOpen},
		{"success resets the streak", 2, []bool{false, true, false}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("putty", Settings{Failures: tt.failures, Cooldown: time.Minute})

			for _, ok := range tt.calls {
				if ok {
					_ = b.Execute(succeed)
				} else {
					_ = b.Execute(fail)
				}
			}

			assert.Equal(t, tt.expectedState, b.State())
		})
	}
}

func TestBreakerOpenRejectsWithoutCalling(t *testing.T) {
	b := New("putty", Settings{Failures: 1, Cooldown: time.Minute})
	require.ErrorIs(t, b.Execute(fail), errLaunch)

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	clock := &manualClock{now: time.Unix(1000, 0)}
	var transitions []string

	b := New("putty", Settings{
		Failures: 1,
		Cooldown: 10 * time.Second,
		Now:      clock.Now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = b.Execute(fail)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(10 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	// a failed trial reopens immediately
	_ = b.Execute(fail)
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(10 * time.Second)
	require.NoError(t, b.Execute(succeed))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestBreakerHalfOpenAllowsSingleTrial(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	b := New("putty", Settings{Failures: 1, Cooldown: time.Second, Now: clock.Now})
	_ = b.Execute(fail)
	clock.Advance(time.Second)

	err := b.Execute(func() error {
		assert.ErrorIs(t, b.Execute(succeed), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
}

func TestGroupReturnsOneBreakerPerName(t *testing.T) {
	g := NewGroup(Settings{Failures: 1})

	a := g.Get("putty")
	assert.Same(t, a, g.Get("putty"))
	assert.NotSame(t, a, g.Get("winscp"))

	_ = a.Execute(fail)
	assert.Equal(t, StateOpen, g.Get("putty").State())
	assert.Equal(t, StateClosed, g.Get("winscp").State())
}
