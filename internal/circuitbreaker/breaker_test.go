package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(threshold int, cooldown time.Duration) *Config {
	return &Config{Threshold: threshold, Cooldown: cooldown}
}

func TestBreakerStartsClosed(t *testing.T) {
	t.Parallel()

	b := New("weather", nil, nil)

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	assert.True(t, b.NextRetryAt().IsZero())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(5, 30*time.Second), nil)

	// The first four failures leave the breaker closed; calls still execute.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "failure %d", i+1)
		assert.True(t, b.Allow())
	}

	// The fifth failure opens it; only calls after that are rejected.
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.False(t, b.NextRetryAt().IsZero())
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(3, 30*time.Second), nil)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	// The streak was broken, so four failures with one intervening
	// success never reach the threshold of three.
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Snapshot().ConsecutiveFailures)
}

func TestBreakerCooldownAdmitsSingleTrial(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(1, 50*time.Millisecond), nil)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	time.Sleep(60 * time.Millisecond)

	// First call after the cooldown is the half-open trial.
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	// While the trial is outstanding, further calls are rejected.
	assert.False(t, b.Allow())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(1, 10*time.Millisecond), nil)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.True(t, snap.NextRetryAt.IsZero())
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenReFailure(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(1, 20*time.Millisecond), nil)

	b.RecordFailure()
	firstRetryAt := b.NextRetryAt()

	time.Sleep(30 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.True(t, b.NextRetryAt().After(firstRetryAt), "cooldown must restart")
}

func TestBreakerAbandonedTrialFreesSlot(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(1, 10*time.Millisecond), nil)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.True(t, b.Allow())

	// The trial never reports an outcome. After another cooldown the
	// breaker admits a new trial instead of deadlocking in HalfOpen.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerLateSuccessWhileOpenIsIgnored(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(1, time.Minute), nil)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	// A call admitted before the breaker opened reports late.
	b.RecordSuccess()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(1, time.Minute), nil)
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.True(t, snap.LastFailureAt.IsZero())
	assert.True(t, b.Allow())
}

func TestBreakerOnStateChangeCallback(t *testing.T) {
	t.Parallel()

	type transition struct {
		from, to State
	}
	ch := make(chan transition, 4)

	cfg := testConfig(1, 10*time.Millisecond)
	cfg.OnStateChange = func(_ string, from, to State) {
		ch <- transition{from, to}
	}

	b := New("weather", cfg, nil)
	b.RecordFailure()

	select {
	case tr := <-ch:
		assert.Equal(t, StateClosed, tr.from)
		assert.Equal(t, StateOpen, tr.to)
	case <-time.After(time.Second):
		t.Fatal("state change callback not invoked")
	}
}

func TestBreakerConcurrentFailuresCountEveryOutcome(t *testing.T) {
	t.Parallel()

	const workers = 50
	b := New("weather", testConfig(workers, time.Minute), nil)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()

	// No lost updates: exactly `workers` failures were observed, which
	// is the threshold, so the breaker must be open.
	assert.Equal(t, workers, b.Snapshot().ConsecutiveFailures)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerConcurrentAllowWhileRecording(t *testing.T) {
	t.Parallel()

	b := New("weather", testConfig(3, time.Millisecond), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if b.Allow() {
					if n%2 == 0 {
						b.RecordSuccess()
					} else {
						b.RecordFailure()
					}
				}
			}
		}(i)
	}
	wg.Wait()

	// State must be one of the three valid states; the race detector
	// verifies the locking.
	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, b.State())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestStateMarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := StateHalfOpen.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"half-open"`, string(data))
}
