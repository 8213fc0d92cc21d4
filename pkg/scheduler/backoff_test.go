package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ──────────────────────────────────────────────────────────────────────────────
// Retry backoff
// ──────────────────────────────────────────────────────────────────────────────

func TestDelay_ExponentialSequence(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, Base: 2 * time.Second, Cap: time.Minute, Jitter: JitterNone}

	want := []time.Duration{
		2 * time.Second,  // attempt 1
		4 * time.Second,  // attempt 2
		8 * time.Second,  // attempt 3
		16 * time.Second, // attempt 4
		32 * time.Second, // attempt 5
		60 * time.Second, // attempt 6, capped
		60 * time.Second, // attempt 7, capped
	}
	for i, w := range want {
		assert.Equal(t, w, p.Delay(uint16(i+1)), "attempt %d", i+1)
	}
}

func TestDelay_ZeroAttemptsBehavesLikeFirst(t *testing.T) {
	p := RetryPolicy{Base: 3 * time.Second, Cap: time.Minute, Jitter: JitterNone}
	assert.Equal(t, 3*time.Second, p.Delay(0))
}

func TestDelay_FlooredAtOneSecond(t *testing.T) {
	p := RetryPolicy{Base: 0, Cap: time.Minute, Jitter: JitterNone}
	assert.Equal(t, time.Second, p.Delay(1))
}

func TestDelay_LargeAttemptCountStaysAtCap(t *testing.T) {
	p := RetryPolicy{Base: time.Second, Cap: time.Minute, Jitter: JitterNone}

	assert.Equal(t, time.Minute, p.Delay(40))
	assert.Equal(t, time.Minute, p.Delay(65535))
}

func TestDelay_FullJitterStaysWithinEnvelope(t *testing.T) {
	p := RetryPolicy{Base: 2 * time.Second, Cap: time.Minute, Jitter: JitterFull}

	for attempt := uint16(1); attempt <= 8; attempt++ {
		raw := RetryPolicy{Base: p.Base, Cap: p.Cap, Jitter: JitterNone}.Delay(attempt)
		for i := 0; i < 50; i++ {
			d := p.Delay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, raw, "attempt %d", attempt)
			assert.Zero(t, d%time.Second, "jittered delays are whole seconds")
		}
	}
}
