package scheduler

import (
	"math/rand"
	"time"
)

// Delay computes the retry delay after the given number of claim
// attempts. The raw delay doubles per attempt in whole seconds,
// capped by the policy: raw = min(cap, base * 2^(attempts-1)).
// JitterFull draws uniformly from [0, raw]; JitterNone floors the raw
// delay at one second.
func (p RetryPolicy) Delay(attempts uint16) time.Duration {
	base := int64(p.Base / time.Second)
	limit := int64(p.Cap / time.Second)

	shift := uint(0)
	if attempts > 1 {
		shift = uint(attempts - 1)
	}

	var raw int64
	if shift >= 32 {
		raw = limit
	} else {
		raw = base << shift
		if raw > limit || raw < 0 {
			raw = limit
		}
	}

	if p.Jitter == JitterFull {
		return time.Duration(rand.Int63n(raw+1)) * time.Second
	}
	if raw < 1 {
		raw = 1
	}
	return time.Duration(raw) * time.Second
}
