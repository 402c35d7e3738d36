package core

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy selects how RetryDelay grows with attempt number.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryDelay is the pure backoff function behind both the worker-local
// retry loop (core/retry.go) and the Workflow Engine's per-step retry:
// fixed (base), linear (base*attempt), exponential (base*2^(attempt-1)),
// clamped to max, then jittered by 1 + U(-jitter, +jitter) with
// jitter in [0,1]. attempt is 1-based.
func RetryDelay(attempt int, base, maxDelay time.Duration, strategy BackoffStrategy, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var delay time.Duration
	switch strategy {
	case BackoffLinear:
		delay = base * time.Duration(attempt)
	case BackoffExponential:
		delay = time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	case BackoffFixed:
		fallthrough
	default:
		delay = base
	}

	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	if jitter <= 0 {
		return delay
	}
	if jitter > 1 {
		jitter = 1
	}

	factor := 1 + (rand.Float64()*2-1)*jitter
	jittered := time.Duration(float64(delay) * factor)
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}
