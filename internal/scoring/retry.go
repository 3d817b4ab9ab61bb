package scoring

import "time"

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait first.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries transient failures four more times, waiting
// 2s, 4s, 8s, then 15s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 4,
		BaseDelay:  2 * time.Second,
		MaxDelay:   15 * time.Second,
	}
}

// Next is called after attempt (0-based) failed with kind. Only transient
// failures are retried, and only while attempt < MaxRetries.
func (p RetryPolicy) Next(attempt int, kind ErrorKind) (retry bool, backoff time.Duration) {
	if kind != KindTransient || attempt >= p.MaxRetries {
		return false, 0
	}
	return true, p.Backoff(attempt)
}

// Backoff returns BaseDelay * 2^attempt capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for range attempt {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}
