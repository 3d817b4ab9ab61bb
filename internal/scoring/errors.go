// Package scoring sends batches of insight work units to the external
// scorer, validates what comes back, and degrades every failure to a
// labeled neutral result so that no unit is ever left without one.
package scoring

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/hoanghai1803/newspulse/internal/ai"
)

// ErrorKind is the failure taxonomy the retry policy acts on.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindTransient covers 5xx, timeouts, and unavailability. Retried.
	KindTransient
	// KindQuota covers 429 and quota/rate exhaustion. Trips the breaker.
	KindQuota
	// KindModel covers malformed output and anything unrecognized.
	KindModel
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindQuota:
		return "quota"
	case KindModel:
		return "model"
	default:
		return "unknown"
	}
}

var (
	quotaPattern     = regexp.MustCompile(`(?i)(\b429\b|quota|rate[ _-]?limit|rate exceeded|resource_exhausted|too many requests)`)
	transientPattern = regexp.MustCompile(`(?i)(\b5\d\d\b|timeout|timed out|temporar|unavailable|deadline exceeded|overloaded|connection reset)`)
)

// Classify maps an error from a provider call or response decoding onto an
// ErrorKind. Quota patterns take precedence over transient ones.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrNotArray) || errors.Is(err, ErrValidation) {
		return KindModel
	}
	if errors.Is(err, context.Canceled) {
		return KindModel
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var se *ai.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusTooManyRequests:
			return KindQuota
		case se.StatusCode >= 500:
			return KindTransient
		}
	}

	msg := err.Error()
	switch {
	case quotaPattern.MatchString(msg):
		return KindQuota
	case transientPattern.MatchString(msg):
		return KindTransient
	default:
		return KindModel
	}
}
