package embedder

import (
	"errors"
	"strings"
)

// ErrQuotaExceeded marks embedding or generation failures caused by provider
// rate or quota limits. Callers surface these differently from other errors
// (the user is told to wait, not that the system is broken).
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// quotaMarkers are substrings that identify a quota or rate-limit failure in
// provider error messages, matched case-insensitively.
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"429",
	"too many requests",
}

// IsQuota reports whether err represents a provider quota or rate-limit
// failure, either by wrapping [ErrQuotaExceeded] or by message inspection.
// Provider SDKs rarely expose typed quota errors, so substring matching on
// the message is the pragmatic classification.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
