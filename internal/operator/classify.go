package operator

import (
	"strings"

	"github.com/soochol/skillsmith/internal/apierr"
)

// retryablePatterns mirrors the teacher's internal/services/retry.go
// isRetryableMsg patterns, generalized from workflow-run retries to
// classifying a raw provider error as spec §4.2's LMError{Transient} vs
// LMError{Permanent}.
var retryablePatterns = []string{
	"timeout", "rate_limit", "rate limit", "too many requests",
	"429", "500", "502", "503", "504",
	"connection reset", "connection refused", "eof",
	"overloaded", "capacity",
}

// classifyLMError tags a provider error as transient (retry-worthy) or
// permanent (propagate immediately) based on its message.
func classifyLMError(err error) apierr.Kind {
	lower := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return apierr.LMTransient
		}
	}
	return apierr.LMPermanent
}
