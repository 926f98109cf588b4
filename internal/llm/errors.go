package llm

import "strings"

// ErrorType buckets LLM failures for metrics and log lines.
type ErrorType string

const (
	ErrorTypeUnknown    ErrorType = "unknown"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeOverloaded ErrorType = "overloaded"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeBilling    ErrorType = "billing"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// ClassifyError determines the error type from an error message.
// Returns ErrorTypeUnknown if the error doesn't match any known pattern.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeUnknown
	}
	// Order matters: billing messages often mention 403 too.
	switch {
	case IsRateLimitMessage(msg):
		return ErrorTypeRateLimit
	case IsOverloadedMessage(msg):
		return ErrorTypeOverloaded
	case IsBillingMessage(msg):
		return ErrorTypeBilling
	case IsAuthMessage(msg):
		return ErrorTypeAuth
	case IsTimeoutMessage(msg):
		return ErrorTypeTimeout
	}
	return ErrorTypeUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsRateLimitMessage checks if a message indicates rate limiting.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower,
		"429",
		"rate_limit",
		"rate limit",
		"too many requests",
		"exceeded your current quota",
		"quota exceeded",
		"resource_exhausted",
		"resource has been exhausted",
	)
}

// IsOverloadedMessage checks if a message indicates the service is overloaded.
func IsOverloadedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "503") && containsAny(lower, "service", "unavailable") {
		return true
	}
	return containsAny(lower, "overloaded", "server is busy", "temporarily unavailable")
}

// IsAuthMessage checks if a message indicates authentication failure.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower,
		"401",
		"403",
		"invalid api key",
		"invalid_api_key",
		"api key not valid",
		"incorrect api key",
		"unauthorized",
		"permission_denied",
		"authentication",
	)
}

// IsBillingMessage checks if a message indicates billing/payment issues.
func IsBillingMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower,
		"402",
		"payment required",
		"insufficient_quota",
		"credit balance",
		"billing",
	)
}

// IsTimeoutMessage checks if a message indicates a timeout.
func IsTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower,
		"timeout",
		"timed out",
		"deadline exceeded",
		"504",
	)
}
