package usecase

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"workwithme/internal/domain"
)

// ErrorCategory indicates whether an error is retryable or permanent.
type ErrorCategory int

const (
	ErrorCategoryUnknown   ErrorCategory = iota
	ErrorCategoryRetryable               // 429, 5xx, timeouts, connection errors
	ErrorCategoryPermanent               // 401, 403, 400, bad input
	ErrorCategoryCancelled               // the caller gave up; not a provider fault
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryRetryable:
		return "retryable"
	case ErrorCategoryPermanent:
		return "permanent"
	case ErrorCategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClassifiedError holds the result of error classification.
type ClassifiedError struct {
	Original   error
	Category   ErrorCategory
	Sentinel   error // mapped domain sentinel (e.g. domain.ErrRateLimit), or nil
	StatusCode int   // extracted HTTP status, or 0 if unknown
}

// ErrorClassifier sorts model and drawing errors into categories and turns
// them into text fit for the user.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new classifier.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// apiErrorPattern matches "API error <status_code>:" produced by the providers.
var apiErrorPattern = regexp.MustCompile(`API error (\d+):`)

// sentinelCategories is checked in order with errors.Is.
var sentinelCategories = []struct {
	sentinel error
	category ErrorCategory
}{
	{domain.ErrRateLimit, ErrorCategoryRetryable},
	{domain.ErrTimeout, ErrorCategoryRetryable},
	{domain.ErrUpstream, ErrorCategoryRetryable},
	{domain.ErrContextOverflow, ErrorCategoryPermanent},
	{domain.ErrAuthInvalid, ErrorCategoryPermanent},
	{domain.ErrInvalidImage, ErrorCategoryPermanent},
	{domain.ErrProviderNotFound, ErrorCategoryPermanent},
	{domain.ErrProviderError, ErrorCategoryPermanent},
}

// Classify inspects an error and returns its category and sentinel.
func (c *ErrorClassifier) Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{}
	}
	if errors.Is(err, context.Canceled) {
		return ClassifiedError{Original: err, Category: ErrorCategoryCancelled}
	}

	status := 0
	if m := apiErrorPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		status, _ = strconv.Atoi(m[1])
	}

	for _, sc := range sentinelCategories {
		if errors.Is(err, sc.sentinel) {
			return ClassifiedError{Original: err, Category: sc.category, Sentinel: sc.sentinel, StatusCode: status}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassifiedError{Original: err, Category: ErrorCategoryRetryable, Sentinel: domain.ErrTimeout}
	}
	if status != 0 {
		return c.classifyByStatus(err, status)
	}
	return c.classifyByString(err)
}

func (c *ErrorClassifier) classifyByStatus(err error, code int) ClassifiedError {
	ce := ClassifiedError{Original: err, Category: ErrorCategoryPermanent, StatusCode: code}
	switch {
	case code == 429:
		ce.Category, ce.Sentinel = ErrorCategoryRetryable, domain.ErrRateLimit
	case code == 401 || code == 403:
		ce.Sentinel = domain.ErrAuthInvalid
	case code == 413:
		ce.Sentinel = domain.ErrContextOverflow
	case code >= 500 && code < 600:
		ce.Category, ce.Sentinel = ErrorCategoryRetryable, domain.ErrUpstream
	}
	return ce
}

func (c *ErrorClassifier) classifyByString(err error) ClassifiedError {
	lower := strings.ToLower(err.Error())

	for _, p := range []string{"rate limit", "too many requests"} {
		if strings.Contains(lower, p) {
			return ClassifiedError{Original: err, Category: ErrorCategoryRetryable, Sentinel: domain.ErrRateLimit}
		}
	}
	for _, p := range []string{
		"connection refused", "no such host", "timeout",
		"deadline exceeded", "connection reset", "eof",
	} {
		if strings.Contains(lower, p) {
			return ClassifiedError{Original: err, Category: ErrorCategoryRetryable}
		}
	}
	return ClassifiedError{Original: err, Category: ErrorCategoryUnknown}
}

// UserMessage returns text safe to show the user for err. Raw error
// strings never reach the client.
func (c *ErrorClassifier) UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Your session has ended. Please reconnect."
	case errors.Is(err, domain.ErrUnknownEnvelope):
		return "Unknown message type"
	case errors.Is(err, domain.ErrInvalidEnvelope):
		return "That message could not be understood."
	case errors.Is(err, domain.ErrInvalidImage):
		return "I couldn't read that canvas image. Please try again."
	case errors.Is(err, domain.ErrLimitReached), errors.Is(err, domain.ErrRateLimit):
		return "Whoa, that's a lot at once! Give me a moment and try again."
	}

	switch c.Classify(err).Category {
	case ErrorCategoryCancelled:
		return "Okay, I stopped."
	case ErrorCategoryRetryable:
		return "I'm having trouble right now. Please try again in a moment."
	default:
		return "Something went wrong on my side. Please try again."
	}
}
