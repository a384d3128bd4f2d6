package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"workwithme/internal/domain"
)

func TestErrorClassifierClassify(t *testing.T) {
	c := NewErrorClassifier()
	tests := []struct {
		name         string
		err          error
		wantCategory ErrorCategory
		wantSentinel error
		wantStatus   int
	}{
		{"nil", nil, ErrorCategoryUnknown, nil, 0},
		{"cancelled", fmt.Errorf("chat: %w", context.Canceled), ErrorCategoryCancelled, nil, 0},
		{"deadline", fmt.Errorf("chat: %w", context.DeadlineExceeded), ErrorCategoryRetryable, domain.ErrTimeout, 0},
		{"rate limit sentinel", fmt.Errorf("openai: %w", domain.ErrRateLimit), ErrorCategoryRetryable, domain.ErrRateLimit, 0},
		{"upstream with status", fmt.Errorf("API error 503: overloaded: %w", domain.ErrUpstream), ErrorCategoryRetryable, domain.ErrUpstream, 503},
		{"auth sentinel", domain.NewDomainError("op", domain.ErrAuthInvalid, ""), ErrorCategoryPermanent, domain.ErrAuthInvalid, 0},
		{"invalid image", domain.NewDomainError("op", domain.ErrInvalidImage, "bad"), ErrorCategoryPermanent, domain.ErrInvalidImage, 0},
		{"status 429", errors.New("API error 429: slow down"), ErrorCategoryRetryable, domain.ErrRateLimit, 429},
		{"status 401", errors.New("API error 401: nope"), ErrorCategoryPermanent, domain.ErrAuthInvalid, 401},
		{"status 413", errors.New("API error 413: too big"), ErrorCategoryPermanent, domain.ErrContextOverflow, 413},
		{"status 500", errors.New("API error 500: oops"), ErrorCategoryRetryable, domain.ErrUpstream, 500},
		{"status 400", errors.New("API error 400: bad request"), ErrorCategoryPermanent, nil, 400},
		{"rate limit text", errors.New("Too Many Requests"), ErrorCategoryRetryable, domain.ErrRateLimit, 0},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorCategoryRetryable, nil, 0},
		{"unexpected eof", errors.New("unexpected EOF"), ErrorCategoryRetryable, nil, 0},
		{"unknown", errors.New("something odd"), ErrorCategoryUnknown, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.err)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %v, want %v", got.Category, tt.wantCategory)
			}
			if got.Sentinel != tt.wantSentinel {
				t.Errorf("Sentinel = %v, want %v", got.Sentinel, tt.wantSentinel)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestErrorClassifierUserMessage(t *testing.T) {
	c := NewErrorClassifier()
	tests := []struct {
		err  error
		want string
	}{
		{domain.NewDomainError("SessionManager.Get", domain.ErrSessionNotFound, "x"), "Your session has ended. Please reconnect."},
		{fmt.Errorf("gateway: %w", domain.ErrUnknownEnvelope), "Unknown message type"},
		{domain.ErrInvalidEnvelope, "That message could not be understood."},
		{domain.NewDomainError("canvas", domain.ErrInvalidImage, ""), "I couldn't read that canvas image. Please try again."},
		{domain.ErrLimitReached, "Whoa, that's a lot at once! Give me a moment and try again."},
		{context.Canceled, "Okay, I stopped."},
		{fmt.Errorf("%w", domain.ErrUpstream), "I'm having trouble right now. Please try again in a moment."},
		{errors.New("API error 401: secret key sk-123 rejected"), "Something went wrong on my side. Please try again."},
	}
	for _, tt := range tests {
		if got := c.UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorCategoryString(t *testing.T) {
	tests := map[ErrorCategory]string{
		ErrorCategoryUnknown:   "unknown",
		ErrorCategoryRetryable: "retryable",
		ErrorCategoryPermanent: "permanent",
		ErrorCategoryCancelled: "cancelled",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", c, got, want)
		}
	}
}
