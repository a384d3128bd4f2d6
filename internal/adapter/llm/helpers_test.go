package llm

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"workwithme/internal/domain"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusRequestEntityTooLarge, domain.ErrContextOverflow},
		{http.StatusInternalServerError, domain.ErrUpstream},
		{http.StatusBadGateway, domain.ErrUpstream},
		{http.StatusServiceUnavailable, domain.ErrUpstream},
		{http.StatusBadRequest, domain.ErrProviderError},
		{http.StatusNotFound, domain.ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := mapHTTPError(tt.status, []byte("body"))
			if !errors.Is(err, tt.want) {
				t.Errorf("mapHTTPError(%d) = %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestMapHTTPErrorIncludesBody(t *testing.T) {
	err := mapHTTPError(http.StatusBadRequest, []byte(`{"error":"invalid image"}`))
	if !strings.Contains(err.Error(), "invalid image") {
		t.Errorf("error = %q, want it to include the body", err)
	}
}

func TestMapHTTPErrorTruncatesBody(t *testing.T) {
	err := mapHTTPError(http.StatusBadRequest, []byte(strings.Repeat("x", 4*maxErrorDetail)))
	if len(err.Error()) > 2*maxErrorDetail {
		t.Errorf("error length = %d, want it truncated", len(err.Error()))
	}
	if !strings.HasSuffix(err.Error(), "...") {
		t.Errorf("error = %q, want trailing ellipsis", err.Error()[len(err.Error())-10:])
	}
}

func TestRetryableStatuses(t *testing.T) {
	if !domain.IsRetryableError(mapHTTPError(http.StatusTooManyRequests, nil)) {
		t.Error("429 should be retryable")
	}
	if domain.IsRetryableError(mapHTTPError(http.StatusUnauthorized, nil)) {
		t.Error("401 should not be retryable")
	}
}

func TestHasImages(t *testing.T) {
	plain := []domain.Message{{Role: domain.RoleUser, Content: "hi"}}
	if hasImages(plain) {
		t.Error("hasImages(plain) = true, want false")
	}
	withImage := append(plain, domain.Message{Role: domain.RoleUser, Images: []domain.ImagePart{{URL: "data:image/png;base64,AA"}}})
	if !hasImages(withImage) {
		t.Error("hasImages(withImage) = false, want true")
	}
}
