package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Interpreter.Execute", ErrUnknownCommand, "action 'spiral'")
	want := "Interpreter.Execute: action 'spiral': unknown drawing command"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Interpreter.Execute", ErrNothingToDraw, "")
	want := "Interpreter.Execute: nothing to draw"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Snapshot.Decode", ErrInvalidImage, "not a data url")
	if !errors.Is(err, ErrInvalidImage) {
		t.Error("errors.Is should match ErrInvalidImage")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := NewDomainError("LLM.Chat", ErrProviderNotFound, "groq")
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "LLM.Chat" {
		t.Errorf("Op = %q, want %q", de.Op, "LLM.Chat")
	}
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeMalformedPlan, ErrorCodeOf(ErrMalformedPlan))
	assert.Equal(t, CodeSessionNotFound, ErrorCodeOf(ErrSessionNotFound))
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(ErrRateLimit))
	assert.Equal(t, CodeDegraded, ErrorCodeOf(ErrDegraded))
}

func TestErrorCodeOf_DomainError(t *testing.T) {
	err := NewDomainError("Gateway.Dispatch", ErrUnknownEnvelope, "type 'foo'")
	assert.Equal(t, CodeUnknownEnvelope, ErrorCodeOf(err))
}

func TestErrorCodeOf_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", ErrUpstream)
	assert.Equal(t, CodeUpstream, ErrorCodeOf(wrapped))
}

func TestErrorCodeOf_UnknownError(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(fmt.Errorf("some random error")))
}

func TestErrorCodeOf_Nil(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestDomainError_CodeUnknownSentinel(t *testing.T) {
	err := NewDomainError("Op", fmt.Errorf("custom"), "detail")
	assert.Equal(t, CodeUnknown, err.Code())
}

func TestAllSentinelsHaveCodes(t *testing.T) {
	require.NotEmpty(t, errorCodeMap)
	for sentinel, code := range errorCodeMap {
		assert.NotEmpty(t, code, "sentinel %v has empty code", sentinel)
		assert.NotEqual(t, CodeUnknown, code, "sentinel %v maps to UNKNOWN", sentinel)
	}
}

// --- NewSubSystemError tests ---

func TestNewSubSystemError_Format(t *testing.T) {
	err := NewSubSystemError("llm", "Chat", ErrTimeout, "45s")
	assert.Equal(t, "Chat: 45s: operation timed out", err.Error())
	assert.Equal(t, "llm", err.SubSystem)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestErrorCodeOf_SubSystem(t *testing.T) {
	assert.Equal(t, CodeLLMTimeout, ErrorCodeOf(NewSubSystemError("llm", "Chat", ErrTimeout, "")))
	assert.Equal(t, CodeCanvasTimeout, ErrorCodeOf(NewSubSystemError("canvas", "Execute", ErrTimeout, "")))
	assert.Equal(t, CodeSnapshotLimit, ErrorCodeOf(NewSubSystemError("canvas", "Push", ErrLimitReached, "")))
}

func TestErrorCodeOf_SubSystemFallback(t *testing.T) {
	err := NewSubSystemError("unknown-subsystem", "Op", ErrNotFound, "")
	assert.Equal(t, CodeNotFound, ErrorCodeOf(err))
}

func TestAuthSentinel_GatewayWrapsAuthInvalid(t *testing.T) {
	assert.True(t, errors.Is(ErrGatewayAuthFailed, ErrAuthInvalid))
	assert.Equal(t, CodeGatewayAuth, ErrorCodeOf(ErrGatewayAuthFailed))
	assert.Equal(t, CodeGatewayAuth, ErrorCodeOf(fmt.Errorf("upgrade: %w", ErrGatewayAuthFailed)))
}

// --- WrapOp tests ---

func TestWrapOp_Nil(t *testing.T) {
	assert.Nil(t, WrapOp("anything", nil))
}

func TestWrapOp_Chain(t *testing.T) {
	inner := WrapOp("inner", ErrMalformedPlan)
	outer := WrapOp("outer", inner)
	assert.Equal(t, "outer: inner: malformed drawing plan", outer.Error())
	assert.True(t, errors.Is(outer, ErrMalformedPlan))
	assert.Equal(t, CodeMalformedPlan, ErrorCodeOf(outer))
}

// --- IsRetryableError tests ---

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", ErrRateLimit, true},
		{"timeout", ErrTimeout, true},
		{"upstream wrapped", fmt.Errorf("llm call: %w", ErrUpstream), true},
		{"domain error", NewDomainError("LLM.Chat", ErrRateLimit, "openai"), true},
		{"auth", ErrAuthInvalid, false},
		{"overflow", ErrContextOverflow, false},
		{"random", fmt.Errorf("random error"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
