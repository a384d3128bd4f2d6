package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
)

func TestAnthropicRequestConversion(t *testing.T) {
	req, err := toAnthropicRequest(domain.ChatRequest{
		Model: "claude",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are a drawing buddy."},
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "hi!"},
			{
				Role:    domain.RoleUser,
				Content: "what is this?",
				Images:  []domain.ImagePart{{URL: "data:image/png;base64,iVBORw0K", Detail: domain.DetailLow}},
			},
		},
		Temperature: 0.8,
	})
	require.NoError(t, err)

	assert.Equal(t, "You are a drawing buddy.", req.System)
	assert.Equal(t, defaultAnthropicMaxTokens, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.8, *req.Temperature, 1e-9)
	require.Len(t, req.Messages, 3)

	last := req.Messages[2]
	require.Len(t, last.Content, 2)
	assert.Equal(t, "image", last.Content[0].Type)
	require.NotNil(t, last.Content[0].Source)
	assert.Equal(t, "base64", last.Content[0].Source.Type)
	assert.Equal(t, "image/png", last.Content[0].Source.MediaType)
	assert.Equal(t, "iVBORw0K", last.Content[0].Source.Data)
	assert.Equal(t, "text", last.Content[1].Type)
	assert.Equal(t, "what is this?", last.Content[1].Text)
}

func TestAnthropicRequestMergesSameRole(t *testing.T) {
	req, err := toAnthropicRequest(domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "one"},
			{Role: domain.RoleUser, Content: "two"},
		},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	assert.Len(t, req.Messages[0].Content, 2)
}

func TestAnthropicTemperatureCapped(t *testing.T) {
	req, err := toAnthropicRequest(domain.ChatRequest{Temperature: 1.4})
	require.NoError(t, err)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 1.0, *req.Temperature)
}

func TestAnthropicImageSourceErrors(t *testing.T) {
	tests := []string{
		"https://example.com/canvas.png",
		"data:image/png,rawbytes",
		"data:text/plain;base64,aGk=",
		"data:image/png;base64",
	}
	for _, url := range tests {
		t.Run(url, func(t *testing.T) {
			_, err := imageSource(url)
			if !errors.Is(err, domain.ErrInvalidImage) {
				t.Errorf("imageSource(%q) err = %v, want ErrInvalidImage", url, err)
			}
		})
	}
}

func TestAnthropicResponseConversion(t *testing.T) {
	resp := fromAnthropicResponse(anthropicResponse{
		ID:    "msg_1",
		Model: "claude",
		Content: []anthropicContent{
			{Type: "text", Text: "A "},
			{Type: "text", Text: "house."},
		},
		Usage: anthropicUsage{InputTokens: 12, OutputTokens: 3},
	})
	assert.Equal(t, "A house.", resp.Message.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestAnthropicProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ant-key" {
			t.Errorf("unexpected api key: %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != defaultAnthropicVersion {
			t.Errorf("unexpected version: %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "claude-sonnet" {
			t.Errorf("model = %q, want configured model claude-sonnet", req.Model)
		}

		json.NewEncoder(w).Encode(anthropicResponse{
			ID:      "msg_1",
			Model:   "claude-sonnet",
			Content: []anthropicContent{{Type: "text", Text: "Nice lines!"}},
		})
	}))
	defer server.Close()

	provider := NewAnthropicProvider(config.ProviderConfig{
		Name:    "anthropic",
		BaseURL: server.URL,
		APIKey:  "ant-key",
		Model:   "claude-sonnet",
	}, newTestLogger())

	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Model:    "gpt-4.1",
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "look"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Nice lines!", resp.Message.Content)
	assert.Equal(t, "anthropic", provider.Name())
}

func TestAnthropicProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := NewAnthropicProvider(config.ProviderConfig{Name: "anthropic", BaseURL: server.URL}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}},
	})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestAnthropicProviderRejectsRemoteImage(t *testing.T) {
	provider := NewAnthropicProvider(config.ProviderConfig{Name: "anthropic", BaseURL: "http://127.0.0.1:1"}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{
			Role:   domain.RoleUser,
			Images: []domain.ImagePart{{URL: "https://example.com/x.png"}},
		}},
	})
	if !errors.Is(err, domain.ErrInvalidImage) {
		t.Errorf("err = %v, want ErrInvalidImage", err)
	}
}
