package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAIProviderChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content-type: %s", r.Header.Get("Content-Type"))
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "gpt-4-turbo-preview" {
			t.Errorf("model = %v, want gpt-4-turbo-preview", req["model"])
		}
		if req["presence_penalty"] != 0.6 {
			t.Errorf("presence_penalty = %v, want 0.6", req["presence_penalty"])
		}
		if req["frequency_penalty"] != 0.3 {
			t.Errorf("frequency_penalty = %v, want 0.3", req["frequency_penalty"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openaiResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4-turbo-preview",
			Choices: []openaiChoice{{
				Message:      openaiResponseMessage{Role: "assistant", Content: "Let's draw!"},
				FinishReason: "stop",
			}},
			Usage: openaiUsage{PromptTokens: 10, CompletionTokens: 8, TotalTokens: 18},
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{
		Name:    "test",
		BaseURL: server.URL,
		APIKey:  "test-key",
	}, newTestLogger())

	resp, err := provider.Chat(context.Background(), domain.ChatRequest{
		Model:            "gpt-4-turbo-preview",
		Messages:         []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
		MaxTokens:        500,
		Temperature:      0.7,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Let's draw!", resp.Message.Content)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "test", provider.Name())
}

func TestOpenAIProviderDefaultModel(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		json.NewEncoder(w).Encode(openaiResponse{Choices: []openaiChoice{{Message: openaiResponseMessage{Content: "ok"}}}})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL, Model: "gpt-4o"}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	if gotModel != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", gotModel)
	}
}

func TestOpenAIRequestWithImages(t *testing.T) {
	req := toOpenAIRequest(domain.ChatRequest{
		Model: "gpt-4.1",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be kind"},
			{
				Role:    domain.RoleUser,
				Content: "what am I drawing?",
				Images:  []domain.ImagePart{{URL: "data:image/png;base64,AAAA", Detail: domain.DetailHigh}},
			},
		},
		MaxTokens: 800,
	})

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
		MaxTokens   int      `json:"max_tokens"`
		Temperature *float64 `json:"temperature"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, 800, decoded.MaxTokens)
	assert.Nil(t, decoded.Temperature, "zero temperature is omitted")

	var system string
	require.NoError(t, json.Unmarshal(decoded.Messages[0].Content, &system))
	assert.Equal(t, "be kind", system)

	var parts []openaiContentPart
	require.NoError(t, json.Unmarshal(decoded.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "what am I drawing?", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
	assert.Equal(t, "high", parts[1].ImageURL.Detail)
}

func TestOpenAIResponseConversion(t *testing.T) {
	resp := fromOpenAIResponse(openaiResponse{
		ID:      "x",
		Model:   "gpt-4.1",
		Created: 1700000000,
		Choices: []openaiChoice{{Message: openaiResponseMessage{Content: "a cat"}}},
	})
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "a cat", resp.Message.Content)
	assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{})
	if !errors.Is(err, domain.ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestOpenAIProviderErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimit},
		{"unauthorized", http.StatusUnauthorized, domain.ErrAuthInvalid},
		{"too large", http.StatusRequestEntityTooLarge, domain.ErrContextOverflow},
		{"server error", http.StatusBadGateway, domain.ErrUpstream},
		{"bad request", http.StatusBadRequest, domain.ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
			_, err := provider.Chat(context.Background(), domain.ChatRequest{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenAIProviderInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	_, err := provider.Chat(context.Background(), domain.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestOpenAIProviderContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	provider := NewOpenAIProvider(config.ProviderConfig{Name: "test", BaseURL: server.URL}, newTestLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.Chat(ctx, domain.ChatRequest{})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want it to wrap context.DeadlineExceeded", err)
	}
}
