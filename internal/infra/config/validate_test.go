package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty addr", func(c *Config) { c.Gateway.Addr = "" }, "gateway.addr must not be empty"},
		{"bad addr", func(c *Config) { c.Gateway.Addr = "localhost" }, "is not a valid host:port"},
		{"unknown auth type", func(c *Config) { c.Gateway.Auth.Type = "oauth" }, `gateway.auth.type "oauth" is invalid`},
		{"static auth without tokens", func(c *Config) { c.Gateway.Auth.Type = "static" }, "gateway.auth.tokens must not be empty"},
		{"blank static token", func(c *Config) {
			c.Gateway.Auth = AuthConfig{Type: "static", Tokens: []TokenConfig{{Name: "x"}}}
		}, "gateway.auth.tokens[0].token must not be empty"},
		{"rate limit without burst", func(c *Config) { c.Gateway.RateLimit.Burst = 0 }, "requests_per_second and burst"},
		{"message rate zero", func(c *Config) { c.Gateway.RateLimit.MessagesPerSecond = 0 }, "messages_per_second and message_burst"},
		{"max message size", func(c *Config) { c.Gateway.MaxMessageSize = 0 }, "gateway.max_message_size must be > 0"},
		{"unknown default provider", func(c *Config) { c.LLM.DefaultProvider = "nope" }, `llm.default_provider "nope" does not match`},
		{"provider without name", func(c *Config) { c.LLM.Providers = []ProviderConfig{{APIKey: "k"}} }, "llm.providers[0].name must not be empty"},
		{"duplicate provider", func(c *Config) {
			c.LLM.Providers = []ProviderConfig{{Name: "a", APIKey: "k"}, {Name: "a", APIKey: "k"}}
		}, `duplicate provider name "a"`},
		{"bad provider type", func(c *Config) {
			c.LLM.Providers = []ProviderConfig{{Name: "g", Type: "gemini", APIKey: "k"}}
		}, `llm.providers[0].type "gemini" is invalid`},
		{"missing api key", func(c *Config) { c.LLM.Providers = []ProviderConfig{{Name: "oa"}} }, "WORKWITHME_LLM_PROVIDER_OA_API_KEY"},
		{"unknown fallback", func(c *Config) {
			c.LLM.Providers = []ProviderConfig{{Name: "a", APIKey: "k"}}
			c.LLM.Failover = FailoverConfig{Enabled: true, Fallbacks: []string{"b"}}
		}, `unknown provider "b"`},
		{"empty model", func(c *Config) { c.Assistant.VisionModel = "" }, "vision_model must not be empty"},
		{"zero tokens", func(c *Config) { c.Assistant.DrawMaxTokens = 0 }, "max token limits must be > 0"},
		{"temperature range", func(c *Config) { c.Assistant.DrawTemperature = 3 }, "temperatures must be within [0, 2]"},
		{"history limit", func(c *Config) { c.Assistant.HistoryLimit = 0 }, "assistant.history_limit must be > 0"},
		{"ai timeout", func(c *Config) { c.Assistant.AITimeout = 0 }, "assistant.ai_timeout must be > 0"},
		{"negative pacing", func(c *Config) { c.Assistant.PacingDelay = -time.Second }, "assistant.pacing_delay must be >= 0"},
		{"degraded threshold", func(c *Config) { c.Assistant.Degraded.MaxFailures = 0 }, "assistant.degraded.max_failures must be > 0"},
		{"tips interval", func(c *Config) { c.Assistant.Tips.Interval = 0 }, "assistant.tips.interval must be > 0"},
		{"tips probability", func(c *Config) { c.Assistant.Tips.Probability = 1.5 }, "tips probabilities must be within [0, 1]"},
		{"canvas too large", func(c *Config) { c.Canvas.Width = 5000 }, "canvas width and height must be within 1..4096"},
		{"snapshot ring", func(c *Config) { c.Canvas.SnapshotRing = 0 }, "canvas.snapshot_ring must be > 0"},
		{"undo depth", func(c *Config) { c.Canvas.UndoDepth = 0 }, "canvas.undo_depth must be > 0"},
		{"image bytes", func(c *Config) { c.Canvas.MaxImageBytes = 0 }, "canvas.max_image_bytes must be > 0"},
		{"log level", func(c *Config) { c.Logger.Level = "trace" }, `logger.level "trace" is invalid`},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, `logger.format "xml" is invalid`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateTipsDisabledSkipsTipChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Assistant.Tips = TipsConfig{Enabled: false}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRateLimitDisabledSkipsChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.RateLimit = RateLimitConfig{}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Addr = ""
	cfg.Canvas.UndoDepth = 0
	cfg.Logger.Format = "xml"

	var ve *ValidationError
	if !errors.As(Validate(cfg), &ve) {
		t.Fatal("expected *ValidationError")
	}
	if len(ve.Errors) != 3 {
		t.Errorf("len(Errors) = %d, want 3: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidateLogLevelCaseInsensitive(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "DEBUG"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
