package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateGateway(cfg, ve)
	validateLLM(cfg, ve)
	validateAssistant(cfg, ve)
	validateCanvas(cfg, ve)
	validateLogger(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateGateway(cfg *Config, ve *ValidationError) {
	gw := cfg.Gateway
	if gw.Addr == "" {
		ve.Add("gateway.addr must not be empty")
	} else if _, _, err := net.SplitHostPort(gw.Addr); err != nil {
		ve.Add("gateway.addr %q is not a valid host:port", gw.Addr)
	}

	switch gw.Auth.Type {
	case "":
	case "static":
		if len(gw.Auth.Tokens) == 0 {
			ve.Add("gateway.auth.tokens must not be empty when auth type is static")
		}
		for i, t := range gw.Auth.Tokens {
			if t.Token == "" {
				ve.Add("gateway.auth.tokens[%d].token must not be empty", i)
			}
		}
	default:
		ve.Add("gateway.auth.type %q is invalid (want: static or empty)", gw.Auth.Type)
	}

	if gw.RateLimit.Enabled {
		if gw.RateLimit.RequestsPerSecond <= 0 || gw.RateLimit.Burst <= 0 {
			ve.Add("gateway.rate_limit.requests_per_second and burst must be > 0 when rate limiting is enabled")
		}
		if gw.RateLimit.MessagesPerSecond <= 0 || gw.RateLimit.MessageBurst <= 0 {
			ve.Add("gateway.rate_limit.messages_per_second and message_burst must be > 0 when rate limiting is enabled")
		}
	}
	if gw.MaxMessageSize <= 0 {
		ve.Add("gateway.max_message_size must be > 0")
	}
}

var validProviderTypes = map[string]bool{
	"openai":    true,
	"anthropic": true,
}

func validateLLM(cfg *Config, ve *ValidationError) {
	seen := make(map[string]bool)
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			ve.Add("llm.providers[%d].name must not be empty", i)
			continue
		}
		if seen[p.Name] {
			ve.Add("llm.providers[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = true

		if p.Type != "" && !validProviderTypes[p.Type] {
			ve.Add("llm.providers[%d].type %q is invalid (want: openai, anthropic)", i, p.Type)
		}
		if p.APIKey == "" {
			ve.Add("llm.providers[%d] (%s): api_key is empty (set via %sLLM_PROVIDER_%s_API_KEY)",
				i, p.Name, EnvPrefix, strings.ToUpper(p.Name))
		}
	}

	if d := cfg.LLM.DefaultProvider; d != "" && !seen[d] {
		ve.Add("llm.default_provider %q does not match any configured provider", d)
	}
	if cfg.LLM.Failover.Enabled {
		for _, fb := range cfg.LLM.Failover.Fallbacks {
			if !seen[fb] {
				ve.Add("llm.failover.fallbacks: unknown provider %q", fb)
			}
		}
	}
}

func validateAssistant(cfg *Config, ve *ValidationError) {
	a := cfg.Assistant
	if a.ChatModel == "" || a.VisionModel == "" {
		ve.Add("assistant.chat_model and assistant.vision_model must not be empty")
	}
	if a.ChatMaxTokens <= 0 || a.VisionMaxTokens <= 0 || a.DrawMaxTokens <= 0 {
		ve.Add("assistant max token limits must be > 0")
	}
	if a.ChatTemperature < 0 || a.ChatTemperature > 2 || a.DrawTemperature < 0 || a.DrawTemperature > 2 {
		ve.Add("assistant temperatures must be within [0, 2]")
	}
	if a.HistoryLimit <= 0 {
		ve.Add("assistant.history_limit must be > 0")
	}
	if a.AITimeout <= 0 {
		ve.Add("assistant.ai_timeout must be > 0")
	}
	if a.PacingDelay < 0 {
		ve.Add("assistant.pacing_delay must be >= 0")
	}
	if a.Degraded.MaxFailures == 0 {
		ve.Add("assistant.degraded.max_failures must be > 0")
	}
	if a.Tips.Enabled {
		if a.Tips.Interval <= 0 {
			ve.Add("assistant.tips.interval must be > 0 when tips are enabled")
		}
		if !inUnitRange(a.Tips.Probability) || !inUnitRange(a.Tips.SendProbability) {
			ve.Add("assistant.tips probabilities must be within [0, 1]")
		}
	}
}

func inUnitRange(p float64) bool { return p >= 0 && p <= 1 }

// maxCanvasSide matches the largest image the canvas will import.
const maxCanvasSide = 4096

func validateCanvas(cfg *Config, ve *ValidationError) {
	c := cfg.Canvas
	if c.Width <= 0 || c.Height <= 0 || c.Width > maxCanvasSide || c.Height > maxCanvasSide {
		ve.Add("canvas width and height must be within 1..%d (got %dx%d)", maxCanvasSide, c.Width, c.Height)
	}
	if c.SnapshotRing <= 0 {
		ve.Add("canvas.snapshot_ring must be > 0")
	}
	if c.UndoDepth <= 0 {
		ve.Add("canvas.undo_depth must be > 0")
	}
	if c.MaxImageBytes <= 0 {
		ve.Add("canvas.max_image_bytes must be > 0")
	}
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
)

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[cfg.Logger.Format] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}
