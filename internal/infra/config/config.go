package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WORKWITHME_"

// Config is the top-level configuration.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	LLM       LLMConfig       `yaml:"llm"`
	Assistant AssistantConfig `yaml:"assistant"`
	Canvas    CanvasConfig    `yaml:"canvas"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Includes  []string        `yaml:"includes,omitempty"`
}

// GatewayConfig holds the WebSocket relay server settings.
type GatewayConfig struct {
	Addr           string          `yaml:"addr"`
	Auth           AuthConfig      `yaml:"auth"`
	AllowedOrigins []string        `yaml:"allowed_origins,omitempty"`
	TrustedProxies []string        `yaml:"trusted_proxies,omitempty"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	MaxMessageSize int64           `yaml:"max_message_size"` // bytes; canvas snapshots are large
	WriteTimeout   time.Duration   `yaml:"write_timeout"`
	FeedbackDelay  time.Duration   `yaml:"feedback_delay"` // quiet period after a canvas update before feedback
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Type   string        `yaml:"type"` // "static" or ""
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig is a static token accepted by the gateway.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// RateLimitConfig bounds HTTP requests per client IP and envelopes per
// WebSocket connection.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	MessageBurst      int     `yaml:"message_burst"`
}

// FailoverConfig lists providers tried after the default one fails.
type FailoverConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Fallbacks []string `yaml:"fallbacks"`
}

// LLMConfig holds language model settings. An empty DefaultProvider runs
// the assistant in demo mode.
type LLMConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	Providers       []ProviderConfig     `yaml:"providers"`
	Failover        FailoverConfig       `yaml:"failover"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures the per-provider circuit breaker.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig holds HTTP connection pool settings for a provider.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// ProviderConfig configures one language model backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// AssistantConfig tunes the drawing assistant.
type AssistantConfig struct {
	ChatModel        string  `yaml:"chat_model"`
	VisionModel      string  `yaml:"vision_model"`
	ChatMaxTokens    int     `yaml:"chat_max_tokens"`
	VisionMaxTokens  int     `yaml:"vision_max_tokens"`
	DrawMaxTokens    int     `yaml:"draw_max_tokens"`
	ChatTemperature  float64 `yaml:"chat_temperature"`
	DrawTemperature  float64 `yaml:"draw_temperature"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	SystemPrompt     string  `yaml:"system_prompt,omitempty"` // empty uses the built-in prompt

	HistoryLimit   int           `yaml:"history_limit"`
	AITimeout      time.Duration `yaml:"ai_timeout"`
	PacingDelay    time.Duration `yaml:"pacing_delay"`
	DrawingEnabled bool          `yaml:"drawing_enabled"`

	MinFeedbackCoverage float64 `yaml:"min_feedback_coverage"` // percent
	MinCoverageDelta    float64 `yaml:"min_coverage_delta"`    // percentage points

	Degraded DegradedConfig `yaml:"degraded"`
	Tips     TipsConfig     `yaml:"tips"`
}

// DegradedConfig controls when a session falls back to offline replies
// after repeated AI failures.
type DegradedConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// TipsConfig controls unsolicited drawing tips.
type TipsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Interval        time.Duration `yaml:"interval"`
	MinDrawnPixels  int           `yaml:"min_drawn_pixels"`
	Probability     float64       `yaml:"probability"`      // chance a session is considered
	SendProbability float64       `yaml:"send_probability"` // chance a considered session gets a tip
}

// CanvasConfig sizes the server-side canvas and its histories.
type CanvasConfig struct {
	Width         int `yaml:"width"`
	Height        int `yaml:"height"`
	SnapshotRing  int `yaml:"snapshot_ring"`
	UndoDepth     int `yaml:"undo_depth"`
	MaxImageBytes int `yaml:"max_image_bytes"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	// Audit logs every session event published on the event bus.
	Audit bool `yaml:"audit"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Addr: ":3001",
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				Burst:             20,
				MessagesPerSecond: 20,
				MessageBurst:      40,
			},
			MaxMessageSize: 16 << 20,
			WriteTimeout:   10 * time.Second,
			FeedbackDelay:  800 * time.Millisecond,
		},
		LLM: LLMConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Assistant: AssistantConfig{
			ChatModel:        "gpt-4-turbo-preview",
			VisionModel:      "gpt-4.1",
			ChatMaxTokens:    500,
			VisionMaxTokens:  800,
			DrawMaxTokens:    1000,
			ChatTemperature:  0.7,
			DrawTemperature:  0.8,
			PresencePenalty:  0.6,
			FrequencyPenalty: 0.3,

			HistoryLimit:   20,
			AITimeout:      45 * time.Second,
			PacingDelay:    300 * time.Millisecond,
			DrawingEnabled: true,

			MinFeedbackCoverage: 0.5,
			MinCoverageDelta:    2,

			Degraded: DegradedConfig{
				MaxFailures: 3,
				Cooldown:    60 * time.Second,
			},
			Tips: TipsConfig{
				Enabled:         true,
				Interval:        45 * time.Second,
				MinDrawnPixels:  1000,
				Probability:     0.15,
				SendProbability: 0.4,
			},
		},
		Canvas: CanvasConfig{
			Width:         800,
			Height:        600,
			SnapshotRing:  5,
			UndoDepth:     50,
			MaxImageBytes: 12 << 20,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			Audit:  true,
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts
// secrets. A missing file yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		inc := &includer{visited: map[string]bool{absPath: true}}
		if err := inc.apply(cfg, filepath.Dir(absPath), 0); err != nil {
			return nil, err
		}

		// The main file wins over anything it includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(EnvPrefix + "CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func env(name string) string { return os.Getenv(EnvPrefix + name) }

// ApplyEnvOverrides maps WORKWITHME_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := env("GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := env("GATEWAY_ALLOWED_ORIGINS"); v != "" {
		cfg.Gateway.AllowedOrigins = splitAndTrim(v, ",")
	}
	if v := env("GATEWAY_AUTH_TOKEN"); v != "" {
		cfg.Gateway.Auth.Type = "static"
		cfg.Gateway.Auth.Tokens = append(cfg.Gateway.Auth.Tokens, TokenConfig{Token: v, Name: "env"})
	}
	if v := env("GATEWAY_RATE_LIMIT_ENABLED"); v != "" {
		cfg.Gateway.RateLimit.Enabled = v == "true"
	}

	if v := env("LLM_DEFAULT_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	// Per-provider API key overrides: WORKWITHME_LLM_PROVIDER_<NAME>_API_KEY
	for i := range cfg.LLM.Providers {
		if v := env("LLM_PROVIDER_" + strings.ToUpper(cfg.LLM.Providers[i].Name) + "_API_KEY"); v != "" {
			cfg.LLM.Providers[i].APIKey = v
		}
	}
	// A bare OpenAI key enables the AI without a config file.
	if v := env("OPENAI_API_KEY"); v != "" && len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = append(cfg.LLM.Providers, ProviderConfig{
			Name:   "openai",
			Type:   "openai",
			APIKey: v,
		})
		if cfg.LLM.DefaultProvider == "" {
			cfg.LLM.DefaultProvider = "openai"
		}
	}

	if v := env("ASSISTANT_CHAT_MODEL"); v != "" {
		cfg.Assistant.ChatModel = v
	}
	if v := env("ASSISTANT_VISION_MODEL"); v != "" {
		cfg.Assistant.VisionModel = v
	}
	if v := env("ASSISTANT_AI_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Assistant.AITimeout = d
		}
	}
	if v := env("ASSISTANT_PACING_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Assistant.PacingDelay = d
		}
	}
	if v := env("ASSISTANT_DRAWING_ENABLED"); v != "" {
		cfg.Assistant.DrawingEnabled = v != "false"
	}
	if v := env("ASSISTANT_TIPS_ENABLED"); v != "" {
		cfg.Assistant.Tips.Enabled = v != "false"
	}

	if v := env("CANVAS_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Width = n
		}
	}
	if v := env("CANVAS_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Height = n
		}
	}

	if v := env("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := env("LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := env("LOGGER_AUDIT"); v != "" {
		cfg.Logger.Audit = v == "true"
	}
	if v := env("TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := env("TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// splitAndTrim splits s by sep and trims whitespace from each element.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// decryptSecrets finds "enc:..." values in provider API keys and gateway
// tokens and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		if err := decryptField(&p.APIKey, passphrase); err != nil {
			return fmt.Errorf("provider %s api_key: %w", p.Name, err)
		}
	}
	for i := range cfg.Gateway.Auth.Tokens {
		t := &cfg.Gateway.Auth.Tokens[i]
		if err := decryptField(&t.Token, passphrase); err != nil {
			return fmt.Errorf("gateway auth token %s: %w", t.Name, err)
		}
	}
	return nil
}

func decryptField(field *string, passphrase string) error {
	enc, ok := strings.CutPrefix(*field, "enc:")
	if !ok {
		return nil
	}
	plain, err := DecryptValue(enc, passphrase)
	if err != nil {
		return err
	}
	*field = plain
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
