package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"workwithme/internal/adapter/canvas"
	"workwithme/internal/adapter/gateway"
	"workwithme/internal/infra/config"
	"workwithme/internal/infra/logger"
	"workwithme/internal/infra/tracer"
	"workwithme/internal/usecase"
	"workwithme/internal/usecase/eventbus"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "check":
		if err := runCheck(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "check: %v\n", err)
			os.Exit(1)
		}
	case "encrypt":
		if err := runEncrypt(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'workwithme --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`workwithme - AI drawing companion relay

USAGE:
    workwithme [COMMAND] [FLAGS]

COMMANDS:
    check           Load and validate the configuration
    encrypt VALUE   Encrypt a secret for config.yaml (needs WORKWITHME_CONFIG_KEY)

    (no command) - Run the relay server

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml (optional; defaults run offline on :3001)
    Environment: WORKWITHME_* variables override config`)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv(config.EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func run() error {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. LLM providers
	llmComponents, err := initLLM(cfg, log)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	// 4. Event bus
	bus := eventbus.New(log)
	defer bus.Close()
	if cfg.Logger.Audit {
		stopAudit := usecase.AuditEvents(bus, log)
		defer stopAudit()
	}

	// 5. Sessions & assistant
	fonts := canvas.NewFonts()
	newBoard := func(w, h int) usecase.Board {
		return canvas.New(w, h, fonts, canvas.WithMaxImageBytes(cfg.Canvas.MaxImageBytes))
	}
	sessions := usecase.NewSessionManager(newBoard, cfg.Canvas, cfg.Assistant, bus, log)
	classifier := usecase.NewErrorClassifier()
	assistant := usecase.NewAssistant(usecase.AssistantDeps{
		LLM:             llmComponents.DefaultLLM,
		Sessions:        sessions,
		Locker:          usecase.NewSessionLocker(),
		ErrorClassifier: classifier,
		Config:          cfg.Assistant,
		Bus:             bus,
		Logger:          log,
	})
	tips := usecase.NewTipScheduler(assistant, cfg.Assistant.Tips, nil, log)

	// 6. Gateway
	auth, err := gateway.NewAuthenticator(cfg.Gateway.Auth)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	srv := gateway.NewServer(cfg.Gateway, gateway.ServerDeps{
		Assistant:  assistant,
		Sessions:   sessions,
		Auth:       auth,
		Classifier: classifier,
		Events:     bus,
		Logger:     log,
	})

	// 7. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tips.Start(ctx)
	defer tips.Stop()

	log.Info("workwithme starting",
		"addr", cfg.Gateway.Addr,
		"provider", cfg.LLM.DefaultProvider,
		"providers", llmComponents.Registry.List(),
		"ai_enabled", assistant.Online(),
		"drawing", cfg.Assistant.DrawingEnabled,
		"tips", cfg.Assistant.Tips.Enabled,
		"auth", cfg.Gateway.Auth.Type != "",
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("gateway shutdown error", "error", err)
	}
	log.Info("workwithme stopped")
	return nil
}

// runCheck loads the configuration the server would run with and reports
// what it resolved to.
func runCheck(w io.Writer) error {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	mode := "offline"
	if cfg.LLM.DefaultProvider != "" {
		mode = "provider " + cfg.LLM.DefaultProvider
	}
	fmt.Fprintf(w, "config %s OK\n", path)
	fmt.Fprintf(w, "  gateway:   %s\n", cfg.Gateway.Addr)
	fmt.Fprintf(w, "  assistant: %s\n", mode)
	fmt.Fprintf(w, "  canvas:    %dx%d\n", cfg.Canvas.Width, cfg.Canvas.Height)
	return nil
}

// runEncrypt prints the enc: form of a secret for use in config.yaml.
func runEncrypt(args []string, w io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: workwithme encrypt VALUE")
	}
	passphrase := os.Getenv(config.EnvPrefix + "CONFIG_KEY")
	if passphrase == "" {
		return fmt.Errorf("%sCONFIG_KEY is not set", config.EnvPrefix)
	}
	enc, err := config.EncryptValue(args[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "enc:"+enc)
	return nil
}
