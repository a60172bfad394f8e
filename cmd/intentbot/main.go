// Intentbot is a conversational wallet assistant for Telegram.
//
// It resolves natural-language messages into wallet actions (create,
// connect, send, mint, balance, disconnect), walks users through the
// password prompts those actions need, and submits approved
// transactions to an Algorand node. Configuration is loaded from a
// single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	intentbot serve       Start the bot
//	intentbot version     Print version and build information
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/algointent/intentbot/internal/algod"
	"github.com/algointent/intentbot/internal/bot"
	"github.com/algointent/intentbot/internal/buildinfo"
	"github.com/algointent/intentbot/internal/config"
	"github.com/algointent/intentbot/internal/intent"
	"github.com/algointent/intentbot/internal/ipfs"
	"github.com/algointent/intentbot/internal/security"
	"github.com/algointent/intentbot/internal/session"
	"github.com/algointent/intentbot/internal/telegram"
)

// main constructs the OS-level environment and delegates to [run] so
// the lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package relies on package-level globals, and our surface is two
// commands and one flag.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	switch command {
	case "serve":
		return runServe(ctx, stderr, configPath)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
			if v, ok := buildinfo.Info()[k]; ok {
				fmt.Fprintf(stdout, "  %-12s %s\n", k+":", v)
			}
		}
		return nil
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Intentbot - Conversational Algorand Wallet Bot")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: intentbot [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the bot")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	return nil
}

// runServe wires every component together and polls Telegram until
// SIGINT/SIGTERM. Structured logs go to stderr.
func runServe(ctx context.Context, stderr io.Writer, configPath string) error {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(stderr, level)
	logger.Info("intentbot starting",
		"version", buildinfo.Version,
		"config", cfgPath,
	)

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("config: telegram.token is required")
	}
	if cfg.Algod.URL == "" {
		return fmt.Errorf("config: algod.url is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	events, err := security.Open(filepath.Join(cfg.DataDir, "security.db"), logger)
	if err != nil {
		return fmt.Errorf("open security log: %w", err)
	}
	defer events.Close()

	sessions := session.NewStore(filepath.Join(cfg.DataDir, "sessions.json"), logger)
	policy := session.NewPolicy(sessions,
		cfg.Limits.MaxTransactionsPerHour,
		cfg.Limits.SessionTimeoutHours,
		events, logger)

	var completer intent.Completer
	if cfg.Intent.APIKey != "" {
		completer = intent.NewChatClient(cfg.Intent.BaseURL, cfg.Intent.APIKey, cfg.Intent.Model, logger)
	} else {
		logger.Warn("no intent api key configured, using pattern fallbacks only")
	}
	resolver := intent.NewResolver(completer, logger)

	ledger := algod.NewClient(cfg.Algod.URL, cfg.Algod.Token, logger)

	chat := telegram.NewClient(telegram.ClientConfig{
		Token:       cfg.Telegram.Token,
		PollTimeout: time.Duration(cfg.Telegram.PollTimeoutSec) * time.Second,
		Logger:      logger,
	})

	pinner := ipfs.NewClient(ipfs.ClientConfig{
		APIKey:    cfg.IPFS.APIKey,
		APISecret: cfg.IPFS.APISecret,
		Logger:    logger,
	})
	if !pinner.Enabled() {
		logger.Info("ipfs pinning disabled (not configured)")
	}

	core := bot.New(bot.Config{
		Sessions:            sessions,
		Policy:              policy,
		Resolver:            resolver,
		Ledger:              ledger,
		Chat:                chat,
		Pinner:              pinner,
		Events:              events,
		Logger:              logger,
		MaxPasswordAttempts: cfg.Limits.MaxPasswordAttempts,
		MaxMessageLength:    cfg.Limits.MaxMessageLength,
	})

	events.Event("system", security.EventBotStarted, buildinfo.Version)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bridge := telegram.NewBridge(chat, core, logger)
	bridge.Start(ctx)

	logger.Info("intentbot stopped")
	return nil
}

// newLogger standardizes the slog handler configuration.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
