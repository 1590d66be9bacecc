package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"llmbridge/internal/catalog"
	"llmbridge/internal/config"
	"llmbridge/internal/engine"
	"llmbridge/internal/provider/factory"
	"llmbridge/internal/server"
	"llmbridge/internal/tokens"
	usagestore "llmbridge/internal/usage"
)

const serveUsage = `Usage:
  llmbridge serve --config <path> [--port <port>] [--mock]

Flags:
  --config string   Path to YAML configuration file (required)
  --port   int      Override server port from configuration
  --mock            Serve every provider with the deterministic mock adapter`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	var mock bool
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")
	fs.BoolVar(&mock, "mock", false, "use the mock adapter for every provider")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if cfgPath == "" {
		return errors.New("serve command requires --config <path>")
	}

	// Provider API keys commonly live in a .env during development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "err", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	descriptors := cfg.Catalog
	if len(descriptors) == 0 {
		descriptors = catalog.Default()
	}

	cat, err := catalog.New(descriptors)
	if err != nil {
		return fmt.Errorf("build model catalog: %w", err)
	}

	adapters, err := factory.Build(ctx, cfg, descriptors, mock)
	if err != nil {
		return err
	}

	eng, err := engine.New(cat, tokens.New(cfg.Tokenizer.CharsPerToken), adapters, engine.Options{
		MinChunkSize: cfg.Streaming.MinChunkSize,
	})
	if err != nil {
		return err
	}

	var ledger *usagestore.Ledger
	if cfg.Usage.Database != "" {
		ledger, err = usagestore.Open(cfg.Usage.Database)
		if err != nil {
			return err
		}
		defer ledger.Close()
	}

	srv, err := server.New(cfg, eng, ledger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
