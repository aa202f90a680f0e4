// Command mcp is the bare stdio entry point MCP clients launch directly. It
// skips the CLI and only honours a config file, a backend URL override and
// the environment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"ankimcp/internal/config"
	"ankimcp/pkg/app"
)

type options struct {
	configPath string
	ankiURL    string
	strict     bool
}

// parseOptions loads .env first so it can supply flag defaults such as
// ANKI_MCP_CONFIG.
func parseOptions(args []string) (options, error) {
	_ = godotenv.Load()

	var o options
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", os.Getenv("ANKI_MCP_CONFIG"), "Path to a config file")
	fs.StringVar(&o.ankiURL, "url", "", "AnkiConnect endpoint, overrides config")
	fs.BoolVar(&o.strict, "require-initialized", false, "Reject tools and resources until the client acknowledges initialization")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func (o options) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.ankiURL != "" {
		cfg.Anki.URL = o.ankiURL
	}
	if o.strict {
		cfg.Server.RequireInitialized = true
	}
	return cfg, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		os.Exit(2)
	}
	cfg, err := opts.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp: %v\n", err)
		os.Exit(1)
	}
	closeLog := app.ConfigureLogging(cfg.Log)
	defer closeLog()

	a, err := app.New(cfg)
	if err != nil {
		logrus.Fatalf("app init failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, os.Stdin, os.Stdout) }()
	select {
	case err = <-done:
	case <-ctx.Done():
		logrus.Info("shutdown signal received")
	}
	if err != nil {
		logrus.WithError(err).Error("mcp error")
		closeLog()
		os.Exit(1)
	}
}
