package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ankimcp/internal/config"
	"ankimcp/pkg/app"
)

var flagConfigPath string

// rootCmd defines the base command for anki-mcp. Without a subcommand it serves.
var rootCmd = &cobra.Command{
	Use:   "anki-mcp",
	Short: "Expose an Anki collection to MCP clients over stdio",
	Long: "anki-mcp speaks the Model Context Protocol on stdin/stdout and forwards tool calls to AnkiConnect. " +
		"Logs go to stderr. Configure it with ~/.config/anki-mcp/anki-mcp.toml or ANKI_MCP_* variables.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the Cobra root command.
func Execute() {
	// Load environment from .env if present
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves config, configures logging and builds the app. The returned
// func releases the log file.
func setup() (*app.App, func(), error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, nil, err
	}
	closeLog := app.ConfigureLogging(cfg.Log)
	if cfg.File != "" {
		logrus.WithField("path", cfg.File).Debug("using config file")
	}
	a, err := app.New(cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return a, closeLog, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to a config file (toml, yaml or json)")
}
