package root

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdin/stdout (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// Serve blocks in a read on stdin, so a signal has to win the race here.
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, os.Stdin, os.Stdout) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logrus.Info("shutdown signal received")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
