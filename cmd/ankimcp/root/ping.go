package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that AnkiConnect is reachable and list its decks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeLog, err := setup()
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()
		report, err := a.Ping(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 15*time.Second, "Overall time allowed for the check")
}
