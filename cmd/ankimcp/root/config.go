package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"ankimcp/internal/config"
)

var (
	configPath  string
	configForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage anki-mcp configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config at the default location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		if err := config.WriteDefault(path, configForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), config.DefaultFile())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().StringVar(&configPath, "path", "", "Where to write the file (default ~/.config/anki-mcp/anki-mcp.toml)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config if present")
}
