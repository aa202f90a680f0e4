package root

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	toolsWidth int
	toolsRaw   bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Describe the tools offered to MCP clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeLog, err := setup()
		if err != nil {
			return err
		}
		defer closeLog()

		if toolsRaw {
			fmt.Fprint(cmd.OutOrStdout(), a.Catalog())
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), a.RenderCatalog(toolsWidth))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().IntVar(&toolsWidth, "width", 80, "Render width in columns")
	toolsCmd.Flags().BoolVar(&toolsRaw, "raw", false, "Print markdown without terminal rendering")
}
