package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the captures directory",
	Long:  `Print the absolute directory stills and recordings are written to.`,
	RunE:  runPath,
}

func init() {
	rootCmd.AddCommand(pathCmd)
}

func runPath(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(configMgr.Get().CapturesDir())
	if err != nil {
		return fmt.Errorf("failed to resolve captures directory: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}
