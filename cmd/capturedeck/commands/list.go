package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/CaptureDeck/internal/window"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List capturable windows",
	Long: `List every on-screen window that has a title.

The ID column is what capture and record expect as WINDOW_ID.`,
	Example: `  # List windows in table format (default)
  capturedeck list

  # List windows in JSON format
  capturedeck list --format json`,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
}

func runList(cmd *cobra.Command, args []string) error {
	directory, err := window.Open()
	if err != nil {
		return err
	}
	defer directory.Close()

	windows, err := directory.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	return printWindows(os.Stdout, windows, listFormat)
}

func printWindows(out io.Writer, windows []window.Descriptor, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "ID\tAPP\tSIZE\tTITLE")
		fmt.Fprintln(w, "--\t---\t----\t-----")
		for _, win := range windows {
			fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\n",
				win.ID, win.AppName, win.Geometry.Width, win.Geometry.Height, win.Title)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}
}
