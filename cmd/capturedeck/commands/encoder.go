package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var encoderCmd = &cobra.Command{
	Use:   "encoder",
	Short: "Manage the ffmpeg recorder",
	Long:  `Inspect or install the ffmpeg binary used for recordings.`,
}

var encoderEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Make sure ffmpeg is available",
	Long: `Locate ffmpeg and, when it is missing and recorder.download_url is set,
download it into the data directory.`,
	Example: `  # Check or install ffmpeg
  capturedeck encoder ensure

  # Download from a specific URL
  capturedeck config set recorder.download_url https://example.com/ffmpeg
  capturedeck encoder ensure`,
	RunE: runEncoderEnsure,
}

var encoderPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the ffmpeg binary in use",
	RunE:  runEncoderPath,
}

func init() {
	rootCmd.AddCommand(encoderCmd)
	encoderCmd.AddCommand(encoderEnsureCmd)
	encoderCmd.AddCommand(encoderPathCmd)
}

func runEncoderEnsure(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	status, err := newEncoderManager(configMgr.Get()).EnsureAvailable(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), status)
	return nil
}

func runEncoderPath(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := newEncoderManager(configMgr.Get()).Path()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
