package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record WINDOW_ID",
	Short: "Record a window to video",
	Long: `Record WINDOW_ID to an MP4 file with ffmpeg until interrupted.

ffmpeg selects the window by its title, so windows without a title cannot be
recorded. On stop ffmpeg is asked to finish the file; if it does not exit
within recorder.stop_timeout it is killed.`,
	Example: `  # Record window 12345 until Ctrl+C
  capturedeck record 12345

  # Record for 30 seconds
  capturedeck record 12345 --duration 30s`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

var recordDuration time.Duration

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(configMgr)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.StartRecord(args[0]); err != nil {
		return err
	}
	path := a.ctrl.Status().RecordingPath
	fmt.Fprintf(cmd.ErrOrStderr(), "Recording to %s, press Ctrl+C to stop\n", path)

	waitForStop(recordDuration)

	if err := a.ctrl.StopRecord(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
