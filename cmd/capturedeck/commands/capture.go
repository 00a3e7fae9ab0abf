package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/events"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture WINDOW_ID",
	Short: "Capture stills of a window",
	Long: `Save a WebP still of WINDOW_ID at a fixed interval until interrupted.

Each saved file path is printed on its own line. A window that disappears is
retried on the next tick; only Ctrl+C or --duration ends the capture.`,
	Example: `  # Capture window 12345 every second until Ctrl+C
  capturedeck capture 12345

  # Capture every 250ms for one minute
  capturedeck capture 12345 --interval 250ms --duration 1m`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

var (
	captureInterval time.Duration
	captureDuration time.Duration
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().DurationVarP(&captureInterval, "interval", "i", 0, "time between stills (default is capture.interval_ms)")
	captureCmd.Flags().DurationVarP(&captureDuration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
}

// pathPrinter prints the path of every saved still
type pathPrinter struct {
	out io.Writer
}

func (p pathPrinter) Emit(name string, payload any) {
	if name != events.CaptureTaken {
		return
	}
	if path, ok := payload.(string); ok {
		fmt.Fprintln(p.out, path)
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	interval := captureInterval
	if !cmd.Flags().Changed("interval") {
		interval = configMgr.Get().Capture.Interval()
	}

	a, err := newApp(configMgr, pathPrinter{out: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ctrl.StartCapture(args[0], interval); err != nil {
		return err
	}

	waitForStop(captureDuration)
	return a.ctrl.StopCapture()
}

// waitForStop blocks until interrupted or, when d > 0, until d has elapsed
func waitForStop(d time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-sigChan:
	case <-timeout:
	}
}
