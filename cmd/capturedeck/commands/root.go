package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/CaptureDeck/internal/config"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	prettyLog bool
	rootCmd   = &cobra.Command{
		Use:   "capturedeck",
		Short: "CaptureDeck - window stills and recordings",
		Long: `CaptureDeck lists on-screen windows, saves still images of a selected
window at a fixed interval and records a window to video through ffmpeg.

Features:
  • Enumerate windows via X11 or the Win32 API
  • Periodic WebP stills of one window
  • H.264 recordings driven by ffmpeg
  • Local REST API and WebSocket event stream
  • Persistent configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(viper.GetString("log_level"), prettyLog)
		},
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/capturedeck/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8090)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", true, "human readable log output")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the config file and applies command-line overrides
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if port := viper.GetInt("server_port"); port > 0 {
		configMgr.SetPort(port)
	}
	if level := viper.GetString("log_level"); level != "" {
		configMgr.SetLogLevel(level)
	} else {
		logger.Init(configMgr.Get().LogLevel, prettyLog)
	}

	return configMgr, nil
}
