package commands

import (
	"fmt"

	"github.com/bryanchriswhite/CaptureDeck/internal/capture"
	"github.com/bryanchriswhite/CaptureDeck/internal/config"
	"github.com/bryanchriswhite/CaptureDeck/internal/encoder"
	"github.com/bryanchriswhite/CaptureDeck/internal/events"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/bryanchriswhite/CaptureDeck/internal/output"
	"github.com/bryanchriswhite/CaptureDeck/internal/session"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
)

// app holds everything a long-running command needs
type app struct {
	cfg       *config.Config
	directory *window.Directory
	capturer  *capture.Router
	encoder   *encoder.Manager
	hub       *events.Hub
	notifier  *events.Notifier
	ctrl      *session.Controller
}

func newEncoderManager(cfg *config.Config) *encoder.Manager {
	return encoder.NewManager(encoder.ManagerConfig{
		FFmpegPath:  cfg.Recorder.FFmpegPath,
		BinDir:      cfg.BinDir(),
		DownloadURL: cfg.Recorder.DownloadURL,
	})
}

// newApp connects to the display and builds the session controller. Extra
// sinks receive every event alongside the log and the WebSocket hub.
func newApp(configMgr *config.Manager, extra ...events.Sink) (*app, error) {
	log := logger.WithComponent("app")
	cfg := configMgr.Get()

	directory, err := window.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open window directory: %w", err)
	}

	a := &app{
		cfg:       cfg,
		directory: directory,
		capturer:  capture.NewDefaultRouter(),
		encoder:   newEncoderManager(cfg),
		hub:       events.NewHub(),
	}

	sinks := events.Multi{events.LogSink{}, a.hub}
	if cfg.Notifications.Enabled {
		n, err := events.NewNotifier()
		if err != nil {
			log.Warn().Err(err).Msg("Desktop notifications unavailable")
		} else {
			a.notifier = n
			sinks = append(sinks, n)
		}
	}
	sinks = append(sinks, extra...)

	a.ctrl = session.New(session.Options{
		// Raw backend list: titleless windows must reach StartRecord's title check
		Windows:     directory.Backend(),
		Capturer:    a.capturer,
		Stills:      output.NewStillWriter(cfg.CapturesDir(), cfg.Capture.MaxWidth),
		CapturesDir: cfg.CapturesDir(),
		Encoder:     a.encoder,
		Template: encoder.Template{
			InputFormat: cfg.Recorder.InputFormat,
			FrameRate:   cfg.Recorder.FrameRate,
		},
		StopTimeout: cfg.Recorder.StopTimeout,
		Sink:        sinks,
	})

	log.Debug().
		Str("captures_dir", cfg.CapturesDir()).
		Str("capturer", a.capturer.Name()).
		Msg("Session controller ready")

	return a, nil
}

// Close stops any running session and releases display connections
func (a *app) Close() error {
	err := a.ctrl.Close()
	a.hub.Close()
	if a.notifier != nil {
		a.notifier.Close()
	}
	a.capturer.Close()
	a.directory.Close()
	return err
}
