package events

import (
	"fmt"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
	appName      = "CaptureDeck"
	expireMillis = int32(5000)
)

// caller is the subset of dbus.BusObject used to post notifications
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier posts desktop notifications for recording state changes
type Notifier struct {
	conn *dbus.Conn
	obj  caller
}

// NewNotifier connects to the session bus
func NewNotifier() (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Notifier{
		conn: conn,
		obj:  conn.Object(notifyDest, dbus.ObjectPath(notifyPath)),
	}, nil
}

// Emit posts a notification for recording events. Capture ticks are ignored.
func (n *Notifier) Emit(name string, payload any) {
	var summary string
	switch name {
	case RecordingStarted:
		summary = "Recording started"
	case RecordingStopped:
		summary = "Recording saved"
	default:
		return
	}

	body := ""
	if s, ok := payload.(string); ok {
		body = s
	}

	call := n.obj.Call(notifyMethod, dbus.FlagNoReplyExpected,
		appName,
		uint32(0),
		"",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireMillis,
	)
	if call != nil && call.Err != nil {
		logger.WithComponent("events").Debug().Err(call.Err).Msg("Desktop notification failed")
	}
}

// Close releases the bus connection
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
