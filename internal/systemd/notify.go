// Package systemd reports service state to systemd over the notify socket.
// Every call is a no-op when NOTIFY_SOCKET is unset.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier that logs delivery failures to logger.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready reports that startup finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping reports that shutdown began.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return false
	}
	return sent
}

// RunWatchdog pings the systemd watchdog at half the configured interval for
// as long as healthy returns true. It returns immediately when the unit has no
// WatchdogSec, and otherwise when ctx is done.
func (n *Notifier) RunWatchdog(ctx context.Context, healthy func() bool) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return
	}
	if interval == 0 {
		return
	}

	n.logger.Info("Systemd watchdog enabled", "interval", interval)
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !healthy() {
				n.logger.Warn("Skipping watchdog ping, control loop stalled")
				continue
			}
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
