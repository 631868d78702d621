package led

import "log/slog"

// logSink stands in for hardware on systems without an LED register.
type logSink struct {
	logger *slog.Logger
}

func newLogSink(logger *slog.Logger) *logSink {
	return &logSink{logger: logger}
}

// Write logs the register word but touches no hardware.
func (l *logSink) Write(value uint32) error {
	l.logger.Debug("LED register write (no hardware)",
		"register", value,
		"lit", ^value)
	return nil
}

func (l *logSink) Name() string { return BackendLog }

func (l *logSink) Close() error { return nil }
