// Package logging provides structured logging with per-module log level configuration.
//
// Every record is routed to stdout (text, JSON or colored text), to the systemd journal
// when journald is reachable, and to an in-memory ring buffer that backs the
// /api/logs endpoints.
//
// Initialize once at startup, then fetch a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"control": "debug",
//		},
//	})
//
//	logger := logging.GetLogger(logging.ModuleControl)
//	logger.Debug("Pointer sample", "dx", 3)
//
// Module loggers created before Initialize are kept; their levels are updated
// in place. ApplyLevels changes levels again at runtime, for example when the
// config file is edited.
//
// Journal entries are tagged with SYSLOG_IDENTIFIER=ledspin:
//
//	journalctl -t ledspin -f
//	journalctl -t ledspin MODULE=rate
//
// The equivalent TOML section:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	control = "debug"
//	http = "warn"
package logging
