package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/api/models"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// filterLogs keeps entries matching module and at or above level, then
// trims to the newest limit entries.
func filterLogs(entries []logging.LogEntry, module, level string, limit int) []models.LogEntryData {
	minRank := levelRank[level]
	out := make([]models.LogEntryData, 0, len(entries))
	for _, e := range entries {
		if module != "" && e.Module != module {
			continue
		}
		if levelRank[e.Level] < minRank {
			continue
		}
		out = append(out, models.LogEntryData{
			Seq:        e.Seq,
			Timestamp:  e.Timestamp,
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	}
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Recent log entries from the in-memory buffer",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		var entries []logging.LogEntry
		if buffer := logging.GetBuffer(); buffer != nil {
			// Filtering may drop entries, so only the unfiltered case can
			// read just the tail.
			if input.Module == "" && input.Level == "" {
				entries = buffer.ReadLast(input.Limit)
			} else {
				entries = buffer.ReadAll()
			}
		}
		out := filterLogs(entries, input.Module, input.Level, input.Limit)
		return &models.LogsResponse{
			Body: models.LogsData{Entries: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-log-levels",
		Method:      http.MethodGet,
		Path:        "/api/logs/levels",
		Summary:     "Log Levels",
		Description: "Effective log level per module",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.LogLevelsResponse, error) {
		return &models.LogLevelsResponse{
			Body: models.LogLevelsData{Levels: logging.Levels()},
		}, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before replaying history so nothing logged in between is
		// lost; live entries already replayed are skipped by sequence number.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		var replayed uint64
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.ReadAll() {
				replayed = entry.Seq
				event := events.LogEntryEvent{
					Seq:        entry.Seq,
					Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if e, ok := event.(events.LogEntryEvent); ok && e.Seq != 0 && e.Seq <= replayed {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
