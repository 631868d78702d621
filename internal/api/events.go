package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
)

// registerSSERoutes registers the control loop event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time ticks, direction and mode changes, and rate updates",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"tick":              events.TickEvent{},
		"mode-changed":      events.ModeChangedEvent{},
		"direction-changed": events.DirectionChangedEvent{},
		"rate-changed":      events.RateChangedEvent{},
		"rate-input-error":  events.RateInputErrorEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Ticks can arrive every millisecond; slow clients drop events.
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.TickEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ModeChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DirectionChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.RateInputErrorEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
