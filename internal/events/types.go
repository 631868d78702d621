package events

// Event type constants for kelindar/event.
const (
	TypeTick uint32 = iota + 1
	TypeModeChanged
	TypeDirectionChanged
	TypeRateChanged
	TypeRateInputError
	TypeLogEntry
	TypeLoopMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// TickEvent is published after every control loop iteration.
type TickEvent struct {
	Tick       uint64 `json:"tick" example:"1024" doc:"Iteration counter, starting at 1"`
	Mask       uint32 `json:"mask" example:"4" doc:"Lit position mask written this tick"`
	Register   uint32 `json:"register" example:"4294967291" doc:"Word written to the LED register (active-low)"`
	Position   int    `json:"position" example:"2" doc:"Index of the lit LED written this tick"`
	Direction  string `json:"direction" example:"decreasing" doc:"Direction after the transition"`
	Mode       string `json:"mode" example:"button" doc:"Mode after the transition"`
	RateMs     int64  `json:"rate_ms" example:"100" doc:"Sleep applied this tick in milliseconds"`
	Sample     bool   `json:"sample" example:"false" doc:"Whether a pointer report was read this tick"`
	WriteError string `json:"write_error,omitempty" doc:"Register write failure, if any"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Tick completion time"`
}

// Type returns the event type identifier for TickEvent.
func (e TickEvent) Type() uint32 { return TypeTick }

// ModeChangedEvent is published when the middle button flips the mode.
type ModeChangedEvent struct {
	Tick      uint64 `json:"tick"`
	From      string `json:"from" example:"button"`
	To        string `json:"to" example:"movement"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ModeChangedEvent.
func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// DirectionChangedEvent is published when a pointer sample reverses rotation.
type DirectionChangedEvent struct {
	Tick      uint64 `json:"tick"`
	From      string `json:"from" example:"decreasing"`
	To        string `json:"to" example:"increasing"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for DirectionChangedEvent.
func (e DirectionChangedEvent) Type() uint32 { return TypeDirectionChanged }

// RateChangedEvent is published each time the rate source stores a value.
// Value is the raw, unclamped input.
type RateChangedEvent struct {
	Value     int64  `json:"value" example:"250"`
	Source    string `json:"source" example:"stdin"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for RateChangedEvent.
func (e RateChangedEvent) Type() uint32 { return TypeRateChanged }

// RateInputErrorEvent is published when a rate token cannot be parsed.
type RateInputErrorEvent struct {
	Token     string `json:"token" example:"fast"`
	Error     string `json:"error"`
	Source    string `json:"source" example:"stdin"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for RateInputErrorEvent.
func (e RateInputErrorEvent) Type() uint32 { return TypeRateInputError }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"control" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// LoopMetricsEvent is a periodic summary of the control loop counters.
type LoopMetricsEvent struct {
	EventType       string `json:"type" example:"loop_metrics"`
	Ticks           string `json:"ticks" example:"1024"`
	TicksPerSecond  string `json:"ticks_per_second" example:"9.98"`
	RateMs          string `json:"rate_ms" example:"100"`
	Position        string `json:"position" example:"3"`
	WriteErrors     string `json:"write_errors" example:"0"`
	RateInputErrors string `json:"rate_input_errors" example:"2"`
	DroppedEvents   string `json:"dropped_events" example:"0" doc:"Events missed by slow SSE clients"`
}

// Type returns the event type identifier for LoopMetricsEvent.
func (e LoopMetricsEvent) Type() uint32 { return TypeLoopMetrics }
