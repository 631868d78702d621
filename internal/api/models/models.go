package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-01T00:00:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// State models
type StateData struct {
	Tick       uint64    `json:"tick" example:"1024" doc:"Completed control loop iterations"`
	Mask       string    `json:"mask" example:"0x008" doc:"Lit position mask"`
	Register   string    `json:"register" example:"0xfffffff7" doc:"Next word written to the LED register (active-low)"`
	Position   int       `json:"position" example:"3" doc:"Index of the lit LED"`
	Width      uint      `json:"width" example:"10" doc:"Number of LEDs"`
	Direction  string    `json:"direction" example:"decreasing" enum:"decreasing,increasing" doc:"Rotation direction"`
	Mode       string    `json:"mode" example:"button" enum:"button,movement" doc:"Which pointer signal reverses the direction"`
	RateMs     int64     `json:"rate_ms" example:"100" doc:"Sleep applied on the last tick"`
	RateInput  int64     `json:"rate_input" example:"100" doc:"Raw value currently stored in the rate cell"`
	MinRateMs  int64     `json:"min_rate_ms" example:"1" doc:"Lower clamp applied to the rate"`
	MaxRateMs  int64     `json:"max_rate_ms" example:"60000" doc:"Upper clamp applied to the rate"`
	Sink       string    `json:"sink" example:"devmem" doc:"LED register backend"`
	Pointer    string    `json:"pointer" example:"/dev/input/mice" doc:"Pointer device"`
	RateSource string    `json:"rate_source" example:"stdin" doc:"Rate input stream"`
	UpdatedAt  time.Time `json:"updated_at" doc:"Time of the last tick"`
}

type StateResponse struct {
	Body StateData
}

// Log models
type LogsInput struct {
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Maximum number of entries, newest last"`
	Module string `query:"module" example:"control" doc:"Only entries from this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
}

type LogEntryData struct {
	Seq        uint64         `json:"seq" example:"42"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level" example:"info"`
	Module     string         `json:"module" example:"rate"`
	Message    string         `json:"message" example:"Rate updated"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries"`
	Count   int            `json:"count" example:"12"`
}

type LogsResponse struct {
	Body LogsData
}

type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Effective level per module"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}
