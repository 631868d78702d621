package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/api/models"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/control"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/version"
)

const authRealm = `Basic realm="ledspin"`

// StateProvider exposes the control loop state.
type StateProvider interface {
	Snapshot() control.Snapshot
}

// RateReader exposes the raw rate cell value.
type RateReader interface {
	Load() int64
}

// Options configures the status API.
type Options struct {
	AuthUsername string
	AuthPassword string

	EventBus *events.Bus
	State    StateProvider
	Rate     RateReader

	SinkName   string
	Pointer    string
	RateSource string
	MinRateMs  int64
	MaxRateMs  int64

	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// Server is the read-only Huma v2 status API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// basicAuthMiddleware rejects requests to secured operations without valid
// credentials. SSE clients may pass base64 "user:pass" in the auth query.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		encoded := ctx.Query("auth")
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		}
		if encoded == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			s.unauthorized(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if !credentialsMatch(user, pass, username, password) {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// credentialsMatch compares both fields in constant time.
func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass))
	return userOK&passOK == 1
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// NewServer creates the API server with Huma v2 using Go 1.22+ native routing.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("ledspin API", version.String())
	config.Info.Description = "Read-only status of the rotating LED controller"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		eventBus: opts.EventBus,
		options:  opts,
		logger:   logging.GetLogger(logging.ModuleAPI),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes the listener and open SSE connections immediately.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   v.Version,
				GitCommit: v.GitCommit,
				BuildDate: v.BuildDate,
				BuildID:   v.BuildID,
				GoVersion: v.GoVersion,
				Compiler:  v.Compiler,
				Platform:  v.Platform,
			},
		}, nil
	})

	s.registerStateRoutes()
	s.registerLogRoutes()
	s.registerSSERoutes()
	s.registerMetricsRoutes()
}

func (s *Server) registerStateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/api/state",
		Summary:     "LED State",
		Description: "Current lit position, direction, mode and rate",
		Tags:        []string{"state"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, input *struct{}) (*models.StateResponse, error) {
		if s.options.State == nil {
			return nil, huma.Error503ServiceUnavailable("Control loop not running")
		}
		snap := s.options.State.Snapshot()
		digits := int(snap.Width+3) / 4

		body := models.StateData{
			Tick:       snap.Tick,
			Mask:       fmt.Sprintf("0x%0*x", digits, snap.Mask),
			Register:   fmt.Sprintf("0x%08x", snap.Register),
			Position:   snap.Position,
			Width:      snap.Width,
			Direction:  snap.Direction,
			Mode:       snap.Mode,
			RateMs:     snap.RateMs,
			MinRateMs:  s.options.MinRateMs,
			MaxRateMs:  s.options.MaxRateMs,
			Sink:       s.options.SinkName,
			Pointer:    s.options.Pointer,
			RateSource: s.options.RateSource,
			UpdatedAt:  snap.UpdatedAt,
		}
		if s.options.Rate != nil {
			body.RateInput = s.options.Rate.Load()
		}
		return &models.StateResponse{Body: body}, nil
	})
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
