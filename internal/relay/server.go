// Package relay is the staging location devices publish snapshots to and
// pull them from. The server keeps the latest payload per sync code; the
// client implements exchange.Transport against it.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/id"
	"github.com/listenupapp/marginalia/internal/logger"
	"github.com/listenupapp/marginalia/internal/ratelimit"
)

// Version is reported by the health endpoint and the OpenAPI document.
const Version = "1.0.0"

// Config holds relay server limits.
type Config struct {
	// TTL is how long a published payload is kept. Zero keeps it forever.
	TTL time.Duration
	// MaxPayload is the largest accepted publish body in bytes.
	MaxPayload int64
	// RateLimit and RateBurst bound requests per client address.
	RateLimit float64
	RateBurst int
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
}

// Server is the relay HTTP server.
type Server struct {
	slots   exchange.Slots
	cfg     Config
	router  *chi.Mux
	api     huma.API
	limiter *ratelimit.KeyedRateLimiter
	clock   clock.Clock
	logger  *slog.Logger
}

// NewServer creates a relay server storing payloads in slots.
func NewServer(slots exchange.Slots, cfg Config, clk clock.Clock, log *slog.Logger) *Server {
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = 16 << 20
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	if clk == nil {
		clk = clock.New()
	}

	s := &Server{
		slots:   slots,
		cfg:     cfg,
		router:  chi.NewRouter(),
		limiter: ratelimit.New(cfg.RateLimit, cfg.RateBurst),
		clock:   clk,
		logger:  logger.OrDiscard(log),
	}

	// chi rejects middleware added after the first route, and humachi.New
	// registers the OpenAPI routes.
	s.setupMiddleware()

	RegisterErrorHandler()
	s.api = humachi.New(s.router, huma.DefaultConfig("Marginalia Relay", Version))
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases the rate limiter.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) setupMiddleware() {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.rateLimit)
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID:   "publishSnapshot",
		Method:        http.MethodPost,
		Path:          "/api/v1/sync/{code}",
		Summary:       "Publish a snapshot",
		Description:   "Stores the payload under the sync code, replacing any previous one.",
		Tags:          []string{"Sync"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.cfg.MaxPayload,
	}, s.handlePublish)

	huma.Register(s.api, huma.Operation{
		OperationID: "fetchSnapshot",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/{code}",
		Summary:     "Fetch the latest snapshot",
		Tags:        []string{"Sync"},
	}, s.handleFetch)
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body struct {
		Status  string    `json:"status" doc:"Always ok while the server is up"`
		Version string    `json:"version"`
		Time    time.Time `json:"time"`
	}
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.Version = Version
	out.Body.Time = s.clock.Now()
	return out, nil
}

// PublishInput is the publish request.
type PublishInput struct {
	Code    string `path:"code" doc:"Six-character sync code"`
	RawBody []byte
}

// PublishOutput acknowledges a publish.
type PublishOutput struct {
	Body struct {
		Code       string    `json:"code"`
		DeviceID   string    `json:"deviceId"`
		ReceivedAt time.Time `json:"receivedAt"`
		Size       int       `json:"size"`
		Books      int       `json:"books"`
	}
}

func (s *Server) handlePublish(ctx context.Context, in *PublishInput) (*PublishOutput, error) {
	code, err := parseCode(in.Code)
	if err != nil {
		return nil, apiError(err)
	}

	p, err := exchange.DecodePayload(in.RawBody)
	if err != nil {
		return nil, apiError(errors.Malformed(err, "payload is not a snapshot"))
	}

	if err := s.slots.PutSlot(ctx, code, in.RawBody, s.cfg.TTL); err != nil {
		s.logger.Error("failed to store payload", "code", code, "error", err)
		return nil, apiError(errors.Storage(err, "store payload"))
	}

	out := &PublishOutput{}
	out.Body.Code = code
	out.Body.DeviceID = p.DeviceID
	out.Body.ReceivedAt = s.clock.Now()
	out.Body.Size = len(in.RawBody)
	out.Body.Books = len(p.Data.Books)

	s.logger.Info("payload published", "code", code, "device_id", p.DeviceID, "size", len(in.RawBody))
	return out, nil
}

// FetchInput is the fetch request.
type FetchInput struct {
	Code string `path:"code" doc:"Six-character sync code"`
}

// FetchOutput returns the stored payload bytes verbatim.
type FetchOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (s *Server) handleFetch(ctx context.Context, in *FetchInput) (*FetchOutput, error) {
	code, err := parseCode(in.Code)
	if err != nil {
		return nil, apiError(err)
	}

	data, ok, err := s.slots.GetSlot(ctx, code)
	if err != nil {
		s.logger.Error("failed to read payload", "code", code, "error", err)
		return nil, apiError(errors.Storage(err, "read payload"))
	}
	if !ok {
		return nil, apiError(errors.NotFoundf("nothing published under %s", code))
	}

	return &FetchOutput{ContentType: "application/json", Body: data}, nil
}

func parseCode(raw string) (string, error) {
	code := id.NormalizeCode(raw)
	if !id.ValidCode(code) {
		return "", errors.Validationf("invalid sync code %q", raw)
	}
	return code, nil
}
