// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/manifest/internal/domain/cabin"
	"github.com/okian/manifest/internal/domain/model"
	"github.com/okian/manifest/internal/domain/name"
	"github.com/okian/manifest/internal/domain/types"
)

const defaultMaxPageLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	NormalizeDependencies
	PassengerDependencies
}

// NormalizeDependencies parse single fields synchronously.
type NormalizeDependencies interface {
	ParseName(ctx context.Context, raw string) (name.Components, error)
	ParseCabin(ctx context.Context, raw *string) (cabin.Descriptor, error)
}

// PassengerDependencies ingest rows and expose normalized results.
type PassengerDependencies interface {
	Ingest(ctx context.Context, rows []model.RawPassenger) types.IngestReport
	Passenger(ctx context.Context, passengerID int) (model.Passenger, error)
	Passengers(ctx context.Context, offset, limit int) ([]model.Passenger, error)
	Rejections(ctx context.Context) []types.Rejection
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	normalizeHandler  *NormalizeHandler
	passengersHandler *PassengersHandler
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxPageLimit int
}

// WithMaxPageLimit caps the limit accepted by GET /passengers.
func WithMaxPageLimit(limit int) ServerOption {
	return func(c *serverConfig) {
		if limit > 0 {
			c.maxPageLimit = limit
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxPageLimit: defaultMaxPageLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		normalizeHandler:  NewNormalizeHandler(deps),
		passengersHandler: NewPassengersHandler(deps, cfg.maxPageLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /normalize/name", MetricsMiddleware(s.normalizeHandler.HandleName, "normalize_name"))
	mux.HandleFunc("POST /normalize/cabin", MetricsMiddleware(s.normalizeHandler.HandleCabin, "normalize_cabin"))
	mux.HandleFunc("POST /passengers", MetricsMiddleware(s.passengersHandler.HandlePost, "passengers_post"))
	mux.HandleFunc("GET /passengers", MetricsMiddleware(s.passengersHandler.HandleList, "passengers_list"))
	mux.HandleFunc("GET /passengers/{id}", MetricsMiddleware(s.passengersHandler.HandleGet, "passengers_get"))
	mux.HandleFunc("GET /rejections", MetricsMiddleware(s.passengersHandler.HandleRejections, "rejections"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
