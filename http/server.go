// Package http serves wine quality predictions over HTTP and WebSocket.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"winequality/ml"
	"winequality/monitoring"
)

// Server is the prediction HTTP service.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig configures the listener and the identification fields.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
	// Name and RollNo identify the service in every prediction response.
	Name   string
	RollNo string
}

// DefaultServerConfig returns the settings used when nothing is configured.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8000,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
		Name:           "R J Hari",
		RollNo:         "2022BCS0125",
	}
}

// Dependencies are the collaborators shared by all handlers. Model is
// required; the rest default to no-op or fresh instances.
type Dependencies struct {
	Model     ml.Regressor
	ModelType string
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
}

// NewServer wires routes and middleware around the loaded model.
func NewServer(config ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Model == nil {
		return nil, errors.New("model is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetrics()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultServerConfig().MaxBodyBytes
	}

	p := newPredictor(deps.Model, config.Name, config.RollNo)
	h := &handlers{
		predictor:    p,
		modelType:    deps.ModelType,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		maxBodyBytes: config.MaxBodyBytes,
		upgrader:     newUpgrader(config.AllowedOrigins),
	}

	mux := http.NewServeMux()
	h.register(mux)

	chain := Chain(
		RecoveryMiddleware(deps.Logger),
		LoggerMiddleware(deps.Logger),
		MetricsMiddleware(deps.Metrics, mux),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
		TimeoutMiddleware(config.Timeout),
		GzipMiddleware,
	)

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           chain(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.Timeout,
			WriteTimeout:      config.Timeout + 5*time.Second,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		logger: deps.Logger,
	}, nil
}

// Handler returns the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.String("docs", "/docs"),
		zap.String("websocket", "/api/ws/predict"))

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests for up to five seconds.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
