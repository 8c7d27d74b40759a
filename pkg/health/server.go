package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speedrun-hq/speedrun-settler/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/oracle"
	"github.com/speedrun-hq/speedrun-settler/pkg/settler"
)

const shutdownTimeout = 5 * time.Second

// Engine is the read side of the settlement engine exposed over HTTP
type Engine interface {
	Settings(ctx context.Context) (*models.Settings, error)
	GetIntent(ctx context.Context, id uint64) (*models.Intent, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChainClient is the token factory connection reported on /status
type ChainClient interface {
	Pinger
	ChainID() uint64
	Signer() common.Address
	SignerBalance(ctx context.Context) (*big.Int, error)
}

// Server represents a health check HTTP server
type Server struct {
	port          string
	metricsAPIKey string
	engine        Engine
	store         Pinger
	oracle        *oracle.Oracle
	breaker       *circuitbreaker.CircuitBreaker
	chain         ChainClient
	logger        logger.Logger
}

// Option configures optional parts of the status report
type Option func(*Server)

// WithOracle includes the oracle snapshot on /status
func WithOracle(o *oracle.Oracle) Option {
	return func(s *Server) {
		s.oracle = o
	}
}

// WithCircuitBreaker reports the burn breaker and enables /circuit/reset
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(s *Server) {
		s.breaker = cb
	}
}

// WithChainClient reports the token factory connection and checks it on /ready
func WithChainClient(c ChainClient) Option {
	return func(s *Server) {
		s.chain = c
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewServer creates a new health check server
func NewServer(port, metricsAPIKey string, engine Engine, store Pinger, opts ...Option) *Server {
	s := &Server{
		port:          port,
		metricsAPIKey: metricsAPIKey,
		engine:        engine,
		store:         store,
		logger:        &logger.EmptyLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routes served by the health server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("GET /intents/{id}", s.handleIntent)
	mux.HandleFunc("/circuit/reset", s.handleCircuitReset)
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting health and metrics server on port %s", s.port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(fmt.Sprintf("Store not reachable: %v", err)))
		return
	}
	if s.chain != nil {
		if err := s.chain.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("Chain %d client not connected: %v", s.chain.ChainID(), err)))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ready"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]interface{})

	settings, err := s.engine.Settings(r.Context())
	switch {
	case err == nil:
		status["initialized"] = true
		status["settings"] = settings
		status["total_intents"] = settings.TotalIntents()
	case models.CodeOf(err) == models.CodeNotInitialized:
		status["initialized"] = false
	default:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.oracle != nil {
		status["oracle"] = s.oracle.Snapshot()
	}
	if s.breaker != nil {
		status["circuit"] = s.breaker.GetState()
	}
	if s.chain != nil {
		chainStatus := map[string]interface{}{
			"chain_id":  s.chain.ChainID(),
			"signer":    s.chain.Signer().Hex(),
			"connected": s.chain.Ping(r.Context()) == nil,
		}
		if balance, err := s.chain.SignerBalance(r.Context()); err == nil {
			chainStatus["signer_balance"] = balance.String()
		}
		status["token_factory"] = chainStatus
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	id, err := settler.ParseIntentID(settler.OpGetIntent, r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	intent, err := s.engine.GetIntent(r.Context(), id)
	switch models.CodeOf(err) {
	case 0:
		s.writeJSON(w, http.StatusOK, intent)
	case models.CodeNotFound:
		s.writeError(w, http.StatusNotFound, err)
	case models.CodeNotInitialized:
		s.writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

// handleCircuitReset is the circuit breaker admin control endpoint
func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.breaker == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("No circuit breaker configured"))
		return
	}

	s.breaker.Reset()
	s.logger.Notice("Burn circuit breaker reset over HTTP")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Circuit breaker reset"))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	body := map[string]string{"error": err.Error()}
	if c := models.CodeOf(err); c != 0 {
		body["code"] = c.String()
	}
	s.writeJSON(w, code, body)
}
