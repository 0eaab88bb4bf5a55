// Package api exposes the forecast and transaction operations over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"smart-budget-planner/internal/auth"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"

	"golang.org/x/sync/errgroup"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Forecaster runs the forecast pipeline for a resolved user.
type Forecaster interface {
	Run(ctx context.Context, userID string, req models.ForecastRequest) (models.ForecastResult, error)
}

// TransactionService records and lists transactions.
type TransactionService interface {
	Create(ctx context.Context, userID string, in models.NewTransactionInput) (models.Transaction, error)
	List(ctx context.Context, userID, from, to string) ([]models.Transaction, error)
}

// Config holds the listener settings.
type Config struct {
	Addr              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond float64 // zero disables rate limiting
	Burst             int
}

// Server is the HTTP front end.
type Server struct {
	http.Server

	resolver     auth.CredentialResolver
	forecaster   Forecaster
	transactions TransactionService
	logger       logging.Logger
	shutdown     time.Duration
}

// NewServer wires routes and middleware.
func NewServer(cfg Config, resolver auth.CredentialResolver, forecaster Forecaster, txs TransactionService, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		resolver:     resolver,
		forecaster:   forecaster,
		transactions: txs,
		logger:       logger.WithField(logging.FieldComponent, logging.ComponentHTTP),
		shutdown:     cfg.ShutdownTimeout,
	}
	if s.shutdown <= 0 {
		s.shutdown = 15 * time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("POST /forecast", s.handleForecast)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)

	var h http.Handler = mux
	if cfg.RequestsPerSecond > 0 {
		h = withRateLimit(newClientLimiter(cfg.RequestsPerSecond, cfg.Burst), h)
	}
	h = withRecover(s.logger, h)
	h = withLogging(s.logger, h)
	h = withRequestID(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeOn(ctx, ln)
}

// ServeOn is Run on an existing listener.
func (s *Server) ServeOn(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("HTTP server listening", logging.Field{Key: "addr", Value: ln.Addr().String()})
		if err := s.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		return s.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
