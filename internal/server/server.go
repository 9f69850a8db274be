// Package server exposes the evaluation and market data services over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-eval/internal/evaluation"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Server routes HTTP requests to the services.
type Server struct {
	evaluation *evaluation.Service
	market     *evaluation.MarketService
	gatherer   prometheus.Gatherer
	logger     *logger.Logger
	router     *mux.Router
}

// NewServer creates a Server. Metrics are served from gatherer.
func NewServer(evaluationService *evaluation.Service, market *evaluation.MarketService, gatherer prometheus.Gatherer, logger *logger.Logger) *Server {
	s := &Server{
		evaluation: evaluationService,
		market:     market,
		gatherer:   gatherer,
		logger:     logger,
		router:     mux.NewRouter(),
	}

	s.routes()

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on address until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to listen on %s", address)
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", listener.Addr().String()))
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down HTTP server")

		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.router.Use(s.requestID)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	api.HandleFunc("/strategies/{key}", s.handleGetStrategy).Methods(http.MethodGet)
	api.HandleFunc("/strategies/{key}/signals", s.handleSignals).Methods(http.MethodPost)
	api.HandleFunc("/strategies/{key}/backtest", s.handleBacktest).Methods(http.MethodPost)
	api.HandleFunc("/market_data", s.handleGetPrices).Methods(http.MethodGet)
	api.HandleFunc("/market_data", s.handleAddPrices).Methods(http.MethodPost)
	api.HandleFunc("/market_data/symbols/{symbol}/prices", s.handleUpdatePrices).Methods(http.MethodPut)

	//nolint:exhaustruct // third-party struct with many optional fields
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)

		started := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Debug("Handled request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	s.write(w, s.evaluation.ListStrategies())
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	s.write(w, s.evaluation.GetStrategy(mux.Vars(r)["key"]))
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.write(w, s.evaluation.ComputeSignals(r.Context(), req))
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.write(w, s.evaluation.RunBacktest(r.Context(), req))
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	s.write(w, s.market.History(r.Context(), query.Get("symbol"), query.Get("timeframe"), query.Get("start"), query.Get("end")))
}

func (s *Server) handleAddPrices(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol    string `json:"symbol"`
		Timeframe string `json:"timeframe"`
	}

	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)

		return
	}

	s.write(w, s.market.AddFullHistory(r.Context(), body.Symbol, body.Timeframe))
}

func (s *Server) handleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	s.write(w, s.market.UpdateSinceLatest(r.Context(), mux.Vars(r)["symbol"], r.URL.Query().Get("timeframe")))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.write(w, evaluation.Response{
		Success: false,
		Message: "Invalid request body",
		Data:    map[string]any{},
		Error:   evaluation.ErrorBody{Code: errors.ResponseCodeFor(err), Detail: err.Error()},
	})
}

func (s *Server) write(w http.ResponseWriter, resp evaluation.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(resp))

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

// StatusFor maps a result envelope to its HTTP status.
func StatusFor(resp evaluation.Response) int {
	if resp.Success {
		return http.StatusOK
	}

	switch resp.Error.Code {
	case errors.ResponseNotFound:
		return http.StatusNotFound
	case errors.ResponseBadRequest, errors.ResponseNoData:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeRequest reads an evaluation request. An empty body is an empty request.
func decodeRequest(r *http.Request) (evaluation.Request, error) {
	var req evaluation.Request

	if err := decodeBody(r, &req); err != nil {
		return evaluation.Request{}, err
	}

	req.StrategyKey = mux.Vars(r)["key"]

	return req, nil
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.UseNumber()

	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(errors.ErrCodeBadRequest, "invalid JSON body", err)
	}

	return nil
}
