package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Server hosts the ledger HTTP API.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the router and binds all routes to the handler.
func NewServer(addr string, handler *Handler) *Server {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", handler.HealthCheckHandler).Methods("GET")

	r.HandleFunc("/bets", handler.PlaceBetHandler).Methods("POST")
	r.HandleFunc("/bets", handler.GetBetsHandler).Methods("GET")
	r.HandleFunc("/bets/{id}/status", handler.SetBetStatusHandler).Methods("PATCH")

	r.HandleFunc("/balance", handler.GetBalancesHandler).Methods("GET")
	r.HandleFunc("/balance", handler.AdjustBalanceHandler).Methods("PATCH")
	r.HandleFunc("/balance/history", handler.GetBalanceHistoryHandler).Methods("GET")

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks serving requests until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
