// Package web exposes the HTTP surface: the JSON API, the export endpoints,
// the live websocket feed, health and Prometheus metrics. Handlers stay thin;
// all market logic lives in the service layer.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptodash/internal/alert"
	"cryptodash/internal/service"
	"cryptodash/internal/settings"
)

// Server bundles the router and its dependencies.
type Server struct {
	market   *service.Market
	alerts   *alert.Engine
	settings *settings.Store
	hub      *Hub

	srv *http.Server
}

// NewServer builds the router. The hub may be nil when the websocket feed is
// not wanted (tests).
func NewServer(port int, market *service.Market, alerts *alert.Engine, store *settings.Store, hub *Hub) *Server {
	s := &Server{
		market:   market,
		alerts:   alerts,
		settings: store,
		hub:      hub,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/cryptos", s.handleListCryptos)
		r.Get("/cryptos/{id}", s.handleCryptoDetail)
		r.Get("/cryptos/{id}/chart", s.handlePriceChart)
		r.Get("/rates", s.handleExchangeRates)

		r.Get("/favorites", s.handleListFavorites)
		r.Get("/favorites/ids", s.handleFavoriteIDs)
		r.Post("/favorites/{id}", s.handleAddFavorite)
		r.Delete("/favorites/{id}", s.handleRemoveFavorite)

		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts", s.handleCreateAlert)
		r.Delete("/alerts/{id}", s.handleDeleteAlert)
		r.Get("/alerts/history", s.handleAlertHistory)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Post("/settings/reset", s.handleResetSettings)

		r.Get("/export/csv", s.handleExportCSV)
		r.Get("/export/json", s.handleExportJSON)
		r.Get("/export/alerts/csv", s.handleExportAlertsCSV)
	})

	if hub != nil {
		r.Get("/ws", hub.HandleWS)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start blocks on ListenAndServe until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("🌐 HTTP server listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"upstream_idle_sec": int(s.market.UpstreamIdle().Seconds()),
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("took", time.Since(started).Round(time.Millisecond)))
	})
}
