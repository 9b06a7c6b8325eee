package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.accessLog)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	router.Get("/", s.handleIndex)
	router.Post("/chat", s.handleChat)
	router.Get("/supported_languages", s.handleSupportedLanguages)
	router.Get("/stats", s.handleStats)
	router.Get("/readyz", s.handleReady)
	router.Handle("/metrics", promhttp.Handler())

	return router
}
