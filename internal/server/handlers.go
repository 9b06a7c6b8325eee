package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/xaenox/mind-bot/internal/chat"
	"github.com/xaenox/mind-bot/internal/models"
	"github.com/xaenox/mind-bot/internal/translate"
	"go.uber.org/zap"
)

const IndexMessage = "ElevateMind's Mental Health Chatbot API"

const (
	errInvalidBody    = "invalid JSON body"
	errMissingFields  = "user_input and language_code are required"
	errInternalServer = "internal server error"
	errNotReady       = "translation backend unavailable"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(IndexMessage))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, r, errInvalidBody, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.renderError(w, r, errMissingFields, http.StatusBadRequest)
		return
	}

	reply, err := s.chat.Respond(r.Context(), chat.Request{
		Text:         req.UserInput,
		LanguageCode: req.LanguageCode,
		Channel:      models.HTTPChannel,
	})
	if err != nil {
		s.logger.Error("Chat request failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("language_code", req.LanguageCode))
		s.renderError(w, r, errInternalServer, http.StatusInternalServerError)
		return
	}

	s.renderJSON(w, http.StatusOK, models.ChatResponse{Response: reply.Response})
}

func (s *Server) handleSupportedLanguages(w http.ResponseWriter, r *http.Request) {
	supported := translate.Supported()
	languages := make([]models.Language, 0, len(supported))
	for _, l := range supported {
		languages = append(languages, models.Language{Code: l.Code, Name: l.Name})
	}

	s.renderJSON(w, http.StatusOK, models.LanguagesResponse{
		Languages: languages,
		Message:   translate.LanguagesMessage,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.chat.Stats(r.Context())
	if err != nil {
		s.logger.Error("Failed to load stats",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())))
		s.renderError(w, r, errInternalServer, http.StatusInternalServerError)
		return
	}
	s.renderJSON(w, http.StatusOK, stats)
}

func (s *Server) renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, msg string, status int) {
	if status < http.StatusInternalServerError {
		s.logger.Debug("Rejected request",
			zap.String("path", r.URL.Path),
			zap.String("reason", msg),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	}
	s.renderJSON(w, status, models.ErrorResponse{Error: msg})
}

// handleReady reports whether the translation backend answers, so a load balancer
// can hold traffic while it is down. Liveness stays on /healthz.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.CheckHealth(r.Context()); err != nil {
		s.logger.Warn("Readiness check failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())))
		s.renderError(w, r, errNotReady, http.StatusServiceUnavailable)
		return
	}
	s.renderJSON(w, http.StatusOK, models.ReadyResponse{Status: "ready"})
}
