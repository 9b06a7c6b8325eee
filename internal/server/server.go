package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xaenox/mind-bot/internal/chat"
	"github.com/xaenox/mind-bot/internal/models"
	"go.uber.org/zap"
)

const ReadHeaderTimeout = 5 * time.Second

// ChatService is the part of the chat pipeline the HTTP handlers need.
type ChatService interface {
	Respond(ctx context.Context, req chat.Request) (*chat.Reply, error)
	Stats(ctx context.Context) (*models.StatsResponse, error)
	CheckHealth(ctx context.Context) error
}

type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	httpServer *http.Server
	chat       ChatService
	validate   *validator.Validate
	logger     *zap.Logger
}

func New(cfg Config, svc ChatService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		chat:     svc,
		validate: validator.New(),
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
