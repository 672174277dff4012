package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	ginhandler "pokedex-user-service/internal/adapter/gin/handler"
	ginrouter "pokedex-user-service/internal/adapter/gin/router"
	"pokedex-user-service/internal/config"
)

// Server holds the HTTP server serving the REST API
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
}

// New creates a new server instance with the router wired up
func New(cfg *config.Config, l *zap.Logger, handler *ginhandler.UserHandler) *Server {
	router := ginrouter.SetupRouter(handler, l)

	addr := ":" + cfg.App.HTTPPort
	l.Info("HTTP server configured", zap.String("address", addr))

	return &Server{
		Config: cfg,
		Logger: l,
		HTTP: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 2 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.Logger.Info("HTTP server running", zap.String("address", s.HTTP.Addr))
	if err := s.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
