package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"verbum/internal/config"
	"verbum/internal/distance"
	"verbum/internal/docquery"
	"verbum/internal/hierarchy"
	"verbum/internal/profile"
)

// Server is the HTTP surface of the knowledge landscape.
type Server struct {
	cfg    config.ServerConfig
	router *gin.Engine
	http   *http.Server

	walker  *hierarchy.Walker
	profile *profile.Store
	engine  *distance.Engine
	queries *docquery.Service
	logger  *slog.Logger
}

// New assembles the router with all routes and middleware registered.
func New(cfg config.ServerConfig, walker *hierarchy.Walker, prof *profile.Store, engine *distance.Engine, queries *docquery.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "release" || cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		router:  gin.New(),
		walker:  walker,
		profile: prof,
		engine:  engine,
		queries: queries,
		logger:  logger,
	}
	s.router.Use(gin.Recovery(), s.requestID(), s.requestLog())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/hierarchy", s.handleHierarchy)
		api.GET("/semantic-distances/level-0", s.handleLevel0Distances)
		api.POST("/document/query", s.handleDocumentQuery)
		api.GET("/document/*path", s.handleDocument)

		prof := api.Group("/profile")
		{
			prof.GET("", s.handleProfile)
			prof.POST("/click", s.handleClick)
			prof.POST("/interest", s.handleInterest)
		}
	}
}
