// Package server exposes run status over HTTP for long-lived merge runs.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/danmuck/mergectl/internal/merge"
)

// WorkerStatus is one worker's live view.
type WorkerStatus struct {
	Role  string      `json:"role"`
	State string      `json:"state"`
	Mode  string      `json:"mode"`
	Stats merge.Stats `json:"stats"`
}

// StatusProvider returns the current view of the run.
type StatusProvider func() []WorkerStatus

// Server serves health, status, and metrics for one merge run.
type Server struct {
	addr    string
	router  *gin.Engine
	status  StatusProvider
	started time.Time
	http    *http.Server
}

func New(addr string, status StatusProvider) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:    addr,
		router:  gin.New(),
		status:  status,
		started: time.Now(),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	s.registerRoutes()
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{Addr: s.addr, Handler: s.router}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
