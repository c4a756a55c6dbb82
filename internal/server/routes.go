package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": "mergectl",
			"version": "0.1.0",
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		workers := []WorkerStatus{}
		if s.status != nil {
			workers = s.status()
		}
		c.JSON(http.StatusOK, gin.H{
			"uptime":  time.Since(s.started).String(),
			"workers": workers,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
