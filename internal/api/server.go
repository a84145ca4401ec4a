// Package api serves the study catalog, pipeline runs and stored reports
// over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gobayes/internal/errors"
	"gobayes/internal/pipeline"
	"gobayes/internal/studies"
	"gobayes/ports"
)

// Server wires the HTTP routes to the catalog, the pipeline and the ledger
type Server struct {
	router   *gin.Engine
	catalog  *studies.Catalog
	ledger   ports.LedgerPort
	hub      *SSEHub
	defaults pipeline.Options
}

// NewServer builds the router. defaults are the pipeline options used when a
// request does not override them. Every request shares one lattice limiter.
func NewServer(catalog *studies.Catalog, ledger ports.LedgerPort, defaults pipeline.Options) *Server {
	if defaults.Heavy == nil {
		defaults.Heavy = pipeline.NewHeavyLimiter(defaults.HeavyLimit)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		router:   router,
		catalog:  catalog,
		ledger:   ledger,
		hub:      NewSSEHub(),
		defaults: defaults,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.GET("/studies", s.handleListStudies)
	v1.GET("/studies/:name", s.handleGetStudy)
	v1.POST("/studies/:name/run", s.handleRunStudy)
	v1.GET("/studies/:name/history", s.handleStudyHistory)

	v1.POST("/runs", s.handleCreateRun)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/report", s.handleLatestReport)

	v1.GET("/posterior", s.handlePosterior)
	v1.GET("/events", s.hub.HandleSSE)
}

// Handler exposes the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the event hub that run progress is published to
func (s *Server) Hub() *SSEHub {
	return s.hub
}

// Close releases the event hub
func (s *Server) Close() {
	s.hub.Close()
}

// requestLogger logs one structured line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// writeError maps error codes to HTTP statuses
func writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeInvalidEvidence, errors.CodeConfigInvalid, errors.CodeInsufficient:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
