// Package server exposes the query engine over HTTP
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/logicsquare/konect-query-gateway/internal/engine"
	"github.com/logicsquare/konect-query-gateway/internal/errors"
	"github.com/logicsquare/konect-query-gateway/internal/logging"
	"github.com/logicsquare/konect-query-gateway/internal/registry"
)

// Server provides the HTTP API over a query engine and its registry
type Server struct {
	addr      string
	engine    *engine.Engine
	registry  *registry.Registry
	logger    *logging.Logger
	handler   *gin.Engine
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// New creates an HTTP server. It does not start listening.
func New(addr string, eng *engine.Engine, reg *registry.Registry, logger *logging.Logger) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}

	if logger == nil {
		logger = logging.GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:     addr,
		engine:   eng,
		registry: reg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/schemas", s.handleSchemas)
	r.POST("/api/query", s.handleQuery)

	s.handler = r

	return s
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests in the background
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.handler,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeConnection, "cannot listen on %s", s.addr)
	}

	s.startTime = time.Now()
	s.logger.WithField("addr", s.addr).Info("HTTP server listening")

	go func() {
		if serveErr := s.server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.ErrorWithErr("HTTP server stopped", serveErr)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"schemas":    len(s.registry.Names()),
		"load_state": s.registry.State().String(),
	})
}

func (s *Server) handleSchemas(c *gin.Context) {
	s.registry.EnsureLoaded(c.Request.Context())

	schemas := make([]gin.H, 0)
	for _, name := range s.registry.Names() {
		entry, ok := s.registry.Lookup(name)
		if !ok {
			continue
		}

		schemas = append(schemas, gin.H{
			"name":        entry.Schema.Name,
			"collection":  entry.Schema.Collection,
			"description": entry.Schema.Description,
			"fields":      entry.Schema.Fields,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"schemas":  schemas,
		"failures": s.registry.Failures(),
	})
}

// queryResponse is the success envelope: the engine result plus the flag
type queryResponse struct {
	Success bool `json:"success"`
	*engine.Result
}

func (s *Server) handleQuery(c *gin.Context) {
	req, err := decodeQueryRequest(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	result, err := s.engine.Execute(c.Request.Context(), *req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, queryResponse{Success: true, Result: result})
}

// statusForError maps typed engine errors onto HTTP status codes. Unknown
// error shapes fall back to 500.
func statusForError(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeUnknownSchema:
		return http.StatusNotFound
	case errors.ErrTypeInvalidShape:
		return http.StatusBadRequest
	case errors.ErrTypeQueryExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
