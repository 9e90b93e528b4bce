// Package server exposes runs over HTTP: a catalog endpoint and a query
// endpoint that streams engine events as server-sent events.
package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/penny/internal/orchestrator"
	"github.com/ShayCichocki/penny/internal/stream"
	"github.com/ShayCichocki/penny/internal/tools"
)

// eventBufferSize is the per-run event channel buffer. Large enough that a
// slow SSE consumer does not stall the engine before the drop path engages.
const eventBufferSize = 256

// Config carries the server's collaborators.
type Config struct {
	// Oracle is the reasoning collaborator shared across runs. Required.
	Oracle orchestrator.Oracle
	// Invoker is the tool-execution collaborator. Required.
	Invoker orchestrator.Invoker
	// Registry serves the current tool catalog, hot-reloaded from disk.
	// Optional; defaults to a fixed built-in catalog.
	Registry *tools.Registry
	// Store checkpoints runs. Optional.
	Store orchestrator.RunStore
	// Logger is the engine debug logger. Optional.
	Logger *orchestrator.DebugLogger
	// MaxIterations and MaxRetries bound each run. Zero means defaults.
	MaxIterations int
	MaxRetries    int
}

// Server serves the HTTP API.
type Server struct {
	cfg    Config
	router *gin.Engine
}

// queryRequest is the body of POST /api/query.
type queryRequest struct {
	Query string `json:"query" binding:"required"`
}

// New creates a Server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("server requires an oracle")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("server requires a tool invoker")
	}

	router := gin.Default()
	router.Use(cors.Default())

	s := &Server{cfg: cfg, router: router}
	router.GET("/api/tools", s.handleTools)
	router.POST("/api/query", s.handleQuery)
	return s, nil
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// catalog resolves the current catalog: the registry's live copy when
// configured, the built-in default otherwise.
func (s *Server) catalog() *tools.Catalog {
	if s.cfg.Registry != nil {
		return s.cfg.Registry.Catalog()
	}
	return tools.DefaultCatalog()
}

// handleTools returns the current tool catalog.
func (s *Server) handleTools(c *gin.Context) {
	catalog := s.catalog()
	out := make([]gin.H, len(catalog.Tools))
	for i, t := range catalog.Tools {
		out[i] = gin.H{
			"name":        t.Name,
			"signature":   t.Signature(),
			"description": t.Description,
		}
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

// handleQuery starts a run and streams its events as SSE. The engine runs
// in its own goroutine; the emitter channel carries events to the response
// writer in execution order.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	emitter := orchestrator.NewEventEmitter(eventBufferSize)
	eng, err := orchestrator.New(orchestrator.Config{
		Oracle:        s.cfg.Oracle,
		Invoker:       s.cfg.Invoker,
		Catalog:       s.catalog(),
		Store:         s.cfg.Store,
		Emitter:       emitter,
		Logger:        s.cfg.Logger,
		MaxIterations: s.cfg.MaxIterations,
		MaxRetries:    s.cfg.MaxRetries,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		defer emitter.Close()
		// Engine failures surface as an error event before the channel
		// closes; the HTTP status is already committed by then.
		_, _ = eng.Run(c.Request.Context(), req.Query)
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-emitter.Events()
		if !ok {
			return false
		}
		c.SSEvent("message", stream.Translate(ev))
		return true
	})
}
