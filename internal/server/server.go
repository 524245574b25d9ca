package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jpalmerr/projecthub/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Service is the project API the server exposes over HTTP.
type Service interface {
	GetAll(ctx context.Context) ([]store.Project, error)
	Get(ctx context.Context, id string) (store.Project, error)
	Add(ctx context.Context, d store.Draft) (store.Project, error)
	Update(ctx context.Context, id string, patch store.Patch) (store.Project, error)
	Remove(ctx context.Context, id string) error
	Refresh(ctx context.Context, id string) error
	RefreshMany(ctx context.Context, ids []string) error
	Subscribe() <-chan []store.Project
	Unsubscribe(ch <-chan []store.Project)
}

// Server handles HTTP requests for the project API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	svc        Service
	port       int
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new HTTP [Server] for svc listening on port.
//
// The server is not started until [Server.Start] is called.
func New(svc Service, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		port:   port,
		logger: logger,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.GET("/projects", s.list)
	api.POST("/projects", s.create)
	api.GET("/projects/:id", s.get)
	api.PATCH("/projects/:id", s.update)
	api.DELETE("/projects/:id", s.remove)
	api.POST("/projects/:id/refresh", s.refresh)
	api.POST("/refresh", s.refreshMany)
	api.GET("/sse", gin.WrapF(s.handleSSE))

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// list returns projects filtered by the optional q and status parameters.
func (s *Server) list(c *gin.Context) {
	statuses, err := store.ParseStatuses(c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	projects, err := s.svc.GetAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, store.Filter(projects, store.Query{
		Search:   c.Query("q"),
		Statuses: statuses,
	}))
}

func (s *Server) get(c *gin.Context) {
	p, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) create(c *gin.Context) {
	var d store.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, err := s.svc.Add(c.Request.Context(), d)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// patchReq is a partial edit; absent fields are left unchanged and an empty
// URL disables that endpoint.
type patchReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	LocalURL    *string `json:"local_url"`
	CloudURL    *string `json:"cloud_url"`
}

func (r patchReq) toPatch() store.Patch {
	patch := store.Patch{Name: r.Name, Description: r.Description}
	if r.LocalURL != nil {
		patch.Local = &store.Endpoint{URL: *r.LocalURL}
	}
	if r.CloudURL != nil {
		patch.Cloud = &store.Endpoint{URL: *r.CloudURL}
	}
	return patch
}

func (s *Server) update(c *gin.Context) {
	var req patchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, err := s.svc.Update(c.Request.Context(), c.Param("id"), req.toPatch())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) remove(c *gin.Context) {
	if err := s.svc.Remove(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) refresh(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := s.svc.Get(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.svc.Refresh(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}

	p, err := s.svc.Get(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type refreshReq struct {
	IDs []string `json:"ids"`
}

// refreshMany refreshes the listed projects, or all of them when the body
// is empty or lists none.
func (s *Server) refreshMany(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if err := s.svc.RefreshMany(c.Request.Context(), req.IDs); err != nil {
		s.writeError(c, err)
		return
	}

	projects, err := s.svc.GetAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, projects)
}

// handleSSE streams the full project list via Server-Sent Events: once on
// connect, then after every change.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(projects []store.Project) error {
		data, err := json.Marshal(projects)
		if err != nil {
			return err
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the initial snapshot so no change is missed
	ch := s.svc.Subscribe()
	defer s.svc.Unsubscribe(ch)

	initial, err := s.svc.GetAll(r.Context())
	if err != nil {
		s.logger.Error("sse initial snapshot failed", "error", err)
		return
	}
	if err := writeAndFlush(initial); err != nil {
		return
	}

	// stream updates
	for {
		select {
		case projects, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(projects); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
