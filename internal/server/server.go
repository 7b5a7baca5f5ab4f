// Package server is a reference receiver for touchpad surfaces. It accepts
// WebSocket connections and applies decoded messages to a Sink.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPort is the port surfaces connect to
	DefaultPort = 8765

	// DefaultPingPeriod is the keepalive interval; a surface that misses
	// two periods is dropped
	DefaultPingPeriod = 15 * time.Second
)

// Options configure a Server
type Options struct {
	// Addr is the listen address, e.g. "0.0.0.0:8765"
	Addr        string
	ScrollScale float64
	PingPeriod  time.Duration
	Sink        Sink
	Logger      *log.Logger

	// OnClients is called from the hub goroutine when the number of
	// connected surfaces changes
	OnClients func(int)
}

// Status is the body of GET /api/status
type Status struct {
	Clients     int     `json:"clients"`
	Applied     int64   `json:"applied"`
	Rejected    int64   `json:"rejected"`
	ScrollScale float64 `json:"scroll_scale"`
	Uptime      string  `json:"uptime"`
}

// Server accepts surface connections
type Server struct {
	opts    Options
	logger  *log.Logger
	hub     *hub
	router  *gin.Engine
	started time.Time
}

// New creates a server. The hub starts immediately; Handler can be mounted
// on any http.Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ScrollScale <= 0 {
		opts.ScrollScale = DefaultScrollScale
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = DefaultPingPeriod
	}
	if opts.Sink == nil {
		opts.Sink = LogSink{Logger: opts.Logger}
	}

	s := &Server{
		opts:    opts,
		logger:  opts.Logger,
		hub:     newHub(opts.Sink, opts.ScrollScale, opts.PingPeriod, opts.Logger),
		started: time.Now(),
	}
	s.hub.onCount = opts.OnClients
	s.router = s.routes()
	go s.hub.run()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.logRequests(), gin.Recovery())

	// Surfaces may connect on the root path or on /ws
	r.GET("/", s.handleWS)
	r.GET("/ws", s.handleWS)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/status", s.handleStatus)
	}
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Clients returns the number of connected surfaces
func (s *Server) Clients() int {
	return s.hub.count()
}

// Status returns current counters
func (s *Server) Status() Status {
	return Status{
		Clients:     s.hub.count(),
		Applied:     s.hub.applied.Load(),
		Rejected:    s.hub.rejected.Load(),
		ScrollScale: s.opts.ScrollScale,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}
}

// Run listens on Addr until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	// tcp4 avoids IPv6-only binding on some hosts
	ln, err := net.Listen("tcp4", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Server: listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("Server: shutdown: %v", err)
	}
	<-errCh
	return ctx.Err()
}

// Close disconnects every surface
func (s *Server) Close() {
	s.hub.stop()
}

func (s *Server) handleWS(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.JSON(http.StatusOK, gin.H{"service": "touchpad", "ws": "/ws"})
		return
	}
	s.hub.serve(c.Writer, c.Request)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Status())
}

// logRequests logs plain HTTP requests. Upgrades are logged by the hub.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !websocket.IsWebSocketUpgrade(c.Request) {
			s.logger.Printf("API: %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		}
		c.Next()
	}
}
