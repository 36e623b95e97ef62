package inspect

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/scopecache/cache"
	"github.com/kbukum/scopecache/component"
	"github.com/kbukum/scopecache/config"
	"github.com/kbukum/scopecache/logger"
)

// Server serves the admin routes of a cache over HTTP/1.1 and cleartext
// HTTP/2. It implements component.Component.
type Server struct {
	cfg     config.AdminConfig
	engine  *gin.Engine
	handler *Handler
	log     *logger.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

var _ component.Component = (*Server)(nil)
var _ component.RouteProvider = (*Server)(nil)

// NewServer creates an admin server for c. Nothing listens until Start.
func NewServer(cfg config.AdminConfig, c *cache.Cache, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if gin.Mode() != gin.TestMode {
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	engine := gin.New()
	srvLog := log.WithComponent("inspect.server")
	engine.Use(Recovery(srvLog), RequestID(), RequestLogger(srvLog))

	h := NewHandler(c, log)
	h.Mount(engine)

	return &Server{cfg: cfg, engine: engine, handler: h, log: srvLog}
}

// Engine returns the gin engine for additional routes.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Routes lists the admin routes.
func (s *Server) Routes() []component.Route { return s.handler.Routes() }

// Name returns the component name.
func (s *Server) Name() string { return "scopecache.inspect" }

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return fmt.Errorf("inspect server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspect server failed to bind %s: %w", addr, err)
	}

	h2s := &http2.Server{IdleTimeout: 120 * time.Second}
	srv := &http.Server{
		Handler:      h2c.NewHandler(s.engine, h2s),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.srv, s.listener = srv, listener

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("Inspect server error")
		}
	}()

	s.log.Info("Inspect server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("inspect server shutdown: %w", err)
	}
	s.log.Info("Inspect server stopped")
	return nil
}

// Health reports whether the server is listening.
func (s *Server) Health(_ context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
