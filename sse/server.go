package sse

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/rxkit/component"
	"github.com/kbukum/rxkit/config"
	"github.com/kbukum/rxkit/logger"
)

// ViewPathPrefix is where mounted feeds are served.
const ViewPathPrefix = "/views/"

// MountedFeed is what the server needs from a Feed.
type MountedFeed interface {
	http.Handler
	View() string
}

// Server is the HTTP component serving feeds over a gin router.
type Server struct {
	cfg    config.SSEConfig
	hub    *Hub
	engine *gin.Engine

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	serveErr error
	wg       sync.WaitGroup
}

var (
	_ component.Component     = (*Server)(nil)
	_ component.Describable   = (*Server)(nil)
	_ component.RouteProvider = (*Server)(nil)
)

// NewServer creates a server for hub. Routes are added with Mount and
// Engine before Start.
func NewServer(cfg config.SSEConfig, hub *Hub) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	return &Server{cfg: cfg, hub: hub, engine: engine}
}

// Engine exposes the router for extra routes such as health checks.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Hub returns the hub shared by the mounted feeds.
func (s *Server) Hub() *Hub { return s.hub }

// Mount serves feed at /views/<view>.
func (s *Server) Mount(feed MountedFeed) {
	s.engine.GET(ViewPathPrefix+feed.View(), gin.WrapH(feed))
}

// Name returns the component name.
func (s *Server) Name() string { return "sse" }

// Start binds the listen address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.engine}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.http.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get("sse").Error("server stopped", logger.ErrorFields("serve", err))
			s.mu.Lock()
			s.serveErr = err
			s.mu.Unlock()
		}
	}()
	return nil
}

// Stop disconnects all clients and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	s.hub.Stop()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Health returns the health status of the server.
func (s *Server) Health(_ context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := component.Health{
		Name:    s.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", s.hub.ClientCount()),
	}
	if s.serveErr != nil {
		h.Status = component.StatusUnhealthy
		h.Message = s.serveErr.Error()
	}
	return h
}

// Describe returns the startup summary line.
func (s *Server) Describe() component.Description {
	return component.Description{
		Name:    "SSE server",
		Type:    "server",
		Details: s.cfg.Addr,
	}
}

// Routes reports the routes registered on the engine.
func (s *Server) Routes() []component.Route {
	info := s.engine.Routes()
	routes := make([]component.Route, 0, len(info))
	for _, r := range info {
		routes = append(routes, component.Route{Method: r.Method, Path: r.Path, Handler: r.Handler})
	}
	return routes
}
