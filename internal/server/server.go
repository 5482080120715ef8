package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/store"
)

// DefaultPath is where the WebSocket feed is served
const DefaultPath = "/feed"

// Config holds the feed server configuration
type Config struct {
	Listen   string // host:port; ":0" picks a free port
	Path     string // feed path, DefaultPath if empty
	CertPath string // optional; enables TLS together with KeyPath
	KeyPath  string

	// AllowedOrigins lists browser origins (scheme://host[:port]) allowed to
	// subscribe besides the feed's own host. "*" allows any origin.
	// Clients that send no Origin header are always accepted.
	AllowedOrigins []string
}

// Server serves the live measurement feed
type Server struct {
	config     Config
	store      store.Store
	hub        *Hub
	upgrader   websocket.Upgrader
	tlsConfig  *tls.Config
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a feed server reading history from st
func New(config Config, st store.Store) (*Server, error) {
	if st == nil {
		return nil, errors.New("server requires a store")
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:    config,
		store:     st,
		hub:       NewHub(),
		tlsConfig: tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	return s, nil
}

// Hub returns the hub feed events are published to
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler for all feed routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleFeed)
	mux.HandleFunc("/measurements", s.handleMeasurements)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start listens and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("Feed server listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.config.Path),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Feed server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Start
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Shutdown disconnects feed clients and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down feed server", zap.Int("clients", s.hub.Len()))

	s.hub.Close()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
	return err
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := newClient(conn)
	if !s.hub.add(c) {
		_ = conn.Close()
		return
	}
	logging.Info("Feed client connected",
		zap.String("remote_addr", c.remote),
		zap.Int("clients", s.hub.Len()),
	)

	go c.writePump()
	c.readPump()

	s.hub.remove(c)
	logging.Info("Feed client disconnected", zap.String("remote_addr", c.remote))
}

// checkOrigin accepts non-browser clients, same-host pages and configured origins
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	logging.Warn("Rejected feed subscription from foreign origin",
		zap.String("origin", origin),
		zap.String("remote_addr", r.RemoteAddr),
	)
	return false
}
