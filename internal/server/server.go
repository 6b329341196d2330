// Package server exposes the synchronizer to UI consumers over HTTP and
// WebSocket.
//
// Connected WebSocket clients receive full collection snapshots: every
// cached snapshot on connect, then a fresh one whenever a collection
// changes. Writes come in over REST and are routed through the
// synchronizer, so the UI never touches an adapter directly.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

// Message is one WebSocket frame pushed to clients. Records always carry
// the complete collection, never a delta.
type Message struct {
	Type       string         `json:"type"` // snapshot
	Collection string         `json:"collection"`
	Records    []model.Fields `json:"records"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (default: 8080).
	Port int

	// AllowedOrigins for CORS and WebSocket upgrades.
	AllowedOrigins []string

	// Logger for server activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: []string{"*"},
		Logger:         log.New(os.Stderr, "[server] ", log.LstdFlags),
	}
}

// Server owns the WebSocket client set and the snapshot cache.
type Server struct {
	sync *syncer.Synchronizer
	id   identity.Identity
	cfg  *Config

	addr     string
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	snapshots   map[string][]model.Fields
	snapshotsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Server routing writes through sc under id.
func New(sc *syncer.Synchronizer, id identity.Identity, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[server] ", log.LstdFlags)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		sync:      sc,
		id:        id,
		cfg:       cfg,
		addr:      fmt.Sprintf(":%d", cfg.Port),
		clients:   make(map[*websocket.Conn]bool),
		snapshots: make(map[string][]model.Fields),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OnSnapshot caches a collection's latest snapshot and queues it for
// broadcast. Wire it as the multiplexer callback.
func (s *Server) OnSnapshot(collection string, records []model.Fields) {
	s.snapshotsMu.Lock()
	s.snapshots[collection] = records
	s.snapshotsMu.Unlock()

	msg := Message{
		Type:       "snapshot",
		Collection: collection,
		Records:    records,
		Timestamp:  time.Now(),
	}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.cfg.Logger.Println("Warning: broadcast channel full, dropping snapshot")
	}
}

// Start begins serving. Non-blocking; use Stop to shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cfg.Logger.Printf("Listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.cfg.Logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server and disconnects all clients.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// broadcastLoop fans queued messages out to every connected client.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				s.cfg.Logger.Printf("Failed to marshal snapshot: %v", err)
				continue
			}

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.cfg.Logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) addClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.cfg.Logger.Printf("Client connected (total: %d)", count)
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		count := len(s.clients)
		s.clientsMu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.cfg.Logger.Printf("Client disconnected (total: %d)", count)
		return
	}
	s.clientsMu.Unlock()
}
