// Package server exposes the command layer over local HTTP and streams
// library changes to WebSocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/reprodlocal/reprod/internal/app"
)

// DefaultAddr is the loopback address used when none is configured.
const DefaultAddr = "127.0.0.1:17380"

// MessageTypeHello is sent to each client right after it connects. Other
// messages carry an app.EventType.
const MessageTypeHello = "hello"

// Message is a WebSocket broadcast message.
type Message struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Config holds server configuration.
type Config struct {
	// Addr to listen on; port 0 picks a free port.
	Addr string

	Logger *zap.SugaredLogger
}

// Server serves the JSON API and the event stream.
type Server struct {
	svc      *app.Service
	addr     string
	listener net.Listener
	server   *http.Server
	log      *zap.SugaredLogger

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server over svc. It does not register itself as the
// service's publisher; Start does.
func New(svc *app.Service, config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	addr := config.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		svc:       svc,
		addr:      addr,
		log:       log,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	s.svc.SetPublisher(s)

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Infow("Server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorw("Server error", "error", err)
		}
	}()

	return nil
}

// Stop closes client connections and shuts the server down.
func (s *Server) Stop() error {
	s.log.Infow("Stopping server")
	s.svc.SetPublisher(nil)
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	s.registerAPI(mux)
	return mux
}

// Publish implements app.Publisher. It never blocks; events are dropped
// when the queue is full.
func (s *Server) Publish(e app.Event) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		s.log.Warnw("Failed to marshal event", "type", e.Type, "error", err)
		return
	}
	s.Broadcast(Message{Type: string(e.Type), Timestamp: e.Timestamp, Data: data})
}

// Broadcast queues a message for all connected clients.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.log.Warnw("Broadcast channel full, dropping message", "type", msg.Type)
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warnw("Failed to marshal message", "error", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.log.Debugw("Failed to send to client", "error", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.log.Debugw("WebSocket upgrade failed", "error", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.log.Infow("Client connected", "clients", count)

	hello, _ := json.Marshal(Message{
		Type:      MessageTypeHello,
		Timestamp: time.Now(),
		Data:      json.RawMessage(fmt.Sprintf(`{"clients":%d}`, count)),
	})
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, hello)
	cancel()

	go s.readLoop(conn)
}

// readLoop holds the connection open until the client leaves.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	count := len(s.clients)
	s.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.log.Infow("Client disconnected", "clients", count)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>reprod</title>
</head>
<body>
    <h1>reprod library server</h1>
    <p>Event stream: <code>ws://%s/ws</code></p>
    <p>Courses: <a href="/api/courses">/api/courses</a></p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

// GetAddr returns the listening address.
func (s *Server) GetAddr() string {
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
