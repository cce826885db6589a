// Package gaze accepts eye-tracker targets over a WebSocket. Trackers send
// {"target":"<control id>"} whenever the fixated control changes and
// {"target":null} when the gaze leaves every control.
package gaze

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// Path is where trackers connect.
const Path = "/gaze"

const (
	readLimit    = 4096
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 5 * time.Second
)

// Targeter receives the fixated control id. An empty id clears it.
type Targeter interface {
	SetGazeTarget(id string)
}

// Message is one tracker update.
type Message struct {
	Target *string `json:"target"`
}

type errorReply struct {
	Error string `json:"error"`
}

// Option configures the Server.
type Option func(*Server)

// WithAllowedOrigins restricts browser origins. With none, only requests
// without an Origin header or from the same host are accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// Server is the gaze WebSocket endpoint. The most recent message from any
// tracker wins; a tracker disconnecting clears the target only if it set
// the current one.
type Server struct {
	targeter Targeter
	log      *logger.Logger
	addr     string
	origins  []string
	upgrader websocket.Upgrader
	srv      *http.Server
	running  atomic.Bool

	mu     sync.Mutex
	nextID uint64
	conns  map[*websocket.Conn]struct{}

	// targetMu orders owner changes with the targeter calls they cause.
	targetMu sync.Mutex
	owner    uint64
}

// NewServer creates a gaze server bound to addr (e.g. "127.0.0.1:7070").
func NewServer(addr string, targeter Targeter, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		targeter: targeter,
		log:      log,
		addr:     addr,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving the gaze endpoint and a health
// check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleGaze)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Start listens in the background until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.log.Info("gaze server listening on ws://%s%s", s.addr, Path)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("gaze server stopped: %v", err)
			s.running.Store(false)
			return
		}
		s.log.Info("gaze server stopped")
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Stop shuts the listener down, closes open trackers and clears the
// target.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("gaze server shutdown timeout"))
	defer cancel()

	err := s.srv.Shutdown(shutdownCtx)

	// Hijacked connections are not tracked by Shutdown.
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("gaze server graceful shutdown: %v", err)
		return s.srv.Close()
	}
	return nil
}

// Connections returns the number of connected trackers.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (s *Server) handleGaze(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("gaze upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.log.Info("gaze tracker %d connected from %s", id, r.RemoteAddr)

	done := make(chan struct{})
	go s.pingLoop(conn, done)

	defer func() {
		close(done)
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.release(id)
		s.log.Info("gaze tracker %d disconnected", id)
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("gaze tracker %d: %v", id, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug("gaze tracker %d sent bad message: %v", id, err)
			s.reply(conn, errorReply{Error: "expected {\"target\": string|null}"})
			continue
		}

		target := ""
		if msg.Target != nil {
			target = *msg.Target
		}
		s.log.Debug("gaze tracker %d -> %q", id, target)
		s.setTarget(id, target)
	}
}

// setTarget forwards a tracker's target and makes it the owner.
func (s *Server) setTarget(id uint64, target string) {
	s.targetMu.Lock()
	defer s.targetMu.Unlock()
	s.owner = id
	s.targeter.SetGazeTarget(target)
}

// release clears the target if tracker id set the live one.
func (s *Server) release(id uint64) {
	s.targetMu.Lock()
	defer s.targetMu.Unlock()
	if s.owner != id {
		return
	}
	s.owner = 0
	s.targeter.SetGazeTarget("")
}

func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	tick := time.NewTicker(pingInterval)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) reply(conn *websocket.Conn, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(v); err != nil {
		s.log.Debug("gaze reply failed: %v", err)
	}
}
