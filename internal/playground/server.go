// Package playground serves youth sessions over websockets. Each connection
// owns one interpreter session, so globals persist between its messages.
package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"youth/internal/config"
	"youth/internal/history"
	"youth/internal/runner"
)

// Request is a client frame.
type Request struct {
	Source string `json:"source"`
}

// Response is a server frame. Error is set for protocol problems, in which
// case nothing ran.
type Response struct {
	Session         string   `json:"session"`
	Output          []string `json:"output"`
	Errors          []string `json:"errors"`
	HadStaticError  bool     `json:"had_static_error"`
	HadRuntimeError bool     `json:"had_runtime_error"`
	Error           string   `json:"error,omitempty"`
}

type Server struct {
	cfg      config.ServeConfig
	logger   logrus.FieldLogger
	recorder history.Recorder
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id      string
	conn    *websocket.Conn
	session *runner.Session
	mu      sync.Mutex
}

type Option func(*Server)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRecorder records every run the playground executes.
func WithRecorder(r history.Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

func NewServer(cfg config.ServeConfig, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logrus.StandardLogger(),
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes GET /run (websocket) and GET /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /run", s.handleRun)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Clients returns the number of open connections.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ListenAndServe serves on the configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.WithField("addr", s.cfg.Addr).Info("playground listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.Clients(),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	// frames may carry JSON escaping overhead on top of the source itself
	conn.SetReadLimit(int64(s.cfg.MaxSourceBytes)*2 + 1024)

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		session: runner.NewSession(runner.WithLogger(s.logger)),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{"session": c.id, "remote": r.RemoteAddr})
	log.Info("client connected")
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		conn.Close()
		log.Info("client disconnected")
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("read failed")
			}
			return
		}

		resp := s.execute(r.Context(), c, req)
		if err := c.write(resp); err != nil {
			log.WithError(err).Warn("write failed")
			return
		}
	}
}

func (s *Server) execute(ctx context.Context, c *client, req Request) Response {
	resp := Response{Session: c.id, Output: []string{}, Errors: []string{}}
	if len(req.Source) > s.cfg.MaxSourceBytes {
		resp.Error = fmt.Sprintf("source is %d bytes, limit is %d", len(req.Source), s.cfg.MaxSourceBytes)
		return resp
	}

	result := c.session.Run(req.Source)
	if result.Output != nil {
		resp.Output = result.Output
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	resp.HadStaticError = result.HadStaticError
	resp.HadRuntimeError = result.HadRuntimeError

	if s.recorder != nil {
		if _, err := s.recorder.Record(ctx, history.NewEntry("playground", req.Source, result)); err != nil {
			s.logger.WithError(err).WithField("session", c.id).Warn("failed to record playground run")
		}
	}
	return resp
}

func (c *client) write(resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(resp)
}

func (s *Server) closeAll() {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
		c.mu.Unlock()
	}
}
