// Package health serves a small HTTP liveness endpoint so deployments
// behind systemd or a container orchestrator can probe the bot.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"raidbot/pkg/logx"
)

// Counter reports how many records the scheduler currently tracks.
type Counter interface {
	Counts() (timers int, reminders int)
}

type Config struct {
	Enabled bool
	Addr    string
}

type Server struct {
	log     logx.Logger
	cfg     Config
	counter Counter

	srv *http.Server
	ln  net.Listener
}

func New(cfg Config, counter Counter, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8090"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{log: log, cfg: cfg, counter: counter}
}

func (s *Server) Enabled() bool { return s.cfg.Enabled }

// Start binds the listener synchronously so address errors surface at
// startup, then serves in the background.
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("health server exited", logx.Err(err))
		}
	}()
	s.log.Info("health server listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	s.srv = nil
	s.ln = nil
	return err
}

// Addr returns the bound address, useful when Addr was ":0".
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("✅ bot is running\n"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Status    string `json:"status"`
		Timers    int    `json:"timers"`
		Reminders int    `json:"reminders"`
	}{Status: "ok"}
	if s.counter != nil {
		body.Timers, body.Reminders = s.counter.Counts()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
