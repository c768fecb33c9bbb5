package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	wsPushInterval = 100 * time.Millisecond
	commandTimeout = time.Second
)

// commandSubmitter is implemented by *Loop.
type commandSubmitter interface {
	Submit(cmd Command) <-chan error
}

// WSResponse is sent to dashboard clients.
type WSResponse struct {
	Type     string    `json:"type"` // hello, snapshot, ack, error
	Session  string    `json:"session,omitempty"`
	Action   string    `json:"action,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// WebServer serves the operator dashboard: the latest snapshot over
// HTTP and a websocket that streams snapshots and accepts commands.
type WebServer struct {
	port  int
	loop  commandSubmitter
	push  time.Duration
	mu    sync.RWMutex
	last  Snapshot
	ready bool
}

// NewWebServer returns a server bound to port once ListenAndServe runs.
func NewWebServer(port int, loop commandSubmitter) *WebServer {
	return &WebServer{port: port, loop: loop, push: wsPushInterval}
}

// Observe is a loop Observer; it only stores the snapshot.
func (w *WebServer) Observe(s Snapshot) {
	w.mu.Lock()
	w.last = s
	w.ready = true
	w.mu.Unlock()
}

func (w *WebServer) latest() (Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.ready
}

// Handler returns the HTTP routes.
func (w *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// JSON API endpoint: latest snapshot
	mux.HandleFunc("/api/status", func(rw http.ResponseWriter, r *http.Request) {
		snap, ok := w.latest()
		if !ok {
			http.Error(rw, "no data yet", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(snap); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", w.handleWS)

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// ListenAndServe runs until ctx is cancelled.
func (w *WebServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", w.port),
		Handler:           w.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// dashboardSession is one websocket client.
type dashboardSession struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *dashboardSession) send(resp WSResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(resp)
}

func (w *WebServer) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := &dashboardSession{id: uuid.NewString(), conn: conn}
	log.Printf("web: session %s connected", session.id)
	if err := session.send(WSResponse{Type: "hello", Session: session.id}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go w.pushSnapshots(session, done)

	// Main message loop
	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			log.Printf("web: session %s closed: %v", session.id, err)
			return
		}

		resp := WSResponse{Type: "ack", Action: cmd.Action}
		if err := w.submit(cmd); err != nil {
			resp = WSResponse{Type: "error", Action: cmd.Action, Message: err.Error()}
		}
		if err := session.send(resp); err != nil {
			return
		}
	}
}

func (w *WebServer) submit(cmd Command) error {
	select {
	case err := <-w.loop.Submit(cmd):
		return err
	case <-time.After(commandTimeout):
		return fmt.Errorf("command %q timed out", cmd.Action)
	}
}

func (w *WebServer) pushSnapshots(s *dashboardSession, done <-chan struct{}) {
	ticker := time.NewTicker(w.push)
	defer ticker.Stop()

	var lastSent time.Time
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap, ok := w.latest()
			if !ok || !snap.Time.After(lastSent) {
				continue
			}
			lastSent = snap.Time
			if err := s.send(WSResponse{Type: "snapshot", Snapshot: &snap}); err != nil {
				return
			}
		}
	}
}
