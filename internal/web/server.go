// Package web serves the fleet snapshot over HTTP.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/status"
)

// Refresher is the snapshot source behind the HTTP handlers.
type Refresher interface {
	// EnsureFresh returns the current snapshot, refreshing first if stale.
	EnsureFresh(ctx context.Context) *status.Snapshot
	// RefreshOnce forces a refresh, joining one already in flight.
	RefreshOnce(ctx context.Context) *status.Snapshot
}

// Server serves the status API and page over HTTP.
type Server struct {
	httpServer *http.Server
	refresher  Refresher
	started    time.Time
	now        func() time.Time
}

// New creates a Server that reads snapshots from refresher.
func New(addr string, refresher Refresher, started time.Time) *Server {
	s := &Server{
		refresher: refresher,
		started:   started,
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleStatus)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.refresher.EnsureFresh(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.started, s.now())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}

	snap := s.refresher.EnsureFresh(r.Context())
	etag := status.ETag(snap)

	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-cache")
	setSnapshotHeaders(h, snap)

	if status.MatchETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	snap := s.refresher.RefreshOnce(r.Context())
	setSnapshotHeaders(w.Header(), snap)
	writeJSON(w, http.StatusOK, newRefreshJSON(snap))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func setSnapshotHeaders(h http.Header, snap *status.Snapshot) {
	if snap == nil {
		h.Set("X-Snapshot-Stale", "true")
		h.Set("X-Snapshot-Version", "0")
		return
	}
	h.Set("X-Snapshot-Stale", strconv.FormatBool(snap.Meta.Stale))
	h.Set("X-Snapshot-Version", strconv.FormatUint(snap.Meta.Version, 10))
	if !snap.Meta.LastSuccess.IsZero() {
		h.Set("X-Last-Success", snap.Meta.LastSuccess.UTC().Format(time.RFC3339))
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, errorJSON{Error: "method not allowed"})
}
