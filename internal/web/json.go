package web

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/status"
)

// RefreshJSON is the response to a manual refresh.
type RefreshJSON struct {
	Timestamp string `json:"timestamp"`
	Stale     bool   `json:"stale"`
	Version   uint64 `json:"version"`
	LastError string `json:"last_error,omitempty"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func newRefreshJSON(snap *status.Snapshot) RefreshJSON {
	if snap == nil {
		return RefreshJSON{Stale: true}
	}
	rj := RefreshJSON{
		Stale:     snap.Meta.Stale,
		Version:   snap.Meta.Version,
		LastError: snap.Meta.LastError,
	}
	if !snap.Meta.Timestamp.IsZero() {
		rj.Timestamp = snap.Meta.Timestamp.UTC().Format(time.RFC3339)
	}
	return rj
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("web: encode response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
