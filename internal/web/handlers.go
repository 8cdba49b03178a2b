package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/cjeanneret/TorchGo/internal/hw/flash"
	"github.com/cjeanneret/TorchGo/internal/lifecycle"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Controls is what the HTTP surface drives. *lifecycle.Binder implements it.
type Controls interface {
	Toggle() error
	SetStrobeEnabled(enabled bool) error
	OnForeground(ctx context.Context) error
	OnBackground() error
	Snapshot() lifecycle.Snapshot
}

// StrobeRequest is the body of POST /strobe.
type StrobeRequest struct {
	Enabled *bool `json:"enabled"`
}

// Response is returned by every action endpoint.
type Response struct {
	Snapshot *lifecycle.Snapshot `json:"snapshot,omitempty"`
	Error    string              `json:"error,omitempty"`
	Dialog   *lifecycle.Dialog   `json:"dialog,omitempty"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Controls    Controls
	// Incompatible is served instead of any state when the capability
	// check failed and no Controls exist.
	Incompatible *lifecycle.Dialog
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If controls is nil, every endpoint but the page returns 503 with the
// incompatibility dialog.
func NewHandlers(broadcaster *StatusBroadcaster, controls Controls, incompatible *lifecycle.Dialog, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Controls:     controls,
		Incompatible: incompatible,
		staticFS:     staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleState returns the current snapshot.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	snap := h.Controls.Snapshot()
	writeJSON(w, http.StatusOK, Response{Snapshot: &snap})
}

// HandleToggle handles POST /toggle.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.available(w) {
		return
	}
	h.respond(w, h.Controls.Toggle())
}

// HandleStrobe handles POST /strobe with {"enabled": bool}.
func (h *Handlers) HandleStrobe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req StrobeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Enabled == nil {
		http.Error(w, "enabled is required", http.StatusBadRequest)
		return
	}
	if !h.available(w) {
		return
	}
	h.respond(w, h.Controls.SetStrobeEnabled(*req.Enabled))
}

// HandleForeground handles POST /lifecycle/foreground.
func (h *Handlers) HandleForeground(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	h.respond(w, h.Controls.OnForeground(ctx))
}

// HandleBackground handles POST /lifecycle/background.
func (h *Handlers) HandleBackground(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	h.respond(w, h.Controls.OnBackground())
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// available writes the incompatibility response when there are no controls.
func (h *Handlers) available(w http.ResponseWriter) bool {
	if h.Controls != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, Response{
		Error:  flash.ErrHardwareAbsent.Error(),
		Dialog: h.Incompatible,
	})
	return false
}

// respond writes the snapshot after an action, with a status derived from err.
func (h *Handlers) respond(w http.ResponseWriter, err error) {
	snap := h.Controls.Snapshot()
	resp := Response{Snapshot: &snap}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, flash.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, flash.ErrUnavailable):
		return http.StatusConflict
	case errors.Is(err, flash.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
