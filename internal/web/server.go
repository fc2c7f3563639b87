// Package web serves the navigator's admin HTTP surface: a status snapshot,
// recent logs and the waypoint-editing endpoints.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wpnav/internal/waypoint"
)

// WaypointEditor is the subset of waypoint.Store exposed over HTTP.
// Handlers only decode the body; argument checks belong to the editor.
type WaypointEditor interface {
	AddWaypoint(components []float64) error
	RemoveWaypoint(index int) error
	SetFromFile(path string) error
}

type apiResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func writeResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, apiResult{OK: true})
	case errors.Is(err, waypoint.ErrNotImplemented):
		writeJSON(w, http.StatusNotImplemented, apiResult{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, apiResult{Error: err.Error()})
	}
}

func postOnly(next func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// Handler builds the admin mux. logs and editor may be nil.
func Handler(status *Status, editor WaypointEditor, logs *LogBuffer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, status.Snapshot(time.Now().UTC()))
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/api/waypoints/add", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Waypoint []float64 `json:"waypoint"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResult{Error: "invalid json: " + err.Error()})
			return
		}
		writeResult(w, editorOrNil(editor).AddWaypoint(req.Waypoint))
	}))

	mux.HandleFunc("/api/waypoints/remove", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Index *int `json:"index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResult{Error: "invalid json: " + err.Error()})
			return
		}
		index := -1
		if req.Index != nil {
			index = *req.Index
		}
		writeResult(w, editorOrNil(editor).RemoveWaypoint(index))
	}))

	mux.HandleFunc("/api/waypoints/load", postOnly(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResult{Error: "invalid json: " + err.Error()})
			return
		}
		writeResult(w, editorOrNil(editor).SetFromFile(req.Path))
	}))

	return mux
}

type noEditor struct{}

func (noEditor) AddWaypoint([]float64) error { return waypoint.ErrNotImplemented }
func (noEditor) RemoveWaypoint(int) error    { return waypoint.ErrNotImplemented }
func (noEditor) SetFromFile(string) error    { return waypoint.ErrNotImplemented }

func editorOrNil(e WaypointEditor) WaypointEditor {
	if e == nil {
		return noEditor{}
	}
	return e
}

// Serve runs the admin server until ctx is done.
func Serve(ctx context.Context, listenAddr string, h http.Handler, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("web listen=%s", listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
