// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

const (
	defaultAttemptLimit = 20
	maxAttemptLimit     = 1000
)

// History lists past decisions, newest first.
type History interface {
	Recent(limit int) ([]lock.Decision, error)
}

// NewRouter wires the HTTP surface:
//   - /metrics       Prometheus scrape endpoint
//   - /ws            live status stream
//   - /api/status    current status snapshot
//   - /api/attempts  audited decisions, ?limit=N
//
// history may be nil, in which case /api/attempts answers 503.
func NewRouter(hub *Hub, metrics *Metrics, history History) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", hub.ServeWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Status())
	}).Methods(http.MethodGet)
	api.HandleFunc("/attempts", func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			http.Error(w, "audit log disabled", http.StatusServiceUnavailable)
			return
		}
		limit := defaultAttemptLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > maxAttemptLimit {
				http.Error(w, fmt.Sprintf("limit must be between 1 and %d", maxAttemptLimit), http.StatusBadRequest)
				return
			}
			limit = n
		}
		attempts, err := history.Recent(limit)
		if err != nil {
			log.Printf("web: attempts query: %v", err)
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		if attempts == nil {
			attempts = []lock.Decision{}
		}
		writeJSON(w, http.StatusOK, attempts)
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// Serve runs the HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("web: server listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web: shutdown: %w", err)
		}
		return nil
	}
}
