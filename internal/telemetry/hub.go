// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins for local dashboards
	},
}

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// Status is the live view of the lock.
type Status struct {
	State        lock.State     `json:"state"`
	Since        time.Time      `json:"since"`
	Decisions    int            `json:"decisions"`
	Unlocks      int            `json:"unlocks"`
	LastDecision *lock.Decision `json:"last_decision,omitempty"`
}

// Message is one WebSocket frame: "status", "transition" or "decision".
type Message struct {
	Type       string         `json:"type"`
	Status     *Status        `json:"status,omitempty"`
	Transition *StateEvent    `json:"transition,omitempty"`
	Decision   *lock.Decision `json:"decision,omitempty"`
}

// Hub tracks the lock status and pushes every change to connected
// WebSocket clients. Slow clients miss messages rather than stall the
// state machine.
type Hub struct {
	mu      sync.Mutex
	status  Status
	clients map[chan Message]struct{}
}

// NewHub starts in Idle.
func NewHub() *Hub {
	return &Hub{
		status:  Status{State: lock.Idle, Since: time.Now().UTC()},
		clients: make(map[chan Message]struct{}),
	}
}

// Status returns a snapshot.
func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.status
	if st.LastDecision != nil {
		d := *st.LastDecision
		st.LastDecision = &d
	}
	return st
}

func (h *Hub) OnTransition(from, to lock.State) {
	ev := StateEvent{From: from, To: to, At: time.Now().UTC()}
	h.mu.Lock()
	h.status.State = to
	h.status.Since = ev.At
	h.mu.Unlock()
	h.broadcast(Message{Type: "transition", Transition: &ev})
}

func (h *Hub) OnDecision(d lock.Decision) {
	h.mu.Lock()
	h.status.Decisions++
	if d.Unlocked {
		h.status.Unlocks++
	}
	last := d
	h.status.LastDecision = &last
	h.mu.Unlock()
	h.broadcast(Message{Type: "decision", Decision: &d})
}

func (h *Hub) broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- m:
		default:
		}
	}
}

func (h *Hub) subscribe() chan Message {
	ch := make(chan Message, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Message) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// Clients is the number of connected WebSocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request, sends the current status and then streams
// every transition and decision.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	st := h.Status()
	if err := conn.WriteJSON(Message{Type: "status", Status: &st}); err != nil {
		return
	}

	// reads only detect the close; clients never send anything
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case m := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
	}
}
