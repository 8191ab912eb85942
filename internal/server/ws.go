package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/detector"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// DetectionsHandler broadcasts detection results via WebSocket.
//
// The pipeline may produce results faster than clients want them, so the
// handler keeps only the latest result and fans it out on a fixed tick
// (~15 messages/s) instead of forwarding every frame.
type DetectionsHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	pending chan detector.DetectionResult
}

// NewDetectionsHandler creates a DetectionsHandler subscribed to the
// app's result stream.
func NewDetectionsHandler(a *app.App) *DetectionsHandler {
	h := &DetectionsHandler{
		clients: make(map[*websocket.Conn]bool),
		pending: make(chan detector.DetectionResult, 1),
	}

	// Keep only the most recent result; the pipeline must never block
	// on a slow client.
	a.OnResult(func(result detector.DetectionResult) {
		select {
		case h.pending <- result:
		default:
			select {
			case <-h.pending:
			default:
			}
			select {
			case h.pending <- result:
			default:
			}
		}
	})

	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DetectionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends the latest detection result to all connected clients.
func (h *DetectionsHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 messages/s
	defer ticker.Stop()

	for range ticker.C {
		var result detector.DetectionResult
		select {
		case result = <-h.pending:
		default:
			continue
		}

		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}

		msg, _ := json.Marshal(map[string]any{
			"detections": result.PerClass,
			"region":     result.Region,
			"timestamp":  result.Timestamp,
		})

		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
