package api

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// allRuns is the subscription key of clients that follow every run
const allRuns = "*"

// SSEClient represents a connected SSE client
type SSEClient struct {
	RunID   string
	Channel chan RunEvent
}

// RunEvent is one progress message of a pipeline run
type RunEvent struct {
	RunID     string                 `json:"run_id"`
	EventType string                 `json:"event_type"`
	Study     string                 `json:"study,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Progress  float64                `json:"progress"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SSEHub fans run events out to Server-Sent Events clients
type SSEHub struct {
	clients    map[string]map[chan RunEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan RunEvent
	done       chan struct{}
	keepAlive  time.Duration
}

// NewSSEHub creates a hub and starts its loop; Close stops it
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:    make(map[string]map[chan RunEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan RunEvent, 100),
		done:       make(chan struct{}),
		keepAlive:  30 * time.Second,
	}

	go hub.run()
	return hub
}

// Close stops the hub loop
func (h *SSEHub) Close() {
	close(h.done)
}

func (h *SSEHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.RunID] == nil {
				h.clients[client.RunID] = make(map[chan RunEvent]bool)
			}
			h.clients[client.RunID][client.Channel] = true
			log.Debug().Str("run_id", client.RunID).Int("clients", len(h.clients[client.RunID])).Msg("sse client registered")
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.RunID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				if len(clients) == 0 {
					delete(h.clients, client.RunID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for _, key := range []string{event.RunID, allRuns} {
				for clientChan := range h.clients[key] {
					select {
					case clientChan <- event:
					default:
						log.Warn().Str("run_id", event.RunID).Msg("sse client channel full, skipping event")
					}
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast queues an event without blocking
func (h *SSEHub) Broadcast(event RunEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Warn().Str("event_type", event.EventType).Msg("sse broadcast channel full, dropping event")
	}
}

// Subscribe registers a client channel for one run, or every run when runID
// is empty. The returned function unregisters it.
func (h *SSEHub) Subscribe(runID string) (<-chan RunEvent, func()) {
	if runID == "" {
		runID = allRuns
	}
	client := SSEClient{RunID: runID, Channel: make(chan RunEvent, 10)}
	h.register <- client
	return client.Channel, func() { h.unregister <- client }
}

// HandleSSE streams run events. The optional run_id query parameter limits
// the stream to one run.
func (h *SSEHub) HandleSSE(c *gin.Context) {
	events, cancel := h.Subscribe(c.Query("run_id"))
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal run event")
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			return true

		case <-time.After(h.keepAlive):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// ClientCount returns the number of clients following runID ("" for all-run clients)
func (h *SSEHub) ClientCount(runID string) int {
	if runID == "" {
		runID = allRuns
	}
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[runID])
}
