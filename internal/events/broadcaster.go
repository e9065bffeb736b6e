package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sashakarcz/passify/internal/logger"
)

// EventType represents the type of activity event
type EventType string

const (
	EventTypeConnection        EventType = "connection"
	EventTypePasswordGenerated EventType = "password_generated"
	EventTypeGenerationFailed  EventType = "generation_failed"
	EventTypeHistoryCleared    EventType = "history_cleared"
	EventTypeHistoryExported   EventType = "history_exported"
	EventTypeHistoryArchived   EventType = "history_archived"
)

// ActivityEvent represents a single activity log event
type ActivityEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Client represents an SSE client connection
type Client struct {
	ID      string
	Channel chan *ActivityEvent
}

// Broadcaster fans activity events out to SSE clients
type Broadcaster struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *ActivityEvent
	done       chan struct{}
	mu         sync.RWMutex
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ActivityEvent, 100),
		done:       make(chan struct{}),
	}
}

// Start runs the fan-out loop until ctx is cancelled
func (b *Broadcaster) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case <-ctx.Done():
				b.mu.Lock()
				for _, client := range b.clients {
					close(client.Channel)
				}
				b.clients = make(map[string]*Client)
				b.mu.Unlock()
				return

			case client := <-b.register:
				b.mu.Lock()
				b.clients[client.ID] = client
				total := len(b.clients)
				b.mu.Unlock()
				logger.Debug().
					Str("client_id", client.ID).
					Int("total_clients", total).
					Msg("SSE client connected")

			case client := <-b.unregister:
				b.mu.Lock()
				if _, ok := b.clients[client.ID]; ok {
					close(client.Channel)
					delete(b.clients, client.ID)
				}
				total := len(b.clients)
				b.mu.Unlock()
				logger.Debug().
					Str("client_id", client.ID).
					Int("total_clients", total).
					Msg("SSE client disconnected")

			case event := <-b.broadcast:
				b.mu.RLock()
				for _, client := range b.clients {
					select {
					case client.Channel <- event:
					default:
						logger.Warn().
							Str("client_id", client.ID).
							Msg("Client channel full, skipping event")
					}
				}
				b.mu.RUnlock()
			}
		}
	}()
}

// Register registers a new SSE client. It returns nil once the broadcaster
// has stopped.
func (b *Broadcaster) Register(clientID string) *Client {
	client := &Client{
		ID:      clientID,
		Channel: make(chan *ActivityEvent, 10),
	}
	select {
	case b.register <- client:
		return client
	case <-b.done:
		return nil
	}
}

// Unregister unregisters an SSE client
func (b *Broadcaster) Unregister(client *Client) {
	if client == nil {
		return
	}
	select {
	case b.unregister <- client:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all connected clients
func (b *Broadcaster) Broadcast(event *ActivityEvent) {
	select {
	case b.broadcast <- event:
	default:
		logger.Warn().Msg("Broadcast channel full, dropping event")
	}
}

// Publish builds an event of the given type and broadcasts it
func (b *Broadcaster) Publish(eventType EventType, message string, details map[string]interface{}) *ActivityEvent {
	event := &ActivityEvent{
		ID:        "evt-" + uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Message:   message,
		Details:   details,
	}

	b.Broadcast(event)
	return event
}

// PublishGenerated announces a generated password by its length only
func (b *Broadcaster) PublishGenerated(length int, strength string) {
	b.Publish(EventTypePasswordGenerated,
		fmt.Sprintf("Generated a %d character password", length),
		map[string]interface{}{
			"length":   length,
			"strength": strength,
		})
}

// FormatSSE formats an event as SSE message
func FormatSSE(event *ActivityEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)), nil
}
