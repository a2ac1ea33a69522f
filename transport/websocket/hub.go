package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const clientSendBuffer = 16

type client struct {
	sessionID string
	send      chan []byte
	closed    bool
}

// Hub fans session updates out to every connection subscribed to that session.
type Hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]map[*client]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger.With("component", "hub"),
		sessions: make(map[string]map[*client]struct{}),
	}
}

// Publish sends a game:update to the session's subscribers. Slow clients miss updates rather than block the caller.
func (that *Hub) Publish(session entity.Session) {
	snapshot := session.Snapshot()

	data, err := encodeMessage(actionGameUpdate, ResponsePayload{Session: &snapshot})
	if err != nil {
		that.logger.Error("failed to encode update", "session", session.ID, "error", err)
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	for c := range that.sessions[session.ID] {
		select {
		case c.send <- data:
		default:
			that.logger.Warn("client send buffer full, update dropped", "session", session.ID)
		}
	}
}

// Subscribers returns how many connections follow the session.
func (that *Hub) Subscribers(sessionID string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.sessions[sessionID])
}

func (that *Hub) subscribe(c *client, sessionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.detach(c)

	subscribers, ok := that.sessions[sessionID]
	if !ok {
		subscribers = make(map[*client]struct{})
		that.sessions[sessionID] = subscribers
	}

	subscribers[c] = struct{}{}
	c.sessionID = sessionID
}

// reply queues data for c unless it has already been closed.
func (that *Hub) reply(c *client, data []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		that.logger.Warn("client send buffer full, reply dropped", "session", c.sessionID)
	}
}

func (that *Hub) unregister(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if c.closed {
		return
	}

	that.detach(c)
	c.closed = true
	close(c.send)
}

func (that *Hub) detach(c *client) {
	if c.sessionID == "" {
		return
	}

	subscribers := that.sessions[c.sessionID]
	delete(subscribers, c)

	if len(subscribers) == 0 {
		delete(that.sessions, c.sessionID)
	}

	c.sessionID = ""
}
