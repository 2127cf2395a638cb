package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/events"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/presence"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Hub tracks live connections and the conversation rooms they joined.
// With a publisher set, broadcasts travel through the broker so that every
// instance (this one included) delivers them to its own sockets.
type Hub struct {
	instanceID string
	publisher  service.Publisher
	presence   presence.Store

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[uint]map[string]*Client
}

func NewHub(publisher service.Publisher, presenceStore presence.Store) *Hub {
	if presenceStore == nil {
		presenceStore = presence.NewMemoryStore()
	}
	return &Hub{
		instanceID: uuid.NewString(),
		publisher:  publisher,
		presence:   presenceStore,
		clients:    make(map[string]*Client),
		rooms:      make(map[uint]map[string]*Client),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.presence.Connect(ctx, c.userID, c.id); err != nil {
		logger.Log.WithError(err).WithField("user_id", c.userID).Warn("Failed to record presence")
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	c.closed = true
	close(c.send)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.presence.Disconnect(ctx, c.userID, c.id); err != nil {
		logger.Log.WithError(err).WithField("user_id", c.userID).Warn("Failed to clear presence")
	}
}

// touch refreshes presence for a connection that is still registered.
func (h *Hub) touch(c *Client) {
	h.mu.RLock()
	_, ok := h.clients[c.id]
	h.mu.RUnlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.presence.Touch(ctx, c.userID); err != nil {
		logger.Log.WithError(err).WithField("user_id", c.userID).Warn("Failed to refresh presence")
	}
}

func (h *Hub) join(c *Client, room uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, room)
}

// removeFromRoom expects h.mu to be held.
func (h *Hub) removeFromRoom(c *Client, room uint) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) inRoom(c *Client, room uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

// UserOf maps a connection id to its user.
func (h *Hub) UserOf(connID string) (uint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return 0, false
	}
	return c.userID, true
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to a conversation room on every instance.
func (h *Hub) Broadcast(conversationID uint, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Log.WithError(err).WithField("event", event).Error("Failed to marshal broadcast")
		return
	}

	if h.publisher != nil {
		err := h.publisher.Publish(events.ChatRoutingKey(conversationID), events.ChatEvent{
			Origin:         h.instanceID,
			ConversationID: conversationID,
			Event:          event,
			Data:           payload,
		})
		if err == nil {
			return
		}
		logger.Log.WithError(err).WithField("conversation_id", conversationID).Warn("Backplane publish failed, delivering locally")
	}
	h.deliver(conversationID, event, payload)
}

func (h *Hub) deliver(room uint, event string, data json.RawMessage) {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(frame) {
			logger.Log.WithField("conn_id", c.id).Warn("Dropping slow socket connection")
			go h.unregister(c)
		}
	}
}

// ConsumeBackplane delivers room broadcasts received from the broker.
func (h *Hub) ConsumeBackplane(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			h.handleBackplane(msg)
		}
		logger.Log.Info("[Gateway] backplane channel closed")
	}()
}

func (h *Hub) handleBackplane(msg amqp.Delivery) {
	var ev events.ChatEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		logger.Log.WithError(err).Warn("[Gateway] dropping malformed backplane message")
		msg.Nack(false, false)
		return
	}
	if ev.ConversationID == 0 {
		if id, ok := events.ConversationFromRoutingKey(msg.RoutingKey); ok {
			ev.ConversationID = id
		}
	}
	h.deliver(ev.ConversationID, ev.Event, ev.Data)
	msg.Ack(false)
}
