package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/events"
	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/auth"
	"github.com/Eursukkul/rental-marketplace/pkg/presence"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock MessagingService ---

type mockMessaging struct {
	service.MessagingService
	canJoinFn  func(ctx context.Context, userID, conversationID uint) (bool, error)
	sendFn     func(ctx context.Context, actor models.Actor, conversationID uint, content string) (*models.Message, error)
	markConvFn func(ctx context.Context, actor models.Actor, conversationID uint) (*service.ReadReceipt, error)
}

func (m *mockMessaging) CanJoin(ctx context.Context, userID, conversationID uint) (bool, error) {
	return m.canJoinFn(ctx, userID, conversationID)
}
func (m *mockMessaging) SendMessage(ctx context.Context, actor models.Actor, conversationID uint, content string) (*models.Message, error) {
	return m.sendFn(ctx, actor, conversationID, content)
}
func (m *mockMessaging) MarkConversationRead(ctx context.Context, actor models.Actor, conversationID uint) (*service.ReadReceipt, error) {
	return m.markConvFn(ctx, actor, conversationID)
}

type capturePublisher struct {
	keys     []string
	payloads []any
}

func (p *capturePublisher) Publish(routingKey string, payload any) error {
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

// anyUser treats every token subject as an existing USER.
type anyUser struct{}

func (anyUser) FindByID(_ context.Context, id uint) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleUser}, nil
}

// --- Helpers ---

func startGateway(t *testing.T, svc service.MessagingService, store presence.Store) (*Hub, *auth.TokenManager, string) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", time.Hour, "rental-test")
	hub := NewHub(nil, store)
	e := echo.New()
	NewGateway(hub, middleware.NewAuthenticator(tokens, anyUser{}), svc, []string{"*"}).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/messaging"
}

func dial(t *testing.T, url string, tokens *auth.TokenManager, userID uint) *websocket.Conn {
	t.Helper()
	token, _, err := tokens.Issue(userID, string(models.RoleUser))
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// --- Tests ---

func TestServeWS_RejectsMissingToken(t *testing.T) {
	_, _, url := startGateway(t, &mockMessaging{}, nil)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_JoinRoomAndReceiveBroadcast(t *testing.T) {
	svc := &mockMessaging{
		canJoinFn: func(ctx context.Context, userID, conversationID uint) (bool, error) {
			return userID == 7 && conversationID == 3, nil
		},
	}
	hub, tokens, url := startGateway(t, svc, nil)
	conn := dial(t, url, tokens, 7)

	send(t, conn, EventJoinRoom, roomPayload{ConversationID: 3})
	env := read(t, conn)
	assert.Equal(t, EventJoinedRoom, env.Event)

	hub.Broadcast(3, service.EventNewMessage, map[string]any{"id": 11, "content": "hello"})
	env = read(t, conn)
	assert.Equal(t, service.EventNewMessage, env.Event)
	assert.JSONEq(t, `{"id":11,"content":"hello"}`, string(env.Data))
}

func TestServeWS_JoinRoomForbidden(t *testing.T) {
	svc := &mockMessaging{
		canJoinFn: func(ctx context.Context, userID, conversationID uint) (bool, error) {
			return false, nil
		},
	}
	_, tokens, url := startGateway(t, svc, nil)
	conn := dial(t, url, tokens, 7)

	send(t, conn, EventJoinRoom, roomPayload{ConversationID: 3})
	env := read(t, conn)
	assert.Equal(t, EventError, env.Event)

	var p errorPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, EventJoinRoom, p.Event)
	assert.Equal(t, service.ErrForbidden.Error(), p.Message)
}

func TestServeWS_CreateMessageUsesConnectionActor(t *testing.T) {
	got := make(chan models.Actor, 1)
	svc := &mockMessaging{
		sendFn: func(ctx context.Context, actor models.Actor, conversationID uint, content string) (*models.Message, error) {
			assert.Equal(t, uint(3), conversationID)
			assert.Equal(t, "hi there", content)
			got <- actor
			return &models.Message{ID: 1}, nil
		},
	}
	_, tokens, url := startGateway(t, svc, nil)
	conn := dial(t, url, tokens, 9)

	send(t, conn, EventCreateMessage, createMessagePayload{ConversationID: 3, Content: "hi there"})

	select {
	case actor := <-got:
		assert.Equal(t, uint(9), actor.UserID)
		assert.Equal(t, models.RoleUser, actor.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("SendMessage was not called")
	}
}

func TestServeWS_TypingRequiresRoom(t *testing.T) {
	_, tokens, url := startGateway(t, &mockMessaging{}, nil)
	conn := dial(t, url, tokens, 7)

	send(t, conn, EventTyping, typingPayload{ConversationID: 3, IsTyping: true})
	env := read(t, conn)
	assert.Equal(t, EventError, env.Event)
}

func TestServeWS_UnknownEvent(t *testing.T) {
	_, tokens, url := startGateway(t, &mockMessaging{}, nil)
	conn := dial(t, url, tokens, 7)

	send(t, conn, "dance", map[string]any{})
	env := read(t, conn)
	assert.Equal(t, EventError, env.Event)
}

func TestServeWS_TracksPresence(t *testing.T) {
	store := presence.NewMemoryStore()
	_, tokens, url := startGateway(t, &mockMessaging{}, store)
	conn := dial(t, url, tokens, 5)

	assert.Eventually(t, func() bool {
		online, _ := store.IsOnline(context.Background(), 5)
		return online
	}, 2*time.Second, 20*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool {
		online, _ := store.IsOnline(context.Background(), 5)
		return !online
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHub_BroadcastGoesThroughBackplane(t *testing.T) {
	pub := &capturePublisher{}
	hub := NewHub(pub, nil)
	c := &Client{id: "c1", userID: 1, hub: hub, send: make(chan []byte, 4), rooms: map[uint]struct{}{}}
	hub.clients[c.id] = c
	hub.join(c, 8)

	hub.Broadcast(8, service.EventMessageRead, map[string]int{"count": 2})

	require.Len(t, pub.keys, 1)
	assert.Equal(t, events.ChatRoutingKey(8), pub.keys[0])
	assert.Len(t, c.send, 0, "delivery waits for the backplane")

	body, err := json.Marshal(pub.payloads[0])
	require.NoError(t, err)
	hub.handleBackplane(amqp.Delivery{RoutingKey: pub.keys[0], Body: body})

	require.Len(t, c.send, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, service.EventMessageRead, env.Event)
	assert.JSONEq(t, `{"count":2}`, string(env.Data))
}

func TestHub_UnregisterLeavesRooms(t *testing.T) {
	hub := NewHub(nil, nil)
	c := &Client{id: "c1", userID: 1, hub: hub, send: make(chan []byte, 1), rooms: map[uint]struct{}{}}
	hub.register(c)
	hub.join(c, 2)

	uid, ok := hub.UserOf("c1")
	assert.True(t, ok)
	assert.Equal(t, uint(1), uid)

	hub.unregister(c)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Empty(t, hub.rooms)
	_, ok = hub.UserOf("c1")
	assert.False(t, ok)
}

func TestHub_EnqueueAfterUnregisterIsDropped(t *testing.T) {
	hub := NewHub(nil, nil)
	c := &Client{id: "c1", userID: 1, hub: hub, send: make(chan []byte, 1), rooms: map[uint]struct{}{}}
	hub.register(c)
	hub.unregister(c)

	assert.NotPanics(t, func() {
		assert.True(t, c.enqueue([]byte(`{"event":"newMessage"}`)))
	})
	// a second unregister is a no-op
	assert.NotPanics(t, func() { hub.unregister(c) })
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(nil, nil)
	c := &Client{id: "c1", userID: 1, hub: hub, send: make(chan []byte, 1), rooms: map[uint]struct{}{}}
	hub.register(c)
	hub.join(c, 5)

	hub.Broadcast(5, "newMessage", map[string]int{"n": 1})
	hub.Broadcast(5, "newMessage", map[string]int{"n": 2})

	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

type touchCounter struct {
	*presence.MemoryStore
	touched []uint
}

func (s *touchCounter) Touch(_ context.Context, userID uint) error {
	s.touched = append(s.touched, userID)
	return nil
}

func TestHub_TouchOnlyRegisteredClients(t *testing.T) {
	store := &touchCounter{MemoryStore: presence.NewMemoryStore()}
	hub := NewHub(nil, store)
	c := &Client{id: "c1", userID: 4, hub: hub, send: make(chan []byte, 1), rooms: map[uint]struct{}{}}
	hub.register(c)

	hub.touch(c)
	hub.unregister(c)
	hub.touch(c)

	assert.Equal(t, []uint{4}, store.touched)
}
