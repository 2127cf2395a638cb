package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/middleware"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Client events.
const (
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventCreateMessage = "createMessage"
	EventMarkRead      = "markRead"
	EventTyping        = "typing"
)

// Server events not produced by the messaging service.
const (
	EventJoinedRoom = "joinedRoom"
	EventLeftRoom   = "leftRoom"
	EventError      = "error"
)

const eventTimeout = 10 * time.Second

type roomPayload struct {
	ConversationID uint `json:"conversation_id"`
}

type createMessagePayload struct {
	ConversationID uint   `json:"conversation_id"`
	Content        string `json:"content"`
}

type markReadPayload struct {
	ConversationID uint `json:"conversation_id"`
	MessageID      uint `json:"message_id,omitempty"`
}

type typingPayload struct {
	ConversationID uint `json:"conversation_id"`
	UserID         uint `json:"user_id"`
	IsTyping       bool `json:"is_typing"`
}

type errorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

// Gateway upgrades authenticated requests and routes socket events to the
// messaging service.
type Gateway struct {
	hub       *Hub
	authn     *middleware.Authenticator
	messaging service.MessagingService
	upgrader  websocket.Upgrader
}

func NewGateway(hub *Hub, authn *middleware.Authenticator, messaging service.MessagingService, allowedOrigins []string) *Gateway {
	return &Gateway{
		hub:       hub,
		authn:     authn,
		messaging: messaging,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (g *Gateway) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/ws/messaging", g.ServeWS)
}

func (g *Gateway) ServeWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	}
	actor, err := g.authn.Authenticate(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, middleware.ErrUnauthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		}
		return err
	}
	userID := actor.UserID

	conn, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the response
		logger.Log.WithError(err).Debug("Socket upgrade failed")
		return nil
	}

	client := &Client{
		id:     uuid.NewString(),
		userID: userID,
		role:   actor.Role,
		hub:    g.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[uint]struct{}),
	}
	g.hub.register(client)

	logger.Log.WithFields(logrus.Fields{"conn_id": client.id, "user_id": userID}).Info("Socket connected")
	go client.writePump()
	client.readPump(g.dispatch)
	logger.Log.WithFields(logrus.Fields{"conn_id": client.id, "user_id": userID}).Info("Socket disconnected")
	return nil
}

func (g *Gateway) dispatch(c *Client, env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case EventJoinRoom:
		err = g.joinRoom(ctx, c, env.Data)
	case EventLeaveRoom:
		err = g.leaveRoom(c, env.Data)
	case EventCreateMessage:
		err = g.createMessage(ctx, c, env.Data)
	case EventMarkRead:
		err = g.markRead(ctx, c, env.Data)
	case EventTyping:
		err = g.typing(c, env.Data)
	default:
		err = errUnknownEvent
	}
	if err != nil {
		c.emit(EventError, errorPayload{Event: env.Event, Message: socketError(err)})
	}
}

var (
	errUnknownEvent = errors.New("unknown event")
	errBadPayload   = errors.New("invalid payload")
	errNotInRoom    = errors.New("join the room first")
)

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errBadPayload
	}
	return nil
}

func (g *Gateway) joinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p roomPayload
	if err := decode(data, &p); err != nil || p.ConversationID == 0 {
		return errBadPayload
	}
	ok, err := g.messaging.CanJoin(ctx, c.userID, p.ConversationID)
	if err != nil {
		return err
	}
	if !ok {
		return service.ErrForbidden
	}
	g.hub.join(c, p.ConversationID)
	c.emit(EventJoinedRoom, p)
	return nil
}

func (g *Gateway) leaveRoom(c *Client, data json.RawMessage) error {
	var p roomPayload
	if err := decode(data, &p); err != nil || p.ConversationID == 0 {
		return errBadPayload
	}
	g.hub.leave(c, p.ConversationID)
	c.emit(EventLeftRoom, p)
	return nil
}

func (g *Gateway) createMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var p createMessagePayload
	if err := decode(data, &p); err != nil || p.ConversationID == 0 {
		return errBadPayload
	}
	_, err := g.messaging.SendMessage(ctx, c.actor(), p.ConversationID, p.Content)
	return err
}

func (g *Gateway) markRead(ctx context.Context, c *Client, data json.RawMessage) error {
	var p markReadPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.MessageID != 0 {
		_, err := g.messaging.MarkMessageRead(ctx, c.actor(), p.MessageID)
		return err
	}
	if p.ConversationID == 0 {
		return errBadPayload
	}
	_, err := g.messaging.MarkConversationRead(ctx, c.actor(), p.ConversationID)
	return err
}

func (g *Gateway) typing(c *Client, data json.RawMessage) error {
	var p typingPayload
	if err := decode(data, &p); err != nil || p.ConversationID == 0 {
		return errBadPayload
	}
	if !g.hub.inRoom(c, p.ConversationID) {
		return errNotInRoom
	}
	p.UserID = c.userID
	g.hub.Broadcast(p.ConversationID, service.EventUserTyping, p)
	return nil
}

// socketError hides internal failures from clients.
func socketError(err error) string {
	switch {
	case errors.Is(err, errUnknownEvent), errors.Is(err, errBadPayload), errors.Is(err, errNotInRoom),
		errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrMessageNotFound), errors.Is(err, service.ErrEmptyMessage):
		return err.Error()
	}
	logger.Log.WithError(err).Error("Socket event failed")
	return "internal error"
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
