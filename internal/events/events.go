package events

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Routing keys on the topic exchange.
const (
	PropertyUpserted = "property.upserted"
	PropertyDeleted  = "property.deleted"
	PropertyBinding  = "property.*"

	ChatPrefix  = "chat."
	ChatBinding = "chat.*"
)

type PropertyEvent struct {
	PropertyID uint      `json:"property_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChatEvent carries a room broadcast between gateway instances.
type ChatEvent struct {
	Origin         string          `json:"origin"`
	ConversationID uint            `json:"conversation_id"`
	Event          string          `json:"event"`
	Data           json.RawMessage `json:"data"`
}

func ChatRoutingKey(conversationID uint) string {
	return ChatPrefix + strconv.FormatUint(uint64(conversationID), 10)
}

// ConversationFromRoutingKey parses "chat.<id>".
func ConversationFromRoutingKey(key string) (uint, bool) {
	if !strings.HasPrefix(key, ChatPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(key, ChatPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
