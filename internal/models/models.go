package models

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Upload{},
		&Property{},
		&PropertyImage{},
		&Booking{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&MessageRead{},
	}
}
