package service

// Publisher sends domain events to the message broker. A nil Publisher
// means the broker is not configured.
type Publisher interface {
	Publish(routingKey string, payload any) error
}
