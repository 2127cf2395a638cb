package rabbitmq

const (
	ExchangeName = "rental"
	ExchangeKind = "topic"
)
