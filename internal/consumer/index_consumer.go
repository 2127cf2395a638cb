package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/events"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

type PropertyIndexer interface {
	IndexProperty(ctx context.Context, id uint) error
	RemoveProperty(ctx context.Context, id uint) error
}

// IndexConsumer keeps the search index in step with property events.
type IndexConsumer struct {
	indexer PropertyIndexer
	timeout time.Duration
}

func NewIndexConsumer(indexer PropertyIndexer) *IndexConsumer {
	return &IndexConsumer{indexer: indexer, timeout: 30 * time.Second}
}

// Start handles deliveries until msgs is closed.
func (ic *IndexConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			ic.handleMessage(msg)
		}
		logger.Log.Info("[IndexConsumer] channel closed, stopping consumer")
	}()
}

func (ic *IndexConsumer) handleMessage(msg amqp.Delivery) {
	var event events.PropertyEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.PropertyID == 0 {
		logger.Log.WithError(err).Warn("[IndexConsumer] dropping malformed message")
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ic.timeout)
	defer cancel()

	log := logger.Log.WithField("property_id", event.PropertyID).WithField("routing_key", msg.RoutingKey)

	var err error
	switch msg.RoutingKey {
	case events.PropertyUpserted:
		err = ic.indexer.IndexProperty(ctx, event.PropertyID)
	case events.PropertyDeleted:
		err = ic.indexer.RemoveProperty(ctx, event.PropertyID)
	default:
		log.Warn("[IndexConsumer] unknown routing key")
		msg.Nack(false, false)
		return
	}

	if err != nil {
		// requeue once; a redelivered message that fails again is dropped
		log.WithError(err).Error("[IndexConsumer] failed to sync search index")
		msg.Nack(false, !msg.Redelivered)
		return
	}

	log.Debug("[IndexConsumer] synced search index")
	msg.Ack(false)
}
