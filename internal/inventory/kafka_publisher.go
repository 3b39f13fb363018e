package inventory

import (
	"context"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/events"
	kafkax "github.com/ariefcatur/go-retail-stock/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// KafkaPublisher sends each movement as its own envelope keyed by SKU.
type KafkaPublisher struct {
	Producer    Publisher
	ServiceName string
}

func (p *KafkaPublisher) PublishMovements(ctx context.Context, movements []Movement) error {
	var firstErr error
	for _, m := range movements {
		payload := kafkax.MustMarshal(events.InventoryMovementPayload{
			SKU:       m.SKU,
			Delta:     m.Delta,
			Reason:    string(m.Reason),
			Timestamp: m.Timestamp,
		})
		env := events.NewEnvelope(events.EventInventoryMovement, p.ServiceName, m.SKU, payload)
		err := p.Producer.Publish(ctx, events.PartitionKey(m.SKU), kafkax.MustMarshal(env),
			kafkax.EventHeaders(events.EventInventoryMovement)...)
		if err != nil && firstErr == nil {
			firstErr = errs.Wrapf(err, "publish movement for %s", m.SKU)
		}
	}
	return firstErr
}
