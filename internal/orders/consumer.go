package orders

import (
	"context"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/ariefcatur/go-retail-stock/internal/events"
	kafkax "github.com/ariefcatur/go-retail-stock/internal/kafka"
	"github.com/ariefcatur/go-retail-stock/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type Transitioner interface {
	Transition(ctx context.Context, itemID string, to Status) (OrderItem, error)
}

// StatusEventHandler applies ItemStatusChanged events. Events are deduplicated
// by event id in Redis; rejected transitions are logged and committed.
type StatusEventHandler struct {
	Orders      Transitioner
	Redis       *redis.Client
	ServiceName string
	Log         zerolog.Logger
}

// Handle is installed as the kafka.Handler of the status consumer. A non-nil
// return leaves the message uncommitted.
func (h *StatusEventHandler) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		h.Log.Warn().Err(err).Int64("offset", m.Offset).Msg("dropping undecodable message")
		return nil
	}
	if env.EventType != events.EventItemStatusChanged {
		return nil
	}

	dkey := redisx.DedupKey(h.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, h.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return errs.Unavailable(err, "dedup "+env.EventID)
	}
	if !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.ItemStatusChangedPayload](env.Payload)
	if err != nil {
		h.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("dropping bad payload")
		return nil
	}
	log := h.Log.With().Str("event_id", env.EventID).Str("item_id", p.OrderItemID).Str("to", p.Status).Logger()

	to, err := ParseStatus(p.Status)
	if err != nil {
		log.Warn().Err(err).Msg("dropping status event")
		return nil
	}

	if _, err := h.Orders.Transition(ctx, p.OrderItemID, to); err != nil {
		switch {
		case errs.Is(err, errs.ErrIllegalTransition), errs.Is(err, errs.ErrNotFound), errs.Is(err, errs.ErrInvalidInput):
			log.Warn().Err(err).Msg("status event rejected")
			return nil
		default:
			// allow the redelivery through
			if derr := h.Redis.Del(context.WithoutCancel(ctx), dkey).Err(); derr != nil {
				log.Warn().Err(derr).Str("dedup_key", dkey).Msg("dedup key not cleared, redelivery will be skipped")
			}
			return err
		}
	}
	return nil
}
