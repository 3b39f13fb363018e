package orders

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-retail-stock/internal/events"
	kafkax "github.com/ariefcatur/go-retail-stock/internal/kafka"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransitioner struct {
	calls int
	err   error
}

func (s *stubTransitioner) Transition(_ context.Context, id string, to Status) (OrderItem, error) {
	s.calls++
	return OrderItem{ID: id, Status: to}, s.err
}

func newHandler(t *testing.T, tr Transitioner) (*StatusEventHandler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &StatusEventHandler{Orders: tr, Redis: rdb, ServiceName: "worker", Log: zerolog.Nop()}, mr
}

func statusMessage(eventID, itemID, status string) kafkago.Message {
	env := events.NewEnvelope(events.EventItemStatusChanged, "oms", itemID,
		kafkax.MustMarshal(events.ItemStatusChangedPayload{OrderItemID: itemID, Status: status}))
	env.EventID = eventID
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestStatusHandlerAppliesOnce(t *testing.T) {
	tr := &stubTransitioner{}
	h, mr := newHandler(t, tr)
	ctx := context.Background()

	m := statusMessage("ev-1", "item-1", "processing")
	require.NoError(t, h.Handle(ctx, m))
	require.NoError(t, h.Handle(ctx, m))

	assert.Equal(t, 1, tr.calls)
	assert.True(t, mr.Exists("dedup:worker:ev-1"))
}

func TestStatusHandlerCommitsRejectedTransitions(t *testing.T) {
	tr := &stubTransitioner{err: illegalTransition("item-1", StatusDelivered, StatusCancelled)}
	h, _ := newHandler(t, tr)

	require.NoError(t, h.Handle(context.Background(), statusMessage("ev-1", "item-1", "cancelled")))
	assert.Equal(t, 1, tr.calls)
}

func TestStatusHandlerDropsUnknownStatusAndGarbage(t *testing.T) {
	tr := &stubTransitioner{}
	h, _ := newHandler(t, tr)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, statusMessage("ev-1", "item-1", "returned")))
	require.NoError(t, h.Handle(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.Equal(t, 0, tr.calls)
}

func TestStatusHandlerRetriesTransientFailure(t *testing.T) {
	tr := &stubTransitioner{err: errors.New("db timeout")}
	h, mr := newHandler(t, tr)
	ctx := context.Background()
	m := statusMessage("ev-1", "item-1", "shipped")

	require.Error(t, h.Handle(ctx, m))
	assert.False(t, mr.Exists("dedup:worker:ev-1"))

	tr.err = nil
	require.NoError(t, h.Handle(ctx, m))
	assert.Equal(t, 2, tr.calls)
}

func TestStatusHandlerRedisDown(t *testing.T) {
	tr := &stubTransitioner{}
	h, mr := newHandler(t, tr)
	mr.Close()

	require.Error(t, h.Handle(context.Background(), statusMessage("ev-1", "item-1", "shipped")))
	assert.Equal(t, 0, tr.calls)
}

type closingTransitioner struct {
	mr *miniredis.Miniredis
}

func (c *closingTransitioner) Transition(context.Context, string, Status) (OrderItem, error) {
	c.mr.Close()
	return OrderItem{}, errors.New("db timeout")
}

func TestStatusHandlerWarnsWhenDedupKeyStays(t *testing.T) {
	tr := &closingTransitioner{}
	h, mr := newHandler(t, tr)
	tr.mr = mr
	var buf bytes.Buffer
	h.Log = zerolog.New(&buf)

	require.Error(t, h.Handle(context.Background(), statusMessage("ev-1", "item-1", "shipped")))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "dedup key not cleared")
	assert.Contains(t, buf.String(), "dedup:worker:ev-1")
}
