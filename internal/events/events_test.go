package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	events []EventLog
	err    error
}

func (m *memStore) InsertEvent(_ context.Context, ev EventLog) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func TestRecorderStoresMarshalledPayload(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, zap.NewNop())
	id := uuid.New()

	rec.Record(context.Background(), "APPOINTMENT_BOOKED", id, map[string]any{"vet_id": "v1"})

	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.Equal(t, "APPOINTMENT_BOOKED", ev.EventType)
	assert.Equal(t, id, *ev.AggregateID)
	assert.False(t, ev.CreatedAt.IsZero())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "v1", payload["vet_id"])
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	rec := NewRecorder(store, zap.NewNop())

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), "INVOICE_CREATED", uuid.New(), nil)
	})
}

type fakeClaimer struct {
	pending   []EventLog
	published []int64
}

func (f *fakeClaimer) ClaimBatch(ctx context.Context, limit int, fn func(ctx context.Context, batch []EventLog) error) (int, error) {
	batch := f.pending
	if len(batch) > limit {
		batch = batch[:limit]
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	for _, ev := range batch {
		f.published = append(f.published, ev.ID)
	}
	f.pending = f.pending[len(batch):]
	return len(batch), nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestRelayPublishesInBatches(t *testing.T) {
	id := uuid.New()
	claimer := &fakeClaimer{pending: []EventLog{
		{ID: 1, EventType: "APPOINTMENT_BOOKED", AggregateID: &id, Payload: []byte(`{}`)},
		{ID: 2, EventType: "INVOICE_STATUS_CHANGED", AggregateID: &id, Payload: []byte(`{}`)},
		{ID: 3, EventType: "APPOINTMENT_DELETED", AggregateID: &id, Payload: []byte(`{}`)},
	}}
	writer := &fakeWriter{}
	relay := NewRelay(claimer, writer, zap.NewNop(), 2)

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []int64{1, 2, 3}, claimer.published)
	require.Len(t, writer.msgs, 3)
	assert.Equal(t, "invoice.status.changed", writer.msgs[1].Topic)
	assert.Equal(t, id.String(), string(writer.msgs[0].Key))
}

func TestRelayLeavesEventsPendingOnWriteFailure(t *testing.T) {
	claimer := &fakeClaimer{pending: []EventLog{{ID: 7, EventType: "INVOICE_CREATED"}}}
	relay := NewRelay(claimer, &fakeWriter{err: errors.New("broker unavailable")}, zap.NewNop(), 10)

	_, err := relay.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, claimer.published)
	assert.Len(t, claimer.pending, 1)
}

func TestToMessageHeaders(t *testing.T) {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	msg := ToMessage(EventLog{ID: 42, EventType: "APPOINTMENT_OVERRIDE_BOOKED", CreatedAt: created})

	assert.Equal(t, "appointment.override.booked", msg.Topic)
	assert.Nil(t, msg.Key)
	assert.Equal(t, created, msg.Time)
	assert.Equal(t, []kafka.Header{
		{Key: "event_id", Value: []byte("42")},
		{Key: "event_type", Value: []byte("APPOINTMENT_OVERRIDE_BOOKED")},
	}, msg.Headers)
}
