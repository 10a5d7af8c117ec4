package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed++
	return nil
}

func (f *fakeReader) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type parked struct {
	msg   kafka.Message
	cause error
	group string
}

type fakeDeadLetterer struct {
	mu     sync.Mutex
	parked []parked
}

func (f *fakeDeadLetterer) Publish(_ context.Context, msg kafka.Message, cause error, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parked = append(f.parked, parked{msg: msg, cause: cause, group: group})
	return nil
}

func (f *fakeDeadLetterer) all() []parked {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]parked(nil), f.parked...)
}

func encoded(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	e, err := NewEvent(eventType, "p-1", "product", "product-service", data)
	require.NoError(t, err)
	b, err := e.Marshal()
	require.NoError(t, err)
	return b
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("search.performed", "store-1", "store", "discovery", map[string]int{"result_count": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, 1, e.Version)
	assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, 2*time.Second)

	var payload map[string]int
	require.NoError(t, e.UnmarshalData(&payload))
	assert.Equal(t, 3, payload["result_count"])
}

func TestNewEvent_Unserializable(t *testing.T) {
	_, err := NewEvent("x", "a", "b", "c", make(chan int))
	require.Error(t, err)
}

func TestUnmarshalEvent_RequiresType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"event_id":"1"}`))
	require.Error(t, err)

	_, err = UnmarshalEvent([]byte(`not json`))
	require.Error(t, err)
}

func TestUnmarshalData_Empty(t *testing.T) {
	e := &Event{EventID: "e1", Data: []byte("null")}
	var v map[string]any
	assert.Error(t, e.UnmarshalData(&v))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.product.updated", Topic("product", "updated"))
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{headers: &headers}

	assert.Equal(t, "1", c.Get("a"))
	assert.Empty(t, c.Get("missing"))

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "ecommerce.product.updated", Value: encoded(t, "product.updated", map[string]string{"store_id": "s1"})},
		{Topic: "ecommerce.inventory.updated", Value: encoded(t, "inventory.updated", map[string]string{"store_id": "s2"})},
	}}

	var mu sync.Mutex
	var seen []string
	c := newConsumer(reader, ConsumerConfig{GroupID: "g"}, func(_ context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventType)
		return nil
	}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"product.updated", "inventory.updated"}, seen)
}

func TestConsumer_RetriesThenSkips(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "ecommerce.product.deleted", Value: encoded(t, "product.deleted", map[string]string{"store_id": "s1"})},
	}}

	var mu sync.Mutex
	calls := 0
	c := newConsumer(reader, ConsumerConfig{GroupID: "g"}, func(context.Context, *Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("redis down")
	}, discard())
	c.backoff = func(int) time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, maxHandlerRetries, calls)
}

func TestConsumer_PoisonMessageCommitted(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{Topic: "t", Value: []byte("garbage")}}}
	c := newConsumer(reader, ConsumerConfig{GroupID: "g"}, func(context.Context, *Event) error {
		t.Fatal("handler must not run for undecodable messages")
		return nil
	}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_DeadLettersExhaustedAndUndecodable(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "ecommerce.product.updated", Offset: 7, Value: encoded(t, "product.updated", map[string]string{"store_id": "s1"})},
		{Topic: "ecommerce.inventory.updated", Offset: 8, Value: []byte("garbage")},
	}}
	dlq := &fakeDeadLetterer{}
	c := newConsumer(reader, ConsumerConfig{GroupID: "discovery", DeadLetter: dlq}, func(context.Context, *Event) error {
		return errors.New("redis down")
	}, discard())
	c.backoff = func(int) time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.committedCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := dlq.all()
	require.Len(t, got, 2)
	assert.Equal(t, int64(7), got[0].msg.Offset)
	assert.EqualError(t, got[0].cause, "redis down")
	assert.Equal(t, "discovery", got[0].group)
	assert.Equal(t, "ecommerce.inventory.updated", got[1].msg.Topic)
	assert.Error(t, got[1].cause)
}

func TestDLQProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	d := &DLQProducer{writer: w, logger: discard()}

	src := kafka.Message{
		Topic:     "ecommerce.product.deleted",
		Partition: 2,
		Offset:    41,
		Key:       []byte("p-1"),
		Value:     []byte(`{"event_type":"product.deleted"}`),
		Headers:   []kafka.Header{{Key: "correlation_id", Value: []byte("c-9")}},
	}
	require.NoError(t, d.Publish(context.Background(), src, errors.New("redis down"), "discovery"))

	require.Len(t, w.msgs, 1)
	out := w.msgs[0]
	assert.Equal(t, "ecommerce.dlq.ecommerce.product.deleted", out.Topic)
	assert.Equal(t, src.Key, out.Key)
	assert.Equal(t, src.Value, out.Value)

	carrier := headerCarrier{headers: &out.Headers}
	assert.Equal(t, "c-9", carrier.Get("correlation_id"))
	assert.Equal(t, "ecommerce.product.deleted", carrier.Get("dlq.original_topic"))
	assert.Equal(t, "2", carrier.Get("dlq.original_partition"))
	assert.Equal(t, "41", carrier.Get("dlq.original_offset"))
	assert.Equal(t, "discovery", carrier.Get("dlq.consumer_group"))
	assert.Equal(t, "redis down", carrier.Get("dlq.error"))
}

func TestDLQProducer_PublishError(t *testing.T) {
	d := &DLQProducer{writer: &fakeWriter{err: errors.New("not enough replicas")}, logger: discard()}
	err := d.Publish(context.Background(), kafka.Message{Topic: "t"}, nil, "g")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ecommerce.dlq.t")
}

func TestIdempotentHandler_SkipsRedelivery(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	fail := true
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		if fail {
			return errors.New("redis down")
		}
		return nil
	}, discard())

	e, err := NewEvent("product.updated", "p-1", "product", "product-service", nil)
	require.NoError(t, err)

	// A failed attempt is not remembered.
	require.Error(t, h(context.Background(), e))
	assert.Zero(t, store.Len())

	fail = false
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Equal(t, 2, calls)

	// Events without an id are always handled.
	require.NoError(t, h(context.Background(), &Event{EventType: "product.updated"}))
	assert.Equal(t, 3, calls)
}

func TestMemoryIdempotencyStore_Expires(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "e-1"))
	seen, err := store.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, err = store.Contains(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Add(ctx, "e-2"))
	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Add(ctx, "e-3"))
	assert.Equal(t, 1, store.Len())
}

func TestConsumer_CloseIdempotent(t *testing.T) {
	reader := &fakeReader{}
	c := newConsumer(reader, ConsumerConfig{}, nil, discard())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, reader.closed)
}

func TestProducer_Publish(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	w := &fakeWriter{}
	p := &Producer{writer: w, logger: discard()}

	ctx, span := tp.Tracer("test").Start(context.Background(), "search")
	e, err := NewEvent("search.performed", "store-1", "store", "discovery", map[string]string{"query": "shoe"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, Topic("search", "performed"), e.WithCorrelationID("c-1")))
	span.End()

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.search.performed", msg.Topic)
	assert.Equal(t, []byte("store-1"), msg.Key)

	carrier := headerCarrier{headers: &msg.Headers}
	assert.Equal(t, "search.performed", carrier.Get("event_type"))
	assert.Equal(t, "c-1", carrier.Get("correlation_id"))
	assert.NotEmpty(t, carrier.Get("traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}, logger: discard()}
	e, err := NewEvent("search.performed", "s", "store", "discovery", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "ecommerce.search.performed", e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPingBrokers_NoneConfigured(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}
