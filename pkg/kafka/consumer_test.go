package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanReader serves queued messages and blocks until ctx is done once empty.
type chanReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newChanReader(msgs ...kafka.Message) *chanReader {
	r := &chanReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *chanReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *chanReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *chanReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type funcHandler struct {
	calls atomic.Int32
	fn    func([]byte) error
}

func (h *funcHandler) Topic() string { return "credit-audit" }

func (h *funcHandler) Handle(_ context.Context, b []byte) error {
	h.calls.Add(1)
	return h.fn(b)
}

func testConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:     "test",
		WorkerCount: 2,
		BufferSize:  4,
		RetryMax:    1,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	h := &funcHandler{fn: func([]byte) error { return nil }}

	_, err := NewConsumer(nil, h)
	assert.Error(t, err)

	_, err = NewConsumer(nil, nil, WithConsumerBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)

	c, err := NewConsumer(nil, h,
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerGroupID("ingest"),
		WithConsumerWorkers(3),
		WithConsumerDLQ("credit-audit-dlq"),
	)
	require.NoError(t, err)
	assert.Equal(t, "ingest", c.cfg.GroupID)
	assert.Equal(t, 3, c.cfg.WorkerCount)
	assert.NotNil(t, c.dlq)
	require.NoError(t, c.reader.Close())
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := newChanReader(
		kafka.Message{Offset: 1, Value: []byte("a")},
		kafka.Message{Offset: 2, Value: []byte("b")},
		kafka.Message{Offset: 3, Value: []byte("c")},
	)
	h := &funcHandler{fn: func([]byte) error { return nil }}
	c := newConsumer(testConsumerConfig(), nil, h, reader, nil)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return reader.commits() == 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, int32(3), h.calls.Load())
	assert.True(t, reader.closed)
}

func TestConsumer_FailedMessageGoesToDLQ(t *testing.T) {
	reader := newChanReader(kafka.Message{Offset: 7, Key: []byte("k"), Value: []byte("bad")})
	h := &funcHandler{fn: func([]byte) error { return errors.New("boom") }}
	dlq := &recordingWriter{}
	c := newConsumer(testConsumerConfig(), nil, h, reader, dlq)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop(context.Background()))
	// RetryMax 1 means one retry after the first attempt.
	assert.Equal(t, int32(2), h.calls.Load())
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, []byte("bad"), dlq.msgs[0].Value)
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
	assert.True(t, dlq.closed)
}

func TestConsumer_FailedMessageWithoutDLQIsNotCommitted(t *testing.T) {
	reader := newChanReader(kafka.Message{Offset: 9, Value: []byte("bad")})
	h := &funcHandler{fn: func([]byte) error { return errors.New("boom") }}
	c := newConsumer(testConsumerConfig(), nil, h, reader, nil)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return h.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop(context.Background()))
	assert.Zero(t, reader.commits())
}

func TestConsumer_RecoversHandlerPanic(t *testing.T) {
	reader := newChanReader(kafka.Message{Offset: 1, Value: []byte("x")})
	h := &funcHandler{fn: func([]byte) error { panic("bad input") }}
	dlq := &recordingWriter{}
	c := newConsumer(testConsumerConfig(), nil, h, reader, dlq)

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return reader.commits() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))
	assert.Len(t, dlq.msgs, 1)
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 6; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 40*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
}
