package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "CreditRisk/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID sets consumer group ID.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if groupID != "" {
			c.GroupID = groupID
		}
	}
}

// WithConsumerWorkers sets number of worker goroutines.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry configures retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets a Kafka topic that receives messages whose retries ran out.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.DLQTopic = topic
	}
}

// WithConsumerFetch sets fetch min/max bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the internal channel buffer size.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// Consumer reads one topic and hands messages to a worker pool.
// Offsets are committed after handling, or after the message went to the DLQ.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	handler  MessageHandler
	reader   messageReader
	dlq      messageWriter
	msgChan  chan kafka.Message
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a consumer for handler.Topic().
func NewConsumer(log *applogger.Logger, handler MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "creditrisk",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    handler.Topic(),
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	var dlq messageWriter
	if cfg.DLQTopic != "" {
		dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	return newConsumer(cfg, log, handler, reader, dlq), nil
}

func newConsumer(cfg *ConsumerConfig, log *applogger.Logger, handler MessageHandler, reader messageReader, dlq messageWriter) *Consumer {
	consumerMetricsOnce.Do(initConsumerMetrics)
	if log == nil {
		log = applogger.NewNop()
	}
	return &Consumer{
		cfg:     cfg,
		log:     log,
		handler: handler,
		reader:  reader,
		dlq:     dlq,
		msgChan: make(chan kafka.Message, cfg.BufferSize),
	}
}

// Start launches the fetch loop and the workers.
func (c *Consumer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	workers := sync.WaitGroup{}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			c.messageWorker(ctx)
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consumeMessages(ctx)
		close(c.msgChan)
		workers.Wait()
	}()

	c.log.Info("kafka consumer started",
		applogger.String("topic", c.handler.Topic()),
		applogger.String("group", c.cfg.GroupID),
		applogger.Strings("brokers", c.cfg.Brokers),
		applogger.Int("workers", c.cfg.WorkerCount))
	return nil
}

// Stop stops fetching, waits for in-flight messages and closes the reader.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		if err := c.reader.Close(); err != nil {
			c.log.Warn("kafka reader close error", applogger.Error(err))
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("kafka dlq close error", applogger.Error(err))
			}
		}
		c.log.Info("kafka consumer stopped", applogger.String("topic", c.handler.Topic()))
	})
	return stopErr
}

func (c *Consumer) consumeMessages(ctx context.Context) {
	topic := c.handler.Topic()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				c.log.Error("kafka fetch error", applogger.String("topic", topic), applogger.Error(err))
			}
			if !sleepCtx(ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}

		select {
		case c.msgChan <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) messageWorker(ctx context.Context) {
	for msg := range c.msgChan {
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	topic := c.handler.Topic()
	start := time.Now()
	defer func() {
		consumerHandleLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	var err error
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(ctx, msg.Value)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return
		}
	}

	if err != nil {
		consumerFailures.WithLabelValues(topic).Inc()
		c.log.Error("kafka message failed",
			applogger.String("topic", topic),
			applogger.Int64("offset", msg.Offset),
			applogger.Error(err))
		if c.dlq == nil {
			// left uncommitted so the group redelivers it after a restart
			return
		}
		dlqErr := c.dlq.WriteMessages(ctx, kafka.Message{
			Key:     msg.Key,
			Value:   msg.Value,
			Time:    time.Now(),
			Headers: []kafka.Header{{Key: "source_topic", Value: []byte(topic)}},
		})
		if dlqErr != nil {
			c.log.Error("kafka dlq write error", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(dlqErr))
			return
		}
	}

	if err := c.commitWithRetry(ctx, msg, 3); err != nil {
		c.log.Error("kafka commit error", applogger.Int64("offset", msg.Offset), applogger.Error(err))
	}
}

func (c *Consumer) safeHandle(ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, data)
}

// commitWithRetry commits a single message offset with bounded retries.
func (c *Consumer) commitWithRetry(ctx context.Context, msg kafka.Message, max int) error {
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = c.reader.CommitMessages(cctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		if !sleepCtx(ctx, backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt)) {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

// Consumer metrics
var (
	consumerMetricsOnce   sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerFailures      *prometheus.CounterVec
)

func initConsumerMetrics() {
	consumerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "creditrisk_kafka_consumer_queue_depth",
			Help: "Number of messages waiting in consumer queue",
		},
		[]string{"topic"},
	)
	consumerHandleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creditrisk_kafka_consumer_handle_seconds",
			Help:    "Handling time per message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
	consumerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditrisk_kafka_consumer_failures_total",
			Help: "Messages that failed after every retry",
		},
		[]string{"topic"},
	)
}
