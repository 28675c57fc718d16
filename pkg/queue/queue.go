package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues messages for asynchronous handling.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Config contains the configuration for the queue.
type Config struct {
	Workers    int           // number of workers
	RetryLimit int           // retries before a message goes to the dead-letter list
	RetryDelay time.Duration // delay between retries
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals a message payload into T.
func Decode[T any](payload json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
