package repository

import (
	"context"
	"database/sql"
	"fmt"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/domain/repository"
	pkgkafka "CreditRisk/pkg/kafka"
)

// AuditTable is the ClickHouse table assessments are written to.
const AuditTable = "credit_assessments"

// AuditSchema returns the DDL that prepares database for ClickHouse auditing.
func AuditSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	id String,
	ts DateTime64(3, 'UTC'),
	model_version LowCardinality(String),
	columns Array(String),
	values Array(Int32),
	class UInt8,
	outcome LowCardinality(String),
	confidence Float64,
	cached Bool
) ENGINE = MergeTree ORDER BY (ts, id)`, database, AuditTable),
	}
}

// ClickHouseAuditStore implements AuditSink for ClickHouse.
type ClickHouseAuditStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseAuditStore creates ClickHouse audit storage.
func NewClickHouseAuditStore(db *sql.DB, table string) *ClickHouseAuditStore {
	return &ClickHouseAuditStore{db: db, table: table}
}

func (s *ClickHouseAuditStore) Record(ctx context.Context, e *models.AuditEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (id, ts, model_version, columns, values, class, outcome, confidence, cached) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)

	cols := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = string(c)
	}
	vals := make([]int32, len(e.Values))
	for i, v := range e.Values {
		vals[i] = int32(v)
	}

	_, err := s.db.ExecContext(ctx, q,
		e.ID,
		e.Timestamp,
		e.ModelVersion,
		cols,
		vals,
		uint8(e.Class),
		string(e.Outcome),
		e.Confidence,
		e.Cached,
	)
	if err != nil {
		return fmt.Errorf("insert assessment %s: %w", e.ID, err)
	}
	return nil
}

// CountByOutcome returns the number of stored assessments per outcome.
func (s *ClickHouseAuditStore) CountByOutcome(ctx context.Context) (map[models.Outcome]int64, error) {
	q := fmt.Sprintf("SELECT outcome, count() FROM %s GROUP BY outcome", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.Outcome]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[models.Outcome(outcome)] = n
	}
	return out, rows.Err()
}

func (s *ClickHouseAuditStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAuditStore) Close() error {
	return nil // Managed by pkg
}

// KafkaAuditPublisher implements AuditSink for Kafka.
type KafkaAuditPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAuditPublisher creates Kafka audit publisher.
func NewKafkaAuditPublisher(producer *pkgkafka.Producer, topic string) *KafkaAuditPublisher {
	return &KafkaAuditPublisher{producer: producer, topic: topic}
}

// Record publishes the event as JSON keyed by assessment ID.
func (p *KafkaAuditPublisher) Record(ctx context.Context, e *models.AuditEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.ID), e)
}

// RecordBatch publishes several events in one write.
func (p *KafkaAuditPublisher) RecordBatch(ctx context.Context, events []*models.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.ID), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaAuditPublisher) Close() error {
	return nil // producer is shared with the log collector and closed by the app
}

var (
	_ repository.AuditSink = (*ClickHouseAuditStore)(nil)
	_ repository.AuditSink = (*KafkaAuditPublisher)(nil)
)
