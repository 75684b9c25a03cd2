// Package stream publishes an exported table to Kafka inside one transaction,
// so consumers reading with read_committed see the whole export or nothing.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"shopseed/internal/store"
)

// txProducer is the subset of *kafka.Producer used here.
type txProducer interface {
	BeginTransaction() error
	Produce(msg *ck.Message, deliveryChan chan ck.Event) error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	Close()
}

type TxPublisher struct {
	p txProducer
}

// NewTxPublisher creates an idempotent transactional producer and initialises
// its transactions.
func NewTxPublisher(ctx context.Context, bootstrap, transactionalID string) (*TxPublisher, error) {
	prod, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
		"transactional.id":   transactionalID,
	})
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}
	if err := prod.InitTransactions(ctx); err != nil {
		prod.Close()
		return nil, fmt.Errorf("init tx: %w", err)
	}
	return &TxPublisher{p: prod}, nil
}

// NewTxPublisherWith is only for tests to inject a fake producer.
func NewTxPublisherWith(p txProducer) *TxPublisher { return &TxPublisher{p: p} }

func (t *TxPublisher) Close() { t.p.Close() }

// PublishRows sends every item of table tbl to topic, keyed by
// "<partition>#<sort>", and commits once. Any failure aborts the transaction.
func (t *TxPublisher) PublishRows(ctx context.Context, topic string, tbl store.Table, items []store.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if err := t.p.BeginTransaction(); err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	for _, it := range items {
		k, err := tbl.KeyOf(it)
		if err != nil {
			return 0, t.abort(ctx, err)
		}
		b, err := json.Marshal(store.Flatten(it))
		if err != nil {
			return 0, t.abort(ctx, fmt.Errorf("marshal: %w", err))
		}
		msg := &ck.Message{
			TopicPartition: ck.TopicPartition{Topic: &topic, Partition: ck.PartitionAny},
			Key:            []byte(k.Partition + "#" + k.Sort),
			Value:          b,
			Headers:        []ck.Header{{Key: "table", Value: []byte(tbl.Name)}},
		}
		if err := t.p.Produce(msg, nil); err != nil {
			return 0, t.abort(ctx, fmt.Errorf("produce: %w", err))
		}
	}
	if err := t.p.CommitTransaction(ctx); err != nil {
		return 0, t.abort(ctx, fmt.Errorf("commit tx: %w", err))
	}
	return len(items), nil
}

func (t *TxPublisher) abort(ctx context.Context, cause error) error {
	if err := t.p.AbortTransaction(ctx); err != nil {
		return fmt.Errorf("%w (abort: %v)", cause, err)
	}
	return cause
}
