package changelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"shopseed/internal/store"
)

type Op string

const (
	OpPut    Op = "put"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation is one successful write against the store.
type Mutation struct {
	Seq       int64        `json:"seq"`
	Op        Op           `json:"op"`
	Table     string       `json:"table"`
	Partition string       `json:"partition"`
	Sort      string       `json:"sort"`
	Item      store.Item   `json:"item,omitempty"`
	Field     string       `json:"field,omitempty"`
	Value     *store.Value `json:"value,omitempty"`
	TS        int64        `json:"ts"`
}

func (m Mutation) Key() store.Key { return store.Key{Partition: m.Partition, Sort: m.Sort} }

// Writer appends mutations in the order they were applied.
type Writer interface {
	Append(ctx context.Context, m Mutation) error
	Close() error
}

// MultiWriter appends to every writer in order and stops at the first error.
type MultiWriter struct {
	ws []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter { return &MultiWriter{ws: ws} }

func (mw *MultiWriter) Append(ctx context.Context, m Mutation) error {
	for i, w := range mw.ws {
		if err := w.Append(ctx, m); err != nil {
			return fmt.Errorf("journal sink %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every writer, even after a failure.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.ws {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// FileWriter appends JSON lines to one file kept open in append mode. Each
// line goes out in a single write, unbuffered, so only the mutation being
// written when the process dies can be lost.
type FileWriter struct {
	path string

	mu sync.Mutex
	f  *os.File
}

func NewFileWriter(dir, filename string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &FileWriter{path: path, f: f}, nil
}

func (w *FileWriter) Path() string { return w.path }

func (w *FileWriter) Append(_ context.Context, m Mutation) error {
	line, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return fmt.Errorf("append %s: %w", w.path, os.ErrClosed)
	}
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("append %s: %w", w.path, err)
	}
	return nil
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

// kafkaMessageWriter is the part of kafka.Writer the journal uses.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes each mutation synchronously, keyed by
// "<table>/<partition>/<sort>" so a compacted topic keeps the last write per
// record.
type KafkaWriter struct {
	w kafkaMessageWriter
}

// NewKafkaWriter connects lazily; bootstrap is a comma-separated broker list.
func NewKafkaWriter(bootstrap, topic string) *KafkaWriter {
	return NewKafkaWriterWith(&kafka.Writer{
		Addr:         kafka.TCP(SplitBrokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	})
}

func NewKafkaWriterWith(w kafkaMessageWriter) *KafkaWriter { return &KafkaWriter{w: w} }

func (k *KafkaWriter) Append(ctx context.Context, m Mutation) error {
	b, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	msg := kafka.Message{Key: []byte(m.Table + "/" + m.Key().String()), Value: b}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaWriter) Close() error { return k.w.Close() }

// SplitBrokers turns "a:9092, b:9092" into a clean broker list.
func SplitBrokers(bootstrap string) []string {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		if a = strings.TrimSpace(a); a != "" {
			brokers = append(brokers, a)
		}
	}
	return brokers
}
