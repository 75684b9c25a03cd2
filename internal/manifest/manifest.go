package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/kafka-go"

	"shopseed/internal/changelog"
)

const latestFile = "manifest.latest.json"

// Manifest describes the most recent export of one table.
type Manifest struct {
	Table                string `json:"table"`
	Key                  string `json:"key"` // blob key of the uploaded file
	Format               string `json:"format"`
	Records              int    `json:"records"`
	Uploaded             bool   `json:"uploaded"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

type Publisher interface {
	PublishLatest(ctx context.Context, m Manifest) error
}

// Multi publishes to several publishers in order and stops at the first error.
type Multi struct {
	pubs []Publisher
}

func MultiPublisher(pubs ...Publisher) *Multi {
	return &Multi{pubs: pubs}
}

func (m *Multi) PublishLatest(ctx context.Context, mf Manifest) error {
	for _, p := range m.pubs {
		if err := p.PublishLatest(ctx, mf); err != nil {
			return err
		}
	}
	return nil
}

func stamp(m Manifest) Manifest {
	if m.CreatedAtEpochSecond == 0 {
		m.CreatedAtEpochSecond = time.Now().UTC().Unix()
	}
	return m
}

// FilesystemManifest keeps the latest manifest of every table in one file.
type FilesystemManifest struct {
	baseDir string
}

func NewFilesystemManifest(baseDir string) *FilesystemManifest {
	return &FilesystemManifest{baseDir: baseDir}
}

// PublishLatest replaces the entry for m.Table through a temp file rename, so
// readers see either the old or the new file.
func (f *FilesystemManifest) PublishLatest(_ context.Context, m Manifest) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	all, err := f.ReadAll()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if all == nil {
		all = make(map[string]Manifest)
	}
	all[m.Table] = stamp(m)

	file := filepath.Join(f.baseDir, latestFile)
	tmp := file + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		out.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return os.Rename(tmp, file)
}

func (f *FilesystemManifest) ReadAll() (map[string]Manifest, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, latestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var all map[string]Manifest
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return all, nil
}

func (f *FilesystemManifest) ReadLatest(table string) (Manifest, error) {
	all, err := f.ReadAll()
	if err != nil {
		return Manifest{}, err
	}
	m, ok := all[table]
	if !ok {
		return Manifest{}, fmt.Errorf("no manifest for %s: %w", table, fs.ErrNotExist)
	}
	return m, nil
}

// KafkaManifest publishes manifests as compacted Kafka records keyed by table.
type KafkaManifest struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaManifest creates a Kafka manifest publisher.
// bootstrap can be comma-separated brokers.
func NewKafkaManifest(bootstrap string, topic string) *KafkaManifest {
	return &KafkaManifest{writer: &kafka.Writer{
		Addr:         kafka.TCP(changelog.SplitBrokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

func (k *KafkaManifest) PublishLatest(ctx context.Context, m Manifest) error {
	m = stamp(m)
	b, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(m.Table), Value: b}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// NewKafkaManifestWith is only for tests to inject a fake writer.
func NewKafkaManifestWith(w kafkaMessageWriter) *KafkaManifest {
	return &KafkaManifest{writer: w}
}
