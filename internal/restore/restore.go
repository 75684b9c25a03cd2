package restore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"shopseed/internal/changelog"
	"shopseed/internal/manifest"
	"shopseed/internal/mirror"
	"shopseed/internal/store"
)

// Resolver maps a physical table name to its key schema.
type Resolver func(name string) (store.Table, bool)

type Restorer struct {
	st      store.Store
	resolve Resolver
	log     logrus.FieldLogger
}

func NewRestorer(st store.Store, resolve Resolver, log logrus.FieldLogger) *Restorer {
	return &Restorer{st: st, resolve: resolve, log: log}
}

type Result struct {
	Applied int
	Skipped int
	Failed  int
	Error   error
}

// LoadFile puts every row of a flat JSON array (an export or a generator
// mirror) back into t. Rows that cannot be converted are skipped.
func (r *Restorer) LoadFile(ctx context.Context, t store.Table, path string) Result {
	rows, err := mirror.ReadBatch(path)
	if err != nil {
		return Result{Error: err}
	}
	var res Result
	for i, row := range rows {
		it, err := store.Unflatten(row)
		if err == nil {
			_, err = t.KeyOf(it)
		}
		if err != nil {
			res.Skipped++
			r.log.WithFields(logrus.Fields{"table": t.Name, "row": i, "error": err}).Warn("skip malformed row")
			continue
		}
		if err := r.st.Put(ctx, t, it); err != nil {
			res.Failed++
			r.log.WithFields(logrus.Fields{"table": t.Name, "row": i, "error": err}).Error("put failed")
			continue
		}
		res.Applied++
	}
	r.log.WithFields(logrus.Fields{"table": t.Name, "path": path, "applied": res.Applied, "skipped": res.Skipped, "failed": res.Failed}).Info("file loaded")
	return res
}

// LoadLatest reloads the file named by the latest manifest of t from exportDir.
func (r *Restorer) LoadLatest(ctx context.Context, t store.Table, exportDir string, mf *manifest.FilesystemManifest) Result {
	m, err := mf.ReadLatest(t.Name)
	if err != nil {
		return Result{Error: fmt.Errorf("read manifest: %w", err)}
	}
	if m.Format != "json" {
		return Result{Error: fmt.Errorf("latest export of %s is %s, only json can be reloaded", t.Name, m.Format)}
	}
	return r.LoadFile(ctx, t, filepath.Join(exportDir, filepath.Base(m.Key)))
}

// apply reports false when the mutation could not be applied to the current
// store contents (unknown table, update of a missing record).
func (r *Restorer) apply(ctx context.Context, m changelog.Mutation) (bool, error) {
	t, ok := r.resolve(m.Table)
	if !ok {
		return false, nil
	}
	switch m.Op {
	case changelog.OpPut:
		return true, r.st.Put(ctx, t, m.Item)
	case changelog.OpUpdate:
		if m.Value == nil {
			return false, fmt.Errorf("update %s without value", m.Key())
		}
		err := r.st.UpdateField(ctx, t, m.Key(), m.Field, *m.Value)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	case changelog.OpDelete:
		return true, r.st.Delete(ctx, t, m.Key())
	}
	return false, fmt.Errorf("unknown op %q", m.Op)
}

func (r *Restorer) tally(ctx context.Context, res *Result, m changelog.Mutation) {
	ok, err := r.apply(ctx, m)
	switch {
	case err != nil:
		res.Failed++
		r.log.WithFields(logrus.Fields{"table": m.Table, "key": m.Key().String(), "seq": m.Seq, "error": err}).Error("replay failed")
	case ok:
		res.Applied++
	default:
		res.Skipped++
	}
}

// ReplayJournal applies a JSONL journal in order, skipping its first
// fromOffset lines.
func (r *Restorer) ReplayJournal(ctx context.Context, path string, fromOffset int64) Result {
	file, err := os.Open(path)
	if err != nil {
		return Result{Error: fmt.Errorf("open journal: %w", err)}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var res Result
	lineNum := int64(0)
	for scanner.Scan() {
		lineNum++
		if lineNum <= fromOffset {
			continue
		}
		var m changelog.Mutation
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			res.Error = fmt.Errorf("unmarshal line %d: %w", lineNum, err)
			return res
		}
		r.tally(ctx, &res, m)
	}
	if err := scanner.Err(); err != nil {
		res.Error = fmt.Errorf("scan journal: %w", err)
	}
	return res
}

// messageReader abstracts kafka.Reader for testability.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ReplayJournalKafka consumes mutations from partition 0 of topic until the
// topic stays idle for the read timeout. fromOffset counts messages.
func (r *Restorer) ReplayJournalKafka(ctx context.Context, brokers []string, topic string, fromOffset int64) Result {
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	return r.replayMessages(ctx, rd, fromOffset)
}

func (r *Restorer) replayMessages(ctx context.Context, rd messageReader, fromOffset int64) Result {
	defer rd.Close()
	var res Result
	idx := int64(0)
	for {
		msg, err := rd.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				break
			}
			res.Error = fmt.Errorf("read kafka: %w", err)
			return res
		}
		idx++
		if idx <= fromOffset {
			continue
		}
		var m changelog.Mutation
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			res.Error = fmt.Errorf("unmarshal mutation: %w", err)
			return res
		}
		r.tally(ctx, &res, m)
	}
	return res
}
