// Package export pulls a whole collection out of the store, writes it as a
// CSV or JSON file and uploads that file to the blob store.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"shopseed/internal/manifest"
	"shopseed/internal/metrics"
	"shopseed/internal/mirror"
	"shopseed/internal/store"
)

// ErrBucketUnavailable aborts an export or upload before any work is done.
var ErrBucketUnavailable = errors.New("bucket unavailable")

// Bucket is the blob store an export uploads to.
type Bucket interface {
	Name() string
	CheckAccessible(ctx context.Context) error
	UploadFile(ctx context.Context, path, key string) error
}

// RowPublisher streams exported rows, e.g. to Kafka.
type RowPublisher interface {
	PublishRows(ctx context.Context, topic string, t store.Table, items []store.Item) (int, error)
}

type Job struct {
	Table     store.Table
	Folder    string
	Format    Format
	Delimiter rune // CSV only; zero means ','
	OutputDir string
}

func (j Job) FileName() string { return j.Table.Name + "." + string(j.Format) }

// Key is the blob key "<folder>/<table>.<ext>".
func (j Job) Key() string { return j.Folder + "/" + j.FileName() }

type Result struct {
	Path      string
	Key       string
	Rows      int
	Uploaded  bool
	UploadErr error
	StreamErr error
}

type Exporter struct {
	Store    store.Store
	Bucket   Bucket
	Log      logrus.FieldLogger
	Metrics  *metrics.Registry  // optional
	Manifest manifest.Publisher // optional
	Stream   RowPublisher       // optional
	Topic    string
}

// Run exports one collection. A bucket that cannot be reached or a failing
// scan aborts with an error; a failing upload is logged and reported in
// Result.UploadErr only.
func (e *Exporter) Run(ctx context.Context, job Job) (Result, error) {
	log := e.Log.WithFields(logrus.Fields{"table": job.Table.Name, "bucket": e.Bucket.Name()})
	res := Result{Key: job.Key()}

	if err := e.Bucket.CheckAccessible(ctx); err != nil {
		log.WithFields(logrus.Fields{"fatal": true, "error": err}).Error("bucket not accessible, aborting export")
		return res, fmt.Errorf("%w: %v", ErrBucketUnavailable, err)
	}

	var items []store.Item
	pages := 0
	err := store.ScanPages(ctx, e.Store, job.Table, 0, func(p store.Page) error {
		pages++
		items = append(items, p.Items...)
		return nil
	})
	if err != nil {
		log.WithFields(logrus.Fields{"fatal": true, "error": err}).Error("scan failed, aborting export")
		return res, err
	}
	if e.Metrics != nil {
		e.Metrics.ScanPages.Observe(float64(pages))
	}
	if len(items) == 0 {
		log.Warn("collection is empty, nothing exported")
		return res, nil
	}

	rows := make([]map[string]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, store.Flatten(it))
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return res, fmt.Errorf("mkdir: %w", err)
	}
	switch job.Format {
	case FormatJSON:
		res.Path, err = mirror.NewFilesystemWriter(job.OutputDir).WriteBatch(job.FileName(), items)
	default:
		res.Path = filepath.Join(job.OutputDir, job.FileName())
		err = writeCSV(res.Path, job.Delimiter, rows)
	}
	if err != nil {
		return res, fmt.Errorf("write %s: %w", job.FileName(), err)
	}
	res.Rows = len(rows)
	if e.Metrics != nil {
		e.Metrics.ExportRows.WithLabelValues(job.Table.Name).Add(float64(res.Rows))
	}
	log.WithFields(logrus.Fields{"rows": res.Rows, "path": res.Path}).Info("export written")

	if err := e.Bucket.UploadFile(ctx, res.Path, res.Key); err != nil {
		res.UploadErr = err
		if e.Metrics != nil {
			e.Metrics.UploadFailures.Inc()
		}
		log.WithFields(logrus.Fields{"key": res.Key, "error": err}).Error("upload failed")
	} else {
		res.Uploaded = true
		log.WithField("key", res.Key).Info("export uploaded")
	}

	if e.Stream != nil && e.Topic != "" {
		if _, err := e.Stream.PublishRows(ctx, e.Topic, job.Table, items); err != nil {
			res.StreamErr = err
			log.WithFields(logrus.Fields{"topic": e.Topic, "error": err}).Error("stream publish failed")
		}
	}
	if e.Manifest != nil {
		m := manifest.Manifest{Table: job.Table.Name, Key: res.Key, Format: string(job.Format), Records: res.Rows, Uploaded: res.Uploaded}
		if err := e.Manifest.PublishLatest(ctx, m); err != nil {
			log.WithError(err).Error("manifest publish failed")
		}
	}
	return res, nil
}

// Upload sends an existing local file to the bucket. Only an unreachable
// bucket is fatal; a missing file or failing upload is logged and returned.
func Upload(ctx context.Context, b Bucket, log logrus.FieldLogger, path, key string) error {
	log = log.WithFields(logrus.Fields{"bucket": b.Name(), "path": path, "key": key})
	if err := b.CheckAccessible(ctx); err != nil {
		log.WithFields(logrus.Fields{"fatal": true, "error": err}).Error("bucket not accessible, aborting upload")
		return fmt.Errorf("%w: %v", ErrBucketUnavailable, err)
	}
	if _, err := os.Stat(path); err != nil {
		log.WithError(err).Error("file does not exist, aborting upload")
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := b.UploadFile(ctx, path, key); err != nil {
		log.WithError(err).Error("upload failed")
		return err
	}
	log.Info("file uploaded")
	return nil
}
