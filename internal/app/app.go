// Package app wires configuration into the store, journal, manifest, metrics
// and logger shared by every binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"shopseed/internal/changelog"
	"shopseed/internal/config"
	"shopseed/internal/gen"
	"shopseed/internal/ids"
	"shopseed/internal/logging"
	"shopseed/internal/manifest"
	"shopseed/internal/metrics"
	"shopseed/internal/mirror"
	"shopseed/internal/model"
	"shopseed/internal/store"
)

const journalFile = "journal.jsonl"

// Env is the set of dependencies opened for one binary run.
type Env struct {
	Cfg     *config.Config
	Log     *logrus.Logger
	Store   store.Store
	Tables  model.Tables
	Metrics *metrics.Registry

	raw     store.Store
	journal changelog.Writer
}

// Open builds the logger and opens the configured store, journaled when a
// journal sink is enabled. name selects the log file.
func Open(ctx context.Context, cfg *config.Config, name string) (*Env, error) {
	lcfg := logging.DefaultConfig(name)
	lcfg.Dir = cfg.LogDir
	lcfg.Level = cfg.LogLevel
	logger, err := logging.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	raw, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	var st store.Store = raw
	w, err := JournalWriter(cfg)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	if w != nil {
		st = changelog.Journaled(raw, w)
	}
	logger.WithFields(logrus.Fields{
		"env":     cfg.Env,
		"backend": cfg.Store.Backend,
		"journal": cfg.Journal.Sink,
	}).Info("environment ready")
	return &Env{
		Cfg:     cfg,
		Log:     logger,
		Store:   st,
		Tables:  model.NewTables(cfg.Store.TablePrefix),
		Metrics: metrics.NewRegistry(),
		raw:     raw,
		journal: w,
	}, nil
}

// OpenStore opens one of the supported backends.
func OpenStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Backend {
	case "memory":
		return store.NewInMemoryStore(), nil
	case "pebble":
		st, err := store.NewPebbleStore(sc.Dir)
		if err != nil {
			return nil, fmt.Errorf("init pebble: %w", err)
		}
		return st, nil
	case "badger":
		st, err := store.NewBadgerStore(sc.Dir)
		if err != nil {
			return nil, fmt.Errorf("init badger: %w", err)
		}
		return st, nil
	case "mongo":
		st, err := store.NewMongoStore(ctx, sc.MongoURI, sc.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
}

// JournalWriter returns nil when journaling is disabled.
func JournalWriter(cfg *config.Config) (changelog.Writer, error) {
	var ws []changelog.Writer
	if cfg.Journal.Sink == "file" || cfg.Journal.Sink == "both" {
		fw, err := changelog.NewFileWriter(cfg.Journal.Dir, journalFile)
		if err != nil {
			return nil, fmt.Errorf("init journal file: %w", err)
		}
		ws = append(ws, fw)
	}
	if cfg.Journal.Sink == "kafka" || cfg.Journal.Sink == "both" {
		if cfg.KafkaBootstrap == "" {
			return nil, errors.New("journal sink kafka needs a kafka bootstrap")
		}
		ws = append(ws, changelog.NewKafkaWriter(cfg.KafkaBootstrap, cfg.Journal.Topic))
	}
	switch len(ws) {
	case 0:
		return nil, nil
	case 1:
		return ws[0], nil
	}
	return changelog.NewMultiWriter(ws...), nil
}

// JournalPath is where the file journal sink appends.
func JournalPath(cfg *config.Config) string {
	return filepath.Join(cfg.Journal.Dir, journalFile)
}

// JournalSource picks the journal a restore replays. An explicit choice wins;
// otherwise it follows the configured sink, preferring the local file.
func JournalSource(cfg *config.Config, explicit string) string {
	if explicit != "" {
		return explicit
	}
	switch cfg.Journal.Sink {
	case "file", "both":
		return "file"
	case "kafka":
		return "kafka"
	}
	return "none"
}

// ManifestPublisher returns nil when manifests are disabled.
func ManifestPublisher(cfg *config.Config) manifest.Publisher {
	var pubs []manifest.Publisher
	if cfg.Manifest.Sink == "file" || cfg.Manifest.Sink == "both" {
		pubs = append(pubs, manifest.NewFilesystemManifest(cfg.ExportDir))
	}
	if (cfg.Manifest.Sink == "kafka" || cfg.Manifest.Sink == "both") && cfg.KafkaBootstrap != "" {
		pubs = append(pubs, manifest.NewKafkaManifest(cfg.KafkaBootstrap, cfg.Manifest.Topic))
	}
	switch len(pubs) {
	case 0:
		return nil
	case 1:
		return pubs[0]
	}
	return manifest.MultiPublisher(pubs...)
}

// NewRun prepares a generator run over the environment's store.
func (e *Env) NewRun() (*gen.Run, error) {
	strategy, err := ids.ParseStrategy(e.Cfg.IDStrategy)
	if err != nil {
		return nil, err
	}
	r := gen.NewRun(e.Store, e.Tables, e.Cfg.Seed, strategy)
	r.Log = e.Log
	r.Metrics = e.Metrics
	e.Log.WithFields(logrus.Fields{
		"seed":        e.Cfg.Seed,
		"id_strategy": r.IDs.Strategy(),
	}).Info("generator run ready")
	return r, nil
}

// ClaimExisting registers the sort keys already stored in each table, and the
// parts of composite keys, so a new run does not hand them out again.
func (e *Env) ClaimExisting(ctx context.Context, r *gen.Run, tables ...store.Table) error {
	for _, t := range tables {
		err := store.ScanPages(ctx, e.Store, t, 0, func(p store.Page) error {
			for _, it := range p.Items {
				k, err := t.KeyOf(it)
				if err != nil {
					continue
				}
				r.IDs.Claim(k.Sort)
				if strings.Contains(k.Sort, model.LinkSep) {
					for _, part := range strings.Split(k.Sort, model.LinkSep) {
						r.IDs.Claim(part)
					}
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("claim %s: %w", t.Name, err)
		}
	}
	return nil
}

// Mirror writes a generator batch to the mirror directory. A failure is
// logged, never returned.
func (e *Env) Mirror(ent model.Entity, items []store.Item) {
	path, err := mirror.NewFilesystemWriter(e.Cfg.MirrorDir).WriteBatch(ent.Mirror, items)
	if err != nil {
		e.Log.WithFields(logrus.Fields{"file": ent.Mirror, "error": err}).Error("mirror write failed")
		return
	}
	e.Log.WithFields(logrus.Fields{"path": path, "records": len(items)}).Info("mirror written")
}

// ServeMetrics exposes /metrics on addr in the background.
func (e *Env) ServeMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Log.WithError(err).Warn("metrics server stopped")
		}
	}()
}

// Unjournaled is the opened store without the journal wrapper, for replays
// that must not record themselves again.
func (e *Env) Unjournaled() store.Store { return e.raw }

// Close dumps metrics to metricsFile when set, then closes the journal and
// the store.
func (e *Env) Close(metricsFile string) error {
	if metricsFile != "" {
		if err := e.Metrics.WriteTextfile(metricsFile); err != nil {
			e.Log.WithError(err).Warn("write metrics textfile")
		}
	}
	var errs []error
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if err := e.raw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
