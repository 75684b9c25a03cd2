package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"shopseed/internal/app"
	"shopseed/internal/changelog"
	"shopseed/internal/manifest"
	"shopseed/internal/metrics"
	"shopseed/internal/model"
	"shopseed/internal/restore"
)

// Config chooses what to rebuild the store from: the latest JSON exports,
// the mutation journal, or both (exports first).
type Config struct {
	app.Common
	Entities      string
	JournalSource string // none|file|kafka, empty follows journal.sink
	FromOffset    int64
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("restore failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.StringVar(&cfg.Entities, "from-export", "", "comma-separated entities to reload from their latest json export")
	flag.StringVar(&cfg.JournalSource, "journal-source", "", "journal to replay: none|file|kafka (default: follow journal.sink)")
	flag.Int64Var(&cfg.FromOffset, "from-offset", 0, "journal entries to skip before replaying")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "restore")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r := restore.NewRestorer(env.Unjournaled(), env.Tables.ByName, env.Log)
	t0 := time.Now()

	if cfg.Entities != "" {
		mf := manifest.NewFilesystemManifest(env.Cfg.ExportDir)
		for _, name := range strings.Split(cfg.Entities, ",") {
			ent, ok := model.Lookup(strings.TrimSpace(name))
			if !ok {
				return fmt.Errorf("unknown entity %q", name)
			}
			res := r.LoadLatest(ctx, ent.Table(env.Cfg.Store.TablePrefix), env.Cfg.ExportDir, mf)
			record(env.Metrics, "export", res)
			if res.Error != nil {
				return fmt.Errorf("reload %s: %w", ent.Name, res.Error)
			}
		}
	}

	var res restore.Result
	source := app.JournalSource(env.Cfg, cfg.JournalSource)
	switch source {
	case "none":
		env.Log.WithField("journal_sink", env.Cfg.Journal.Sink).Info("no journal to replay")
		return nil
	case "file":
		res = r.ReplayJournal(ctx, app.JournalPath(env.Cfg), cfg.FromOffset)
	case "kafka":
		if env.Cfg.KafkaBootstrap == "" {
			return errors.New("journal source kafka needs a kafka bootstrap")
		}
		res = r.ReplayJournalKafka(ctx, changelog.SplitBrokers(env.Cfg.KafkaBootstrap), env.Cfg.Journal.Topic, cfg.FromOffset)
	default:
		return fmt.Errorf("journal source %q: want none, file or kafka", source)
	}
	record(env.Metrics, "journal", res)
	if res.Error != nil {
		return fmt.Errorf("replay: %w", res.Error)
	}
	env.Log.WithFields(logrus.Fields{
		"applied": res.Applied,
		"skipped": res.Skipped,
		"failed":  res.Failed,
		"ttr":     time.Since(t0).Round(time.Millisecond).String(),
	}).Info("recovery complete")
	return nil
}

func record(m *metrics.Registry, source string, res restore.Result) {
	m.Restored.WithLabelValues(source, "applied").Add(float64(res.Applied))
	m.Restored.WithLabelValues(source, "skipped").Add(float64(res.Skipped))
	m.Restored.WithLabelValues(source, "failed").Add(float64(res.Failed))
}
