package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"shopseed/internal/app"
	"shopseed/internal/export"
	"shopseed/internal/model"
)

// Config selects existing export files to push to the bucket.
type Config struct {
	app.Common
	Entities string
	Format   string
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("upload failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.StringVar(&cfg.Entities, "entities", "users,inventories,inventory_products,reviews", "comma-separated entities to upload")
	flag.StringVar(&cfg.Format, "format", "csv", "format of the files in the export dir: csv|json")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "upload")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	b, err := env.OpenBucket(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var errs []error
	for _, name := range strings.Split(cfg.Entities, ",") {
		ent, ok := model.Lookup(strings.TrimSpace(name))
		if !ok {
			return fmt.Errorf("unknown entity %q", name)
		}
		job := export.Job{Table: ent.Table(env.Cfg.Store.TablePrefix), Folder: ent.Folder, Format: format}
		path := filepath.Join(env.Cfg.ExportDir, job.FileName())
		if err := export.Upload(ctx, b, env.Log, path, job.Key()); err != nil {
			if errors.Is(err, export.ErrBucketUnavailable) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
