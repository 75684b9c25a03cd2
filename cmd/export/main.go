package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"shopseed/internal/app"
	"shopseed/internal/export"
	"shopseed/internal/model"
)

type Config struct {
	app.Common
	Entities  string
	Format    string
	Delimiter string
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("export failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.StringVar(&cfg.Entities, "entities", "users,products,inventories,inventory_products,orders,reviews", "comma-separated entities to export")
	flag.StringVar(&cfg.Format, "format", "csv", "output format: csv|json")
	flag.StringVar(&cfg.Delimiter, "delimiter", ",", "csv field delimiter")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	var delim rune
	if cfg.Delimiter != "" {
		delim = []rune(cfg.Delimiter)[0]
	}
	var ents []model.Entity
	for _, name := range strings.Split(cfg.Entities, ",") {
		ent, ok := model.Lookup(strings.TrimSpace(name))
		if !ok {
			return fmt.Errorf("unknown entity %q", name)
		}
		ents = append(ents, ent)
	}

	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "export")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	b, err := env.OpenBucket(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	ex, release, err := env.Exporter(ctx, b)
	if err != nil {
		return err
	}
	defer release()

	var errs []error
	for _, ent := range ents {
		job := export.Job{
			Table:     ent.Table(env.Cfg.Store.TablePrefix),
			Folder:    ent.Folder,
			Format:    format,
			Delimiter: delim,
			OutputDir: env.Cfg.ExportDir,
		}
		if _, err := ex.Run(ctx, job); err != nil {
			if errors.Is(err, export.ErrBucketUnavailable) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
