package main

import (
	"context"
	"flag"
	"log"

	"shopseed/internal/app"
	"shopseed/internal/gen"
	"shopseed/internal/model"
)

type Config struct {
	app.Common
	Count int
	Wipe  bool
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("geninventories failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.Count, "count", 4000, "number of inventories to generate")
	flag.BoolVar(&cfg.Wipe, "wipe", false, "delete all stored inventories first")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "geninventories")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r, err := env.NewRun()
	if err != nil {
		return err
	}
	if cfg.Wipe {
		if _, _, err := r.Wipe(ctx, env.Tables.Inventories); err != nil {
			return err
		}
	} else if err := env.ClaimExisting(ctx, r, env.Tables.Inventories); err != nil {
		return err
	}
	res := r.Inventories(ctx, cfg.Count, env.Cfg.Tenants)
	env.Mirror(model.Inventories, gen.Items(res.Records))
	return nil
}
