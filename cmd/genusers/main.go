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
		log.Fatalf("genusers failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.Count, "count", 10000, "number of users to generate")
	flag.BoolVar(&cfg.Wipe, "wipe", false, "delete all stored users first")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "genusers")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r, err := env.NewRun()
	if err != nil {
		return err
	}
	if cfg.Wipe {
		if _, _, err := r.Wipe(ctx, env.Tables.Users); err != nil {
			return err
		}
	} else if err := env.ClaimExisting(ctx, r, env.Tables.Users); err != nil {
		return err
	}
	res := r.Users(ctx, cfg.Count, env.Cfg.Tenants)
	env.Mirror(model.Users, gen.Items(res.Records))
	return nil
}
