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
	Limit int
	Wipe  bool
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("genreviews failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.Limit, "limit", 10000, "maximum number of reviews to generate")
	flag.BoolVar(&cfg.Wipe, "wipe", false, "delete all stored reviews first")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "genreviews")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r, err := env.NewRun()
	if err != nil {
		return err
	}
	orders, err := r.LoadOrders(ctx)
	if err != nil {
		return err
	}
	if cfg.Wipe {
		if _, _, err := r.Wipe(ctx, env.Tables.Reviews); err != nil {
			return err
		}
	} else if err := env.ClaimExisting(ctx, r, env.Tables.Reviews); err != nil {
		return err
	}
	res := r.Reviews(ctx, orders, cfg.Limit)
	env.Mirror(model.Reviews, gen.Items(res.Records))
	return nil
}
