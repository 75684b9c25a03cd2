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
	Count    int
	Strategy string
	Wipe     bool
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("genorders failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.Count, "count", 20, "number of orders to generate")
	flag.StringVar(&cfg.Strategy, "tenant-strategy", string(gen.TenantUniform), "tenant selection: uniform|per-user")
	flag.BoolVar(&cfg.Wipe, "wipe", false, "delete all stored orders first")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	strategy, err := gen.ParseTenantStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "genorders")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r, err := env.NewRun()
	if err != nil {
		return err
	}
	in := gen.OrderInput{Count: cfg.Count, Strategy: strategy}
	if in.Users, err = r.LoadUsers(ctx); err != nil {
		return err
	}
	if in.Inventories, err = r.LoadInventories(ctx); err != nil {
		return err
	}
	if in.Products, err = r.LoadProducts(ctx); err != nil {
		return err
	}
	if in.Links, err = r.LoadInventoryProducts(ctx); err != nil {
		return err
	}
	if cfg.Wipe {
		if _, _, err := r.Wipe(ctx, env.Tables.Orders); err != nil {
			return err
		}
	} else if err := env.ClaimExisting(ctx, r, env.Tables.Orders); err != nil {
		return err
	}
	res := r.Orders(ctx, in)
	env.Mirror(model.Orders, gen.Items(res.Records))
	return nil
}
