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
	PerTenant int
	Wipe      bool
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("geninvprod failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.PerTenant, "per-tenant", 20, "inventory-product links to generate per tenant")
	flag.BoolVar(&cfg.Wipe, "wipe", false, "delete all stored links first")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "geninvprod")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r, err := env.NewRun()
	if err != nil {
		return err
	}
	invs, err := r.LoadInventories(ctx)
	if err != nil {
		return err
	}
	prods, err := r.LoadProducts(ctx)
	if err != nil {
		return err
	}
	if cfg.Wipe {
		if _, _, err := r.Wipe(ctx, env.Tables.InventoryProducts); err != nil {
			return err
		}
	} else if err := env.ClaimExisting(ctx, r, env.Tables.InventoryProducts); err != nil {
		return err
	}
	res := r.InventoryProducts(ctx, invs, prods, cfg.PerTenant)
	env.Mirror(model.InventoryProducts, gen.Items(res.Records))
	return nil
}
