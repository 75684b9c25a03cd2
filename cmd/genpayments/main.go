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
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("genpayments failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.Limit, "limit", 20, "maximum number of pending orders to pay")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "genpayments")
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
	if err := env.ClaimExisting(ctx, r, env.Tables.Payments); err != nil {
		return err
	}
	res := r.Payments(ctx, orders, cfg.Limit)
	env.Log.WithField("both", res.Count(gen.OutcomeBoth)).
		WithField("payment_only", res.Count(gen.OutcomePaymentOnly)).
		WithField("failed", res.Count(gen.OutcomeFailed)).
		Info("payment outcomes")
	env.Mirror(model.Payments, gen.Items(res.Records))
	return nil
}
