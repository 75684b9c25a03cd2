package main

import (
	"context"
	"flag"
	"log"

	"github.com/sirupsen/logrus"

	"shopseed/internal/app"
	"shopseed/internal/gen"
	"shopseed/internal/model"
)

// Config holds the per-stage counts. Each stage reads its inputs back from
// the store, so only records that were actually written feed the next one.
type Config struct {
	app.Common
	Users       int
	Products    int
	Inventories int
	PerTenant   int
	Orders      int
	Payments    int
	Reviews     int
	Strategy    string
	Wipe        bool
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	app.BindCommon(&cfg.Common)
	flag.IntVar(&cfg.Users, "users", 100, "users to generate")
	flag.IntVar(&cfg.Products, "products", 100, "products to generate")
	flag.IntVar(&cfg.Inventories, "inventories", 20, "inventories to generate")
	flag.IntVar(&cfg.PerTenant, "links-per-tenant", 20, "inventory-product links per tenant")
	flag.IntVar(&cfg.Orders, "orders", 20, "orders to generate")
	flag.IntVar(&cfg.Payments, "payments", 20, "pending orders to pay")
	flag.IntVar(&cfg.Reviews, "reviews", 100, "maximum reviews to generate")
	flag.StringVar(&cfg.Strategy, "tenant-strategy", string(gen.TenantUniform), "tenant selection for orders: uniform|per-user")
	flag.BoolVar(&cfg.Wipe, "wipe", false, "delete every table before generating")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	strategy, err := gen.ParseTenantStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	ctx := context.Background()
	env, err := app.Boot(ctx, cfg.Common, "seed")
	if err != nil {
		return err
	}
	defer env.Close(cfg.MetricsFile)

	r, err := env.NewRun()
	if err != nil {
		return err
	}
	all := env.Tables.All()
	if cfg.Wipe {
		for _, t := range all {
			if _, _, err := r.Wipe(ctx, t); err != nil {
				return err
			}
		}
	} else if err := env.ClaimExisting(ctx, r, all...); err != nil {
		return err
	}

	tenants := env.Cfg.Tenants
	env.Mirror(model.Users, gen.Items(r.Users(ctx, cfg.Users, tenants).Records))
	env.Mirror(model.Products, gen.Items(r.Products(ctx, cfg.Products, tenants).Records))
	env.Mirror(model.Inventories, gen.Items(r.Inventories(ctx, cfg.Inventories, tenants).Records))

	in := gen.OrderInput{Count: cfg.Orders, Strategy: strategy}
	if in.Inventories, err = r.LoadInventories(ctx); err != nil {
		return err
	}
	if in.Products, err = r.LoadProducts(ctx); err != nil {
		return err
	}
	links := r.InventoryProducts(ctx, in.Inventories, in.Products, cfg.PerTenant)
	env.Mirror(model.InventoryProducts, gen.Items(links.Records))

	if in.Users, err = r.LoadUsers(ctx); err != nil {
		return err
	}
	if in.Links, err = r.LoadInventoryProducts(ctx); err != nil {
		return err
	}
	env.Mirror(model.Orders, gen.Items(r.Orders(ctx, in).Records))

	orders, err := r.LoadOrders(ctx)
	if err != nil {
		return err
	}
	pays := r.Payments(ctx, orders, cfg.Payments)
	env.Mirror(model.Payments, gen.Items(pays.Records))

	if orders, err = r.LoadOrders(ctx); err != nil {
		return err
	}
	env.Mirror(model.Reviews, gen.Items(r.Reviews(ctx, orders, cfg.Reviews).Records))

	env.Log.WithFields(logrus.Fields{
		"payments_both":         pays.Count(gen.OutcomeBoth),
		"payments_payment_only": pays.Count(gen.OutcomePaymentOnly),
		"payments_failed":       pays.Count(gen.OutcomeFailed),
	}).Info("seed complete")
	return nil
}
