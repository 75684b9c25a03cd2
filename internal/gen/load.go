package gen

import (
	"context"

	"github.com/sirupsen/logrus"

	"shopseed/internal/model"
	"shopseed/internal/store"
)

// load scans t and converts every row, skipping rows that do not match the
// canonical schema.
func load[T any](ctx context.Context, r *Run, t store.Table, conv func(store.Item) (T, error)) ([]T, error) {
	var (
		out   []T
		pages int
		bad   int
	)
	err := store.ScanPages(ctx, r.Store, t, 0, func(p store.Page) error {
		pages++
		for _, it := range p.Items {
			v, err := conv(it)
			if err != nil {
				bad++
				r.Log.WithFields(logrus.Fields{"table": t.Name, "error": err}).Warn("skip malformed row")
				continue
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.Metrics != nil {
		r.Metrics.ScanPages.Observe(float64(pages))
	}
	r.Log.WithFields(logrus.Fields{"table": t.Name, "rows": len(out), "malformed": bad}).Info("pool loaded")
	return out, nil
}

func (r *Run) LoadUsers(ctx context.Context) ([]model.User, error) {
	return load(ctx, r, r.Tables.Users, model.UserFromItem)
}

func (r *Run) LoadProducts(ctx context.Context) ([]model.Product, error) {
	return load(ctx, r, r.Tables.Products, model.ProductFromItem)
}

func (r *Run) LoadInventories(ctx context.Context) ([]model.Inventory, error) {
	return load(ctx, r, r.Tables.Inventories, model.InventoryFromItem)
}

func (r *Run) LoadInventoryProducts(ctx context.Context) ([]model.InventoryProduct, error) {
	return load(ctx, r, r.Tables.InventoryProducts, model.InventoryProductFromItem)
}

func (r *Run) LoadOrders(ctx context.Context) ([]model.Order, error) {
	return load(ctx, r, r.Tables.Orders, model.OrderFromItem)
}
