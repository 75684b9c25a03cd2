package gen

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"shopseed/internal/model"
)

const (
	userWindow    = 30 * 24 * time.Hour
	releaseWindow = 5 * 365 * 24 * time.Hour

	minPriceCents = 1000
	maxPriceCents = 500000
	minStock      = 50
	maxStock      = 10000
)

func (r *Run) tenant(tenants []string) string { return tenants[r.Rand.Intn(len(tenants))] }

// Users creates count users spread uniformly over tenants.
func (r *Run) Users(ctx context.Context, count int, tenants []string) Result[model.User] {
	var res Result[model.User]
	t := r.Tables.Users
	if len(tenants) == 0 {
		r.Log.WithField("table", t.Name).Warn("no tenants configured")
		return res
	}
	now := r.now()
	for i := 0; i < count; i++ {
		id, ok := r.nextID(t, "user", &res.Stats)
		if !ok {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(r.Faker.Password(true, true, true, false, false, 12)), r.BcryptCost)
		if err != nil {
			r.skip(t, &res.Stats, "password hash failed", logrus.Fields{"error": err})
			continue
		}
		u := model.User{
			TenantID:     r.tenant(tenants),
			UserID:       id,
			PasswordHash: string(hash),
			CreationDate: now.Add(-r.between(0, userWindow)),
		}
		res.Records = append(res.Records, u)
		r.put(ctx, t, u.Item(), &res.Stats)
	}
	r.logDone(t.Name, res.Stats)
	return res
}

// Products draws category, sub-category and brand from the catalogue with a
// price in [10.00, 5000.00] at cent precision.
func (r *Run) Products(ctx context.Context, count int, tenants []string) Result[model.Product] {
	var res Result[model.Product]
	t := r.Tables.Products
	if len(tenants) == 0 {
		r.Log.WithField("table", t.Name).Warn("no tenants configured")
		return res
	}
	now := r.now()
	for i := 0; i < count; i++ {
		id, ok := r.nextID(t, "product", &res.Stats)
		if !ok {
			continue
		}
		cat := catalogue[r.Rand.Intn(len(catalogue))]
		sub := cat.subs[r.Rand.Intn(len(cat.subs))]
		brand := sub.brands[r.Rand.Intn(len(sub.brands))]
		p := model.Product{
			TenantID:  r.tenant(tenants),
			ProductID: id,
			Name:      fmt.Sprintf("%s %s %d", brand, sub.singular, r.intn(100, 999)),
			Brand:     brand,
			Price:     decimal.New(r.intn(minPriceCents, maxPriceCents), -2),
			Info: model.ProductInfo{
				Category:    cat.name,
				SubCategory: sub.name,
				ReleaseDate: now.Add(-r.between(0, releaseWindow)).Format(model.DateLayout),
				Features:    r.Faker.Sentence(8),
			},
		}
		res.Records = append(res.Records, p)
		r.put(ctx, t, p.Item(), &res.Stats)
	}
	r.logDone(t.Name, res.Stats)
	return res
}

func (r *Run) Inventories(ctx context.Context, count int, tenants []string) Result[model.Inventory] {
	var res Result[model.Inventory]
	t := r.Tables.Inventories
	if len(tenants) == 0 {
		r.Log.WithField("table", t.Name).Warn("no tenants configured")
		return res
	}
	for i := 0; i < count; i++ {
		id, ok := r.nextID(t, "inventory", &res.Stats)
		if !ok {
			continue
		}
		inv := model.Inventory{
			TenantID:     r.tenant(tenants),
			InventoryID:  id,
			Name:         r.Faker.Company(),
			Stock:        r.intn(minStock, maxStock),
			Observations: r.Faker.Sentence(6),
		}
		res.Records = append(res.Records, inv)
		r.put(ctx, t, inv.Item(), &res.Stats)
	}
	r.logDone(t.Name, res.Stats)
	return res
}

// InventoryProducts makes perTenant link attempts for every tenant that has
// both inventories and products. Inventories without stock and repeated
// inventory/product pairs are skipped.
func (r *Run) InventoryProducts(ctx context.Context, inventories []model.Inventory, products []model.Product, perTenant int) Result[model.InventoryProduct] {
	var res Result[model.InventoryProduct]
	t := r.Tables.InventoryProducts
	invByTenant := groupBy(inventories, func(i model.Inventory) string { return i.TenantID })
	prodByTenant := groupBy(products, func(p model.Product) string { return p.TenantID })
	now := r.now()

	for _, tenant := range sortedKeys(invByTenant) {
		invs, prods := invByTenant[tenant], prodByTenant[tenant]
		if len(prods) == 0 {
			r.Log.WithFields(logrus.Fields{"table": t.Name, "tenant": tenant}).Info("tenant has no products")
			continue
		}
		for i := 0; i < perTenant; i++ {
			inv := invs[r.Rand.Intn(len(invs))]
			prod := prods[r.Rand.Intn(len(prods))]
			if inv.Stock <= 0 {
				r.skip(t, &res.Stats, "inventory without stock", logrus.Fields{"inventory_id": inv.InventoryID})
				continue
			}
			if !r.IDs.Claim(model.LinkID(inv.InventoryID, prod.ProductID)) {
				r.skip(t, &res.Stats, "duplicate link", logrus.Fields{"inventory_id": inv.InventoryID, "product_id": prod.ProductID})
				continue
			}
			l := model.InventoryProduct{
				TenantID:         tenant,
				InventoryID:      inv.InventoryID,
				ProductID:        prod.ProductID,
				Stock:            r.intn(1, inv.Stock),
				LastModification: now,
				Observations:     fmt.Sprintf("Product added to inventory %s.", inv.Name),
			}
			res.Records = append(res.Records, l)
			r.put(ctx, t, l.Item(), &res.Stats)
		}
	}
	r.logDone(t.Name, res.Stats)
	return res
}

func (r *Run) logDone(table string, st Stats) {
	r.Log.WithFields(logrus.Fields{
		"table":   table,
		"written": st.Written,
		"failed":  st.Failed,
		"skipped": st.Skipped,
	}).Info("generation finished")
}

func groupBy[T any](xs []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, x := range xs {
		k := key(x)
		out[k] = append(out[k], x)
	}
	return out
}
