package gen

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"shopseed/internal/model"
	"shopseed/internal/store"
)

// TenantStrategy decides which tenant each order attempt belongs to.
type TenantStrategy string

const (
	// TenantUniform picks an eligible tenant uniformly, then a random buyer.
	TenantUniform TenantStrategy = "uniform"
	// TenantPerUser cycles through the buyers of eligible tenants in order.
	TenantPerUser TenantStrategy = "per-user"
)

func ParseTenantStrategy(s string) (TenantStrategy, error) {
	switch TenantStrategy(s) {
	case "", TenantUniform:
		return TenantUniform, nil
	case TenantPerUser:
		return TenantPerUser, nil
	}
	return "", fmt.Errorf("unknown tenant strategy %q", s)
}

const (
	maxOrderInventories = 5
	maxProductsPerInv   = 3
	maxLineQuantity     = 5
	orderWindowMin      = 24 * time.Hour
	orderWindowMax      = 365 * 24 * time.Hour
)

type OrderInput struct {
	Users       []model.User
	Inventories []model.Inventory
	Products    []model.Product
	// Links restricts each inventory to the products stocked in it. When empty
	// every product of the tenant counts as available everywhere.
	Links    []model.InventoryProduct
	Count    int
	Strategy TenantStrategy
}

// tenantPool is what one tenant can offer an order.
type tenantPool struct {
	users       []model.User
	inventories []model.Inventory
	products    map[string]model.Product
	productIDs  []string            // sorted, used without links
	stocked     map[string][]string // inventory -> product ids with stock
}

func (p *tenantPool) available(inventoryID string, useLinks bool) []string {
	if useLinks {
		return p.stocked[inventoryID]
	}
	return p.productIDs
}

func buildPools(in OrderInput, useLinks bool) map[string]*tenantPool {
	pools := make(map[string]*tenantPool)
	get := func(tenant string) *tenantPool {
		p := pools[tenant]
		if p == nil {
			p = &tenantPool{products: map[string]model.Product{}, stocked: map[string][]string{}}
			pools[tenant] = p
		}
		return p
	}
	for _, u := range in.Users {
		p := get(u.TenantID)
		p.users = append(p.users, u)
	}
	for _, prod := range in.Products {
		p := get(prod.TenantID)
		if _, dup := p.products[prod.ProductID]; !dup {
			p.productIDs = append(p.productIDs, prod.ProductID)
		}
		p.products[prod.ProductID] = prod
	}
	for _, l := range in.Links {
		p := get(l.TenantID)
		if _, known := p.products[l.ProductID]; !known || l.Stock <= 0 {
			continue
		}
		p.stocked[l.InventoryID] = append(p.stocked[l.InventoryID], l.ProductID)
	}
	for _, inv := range in.Inventories {
		p := get(inv.TenantID)
		if useLinks && len(p.stocked[inv.InventoryID]) == 0 {
			continue
		}
		p.inventories = append(p.inventories, inv)
	}
	for _, p := range pools {
		sort.Strings(p.productIDs)
		for inv, ids := range p.stocked {
			p.stocked[inv] = dedupe(ids)
		}
	}
	return pools
}

// Orders synthesizes in.Count order attempts. An attempt whose tenant cannot
// supply a buyer, an inventory and a product is skipped, never an error.
func (r *Run) Orders(ctx context.Context, in OrderInput) Result[model.Order] {
	var res Result[model.Order]
	t := r.Tables.Orders
	useLinks := len(in.Links) > 0
	pools := buildPools(in, useLinks)

	var eligible []string
	var buyers []model.User
	for _, tenant := range sortedKeys(pools) {
		p := pools[tenant]
		if len(p.users) == 0 || len(p.inventories) == 0 || len(p.products) == 0 {
			r.Log.WithFields(logrus.Fields{
				"tenant":      tenant,
				"users":       len(p.users),
				"inventories": len(p.inventories),
				"products":    len(p.products),
			}).Info("tenant not eligible for orders")
			continue
		}
		eligible = append(eligible, tenant)
		buyers = append(buyers, p.users...)
	}
	if len(eligible) == 0 {
		for i := 0; i < in.Count; i++ {
			r.skip(t, &res.Stats, "no eligible tenant", nil)
		}
		r.logDone(t.Name, res.Stats)
		return res
	}

	now := r.now()
	for i := 0; i < in.Count; i++ {
		var buyer model.User
		if in.Strategy == TenantPerUser {
			buyer = buyers[i%len(buyers)]
		} else {
			p := pools[eligible[r.Rand.Intn(len(eligible))]]
			buyer = p.users[r.Rand.Intn(len(p.users))]
		}
		o, ok := r.synthesizeOrder(t, pools[buyer.TenantID], buyer, useLinks, now, &res.Stats)
		if !ok {
			continue
		}
		res.Records = append(res.Records, o)
		r.put(ctx, t, o.Item(), &res.Stats)
	}
	r.logDone(t.Name, res.Stats)
	return res
}

func (r *Run) synthesizeOrder(t store.Table, p *tenantPool, buyer model.User, useLinks bool, now time.Time, st *Stats) (model.Order, bool) {
	invIdx := r.sample(len(p.inventories), 1+r.Rand.Intn(maxOrderInventories))
	o := model.Order{TenantID: buyer.TenantID, UserID: buyer.UserID, Status: model.StatusPending}
	for _, ii := range invIdx {
		inv := p.inventories[ii]
		avail := p.available(inv.InventoryID, useLinks)
		if len(avail) == 0 {
			continue
		}
		o.InventoryIDs = append(o.InventoryIDs, inv.InventoryID)
		for _, pi := range r.sample(len(avail), 1+r.Rand.Intn(maxProductsPerInv)) {
			prod := p.products[avail[pi]]
			o.Lines = append(o.Lines, model.OrderLine{
				ProductID:   prod.ProductID,
				InventoryID: inv.InventoryID,
				Quantity:    r.intn(1, maxLineQuantity),
				Price:       prod.Price,
			})
		}
	}
	if len(o.Lines) == 0 {
		r.skip(t, st, "no stocked products", logrus.Fields{"tenant": buyer.TenantID})
		return model.Order{}, false
	}
	id, ok := r.nextID(t, "order", st)
	if !ok {
		return model.Order{}, false
	}
	o.OrderID = id
	o.UserInfo = r.userInfo()
	o.TotalPrice = o.LinesTotal()
	o.CreationDate = now.Add(-r.between(orderWindowMin, orderWindowMax))
	o.ShippingDate = o.CreationDate.Add(model.ShippingOffset)
	return o, true
}

func (r *Run) userInfo() model.UserInfo {
	a := r.Faker.Address()
	return model.UserInfo{Country: a.Country, City: a.City, Address: a.Street, PostalCode: a.Zip}
}

func dedupe(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	out := ss[:0]
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
