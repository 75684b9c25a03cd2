package model

import (
	"time"

	"github.com/shopspring/decimal"

	"shopseed/internal/store"
)

type User struct {
	TenantID     string
	UserID       string
	PasswordHash string
	CreationDate time.Time
}

func (u User) Item() store.Item {
	return store.Item{
		TenantKey:       store.String(u.TenantID),
		"user_id":       store.String(u.UserID),
		"password":      store.String(u.PasswordHash),
		"creation_date": timeValue(u.CreationDate),
	}
}

func UserFromItem(it store.Item) (User, error) {
	r := reader{it: it}
	u := User{
		TenantID:     r.str(TenantKey),
		UserID:       r.str("user_id"),
		PasswordHash: r.optStr("password"),
		CreationDate: r.time("creation_date"),
	}
	if r.err != nil {
		return User{}, malformed("user", r.err)
	}
	return u, nil
}

type ProductInfo struct {
	Category    string
	SubCategory string
	ReleaseDate string
	Features    string
}

type Product struct {
	TenantID  string
	ProductID string
	Name      string
	Brand     string
	Price     decimal.Decimal
	Info      ProductInfo
}

func (p Product) Item() store.Item {
	return store.Item{
		TenantKey:       store.String(p.TenantID),
		"product_id":    store.String(p.ProductID),
		"product_name":  store.String(p.Name),
		"product_brand": store.String(p.Brand),
		"product_price": store.Number(p.Price),
		"product_info": store.Map(map[string]store.Value{
			"category":     store.String(p.Info.Category),
			"sub_category": store.String(p.Info.SubCategory),
			"release_date": store.String(p.Info.ReleaseDate),
			"features":     store.String(p.Info.Features),
		}),
	}
}

func ProductFromItem(it store.Item) (Product, error) {
	r := reader{it: it}
	p := Product{
		TenantID:  r.str(TenantKey),
		ProductID: r.str("product_id"),
		Name:      r.optStr("product_name"),
		Brand:     r.optStr("product_brand"),
		Price:     r.decimal("product_price"),
	}
	if r.err == nil {
		if _, ok := it["product_info"]; ok {
			info := reader{it: r.item("product_info")}
			if r.err == nil {
				p.Info = ProductInfo{
					Category:    info.optStr("category"),
					SubCategory: info.optStr("sub_category"),
					ReleaseDate: info.optStr("release_date"),
					Features:    info.optStr("features"),
				}
				r.err = info.err
			}
		}
	}
	if r.err == nil && p.Price.IsNegative() {
		r.err = errNegative("product_price")
	}
	if r.err != nil {
		return Product{}, malformed("product", r.err)
	}
	return p, nil
}

type Inventory struct {
	TenantID     string
	InventoryID  string
	Name         string
	Stock        int64
	Observations string
}

func (i Inventory) Item() store.Item {
	return store.Item{
		TenantKey:        store.String(i.TenantID),
		"inventory_id":   store.String(i.InventoryID),
		"inventory_name": store.String(i.Name),
		"stock":          store.Int(i.Stock),
		"observations":   store.String(i.Observations),
	}
}

func InventoryFromItem(it store.Item) (Inventory, error) {
	r := reader{it: it}
	inv := Inventory{
		TenantID:     r.str(TenantKey),
		InventoryID:  r.str("inventory_id"),
		Name:         r.optStr("inventory_name"),
		Stock:        r.integer("stock"),
		Observations: r.optStr("observations"),
	}
	if r.err == nil && inv.Stock < 0 {
		r.err = errNegative("stock")
	}
	if r.err != nil {
		return Inventory{}, malformed("inventory", r.err)
	}
	return inv, nil
}

// InventoryProduct links one product to one inventory with a per-location
// stock. Its sort key is "<inventory_id>#<product_id>".
type InventoryProduct struct {
	TenantID         string
	InventoryID      string
	ProductID        string
	Stock            int64
	LastModification time.Time
	Observations     string
}

func LinkID(inventoryID, productID string) string { return inventoryID + LinkSep + productID }

func (l InventoryProduct) ID() string { return LinkID(l.InventoryID, l.ProductID) }

func (l InventoryProduct) Item() store.Item {
	return store.Item{
		TenantKey:           store.String(l.TenantID),
		"ip_id":             store.String(l.ID()),
		"inventory_id":      store.String(l.InventoryID),
		"product_id":        store.String(l.ProductID),
		"stock":             store.Int(l.Stock),
		"last_modification": timeValue(l.LastModification),
		"observations":      store.String(l.Observations),
	}
}

func InventoryProductFromItem(it store.Item) (InventoryProduct, error) {
	r := reader{it: it}
	ipID := r.str("ip_id")
	l := InventoryProduct{
		TenantID:         r.str(TenantKey),
		InventoryID:      r.str("inventory_id"),
		ProductID:        r.str("product_id"),
		Stock:            r.integer("stock"),
		LastModification: r.time("last_modification"),
		Observations:     r.optStr("observations"),
	}
	if r.err == nil && ipID != l.ID() {
		r.err = errMismatch("ip_id", ipID, l.ID())
	}
	if r.err != nil {
		return InventoryProduct{}, malformed("inventory_product", r.err)
	}
	return l, nil
}
