package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shopseed/internal/store"
)

type OrderStatus string

const (
	StatusPending  OrderStatus = "PENDING"
	StatusApproved OrderStatus = "APPROVED PAYMENT"
)

func (s OrderStatus) Valid() bool { return s == StatusPending || s == StatusApproved }

// ShippingOffset is the fixed delay between order creation and shipping.
const ShippingOffset = 7 * 24 * time.Hour

type UserInfo struct {
	Country    string
	City       string
	Address    string
	PostalCode string
}

func (u UserInfo) Value() store.Value {
	return store.Map(map[string]store.Value{
		"country":     store.String(u.Country),
		"city":        store.String(u.City),
		"address":     store.String(u.Address),
		"postal_code": store.String(u.PostalCode),
	})
}

func userInfoFrom(it store.Item) (UserInfo, error) {
	r := reader{it: it}
	u := UserInfo{
		Country:    r.optStr("country"),
		City:       r.optStr("city"),
		Address:    r.optStr("address"),
		PostalCode: r.optStr("postal_code"),
	}
	return u, r.err
}

type OrderLine struct {
	ProductID   string
	InventoryID string
	Quantity    int64
	Price       decimal.Decimal
}

func (l OrderLine) Total() decimal.Decimal { return l.Price.Mul(decimal.NewFromInt(l.Quantity)) }

type Order struct {
	TenantID     string
	OrderID      string
	UserID       string
	UserInfo     UserInfo
	InventoryIDs []string
	Lines        []OrderLine
	TotalPrice   decimal.Decimal
	Status       OrderStatus
	CreationDate time.Time
	ShippingDate time.Time
}

// TUID is the "<tenant>#<user>" secondary key carried by orders and payments.
func TUID(tenantID, userID string) string { return tenantID + LinkSep + userID }

// LinesTotal sums price times quantity over every line.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

func (o Order) Key() store.Key { return store.Key{Partition: o.TenantID, Sort: o.OrderID} }

func (o Order) Item() store.Item {
	lines := make([]store.Value, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, store.Map(map[string]store.Value{
			"product_id":   store.String(l.ProductID),
			"inventory_id": store.String(l.InventoryID),
			"quantity":     store.Int(l.Quantity),
			"price":        store.Number(l.Price),
		}))
	}
	return store.Item{
		TenantKey:       store.String(o.TenantID),
		"order_id":      store.String(o.OrderID),
		"user_id":       store.String(o.UserID),
		"tu_id":         store.String(TUID(o.TenantID, o.UserID)),
		"user_info":     o.UserInfo.Value(),
		"inventory_ids": stringList(o.InventoryIDs),
		"products":      store.List(lines...),
		"total_price":   store.Number(o.TotalPrice),
		"order_status":  store.String(string(o.Status)),
		"creation_date": timeValue(o.CreationDate),
		"shipping_date": timeValue(o.ShippingDate),
	}
}

func OrderFromItem(it store.Item) (Order, error) {
	r := reader{it: it}
	o := Order{
		TenantID:     r.str(TenantKey),
		OrderID:      r.str("order_id"),
		UserID:       r.str("user_id"),
		TotalPrice:   r.decimal("total_price"),
		Status:       OrderStatus(r.str("order_status")),
		CreationDate: r.time("creation_date"),
		ShippingDate: r.time("shipping_date"),
	}
	info := r.item("user_info")
	if r.err == nil {
		o.UserInfo, r.err = userInfoFrom(info)
	}
	if r.err == nil {
		o.InventoryIDs, r.err = it.StringList("inventory_ids")
	}
	if r.err == nil {
		o.Lines, r.err = linesFrom(it)
	}
	if r.err == nil && !o.Status.Valid() {
		r.err = fmt.Errorf("order_status: unknown %q", o.Status)
	}
	if r.err != nil {
		return Order{}, malformed("order", r.err)
	}
	return o, nil
}

func linesFrom(it store.Item) ([]OrderLine, error) {
	vs, err := it.List("products")
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, fmt.Errorf("products: empty")
	}
	lines := make([]OrderLine, 0, len(vs))
	for i, v := range vs {
		if v.M == nil {
			return nil, fmt.Errorf("products[%d]: want M: %w", i, store.ErrAttribute)
		}
		r := reader{it: store.Item(v.M)}
		l := OrderLine{
			ProductID:   r.str("product_id"),
			InventoryID: r.optStr("inventory_id"),
			Quantity:    r.integer("quantity"),
			Price:       r.decimal("price"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, r.err)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("products[%d]: quantity %d", i, l.Quantity)
		}
		lines = append(lines, l)
	}
	return lines, nil
}
