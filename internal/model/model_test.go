package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopseed/internal/store"
)

var created = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func sampleOrder() Order {
	o := Order{
		TenantID:     "uwu",
		OrderID:      "order_1",
		UserID:       "user_1",
		UserInfo:     UserInfo{Country: "Peru", City: "Lima", Address: "Av. Arequipa 123", PostalCode: "15001"},
		InventoryIDs: []string{"inventory_1", "inventory_2"},
		Lines: []OrderLine{
			{ProductID: "product_1", InventoryID: "inventory_1", Quantity: 3, Price: decimal.RequireFromString("0.10")},
			{ProductID: "product_2", InventoryID: "inventory_2", Quantity: 1, Price: decimal.RequireFromString("0.20")},
		},
		Status:       StatusPending,
		CreationDate: created,
		ShippingDate: created.Add(ShippingOffset),
	}
	o.TotalPrice = o.LinesTotal()
	return o
}

func TestOrder_TotalIsExactDecimal(t *testing.T) {
	o := sampleOrder()
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("0.5")), "got %s", o.TotalPrice)
	assert.Equal(t, "0.5", *o.Item()["total_price"].N)
}

func TestOrder_ItemRoundTrip(t *testing.T) {
	o := sampleOrder()
	it := o.Item()
	assert.Equal(t, "uwu#user_1", *it["tu_id"].S)

	back, err := OrderFromItem(it)
	require.NoError(t, err)
	assert.Equal(t, o.OrderID, back.OrderID)
	assert.Equal(t, o.InventoryIDs, back.InventoryIDs)
	assert.Equal(t, o.UserInfo, back.UserInfo)
	require.Len(t, back.Lines, 2)
	assert.True(t, back.TotalPrice.Equal(back.LinesTotal()))
	assert.True(t, back.CreationDate.Equal(created))
}

func TestOrderFromItem_RejectsConflictingShapes(t *testing.T) {
	cases := map[string]func(store.Item){
		"bad status":         func(it store.Item) { it["order_status"] = store.String("SHIPPED") },
		"missing user":       func(it store.Item) { delete(it, "user_id") },
		"numeric total as S": func(it store.Item) { it["total_price"] = store.String("12.00") },
		"empty products":     func(it store.Item) { it["products"] = store.List() },
		"legacy inventory":   func(it store.Item) { delete(it, "inventory_ids"); it["inventory_id"] = store.String("inventory_1") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			it := sampleOrder().Item()
			mutate(it)
			_, err := OrderFromItem(it)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestPayment_DetailsUnion(t *testing.T) {
	p := Payment{
		TenantID: "wong", PagoID: "pago_1", OrderID: "order_1", UserID: "user_1",
		Total: decimal.RequireFromString("199.90"), PaidAt: created.Add(time.Hour),
		Method:  MethodYape,
		Details: map[string]string{"phone": "999888777", "operation_id": "op-1"},
	}
	it := p.Item()
	union, err := it.Map("payment_details")
	require.NoError(t, err)
	assert.Equal(t, []string{"yape"}, union.Names())

	back, err := PaymentFromItem(it)
	require.NoError(t, err)
	assert.Equal(t, p.Details, back.Details)
	assert.Equal(t, MethodYape, back.Method)

	// variant key must match payment_method
	it["payment_method"] = store.String(string(MethodPlin))
	_, err = PaymentFromItem(it)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestPayment_EveryMethodHasFields(t *testing.T) {
	ms := Methods()
	assert.GreaterOrEqual(t, len(ms), 5)
	for _, m := range ms {
		assert.NotEmpty(t, m.Fields(), string(m))
	}
}

func TestReview_StarsAndKey(t *testing.T) {
	rv := Review{TenantID: "uwu", ProductID: "product_1", ReviewID: "review_1", UserID: "user_1",
		OrderID: "order_1", Comment: "ok", Stars: 5, LastModification: created.Add(ReviewDelay)}
	it := rv.Item()
	assert.Equal(t, "product_1#review_1", *it["pr_id"].S)
	back, err := ReviewFromItem(it)
	require.NoError(t, err)
	assert.Equal(t, rv, back)

	it["stars"] = store.Int(6)
	_, err = ReviewFromItem(it)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestInventoryProduct_RejectsForeignLinkID(t *testing.T) {
	l := InventoryProduct{TenantID: "uwu", InventoryID: "inventory_1", ProductID: "product_1", Stock: 4, LastModification: created}
	it := l.Item()
	_, err := InventoryProductFromItem(it)
	require.NoError(t, err)
	it["ip_id"] = store.String("product_1#inventory_1")
	_, err = InventoryProductFromItem(it)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestProductFromItem_MissingPrice(t *testing.T) {
	p := Product{TenantID: "uwu", ProductID: "product_1", Name: "x", Brand: "y", Price: decimal.RequireFromString("10.00")}
	it := p.Item()
	delete(it, "product_price")
	_, err := ProductFromItem(it)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestTables_Prefix(t *testing.T) {
	tb := NewTables("pf_")
	assert.Equal(t, "pf_ordenes", tb.Orders.Name)
	assert.Equal(t, "order_id", tb.Orders.SortKey)
	assert.Equal(t, TenantKey, tb.Reviews.PartitionKey)

	e, ok := Lookup("inventario")
	require.True(t, ok)
	assert.Equal(t, InventoryProducts.Name, e.Name)
	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestTables_ByName(t *testing.T) {
	tb := NewTables("pf_")
	got, ok := tb.ByName("pf_pagos")
	require.True(t, ok)
	assert.Equal(t, "pago_id", got.SortKey)
	assert.Len(t, tb.All(), len(Entities))
	_, ok = tb.ByName("pagos")
	assert.False(t, ok)
}
