package gen

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shopseed/internal/changelog"
	"shopseed/internal/ids"
	"shopseed/internal/model"
	"shopseed/internal/store"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRun(t *testing.T, st store.Store) *Run {
	t.Helper()
	r := NewRun(st, model.NewTables("pf_"), 42, ids.StrategySeq)
	logger, _ := test.NewNullLogger()
	r.Log = logger
	r.Now = func() time.Time { return fixedNow }
	r.BcryptCost = bcrypt.MinCost
	return r
}

// crossLinked builds one tenant with 2 users, 3 inventories and 5 products,
// every inventory stocking every product.
func crossLinked() OrderInput {
	in := OrderInput{Count: 10, Strategy: TenantUniform}
	for i := 1; i <= 2; i++ {
		in.Users = append(in.Users, model.User{TenantID: "uwu", UserID: fmt.Sprintf("user_%d", i), CreationDate: fixedNow})
	}
	for i := 1; i <= 5; i++ {
		in.Products = append(in.Products, model.Product{
			TenantID: "uwu", ProductID: fmt.Sprintf("product_%d", i),
			Price: decimal.RequireFromString(fmt.Sprintf("%d.1%d", 10*i, i)),
		})
	}
	for i := 1; i <= 3; i++ {
		inv := model.Inventory{TenantID: "uwu", InventoryID: fmt.Sprintf("inventory_%d", i), Stock: 100}
		in.Inventories = append(in.Inventories, inv)
		for _, p := range in.Products {
			in.Links = append(in.Links, model.InventoryProduct{TenantID: "uwu", InventoryID: inv.InventoryID, ProductID: p.ProductID, Stock: 10})
		}
	}
	return in
}

func TestOrders_CrossLinkedTenantProducesEveryOrder(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	in := crossLinked()

	res := r.Orders(context.Background(), in)
	require.Equal(t, 0, res.Skipped)
	require.Len(t, res.Records, 10)
	assert.Equal(t, 10, res.Written)
	assert.Equal(t, 10, st.Len(r.Tables.Orders))

	prices := map[string]decimal.Decimal{}
	for _, p := range in.Products {
		prices[p.ProductID] = p.Price
	}
	for _, o := range res.Records {
		assert.Equal(t, "uwu", o.TenantID)
		assert.Contains(t, []string{"user_1", "user_2"}, o.UserID)
		assert.Equal(t, model.StatusPending, o.Status)
		require.NotEmpty(t, o.Lines)
		assert.LessOrEqual(t, len(o.InventoryIDs), 3)

		sum := decimal.Zero
		perInv := map[string]map[string]bool{}
		for _, l := range o.Lines {
			assert.Contains(t, o.InventoryIDs, l.InventoryID)
			assert.True(t, l.Price.Equal(prices[l.ProductID]))
			assert.GreaterOrEqual(t, l.Quantity, int64(1))
			assert.LessOrEqual(t, l.Quantity, int64(5))
			if perInv[l.InventoryID] == nil {
				perInv[l.InventoryID] = map[string]bool{}
			}
			assert.False(t, perInv[l.InventoryID][l.ProductID], "product repeated within inventory")
			perInv[l.InventoryID][l.ProductID] = true
			sum = sum.Add(l.Price.Mul(decimal.NewFromInt(l.Quantity)))
		}
		for _, ps := range perInv {
			assert.LessOrEqual(t, len(ps), 3)
		}
		assert.True(t, o.TotalPrice.Equal(sum), "total %s != %s", o.TotalPrice, sum)

		age := fixedNow.Sub(o.CreationDate)
		assert.GreaterOrEqual(t, age, 24*time.Hour)
		assert.LessOrEqual(t, age, 365*24*time.Hour)
		assert.Equal(t, model.ShippingOffset, o.ShippingDate.Sub(o.CreationDate))
	}
}

func TestOrders_FallsBackToTenantProductsWithoutLinks(t *testing.T) {
	r := newTestRun(t, store.NewInMemoryStore())
	in := crossLinked()
	in.Links = nil

	res := r.Orders(context.Background(), in)
	assert.Equal(t, 0, res.Skipped)
	assert.Len(t, res.Records, 10)
}

func TestOrders_OnlyLinkedProductsAreUsed(t *testing.T) {
	r := newTestRun(t, store.NewInMemoryStore())
	in := crossLinked()
	in.Links = []model.InventoryProduct{
		{TenantID: "uwu", InventoryID: "inventory_2", ProductID: "product_3", Stock: 4},
		{TenantID: "uwu", InventoryID: "inventory_1", ProductID: "product_1", Stock: 0},
	}

	res := r.Orders(context.Background(), in)
	require.Len(t, res.Records, 10)
	for _, o := range res.Records {
		assert.Equal(t, []string{"inventory_2"}, o.InventoryIDs)
		require.Len(t, o.Lines, 1)
		assert.Equal(t, "product_3", o.Lines[0].ProductID)
	}
}

func TestOrders_SkipsIneligibleTenantsWithoutError(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	in := OrderInput{
		Users:    []model.User{{TenantID: "wong", UserID: "user_1"}},
		Products: []model.Product{{TenantID: "wong", ProductID: "product_1", Price: decimal.NewFromInt(5)}},
		Count:    4,
	}

	res := r.Orders(context.Background(), in)
	assert.Empty(t, res.Records)
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 0, st.Len(r.Tables.Orders))
}

func TestOrders_PerUserCyclesBuyers(t *testing.T) {
	r := newTestRun(t, store.NewInMemoryStore())
	in := crossLinked()
	in.Strategy = TenantPerUser
	in.Count = 4

	res := r.Orders(context.Background(), in)
	require.Len(t, res.Records, 4)
	got := []string{}
	for _, o := range res.Records {
		got = append(got, o.UserID)
	}
	assert.Equal(t, []string{"user_1", "user_2", "user_1", "user_2"}, got)
}

type failingStore struct {
	store.Store
	failPut    string // table name
	failUpdate string
}

func (f *failingStore) Put(ctx context.Context, t store.Table, it store.Item) error {
	if t.Name == f.failPut {
		return errors.New("throttled")
	}
	return f.Store.Put(ctx, t, it)
}

func (f *failingStore) UpdateField(ctx context.Context, t store.Table, k store.Key, field string, v store.Value) error {
	if t.Name == f.failUpdate {
		return errors.New("conditional check failed")
	}
	return f.Store.UpdateField(ctx, t, k, field, v)
}

func seedOrders(t *testing.T, r *Run, approvedEvery int) []model.Order {
	t.Helper()
	res := r.Orders(context.Background(), crossLinked())
	require.Len(t, res.Records, 10)
	orders := res.Records
	if approvedEvery > 0 {
		for i := range orders {
			if i%approvedEvery == 0 {
				orders[i].Status = model.StatusApproved
				require.NoError(t, r.Store.Put(context.Background(), r.Tables.Orders, orders[i].Item()))
			}
		}
	}
	return orders
}

func TestPayments_HalfApprovedGetsNoNewPayments(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	orders := seedOrders(t, r, 2)

	res := r.Payments(context.Background(), orders, 0)
	assert.Equal(t, 5, res.Skipped)
	assert.Equal(t, 5, res.Count(OutcomeBoth))
	assert.Equal(t, 5, st.Len(r.Tables.Payments))

	paid := map[string]int{}
	for _, p := range res.Records {
		paid[p.OrderID]++
	}
	for i, o := range orders {
		if i%2 == 0 {
			assert.Zero(t, paid[o.OrderID], "approved order %s got a payment", o.OrderID)
			continue
		}
		assert.Equal(t, 1, paid[o.OrderID])
		got, err := st.Get(context.Background(), r.Tables.Orders, o.Key())
		require.NoError(t, err)
		status, _ := got.String("order_status")
		assert.Equal(t, string(model.StatusApproved), status)
	}
}

func TestPayments_AmountTimingAndDetails(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	orders := seedOrders(t, r, 0)

	res := r.Payments(context.Background(), orders, 3)
	require.Len(t, res.Outcomes, 3)
	byID := map[string]model.Order{}
	for _, o := range orders {
		byID[o.OrderID] = o
	}
	for _, p := range res.Records {
		o := byID[p.OrderID]
		assert.True(t, p.Total.Equal(o.TotalPrice))
		d := p.PaidAt.Sub(o.CreationDate)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, model.PaymentWindow)

		it, err := st.Get(context.Background(), r.Tables.Payments, store.Key{Partition: p.TenantID, Sort: p.PagoID})
		require.NoError(t, err)
		back, err := model.PaymentFromItem(it)
		require.NoError(t, err, "stored payment must match the canonical schema")
		assert.Equal(t, p.Method, back.Method)
	}
}

func TestPayments_StatusUpdateFailureLeavesPaymentOnly(t *testing.T) {
	mem := store.NewInMemoryStore()
	r := newTestRun(t, mem)
	orders := seedOrders(t, r, 0)
	r.Store = &failingStore{Store: mem, failUpdate: r.Tables.Orders.Name}

	res := r.Payments(context.Background(), orders[:2], 0)
	assert.Equal(t, 2, res.Count(OutcomePaymentOnly))
	assert.Equal(t, 2, mem.Len(r.Tables.Payments))
	for _, po := range res.Outcomes {
		require.Error(t, po.Err)
		got, err := mem.Get(context.Background(), r.Tables.Orders, store.Key{Partition: "uwu", Sort: po.OrderID})
		require.NoError(t, err)
		status, _ := got.String("order_status")
		assert.Equal(t, string(model.StatusPending), status)
	}
}

func TestPayments_PaymentWriteFailureTouchesNothing(t *testing.T) {
	mem := store.NewInMemoryStore()
	r := newTestRun(t, mem)
	orders := seedOrders(t, r, 0)
	r.Store = &failingStore{Store: mem, failPut: r.Tables.Payments.Name}

	res := r.Payments(context.Background(), orders[:3], 0)
	assert.Equal(t, 3, res.Count(OutcomeFailed))
	assert.Equal(t, 0, mem.Len(r.Tables.Payments))
	assert.Len(t, res.Records, 3, "synthesized payments are kept even when the write fails")
	for _, o := range orders[:3] {
		got, _ := mem.Get(context.Background(), r.Tables.Orders, o.Key())
		status, _ := got.String("order_status")
		assert.Equal(t, string(model.StatusPending), status)
	}
}

// failingJournal rejects every mutation of the given op.
type failingJournal struct {
	failOp changelog.Op
	ok     []changelog.Mutation
}

func (f *failingJournal) Append(_ context.Context, m changelog.Mutation) error {
	if m.Op == f.failOp {
		return errors.New("journal unavailable")
	}
	f.ok = append(f.ok, m)
	return nil
}

func (f *failingJournal) Close() error { return nil }

func TestPayments_JournalFailureStillApproves(t *testing.T) {
	for _, op := range []changelog.Op{changelog.OpPut, changelog.OpUpdate} {
		t.Run(string(op), func(t *testing.T) {
			mem := store.NewInMemoryStore()
			r := newTestRun(t, mem)
			orders := seedOrders(t, r, 0)
			r.Store = changelog.Journaled(mem, &failingJournal{failOp: op})

			res := r.Payments(context.Background(), orders[:2], 0)
			assert.Equal(t, 2, res.Count(OutcomeBoth))
			assert.Equal(t, 2, res.Written)
			assert.Zero(t, res.Failed)
			assert.Equal(t, 2, mem.Len(r.Tables.Payments))
			for _, po := range res.Outcomes {
				assert.NoError(t, po.Err)
				got, err := mem.Get(context.Background(), r.Tables.Orders, store.Key{Partition: "uwu", Sort: po.OrderID})
				require.NoError(t, err)
				status, _ := got.String("order_status")
				assert.Equal(t, string(model.StatusApproved), status)
			}
		})
	}
}

func TestUsers_JournalFailureCountsAsWritten(t *testing.T) {
	mem := store.NewInMemoryStore()
	r := newTestRun(t, mem)
	r.Store = changelog.Journaled(mem, &failingJournal{failOp: changelog.OpPut})

	res := r.Users(context.Background(), 3, []string{"uwu"})
	assert.Equal(t, 3, res.Written)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 3, mem.Len(r.Tables.Users))
}

func TestReviews_OnlyApprovedOrdersOnePerLine(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	orders := seedOrders(t, r, 2)

	approvedLines := 0
	approved := map[string]model.Order{}
	for _, o := range orders {
		if o.Status == model.StatusApproved {
			approvedLines += len(o.Lines)
			approved[o.OrderID] = o
		}
	}

	res := r.Reviews(context.Background(), orders, 0)
	require.Len(t, res.Records, approvedLines)
	assert.Equal(t, approvedLines, st.Len(r.Tables.Reviews))
	for _, rv := range res.Records {
		o, ok := approved[rv.OrderID]
		require.True(t, ok, "review for non-approved order %s", rv.OrderID)
		assert.Equal(t, o.CreationDate.Add(model.ReviewDelay), rv.LastModification)
		assert.GreaterOrEqual(t, rv.Stars, int64(1))
		assert.LessOrEqual(t, rv.Stars, int64(5))
	}
}

func TestReviews_GlobalCap(t *testing.T) {
	r := newTestRun(t, store.NewInMemoryStore())
	orders := seedOrders(t, r, 1)
	res := r.Reviews(context.Background(), orders, 3)
	assert.Len(t, res.Records, 3)
}

func TestUsersProductsInventories(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	ctx := context.Background()
	tenants := []string{"plazavea", "uwu", "wong"}

	users := r.Users(ctx, 20, tenants)
	require.Len(t, users.Records, 20)
	for _, u := range users.Records {
		assert.Contains(t, tenants, u.TenantID)
		cost, err := bcrypt.Cost([]byte(u.PasswordHash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)
		assert.LessOrEqual(t, fixedNow.Sub(u.CreationDate), 30*24*time.Hour)
	}

	products := r.Products(ctx, 50, tenants)
	require.Len(t, products.Records, 50)
	lo, hi := decimal.RequireFromString("10.00"), decimal.RequireFromString("5000.00")
	for _, p := range products.Records {
		assert.True(t, p.Price.GreaterThanOrEqual(lo) && p.Price.LessThanOrEqual(hi), p.Price.String())
		assert.True(t, p.Price.Equal(p.Price.Round(2)))
		_, err := time.Parse(model.DateLayout, p.Info.ReleaseDate)
		assert.NoError(t, err)
	}

	invs := r.Inventories(ctx, 10, tenants)
	require.Len(t, invs.Records, 10)
	for _, inv := range invs.Records {
		assert.GreaterOrEqual(t, inv.Stock, int64(50))
		assert.LessOrEqual(t, inv.Stock, int64(10000))
	}

	assert.Equal(t, 20, st.Len(r.Tables.Users))
	assert.Equal(t, 50, st.Len(r.Tables.Products))
	assert.Equal(t, 10, st.Len(r.Tables.Inventories))
}

func TestInventoryProducts_SkipsEmptyInventoriesAndDuplicates(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	invs := []model.Inventory{
		{TenantID: "uwu", InventoryID: "inventory_1", Name: "Almacén", Stock: 7},
		{TenantID: "wong", InventoryID: "inventory_2", Name: "Vacío", Stock: 0},
		{TenantID: "tottus", InventoryID: "inventory_3", Stock: 9},
	}
	prods := []model.Product{
		{TenantID: "uwu", ProductID: "product_1"},
		{TenantID: "wong", ProductID: "product_2"},
	}

	res := r.InventoryProducts(context.Background(), invs, prods, 5)
	// uwu has a single possible pair, wong's only inventory is empty, tottus has no products
	require.Len(t, res.Records, 1)
	assert.Equal(t, 9, res.Skipped)
	l := res.Records[0]
	assert.Equal(t, "inventory_1#product_1", l.ID())
	assert.GreaterOrEqual(t, l.Stock, int64(1))
	assert.LessOrEqual(t, l.Stock, int64(7))
	assert.Equal(t, 1, st.Len(r.Tables.InventoryProducts))
}

func TestIdentifiersUniqueAcrossRunWithRandomStrategy(t *testing.T) {
	r := newTestRun(t, store.NewInMemoryStore())
	r.IDs = ids.NewRegistry(ids.StrategyRandom, r.Rand, ids.Options{Min: 1000, Max: 99999, MaxAttempts: 1000})
	ctx := context.Background()
	seen := map[string]bool{}
	for _, u := range r.Users(ctx, 200, []string{"uwu"}).Records {
		assert.False(t, seen[u.UserID])
		seen[u.UserID] = true
	}
	for _, p := range r.Products(ctx, 200, []string{"uwu"}).Records {
		assert.False(t, seen[p.ProductID])
		seen[p.ProductID] = true
	}
}

func TestPutFailureIsCountedAndRecordKept(t *testing.T) {
	mem := store.NewInMemoryStore()
	r := newTestRun(t, mem)
	r.Store = &failingStore{Store: mem, failPut: r.Tables.Inventories.Name}
	logger, hook := test.NewNullLogger()
	r.Log = logger

	res := r.Inventories(context.Background(), 3, []string{"uwu"})
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 0, res.Written)
	errorsLogged := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "put failed" {
			errorsLogged++
		}
	}
	assert.Equal(t, 3, errorsLogged)
}

func TestLoadOrders_SkipsMalformedRows(t *testing.T) {
	st := store.NewInMemoryStore()
	r := newTestRun(t, st)
	ctx := context.Background()
	res := r.Orders(ctx, crossLinked())
	require.Len(t, res.Records, 10)

	// a legacy single-inventory shape written by an older script
	legacy := res.Records[0].Item()
	legacy["order_id"] = store.String("order_legacy")
	delete(legacy, "inventory_ids")
	legacy["inventory_id"] = store.String("inventory_1")
	require.NoError(t, st.Put(ctx, r.Tables.Orders, legacy))

	got, err := r.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 10)
	for _, o := range got {
		assert.NotEqual(t, "order_legacy", o.OrderID)
	}
}
