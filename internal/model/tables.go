package model

import "shopseed/internal/store"

// Entity describes one collection: its key schema plus the file names used by
// the generator mirror and the export upload path.
type Entity struct {
	Name    string // logical name used on the command line
	Base    string // physical table name without prefix
	SortKey string
	Folder  string // blob folder
	Mirror  string // generator mirror file
}

var (
	Users             = Entity{Name: "users", Base: "usuarios", SortKey: "user_id", Folder: "usuarios", Mirror: "usuarios.json"}
	Products          = Entity{Name: "products", Base: "productos", SortKey: "product_id", Folder: "productos", Mirror: "productos.json"}
	Inventories       = Entity{Name: "inventories", Base: "inventarios", SortKey: "inventory_id", Folder: "inventarios", Mirror: "inventarios.json"}
	InventoryProducts = Entity{Name: "inventory_products", Base: "inventario", SortKey: "ip_id", Folder: "inventarioProd", Mirror: "productos_inventarios.json"}
	Orders            = Entity{Name: "orders", Base: "ordenes", SortKey: "order_id", Folder: "ordenes", Mirror: "ordenes.json"}
	Payments          = Entity{Name: "payments", Base: "pagos", SortKey: "pago_id", Folder: "pagos", Mirror: "pagos.json"}
	Reviews           = Entity{Name: "reviews", Base: "comentario", SortKey: "pr_id", Folder: "comentarios", Mirror: "reviews.json"}
)

// Entities lists every collection in generation order.
var Entities = []Entity{Users, Products, Inventories, InventoryProducts, Orders, Payments, Reviews}

// Lookup finds an entity by logical or physical base name.
func Lookup(name string) (Entity, bool) {
	for _, e := range Entities {
		if e.Name == name || e.Base == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Table resolves the store table for e under a deployment prefix such as "pf_".
func (e Entity) Table(prefix string) store.Table {
	return store.Table{Name: prefix + e.Base, PartitionKey: TenantKey, SortKey: e.SortKey}
}

// Tables is the resolved set of tables for one deployment prefix.
type Tables struct {
	Users             store.Table
	Products          store.Table
	Inventories       store.Table
	InventoryProducts store.Table
	Orders            store.Table
	Payments          store.Table
	Reviews           store.Table
}

func NewTables(prefix string) Tables {
	return Tables{
		Users:             Users.Table(prefix),
		Products:          Products.Table(prefix),
		Inventories:       Inventories.Table(prefix),
		InventoryProducts: InventoryProducts.Table(prefix),
		Orders:            Orders.Table(prefix),
		Payments:          Payments.Table(prefix),
		Reviews:           Reviews.Table(prefix),
	}
}

func (t Tables) All() []store.Table {
	return []store.Table{t.Users, t.Products, t.Inventories, t.InventoryProducts, t.Orders, t.Payments, t.Reviews}
}

// ByName resolves a physical table name such as "pf_ordenes".
func (t Tables) ByName(name string) (store.Table, bool) {
	for _, tb := range t.All() {
		if tb.Name == name {
			return tb, true
		}
	}
	return store.Table{}, false
}
