package gen

type subCategory struct {
	name     string
	singular string
	brands   []string
}

type category struct {
	name string
	subs []subCategory
}

var catalogue = []category{
	{name: "Electrónicos", subs: []subCategory{
		{"Smartphones", "Smartphone", []string{"Samsung", "Apple", "Xiaomi", "Google", "Motorola"}},
		{"Laptops", "Laptop", []string{"Dell", "HP", "Lenovo", "Asus", "Acer"}},
		{"Tablets", "Tablet", []string{"Apple", "Samsung", "Huawei", "Lenovo"}},
		{"Smartwatches", "Smartwatch", []string{"Apple", "Samsung", "Fitbit", "Garmin"}},
		{"Headphones", "Headphone", []string{"Sony", "Bose", "JBL", "Beats"}},
		{"Cameras", "Camera", []string{"Canon", "Nikon", "Sony", "Panasonic"}},
	}},
	{name: "Cocina", subs: []subCategory{
		{"Refrigeradores", "Refrigerador", []string{"LG", "Samsung", "Whirlpool", "Bosch"}},
		{"Microondas", "Microondas", []string{"Panasonic", "Samsung", "LG", "GE"}},
		{"Licuadoras", "Licuadora", []string{"Oster", "Ninja", "Black+Decker"}},
		{"Cafeteras", "Cafetera", []string{"Nespresso", "Cuisinart", "Oster"}},
	}},
	{name: "Muebles de Casa", subs: []subCategory{
		{"Sofás", "Sofá", []string{"IKEA", "Ashley", "West Elm"}},
		{"Mesas", "Mesa", []string{"IKEA", "Pottery Barn", "Crate & Barrel"}},
		{"Sillas", "Silla", []string{"IKEA", "Herman Miller", "Steelcase"}},
		{"Camas", "Cama", []string{"Sealy", "Tempur-Pedic", "IKEA"}},
	}},
}
