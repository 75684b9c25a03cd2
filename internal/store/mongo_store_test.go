package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func num(s string) Value { return Value{N: &s} }

// sameValue compares numbers by decimal value and everything else by tag.
func sameValue(t *testing.T, path string, want, got Value) {
	t.Helper()
	if want.Kind() != got.Kind() {
		t.Fatalf("%s: kind %q, want %q", path, got.Kind(), want.Kind())
	}
	switch want.Kind() {
	case "S":
		if *want.S != *got.S {
			t.Fatalf("%s: got %q, want %q", path, *got.S, *want.S)
		}
	case "N":
		w, err := decimal.NewFromString(*want.N)
		if err != nil {
			t.Fatalf("%s: bad want %q", path, *want.N)
		}
		g, err := decimal.NewFromString(*got.N)
		if err != nil {
			t.Fatalf("%s: got non-decimal %q", path, *got.N)
		}
		if !w.Equal(g) {
			t.Fatalf("%s: got %s, want %s", path, *got.N, *want.N)
		}
	case "BOOL":
		if *want.BOOL != *got.BOOL {
			t.Fatalf("%s: got %v, want %v", path, *got.BOOL, *want.BOOL)
		}
	case "M":
		if len(want.M) != len(got.M) {
			t.Fatalf("%s: got %d keys, want %d", path, len(got.M), len(want.M))
		}
		for k, wv := range want.M {
			gv, ok := got.M[k]
			if !ok {
				t.Fatalf("%s.%s: missing", path, k)
			}
			sameValue(t, path+"."+k, wv, gv)
		}
	case "L":
		if len(want.L) != len(got.L) {
			t.Fatalf("%s: got %d elements, want %d", path, len(got.L), len(want.L))
		}
		for i := range want.L {
			sameValue(t, path+"[]", want.L[i], got.L[i])
		}
	}
}

func TestBSON_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		text string // exact N text expected back, when set
	}{
		{name: "money keeps scale", in: num("12.50"), text: "12.50"},
		{name: "leading zero", in: num("0.10"), text: "0.10"},
		{name: "large", in: num("123456789012345678901234567890.12")},
		{name: "negative", in: num("-7.5")},
		{name: "integer", in: Int(42)},
		{name: "string", in: String("APPROVED PAYMENT")},
		{name: "bool", in: Bool(true)},
		{name: "null", in: Null()},
		{name: "empty map", in: Map(nil)},
		{name: "empty list", in: List()},
		{name: "nested", in: Map(map[string]Value{
			"total": num("99.99"),
			"lines": List(
				Map(map[string]Value{"product_id": String("product_1"), "qty": Int(2), "price": num("10.00")}),
				Map(map[string]Value{"product_id": String("product_2"), "tags": List(String("a"), Null())}),
			),
			"meta": Map(map[string]Value{"paid": Bool(false), "empty": List()}),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := toBSON(tc.in)
			if err != nil {
				t.Fatalf("toBSON: %v", err)
			}
			got, err := fromBSON(raw)
			if err != nil {
				t.Fatalf("fromBSON: %v", err)
			}
			sameValue(t, "$", tc.in, got)
			if tc.text != "" && *got.N != tc.text {
				t.Fatalf("N text %q, want %q", *got.N, tc.text)
			}
		})
	}
}

func TestBSON_ItemRoundTrip(t *testing.T) {
	in := Item{
		"tenant_id":   String("uwu"),
		"order_id":    String("order_1"),
		"total_price": num("12.50"),
		"products":    List(Map(map[string]Value{"price": num("0.10")})),
	}
	doc, err := toBSONItem(in)
	if err != nil {
		t.Fatalf("toBSONItem: %v", err)
	}
	if _, ok := doc["total_price"].(primitive.Decimal128); !ok {
		t.Fatalf("total_price stored as %T, want Decimal128", doc["total_price"])
	}
	back, err := fromBSONItem(doc)
	if err != nil {
		t.Fatalf("fromBSONItem: %v", err)
	}
	sameValue(t, "$", Map(in), Map(back))
}

func TestFromBSON_DriverShapes(t *testing.T) {
	price, _ := primitive.ParseDecimal128("12.50")
	cases := []struct {
		name string
		raw  any
		want Value
	}{
		{name: "ordered document", raw: bson.D{{Key: "a", Value: "x"}, {Key: "b", Value: bson.D{{Key: "price", Value: price}}}},
			want: Map(map[string]Value{"a": String("x"), "b": Map(map[string]Value{"price": num("12.50")})})},
		{name: "int32", raw: int32(7), want: Int(7)},
		{name: "int64", raw: int64(1 << 40), want: Int(1 << 40)},
		{name: "double", raw: 2.5, want: num("2.5")},
		{name: "array of documents", raw: bson.A{bson.M{"q": int32(1)}, bson.D{{Key: "q", Value: int64(2)}}},
			want: List(Map(map[string]Value{"q": Int(1)}), Map(map[string]Value{"q": Int(2)}))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fromBSON(tc.raw)
			if err != nil {
				t.Fatalf("fromBSON: %v", err)
			}
			sameValue(t, "$", tc.want, got)
		})
	}
}

func TestBSON_Rejects(t *testing.T) {
	if _, err := fromBSON(primitive.NewObjectID()); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := toBSON(num("not-a-number")); err == nil {
		t.Fatalf("expected decimal parse error")
	}
}
