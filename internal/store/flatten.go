package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Flatten converts a type-tagged item into plain values: S to string, N to
// json.Number (exact text), BOOL to bool, NULL to nil, M to map[string]any and
// L to []any.
func Flatten(it Item) map[string]any {
	out := make(map[string]any, len(it))
	for k, v := range it {
		out[k] = FlattenValue(v)
	}
	return out
}

func FlattenValue(v Value) any {
	switch v.Kind() {
	case "S":
		return *v.S
	case "N":
		return json.Number(*v.N)
	case "BOOL":
		return *v.BOOL
	case "M":
		m := make(map[string]any, len(v.M))
		for k, e := range v.M {
			m[k] = FlattenValue(e)
		}
		return m
	case "L":
		l := make([]any, len(v.L))
		for i, e := range v.L {
			l[i] = FlattenValue(e)
		}
		return l
	}
	return nil
}

// Unflatten is the inverse of Flatten. It accepts what encoding/json produces
// when decoding with UseNumber, plus the Go numeric kinds.
func Unflatten(m map[string]any) (Item, error) {
	it := make(Item, len(m))
	for k, raw := range m {
		v, err := UnflattenValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		it[k] = v
	}
	return it, nil
}

func UnflattenValue(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case json.Number:
		if _, err := decimal.NewFromString(x.String()); err != nil {
			return Value{}, fmt.Errorf("number %q: %w", x, err)
		}
		n := x.String()
		return Value{N: &n}, nil
	case decimal.Decimal:
		return Number(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		n := strconv.FormatFloat(x, 'f', -1, 64)
		return Value{N: &n}, nil
	case bool:
		return Bool(x), nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			v, err := UnflattenValue(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return Value{M: m}, nil
	case []any:
		l := make([]Value, len(x))
		for i, e := range x {
			v, err := UnflattenValue(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = v
		}
		return Value{L: l}, nil
	}
	return Value{}, fmt.Errorf("unsupported type %T", raw)
}
