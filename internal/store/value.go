package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Value is a type-tagged attribute. Exactly one field is set.
// N keeps the exact decimal text so money never goes through float64.
type Value struct {
	S    *string          `json:"S,omitempty"`
	N    *string          `json:"N,omitempty"`
	BOOL *bool            `json:"BOOL,omitempty"`
	NULL bool             `json:"NULL,omitempty"`
	M    map[string]Value `json:"M,omitempty"`
	L    []Value          `json:"L,omitempty"`
}

func String(s string) Value { return Value{S: &s} }

func Number(d decimal.Decimal) Value {
	n := d.String()
	return Value{N: &n}
}

func Int(i int64) Value {
	n := strconv.FormatInt(i, 10)
	return Value{N: &n}
}

func Bool(b bool) Value { return Value{BOOL: &b} }

func Null() Value { return Value{NULL: true} }

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{M: m}
}

func List(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{L: vs}
}

// Kind reports the tag name of v ("S", "N", "BOOL", "NULL", "M", "L"), or "" for
// the zero Value.
func (v Value) Kind() string {
	switch {
	case v.S != nil:
		return "S"
	case v.N != nil:
		return "N"
	case v.BOOL != nil:
		return "BOOL"
	case v.NULL:
		return "NULL"
	case v.M != nil:
		return "M"
	case v.L != nil:
		return "L"
	}
	return ""
}

// MarshalJSON writes the tagged form. Empty maps and lists keep their tag.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind() {
	case "S":
		return json.Marshal(map[string]string{"S": *v.S})
	case "N":
		return json.Marshal(map[string]string{"N": *v.N})
	case "BOOL":
		return json.Marshal(map[string]bool{"BOOL": *v.BOOL})
	case "NULL":
		return []byte(`{"NULL":true}`), nil
	case "M":
		return json.Marshal(map[string]map[string]Value{"M": v.M})
	case "L":
		return json.Marshal(map[string][]Value{"L": v.L})
	}
	return nil, errors.New("marshal value: no tag set")
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("unmarshal value: want exactly one tag, got %d", len(raw))
	}
	*v = Value{}
	for tag, body := range raw {
		switch tag {
		case "S":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("unmarshal S: %w", err)
			}
			v.S = &s
		case "N":
			var s string
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("unmarshal N: %w", err)
			}
			if _, err := decimal.NewFromString(s); err != nil {
				return fmt.Errorf("unmarshal N %q: %w", s, err)
			}
			v.N = &s
		case "BOOL":
			var bv bool
			if err := json.Unmarshal(body, &bv); err != nil {
				return fmt.Errorf("unmarshal BOOL: %w", err)
			}
			v.BOOL = &bv
		case "NULL":
			v.NULL = true
		case "M":
			m := map[string]Value{}
			if err := json.Unmarshal(body, &m); err != nil {
				return fmt.Errorf("unmarshal M: %w", err)
			}
			v.M = m
		case "L":
			l := []Value{}
			if err := json.Unmarshal(body, &l); err != nil {
				return fmt.Errorf("unmarshal L: %w", err)
			}
			v.L = l
		default:
			return fmt.Errorf("unmarshal value: unknown tag %q", tag)
		}
	}
	return nil
}

// Item is one record in document shape.
type Item map[string]Value

// Clone returns a deep copy so callers can mutate without touching stored data.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch v.Kind() {
	case "S":
		return String(*v.S)
	case "N":
		n := *v.N
		return Value{N: &n}
	case "BOOL":
		return Bool(*v.BOOL)
	case "M":
		m := make(map[string]Value, len(v.M))
		for k, e := range v.M {
			m[k] = cloneValue(e)
		}
		return Value{M: m}
	case "L":
		l := make([]Value, len(v.L))
		for i, e := range v.L {
			l[i] = cloneValue(e)
		}
		return Value{L: l}
	}
	return v
}

// Names returns the attribute names in sorted order.
func (it Item) Names() []string {
	names := make([]string, 0, len(it))
	for k := range it {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
