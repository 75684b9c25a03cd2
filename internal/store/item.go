package store

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAttribute is returned by the typed accessors when an attribute is absent or
// carries a different tag.
var ErrAttribute = errors.New("attribute missing or wrong type")

func (it Item) String(name string) (string, error) {
	v, ok := it[name]
	if !ok || v.S == nil {
		return "", fmt.Errorf("%s: want S: %w", name, ErrAttribute)
	}
	return *v.S, nil
}

func (it Item) Decimal(name string) (decimal.Decimal, error) {
	v, ok := it[name]
	if !ok || v.N == nil {
		return decimal.Decimal{}, fmt.Errorf("%s: want N: %w", name, ErrAttribute)
	}
	d, err := decimal.NewFromString(*v.N)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func (it Item) Int(name string) (int64, error) {
	v, ok := it[name]
	if !ok || v.N == nil {
		return 0, fmt.Errorf("%s: want N: %w", name, ErrAttribute)
	}
	i, err := strconv.ParseInt(*v.N, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return i, nil
}

// Time parses an RFC3339 S attribute.
func (it Item) Time(name string) (time.Time, error) {
	s, err := it.String(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func (it Item) Map(name string) (Item, error) {
	v, ok := it[name]
	if !ok || v.M == nil {
		return nil, fmt.Errorf("%s: want M: %w", name, ErrAttribute)
	}
	return Item(v.M), nil
}

func (it Item) List(name string) ([]Value, error) {
	v, ok := it[name]
	if !ok || v.L == nil {
		return nil, fmt.Errorf("%s: want L: %w", name, ErrAttribute)
	}
	return v.L, nil
}

// StringList reads an L attribute whose elements are all S.
func (it Item) StringList(name string) ([]string, error) {
	l, err := it.List(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(l))
	for i, v := range l {
		if v.S == nil {
			return nil, fmt.Errorf("%s[%d]: want S: %w", name, i, ErrAttribute)
		}
		out = append(out, *v.S)
	}
	return out, nil
}
