// Package model holds the canonical schema of every entity written to the
// store. Conversion to and from store.Item happens only here; rows that do not
// match the schema are rejected with ErrMalformed.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shopseed/internal/store"
)

// ErrMalformed marks a stored row that does not match the canonical schema.
var ErrMalformed = errors.New("malformed record")

const TenantKey = "tenant_id"

// LinkSep joins the parts of composite sort keys.
const LinkSep = "#"

// DateLayout is used for calendar-only fields such as product release dates.
const DateLayout = "2006-01-02"

func malformed(entity string, err error) error {
	return fmt.Errorf("%s: %w: %v", entity, ErrMalformed, err)
}

func timeValue(t time.Time) store.Value { return store.String(t.UTC().Format(time.RFC3339)) }

func stringList(ss []string) store.Value {
	vs := make([]store.Value, 0, len(ss))
	for _, s := range ss {
		vs = append(vs, store.String(s))
	}
	return store.List(vs...)
}

// reader collects the first accessor error so FromItem functions read linearly.
type reader struct {
	it  store.Item
	err error
}

func (r *reader) str(name string) string {
	if r.err != nil {
		return ""
	}
	s, err := r.it.String(name)
	if err == nil && s == "" {
		err = fmt.Errorf("%s: empty", name)
	}
	r.err = err
	return s
}

// optStr reads an S attribute that may be absent.
func (r *reader) optStr(name string) string {
	if _, ok := r.it[name]; !ok || r.err != nil {
		return ""
	}
	s, err := r.it.String(name)
	r.err = err
	return s
}

func (r *reader) integer(name string) int64 {
	if r.err != nil {
		return 0
	}
	i, err := r.it.Int(name)
	r.err = err
	return i
}

func (r *reader) time(name string) time.Time {
	if r.err != nil {
		return time.Time{}
	}
	t, err := r.it.Time(name)
	r.err = err
	return t
}

func (r *reader) item(name string) store.Item {
	if r.err != nil {
		return nil
	}
	m, err := r.it.Map(name)
	r.err = err
	return m
}

func (r *reader) decimal(name string) decimal.Decimal {
	if r.err != nil {
		return decimal.Decimal{}
	}
	d, err := r.it.Decimal(name)
	r.err = err
	return d
}

func errNegative(name string) error { return fmt.Errorf("%s: negative", name) }

func errMismatch(name, got, want string) error {
	return fmt.Errorf("%s: got %q want %q", name, got, want)
}
