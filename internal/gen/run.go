// Package gen synthesizes fake multi-tenant e-commerce records and writes them
// to a store. Generators never fail on a single record: write errors are
// logged and counted, and every synthesized record is still returned.
package gen

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"shopseed/internal/changelog"
	"shopseed/internal/ids"
	"shopseed/internal/metrics"
	"shopseed/internal/model"
	"shopseed/internal/store"
)

// Run carries everything one generation run shares. It is created per run and
// never stored in package state.
type Run struct {
	Store      store.Store
	Tables     model.Tables
	IDs        *ids.Registry
	Rand       *rand.Rand
	Faker      *gofakeit.Faker
	Log        logrus.FieldLogger
	Metrics    *metrics.Registry // optional
	Now        func() time.Time
	BcryptCost int
}

// NewRun seeds every random source from seed; zero picks a time-based seed.
func NewRun(st store.Store, tables model.Tables, seed int64, strategy ids.Strategy) *Run {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Run{
		Store:      st,
		Tables:     tables,
		IDs:        ids.NewRegistry(strategy, rand.New(rand.NewSource(seed+1)), ids.DefaultOptions()),
		Rand:       rng,
		Faker:      gofakeit.New(seed),
		Log:        logrus.StandardLogger(),
		Now:        time.Now,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Stats counts what happened to the records of one generator call.
type Stats struct {
	Written int
	Failed  int
	Skipped int
}

// Result is the batch a generator synthesized, including records whose write
// failed.
type Result[T any] struct {
	Records []T
	Stats
}

type itemer interface{ Item() store.Item }

// Items converts a batch to store items, for mirroring.
func Items[T itemer](recs []T) []store.Item {
	out := make([]store.Item, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Item())
	}
	return out
}

func (r *Run) now() time.Time { return r.Now().UTC().Truncate(time.Second) }

// put writes one record, logging and counting a failure instead of returning it.
func (r *Run) put(ctx context.Context, t store.Table, it store.Item, st *Stats) bool {
	if err := r.Store.Put(ctx, t, it); err != nil && !r.journalOnly(t, err) {
		k, _ := t.KeyOf(it)
		r.Log.WithFields(logrus.Fields{"table": t.Name, "key": k.String(), "error": err}).Error("put failed")
		r.failed(t, "put")
		st.Failed++
		return false
	}
	if r.Metrics != nil {
		r.Metrics.Written.WithLabelValues(t.Name).Inc()
	}
	st.Written++
	return true
}

// journalOnly reports whether err means the write was applied and only its
// journal entry was lost. Such a write counts as done.
func (r *Run) journalOnly(t store.Table, err error) bool {
	if !errors.Is(err, changelog.ErrJournal) {
		return false
	}
	r.failed(t, "journal")
	r.Log.WithFields(logrus.Fields{"table": t.Name, "error": err}).Warn("write applied but not journaled")
	return true
}

func (r *Run) failed(t store.Table, op string) {
	if r.Metrics != nil {
		r.Metrics.Failed.WithLabelValues(t.Name, op).Inc()
	}
}

func (r *Run) skip(t store.Table, st *Stats, reason string, fields logrus.Fields) {
	st.Skipped++
	if r.Metrics != nil {
		r.Metrics.Skipped.WithLabelValues(t.Name).Inc()
	}
	r.Log.WithFields(fields).WithField("table", t.Name).Debug(reason)
}

// nextID issues an id or logs why it could not.
func (r *Run) nextID(t store.Table, prefix string, st *Stats) (string, bool) {
	id, err := r.IDs.Next(prefix)
	if err != nil {
		r.skip(t, st, "id allocation failed", logrus.Fields{"error": err})
		return "", false
	}
	return id, true
}

// between returns a whole-second offset uniformly drawn from [lo, hi].
func (r *Run) between(lo, hi time.Duration) time.Duration {
	span := int64((hi - lo) / time.Second)
	return lo + time.Duration(r.Rand.Int63n(span+1))*time.Second
}

// intn returns a value in [lo, hi].
func (r *Run) intn(lo, hi int64) int64 { return lo + r.Rand.Int63n(hi-lo+1) }

// sample picks k distinct indexes out of n, capping k at n.
func (r *Run) sample(n, k int) []int {
	if k > n {
		k = n
	}
	return r.Rand.Perm(n)[:k]
}

// Wipe deletes every record of t one at a time.
func (r *Run) Wipe(ctx context.Context, t store.Table) (deleted, failed int, err error) {
	return store.DeleteAll(ctx, r.Store, t, r.Log)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
