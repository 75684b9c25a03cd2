package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrInvalidKey = errors.New("invalid key")
)

// DefaultPageSize bounds one Scan page when ScanInput.Limit is zero.
const DefaultPageSize = 100

// sep separates table, partition and sort in encoded storage keys.
const sep = "\x00"

// Table names a collection and its key attributes.
type Table struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// Key is the full primary key of one record.
type Key struct {
	Partition string `json:"partition"`
	Sort      string `json:"sort"`
}

func (k Key) String() string { return k.Partition + "/" + k.Sort }

// KeyOf extracts the primary key from an item.
func (t Table) KeyOf(it Item) (Key, error) {
	p, err := it.String(t.PartitionKey)
	if err != nil {
		return Key{}, fmt.Errorf("%s: %w", t.Name, ErrInvalidKey)
	}
	s, err := it.String(t.SortKey)
	if err != nil {
		return Key{}, fmt.Errorf("%s: %w", t.Name, ErrInvalidKey)
	}
	k := Key{Partition: p, Sort: s}
	if err := k.validate(); err != nil {
		return Key{}, fmt.Errorf("%s: %w", t.Name, err)
	}
	return k, nil
}

func (k Key) validate() error {
	if k.Partition == "" || k.Sort == "" {
		return ErrInvalidKey
	}
	if strings.Contains(k.Partition, sep) || strings.Contains(k.Sort, sep) {
		return ErrInvalidKey
	}
	return nil
}

func encodeKey(t Table, k Key) []byte {
	return []byte(t.Name + sep + k.Partition + sep + k.Sort)
}

func tablePrefix(t Table) []byte { return []byte(t.Name + sep) }

func decodeKey(t Table, raw []byte) (Key, error) {
	rest := strings.TrimPrefix(string(raw), t.Name+sep)
	parts := strings.SplitN(rest, sep, 2)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("decode key %q: %w", raw, ErrInvalidKey)
	}
	return Key{Partition: parts[0], Sort: parts[1]}, nil
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// ScanInput selects one page. StartKey is exclusive.
type ScanInput struct {
	StartKey *Key
	Limit    int
}

// Page is one scan result. LastKey is nil once the table is exhausted.
type Page struct {
	Items   []Item
	LastKey *Key
}

// Store abstracts the key-value backend.
type Store interface {
	Scan(ctx context.Context, t Table, in ScanInput) (Page, error)
	Get(ctx context.Context, t Table, k Key) (Item, error)
	Put(ctx context.Context, t Table, it Item) error
	UpdateField(ctx context.Context, t Table, k Key, field string, v Value) error
	Delete(ctx context.Context, t Table, k Key) error
	Close() error
}

// checkField rejects updates that would rewrite key attributes.
func checkField(t Table, field string) error {
	if field == "" || field == t.PartitionKey || field == t.SortKey {
		return fmt.Errorf("update field %q: %w", field, ErrInvalidKey)
	}
	return nil
}

func pageLimit(in ScanInput) int {
	if in.Limit <= 0 {
		return DefaultPageSize
	}
	return in.Limit
}

// InMemoryStore is a simple thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Item // table -> encoded key -> item
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]map[string]Item)}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) Put(_ context.Context, t Table, it Item) error {
	k, err := t.KeyOf(it)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl := s.data[t.Name]
	if tbl == nil {
		tbl = make(map[string]Item)
		s.data[t.Name] = tbl
	}
	tbl[string(encodeKey(t, k))] = it.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, t Table, k Key) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.data[t.Name][string(encodeKey(t, k))]
	if !ok {
		return nil, ErrNotFound
	}
	return it.Clone(), nil
}

func (s *InMemoryStore) UpdateField(_ context.Context, t Table, k Key, field string, v Value) error {
	if err := checkField(t, field); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[t.Name][string(encodeKey(t, k))]
	if !ok {
		return ErrNotFound
	}
	it[field] = cloneValue(v)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, t Table, k Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[t.Name], string(encodeKey(t, k)))
	return nil
}

func (s *InMemoryStore) Scan(_ context.Context, t Table, in ScanInput) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tbl := s.data[t.Name]
	keys := make([]string, 0, len(tbl))
	for k := range tbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	start := 0
	if in.StartKey != nil {
		after := string(encodeKey(t, *in.StartKey))
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > after })
	}
	limit := pageLimit(in)
	var page Page
	for i := start; i < len(keys) && len(page.Items) < limit; i++ {
		page.Items = append(page.Items, tbl[keys[i]].Clone())
		if len(page.Items) == limit && i < len(keys)-1 {
			k, err := decodeKey(t, []byte(keys[i]))
			if err != nil {
				return Page{}, err
			}
			page.LastKey = &k
		}
	}
	return page, nil
}

// Len reports the number of records in a table.
func (s *InMemoryStore) Len(t Table) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[t.Name])
}
