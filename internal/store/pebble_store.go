package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 8,
		WALBytesPerSync:       1 << 20,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func encodeItem(it Item) ([]byte, error) { return json.Marshal(it) }
func decodeItem(val []byte) (Item, error) {
	var it Item
	if err := json.Unmarshal(val, &it); err != nil {
		return nil, err
	}
	return it, nil
}

func (p *PebbleStore) Put(_ context.Context, t Table, it Item) error {
	k, err := t.KeyOf(it)
	if err != nil {
		return err
	}
	b, err := encodeItem(it)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return p.db.Set(encodeKey(t, k), b, pebble.Sync)
}

func (p *PebbleStore) Get(_ context.Context, t Table, k Key) (Item, error) {
	v, closer, err := p.db.Get(encodeKey(t, k))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return decodeItem(v)
}

// UpdateField is a read-modify-write; pebble has no partial update.
func (p *PebbleStore) UpdateField(ctx context.Context, t Table, k Key, field string, v Value) error {
	if err := checkField(t, field); err != nil {
		return err
	}
	it, err := p.Get(ctx, t, k)
	if err != nil {
		return err
	}
	it[field] = v
	b, err := encodeItem(it)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return p.db.Set(encodeKey(t, k), b, pebble.Sync)
}

func (p *PebbleStore) Delete(_ context.Context, t Table, k Key) error {
	return p.db.Delete(encodeKey(t, k), pebble.Sync)
}

func (p *PebbleStore) Scan(_ context.Context, t Table, in ScanInput) (Page, error) {
	prefix := tablePrefix(t)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return Page{}, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	valid := it.First()
	if in.StartKey != nil {
		after := encodeKey(t, *in.StartKey)
		valid = it.SeekGE(after)
		if valid && bytes.Equal(it.Key(), after) {
			valid = it.Next()
		}
	}
	limit := pageLimit(in)
	var page Page
	var lastRaw []byte
	for ; valid; valid = it.Next() {
		if len(page.Items) == limit {
			k, err := decodeKey(t, lastRaw)
			if err != nil {
				return Page{}, err
			}
			page.LastKey = &k
			break
		}
		item, err := decodeItem(it.Value())
		if err != nil {
			return Page{}, fmt.Errorf("decode %q: %w", it.Key(), err)
		}
		page.Items = append(page.Items, item)
		lastRaw = append(lastRaw[:0], it.Key()...)
	}
	if err := it.Error(); err != nil {
		return Page{}, err
	}
	return page, nil
}
