package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Put(_ context.Context, t Table, it Item) error {
	k, err := t.KeyOf(it)
	if err != nil {
		return err
	}
	val, err := encodeItem(it)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(t, k), val)
	})
}

func (b *BadgerStore) Get(_ context.Context, t Table, k Key) (Item, error) {
	var out Item
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(t, k))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out, err = decodeItem(v)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (b *BadgerStore) UpdateField(_ context.Context, t Table, k Key, field string, v Value) error {
	if err := checkField(t, field); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		raw := encodeKey(t, k)
		item, err := txn.Get(raw)
		if err != nil {
			return err
		}
		cur, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		it, err := decodeItem(cur)
		if err != nil {
			return err
		}
		it[field] = v
		val, err := encodeItem(it)
		if err != nil {
			return err
		}
		return txn.Set(raw, val)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (b *BadgerStore) Delete(_ context.Context, t Table, k Key) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encodeKey(t, k))
	})
}

func (b *BadgerStore) Scan(_ context.Context, t Table, in ScanInput) (Page, error) {
	var page Page
	limit := pageLimit(in)
	prefix := tablePrefix(t)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(prefix)
		if in.StartKey != nil {
			after := encodeKey(t, *in.StartKey)
			it.Seek(after)
			if it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), after) {
				it.Next()
			}
		}
		var lastRaw []byte
		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(page.Items) == limit {
				k, err := decodeKey(t, lastRaw)
				if err != nil {
					return err
				}
				page.LastKey = &k
				return nil
			}
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			decoded, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("decode %q: %w", item.Key(), err)
			}
			page.Items = append(page.Items, decoded)
			lastRaw = item.KeyCopy(lastRaw[:0])
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}
