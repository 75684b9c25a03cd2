package changelog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopseed/internal/store"
)

// ErrJournal marks a write that was applied to the store but could not be
// journaled. Callers must treat the write itself as done.
var ErrJournal = errors.New("journal append failed")

// JournaledStore records every successful mutation of the wrapped store.
type JournaledStore struct {
	store.Store
	w   Writer
	now func() time.Time

	mu  sync.Mutex
	seq int64
}

func Journaled(st store.Store, w Writer) *JournaledStore {
	return &JournaledStore{Store: st, w: w, now: time.Now}
}

func (j *JournaledStore) append(ctx context.Context, m Mutation) error {
	j.mu.Lock()
	j.seq++
	m.Seq = j.seq
	j.mu.Unlock()
	m.TS = j.now().UTC().Unix()
	if err := j.w.Append(ctx, m); err != nil {
		return fmt.Errorf("%w: %s %s %s: %v", ErrJournal, m.Op, m.Table, m.Key(), err)
	}
	return nil
}

func (j *JournaledStore) Put(ctx context.Context, t store.Table, it store.Item) error {
	k, err := t.KeyOf(it)
	if err != nil {
		return err
	}
	if err := j.Store.Put(ctx, t, it); err != nil {
		return err
	}
	return j.append(ctx, Mutation{Op: OpPut, Table: t.Name, Partition: k.Partition, Sort: k.Sort, Item: it})
}

func (j *JournaledStore) UpdateField(ctx context.Context, t store.Table, k store.Key, field string, v store.Value) error {
	if err := j.Store.UpdateField(ctx, t, k, field, v); err != nil {
		return err
	}
	return j.append(ctx, Mutation{Op: OpUpdate, Table: t.Name, Partition: k.Partition, Sort: k.Sort, Field: field, Value: &v})
}

func (j *JournaledStore) Delete(ctx context.Context, t store.Table, k store.Key) error {
	if err := j.Store.Delete(ctx, t, k); err != nil {
		return err
	}
	return j.append(ctx, Mutation{Op: OpDelete, Table: t.Name, Partition: k.Partition, Sort: k.Sort})
}
