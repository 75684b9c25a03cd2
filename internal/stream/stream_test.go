package stream

import (
	"context"
	"errors"
	"testing"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"shopseed/internal/store"
)

type fakeProducer struct {
	begun, committed, aborted int
	msgs                      []*ck.Message
	failAt                    int // 1-based produce call that fails; 0 never
}

func (f *fakeProducer) BeginTransaction() error { f.begun++; return nil }

func (f *fakeProducer) Produce(m *ck.Message, _ chan ck.Event) error {
	if f.failAt > 0 && len(f.msgs)+1 == f.failAt {
		return errors.New("queue full")
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeProducer) CommitTransaction(context.Context) error { f.committed++; return nil }
func (f *fakeProducer) AbortTransaction(context.Context) error  { f.aborted++; return nil }
func (f *fakeProducer) Close()                                  {}

var reviews = store.Table{Name: "pf_comentario", PartitionKey: "tenant_id", SortKey: "pr_id"}

func rows() []store.Item {
	return []store.Item{
		{"tenant_id": store.String("uwu"), "pr_id": store.String("product_1#review_1"), "stars": store.Int(5)},
		{"tenant_id": store.String("wong"), "pr_id": store.String("product_2#review_2"), "stars": store.Int(3)},
	}
}

func TestPublishRows_CommitsOnce(t *testing.T) {
	fp := &fakeProducer{}
	n, err := NewTxPublisherWith(fp).PublishRows(context.Background(), "shopseed.export", reviews, rows())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if n != 2 || fp.begun != 1 || fp.committed != 1 || fp.aborted != 0 {
		t.Fatalf("unexpected tx state n=%d %+v", n, fp)
	}
	if string(fp.msgs[0].Key) != "uwu#product_1#review_1" {
		t.Fatalf("bad key %s", fp.msgs[0].Key)
	}
	if string(fp.msgs[1].Value) != `{"pr_id":"product_2#review_2","stars":3,"tenant_id":"wong"}` {
		t.Fatalf("bad value %s", fp.msgs[1].Value)
	}
}

func TestPublishRows_AbortsOnProduceError(t *testing.T) {
	fp := &fakeProducer{failAt: 2}
	if _, err := NewTxPublisherWith(fp).PublishRows(context.Background(), "shopseed.export", reviews, rows()); err == nil {
		t.Fatalf("expected error")
	}
	if fp.committed != 0 || fp.aborted != 1 {
		t.Fatalf("want abort without commit, got %+v", fp)
	}
}

func TestPublishRows_EmptyIsNoop(t *testing.T) {
	fp := &fakeProducer{}
	if _, err := NewTxPublisherWith(fp).PublishRows(context.Background(), "t", reviews, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if fp.begun != 0 {
		t.Fatalf("no transaction expected")
	}
}
