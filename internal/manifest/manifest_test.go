package manifest

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestPublishAndReadLatest(t *testing.T) {
	dir := t.TempDir()
	m := NewFilesystemManifest(dir)
	if err := m.PublishLatest(context.Background(), Manifest{Table: "pf_ordenes", Key: "ordenes/pf_ordenes.csv", Format: "csv", Records: 42, Uploaded: true}); err != nil {
		t.Fatalf("PublishLatest error: %v", err)
	}
	if err := m.PublishLatest(context.Background(), Manifest{Table: "pf_pagos", Key: "pagos/pf_pagos.json", Format: "json", Records: 7}); err != nil {
		t.Fatalf("PublishLatest error: %v", err)
	}
	got, err := m.ReadLatest("pf_ordenes")
	if err != nil {
		t.Fatalf("ReadLatest error: %v", err)
	}
	if got.Key != "ordenes/pf_ordenes.csv" || got.Records != 42 || !got.Uploaded || got.CreatedAtEpochSecond == 0 {
		t.Fatalf("unexpected manifest: %+v", got)
	}
	if _, err := m.ReadLatest("pf_usuarios"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("want not exist, got %v", err)
	}
}

func TestReadLatest_NoFile(t *testing.T) {
	m := NewFilesystemManifest(t.TempDir())
	if _, err := m.ReadLatest("pf_ordenes"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("want not exist, got %v", err)
	}
}

// fakeKafkaWriter implements kafkaMessageWriter for tests
type fakeKafkaWriter struct {
	msgs []kafka.Message
	fail bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("fail")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaManifest_PublishLatest_Success(t *testing.T) {
	fk := &fakeKafkaWriter{}
	km := NewKafkaManifestWith(fk)
	if err := km.PublishLatest(context.Background(), Manifest{Table: "pf_comentario", Records: 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fk.msgs) != 1 {
		t.Fatalf("want 1 msg, got %d", len(fk.msgs))
	}
	if string(fk.msgs[0].Key) != "pf_comentario" {
		t.Fatalf("bad key: %s", string(fk.msgs[0].Key))
	}
}

func TestMultiPublisher_Fail(t *testing.T) {
	fm := NewFilesystemManifest(t.TempDir())
	km := NewKafkaManifestWith(&fakeKafkaWriter{fail: true})
	if err := MultiPublisher(fm, km).PublishLatest(context.Background(), Manifest{Table: "pf_pagos"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := fm.ReadLatest("pf_pagos"); err != nil {
		t.Fatalf("filesystem publish should have happened first: %v", err)
	}
}
