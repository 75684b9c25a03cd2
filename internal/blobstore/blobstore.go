// Package blobstore uploads export files to a bucket addressed by URL
// (s3://, file://, mem://).
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// ErrUnavailable means the bucket does not exist or cannot be reached.
var ErrUnavailable = errors.New("bucket unavailable")

type Bucket struct {
	b   *blob.Bucket
	url string
}

func Open(ctx context.Context, url string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return &Bucket{b: b, url: url}, nil
}

// Wrap adopts an already opened bucket.
func Wrap(b *blob.Bucket, name string) *Bucket { return &Bucket{b: b, url: name} }

func (b *Bucket) Name() string { return b.url }

func (b *Bucket) Close() error { return b.b.Close() }

func (b *Bucket) CheckAccessible(ctx context.Context) error {
	ok, err := b.b.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", b.url, ErrUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", b.url, ErrUnavailable)
	}
	return nil
}

// UploadFile copies the local file at path to key. A missing file yields an
// error wrapping fs.ErrNotExist.
func (b *Bucket) UploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	opts := &blob.WriterOptions{ContentType: contentType(path)}
	if err := b.b.Upload(ctx, key, f, opts); err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", path, b.url, key, err)
	}
	return nil
}

func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	return b.b.Exists(ctx, key)
}

func (b *Bucket) ReadAll(ctx context.Context, key string) ([]byte, error) {
	return b.b.ReadAll(ctx, key)
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}
