package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ScanPages follows continuation tokens until the table is exhausted, calling fn
// once per page.
func ScanPages(ctx context.Context, st Store, t Table, pageSize int, fn func(Page) error) error {
	in := ScanInput{Limit: pageSize}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := st.Scan(ctx, t, in)
		if err != nil {
			return fmt.Errorf("scan %s: %w", t.Name, err)
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.LastKey == nil {
			return nil
		}
		in.StartKey = page.LastKey
	}
}

// ScanAll reads a whole table into memory.
func ScanAll(ctx context.Context, st Store, t Table) ([]Item, error) {
	var items []Item
	err := ScanPages(ctx, st, t, 0, func(p Page) error {
		items = append(items, p.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteAll scans a table and deletes its records one at a time. Per-record
// failures are logged and counted; only a failing scan returns an error.
func DeleteAll(ctx context.Context, st Store, t Table, log logrus.FieldLogger) (deleted, failed int, err error) {
	items, err := ScanAll(ctx, st, t)
	if err != nil {
		return 0, 0, err
	}
	for _, it := range items {
		k, err := t.KeyOf(it)
		if err != nil {
			log.WithFields(logrus.Fields{"table": t.Name, "error": err}).Warn("skip record without key")
			failed++
			continue
		}
		if err := st.Delete(ctx, t, k); err != nil {
			log.WithFields(logrus.Fields{"table": t.Name, "key": k.String(), "error": err}).Error("delete failed")
			failed++
			continue
		}
		deleted++
	}
	log.WithFields(logrus.Fields{"table": t.Name, "deleted": deleted, "failed": failed}).Info("table wiped")
	return deleted, failed, nil
}
