package model

import (
	"fmt"
	"time"

	"shopseed/internal/store"
)

// ReviewDelay is how long after order creation a review is timestamped.
const ReviewDelay = 24 * time.Hour

type Review struct {
	TenantID         string
	ProductID        string
	ReviewID         string
	UserID           string
	OrderID          string
	Comment          string
	Stars            int64
	LastModification time.Time
}

func ReviewKey(productID, reviewID string) string { return productID + LinkSep + reviewID }

func (r Review) ID() string { return ReviewKey(r.ProductID, r.ReviewID) }

func (r Review) Item() store.Item {
	return store.Item{
		TenantKey:           store.String(r.TenantID),
		"pr_id":             store.String(r.ID()),
		"product_id":        store.String(r.ProductID),
		"review_id":         store.String(r.ReviewID),
		"user_id":           store.String(r.UserID),
		"order_id":          store.String(r.OrderID),
		"comment":           store.String(r.Comment),
		"stars":             store.Int(r.Stars),
		"last_modification": timeValue(r.LastModification),
	}
}

func ReviewFromItem(it store.Item) (Review, error) {
	r := reader{it: it}
	prID := r.str("pr_id")
	rv := Review{
		TenantID:         r.str(TenantKey),
		ProductID:        r.str("product_id"),
		ReviewID:         r.str("review_id"),
		UserID:           r.str("user_id"),
		OrderID:          r.optStr("order_id"),
		Comment:          r.optStr("comment"),
		Stars:            r.integer("stars"),
		LastModification: r.time("last_modification"),
	}
	if r.err == nil && prID != rv.ID() {
		r.err = errMismatch("pr_id", prID, rv.ID())
	}
	if r.err == nil && (rv.Stars < 1 || rv.Stars > 5) {
		r.err = fmt.Errorf("stars: %d out of range", rv.Stars)
	}
	if r.err != nil {
		return Review{}, malformed("review", r.err)
	}
	return rv, nil
}
