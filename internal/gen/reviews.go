package gen

import (
	"context"

	"github.com/sirupsen/logrus"

	"shopseed/internal/model"
)

// Reviews writes one review per product line of every APPROVED PAYMENT order,
// stopping once limit reviews were produced (zero means no limit).
func (r *Run) Reviews(ctx context.Context, orders []model.Order, limit int) Result[model.Review] {
	var res Result[model.Review]
	t := r.Tables.Reviews
	for _, o := range orders {
		if o.Status != model.StatusApproved {
			continue
		}
		for _, line := range o.Lines {
			if limit > 0 && len(res.Records) >= limit {
				r.logDone(t.Name, res.Stats)
				return res
			}
			id, ok := r.nextID(t, "review", &res.Stats)
			if !ok {
				continue
			}
			rv := model.Review{
				TenantID:         o.TenantID,
				ProductID:        line.ProductID,
				ReviewID:         id,
				UserID:           o.UserID,
				OrderID:          o.OrderID,
				Comment:          r.Faker.Sentence(10),
				Stars:            r.intn(1, 5),
				LastModification: o.CreationDate.Add(model.ReviewDelay),
			}
			if !r.IDs.Claim(rv.ID()) {
				r.skip(t, &res.Stats, "duplicate review key", logrus.Fields{"pr_id": rv.ID()})
				continue
			}
			res.Records = append(res.Records, rv)
			r.put(ctx, t, rv.Item(), &res.Stats)
		}
	}
	r.logDone(t.Name, res.Stats)
	return res
}
