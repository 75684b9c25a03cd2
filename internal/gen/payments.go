package gen

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"shopseed/internal/model"
	"shopseed/internal/store"
)

// Outcome reports how far the two-step payment transition got.
type Outcome int

const (
	// OutcomeFailed: nothing was written.
	OutcomeFailed Outcome = iota
	// OutcomePaymentOnly: the payment exists but the order is still PENDING.
	OutcomePaymentOnly
	// OutcomeBoth: the payment exists and the order is APPROVED PAYMENT.
	OutcomeBoth
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBoth:
		return "both"
	case OutcomePaymentOnly:
		return "payment_only"
	default:
		return "failed"
	}
}

type PaymentOutcome struct {
	OrderID string
	Payment model.Payment
	Outcome Outcome
	Err     error
}

type PaymentsResult struct {
	Result[model.Payment]
	Outcomes []PaymentOutcome
}

// Count returns how many transitions ended with o.
func (p PaymentsResult) Count(o Outcome) int {
	n := 0
	for _, po := range p.Outcomes {
		if po.Outcome == o {
			n++
		}
	}
	return n
}

// Payments pays every order not yet approved, up to limit attempts (zero means
// no limit).
func (r *Run) Payments(ctx context.Context, orders []model.Order, limit int) PaymentsResult {
	var res PaymentsResult
	t := r.Tables.Payments
	for _, o := range orders {
		if limit > 0 && len(res.Outcomes) >= limit {
			break
		}
		if o.Status == model.StatusApproved {
			r.skip(t, &res.Stats, "order already approved", logrus.Fields{"order_id": o.OrderID})
			continue
		}
		po := r.Pay(ctx, o)
		res.Outcomes = append(res.Outcomes, po)
		if po.Payment.PagoID != "" {
			res.Records = append(res.Records, po.Payment)
		}
		switch po.Outcome {
		case OutcomeBoth:
			res.Written++
		case OutcomePaymentOnly:
			res.Written++
			res.Failed++
		default:
			res.Failed++
		}
	}
	r.Log.WithFields(logrus.Fields{
		"table":        t.Name,
		"both":         res.Count(OutcomeBoth),
		"payment_only": res.Count(OutcomePaymentOnly),
		"failed":       res.Count(OutcomeFailed),
		"skipped":      res.Skipped,
	}).Info("generation finished")
	return res
}

// Pay writes a payment for o and only then marks o as APPROVED PAYMENT. The
// two writes are not atomic and a failed status update is not retried.
func (r *Run) Pay(ctx context.Context, o model.Order) PaymentOutcome {
	t := r.Tables.Payments
	po := PaymentOutcome{OrderID: o.OrderID}
	defer func() {
		if r.Metrics != nil {
			r.Metrics.PaymentOutcomes.WithLabelValues(po.Outcome.String()).Inc()
		}
	}()

	id, err := r.IDs.Next("pago")
	if err != nil {
		po.Err = fmt.Errorf("allocate pago id: %w", err)
		r.Log.WithFields(logrus.Fields{"table": t.Name, "order_id": o.OrderID, "error": err}).Error("payment failed")
		return po
	}
	methods := model.Methods()
	m := methods[r.Rand.Intn(len(methods))]
	po.Payment = model.Payment{
		TenantID: o.TenantID,
		PagoID:   id,
		OrderID:  o.OrderID,
		UserID:   o.UserID,
		Total:    o.TotalPrice,
		PaidAt:   o.CreationDate.Add(r.between(0, model.PaymentWindow)),
		UserInfo: o.UserInfo,
		Method:   m,
		Details:  r.paymentDetails(m, o),
	}

	if err := r.Store.Put(ctx, t, po.Payment.Item()); err != nil && !r.journalOnly(t, err) {
		po.Err = fmt.Errorf("put payment: %w", err)
		r.failed(t, "put")
		r.Log.WithFields(logrus.Fields{"table": t.Name, "key": o.TenantID + "/" + id, "error": err}).Error("payment failed")
		return po
	}
	if r.Metrics != nil {
		r.Metrics.Written.WithLabelValues(t.Name).Inc()
	}

	ot := r.Tables.Orders
	err = r.Store.UpdateField(ctx, ot, o.Key(), "order_status", store.String(string(model.StatusApproved)))
	if err != nil && !r.journalOnly(ot, err) {
		po.Outcome = OutcomePaymentOnly
		po.Err = fmt.Errorf("approve order: %w", err)
		r.failed(ot, "update")
		r.Log.WithFields(logrus.Fields{"table": ot.Name, "key": o.Key().String(), "pago_id": id, "error": err}).
			Error("payment written but order not approved")
		return po
	}
	po.Outcome = OutcomeBoth
	return po
}

func (r *Run) paymentDetails(m model.Method, o model.Order) map[string]string {
	f := r.Faker
	switch m {
	case model.MethodCreditCard:
		cc := f.CreditCard()
		return map[string]string{"card_holder": f.Name(), "card_number": cc.Number, "expiry": cc.Exp, "network": cc.Type}
	case model.MethodDebitCard:
		cc := f.CreditCard()
		return map[string]string{"bank": f.Company(), "card_holder": f.Name(), "card_number": cc.Number, "expiry": cc.Exp}
	case model.MethodPayPal:
		return map[string]string{"email": f.Email(), "transaction_id": f.UUID()}
	case model.MethodBankTransfer:
		return map[string]string{"bank": f.Company(), "account_number": f.AchAccount(), "reference": f.Numerify("TRX-########")}
	case model.MethodYape, model.MethodPlin:
		return map[string]string{"phone": f.Numerify("9########"), "operation_id": f.Numerify("##########")}
	case model.MethodGiftCard:
		return map[string]string{"code": f.Regex("[A-Z0-9]{16}"), "balance_before": o.TotalPrice.Add(o.TotalPrice).StringFixed(2)}
	default:
		return map[string]string{"courier": f.Company(), "change_for": o.TotalPrice.Ceil().StringFixed(2)}
	}
}
