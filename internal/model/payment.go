package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopseed/internal/store"
)

// PaymentWindow bounds paid_at to [creation, creation+PaymentWindow].
const PaymentWindow = 48 * time.Hour

type Method string

const (
	MethodCreditCard     Method = "credit_card"
	MethodDebitCard      Method = "debit_card"
	MethodPayPal         Method = "paypal"
	MethodBankTransfer   Method = "bank_transfer"
	MethodYape           Method = "yape"
	MethodPlin           Method = "plin"
	MethodGiftCard       Method = "gift_card"
	MethodCashOnDelivery Method = "cash_on_delivery"
)

// methodFields lists the attributes each payment_details variant must carry.
var methodFields = map[Method][]string{
	MethodCreditCard:     {"card_holder", "card_number", "expiry", "network"},
	MethodDebitCard:      {"bank", "card_holder", "card_number", "expiry"},
	MethodPayPal:         {"email", "transaction_id"},
	MethodBankTransfer:   {"bank", "account_number", "reference"},
	MethodYape:           {"phone", "operation_id"},
	MethodPlin:           {"phone", "operation_id"},
	MethodGiftCard:       {"code", "balance_before"},
	MethodCashOnDelivery: {"courier", "change_for"},
}

// Methods returns every supported method in stable order.
func Methods() []Method {
	ms := make([]Method, 0, len(methodFields))
	for m := range methodFields {
		ms = append(ms, m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })
	return ms
}

// Fields returns the detail attributes required by m.
func (m Method) Fields() []string { return methodFields[m] }

func (m Method) Valid() bool {
	_, ok := methodFields[m]
	return ok
}

type Payment struct {
	TenantID string
	PagoID   string
	OrderID  string
	UserID   string
	Total    decimal.Decimal
	PaidAt   time.Time
	UserInfo UserInfo
	Method   Method
	Details  map[string]string
}

func (p Payment) Item() store.Item {
	details := make(map[string]store.Value, len(p.Details))
	for k, v := range p.Details {
		details[k] = store.String(v)
	}
	return store.Item{
		TenantKey:        store.String(p.TenantID),
		"pago_id":        store.String(p.PagoID),
		"order_id":       store.String(p.OrderID),
		"user_id":        store.String(p.UserID),
		"tu_id":          store.String(TUID(p.TenantID, p.UserID)),
		"total":          store.Number(p.Total),
		"paid_at":        timeValue(p.PaidAt),
		"user_info":      p.UserInfo.Value(),
		"payment_method": store.String(string(p.Method)),
		"payment_details": store.Map(map[string]store.Value{
			string(p.Method): store.Map(details),
		}),
	}
}

func PaymentFromItem(it store.Item) (Payment, error) {
	r := reader{it: it}
	p := Payment{
		TenantID: r.str(TenantKey),
		PagoID:   r.str("pago_id"),
		OrderID:  r.str("order_id"),
		UserID:   r.str("user_id"),
		Total:    r.decimal("total"),
		PaidAt:   r.time("paid_at"),
		Method:   Method(r.str("payment_method")),
	}
	info := r.item("user_info")
	details := r.item("payment_details")
	if r.err == nil {
		p.UserInfo, r.err = userInfoFrom(info)
	}
	if r.err == nil {
		p.Details, r.err = detailsFrom(p.Method, details)
	}
	if r.err != nil {
		return Payment{}, malformed("payment", r.err)
	}
	return p, nil
}

// detailsFrom unwraps the single-key {<method>: {...}} union and checks the
// variant's required fields.
func detailsFrom(m Method, union store.Item) (map[string]string, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("payment_method: unknown %q", m)
	}
	if len(union) != 1 {
		return nil, fmt.Errorf("payment_details: want exactly one variant, got %d", len(union))
	}
	body, err := union.Map(string(m))
	if err != nil {
		return nil, fmt.Errorf("payment_details: %w", err)
	}
	out := make(map[string]string, len(body))
	for k := range body {
		s, err := body.String(k)
		if err != nil {
			return nil, fmt.Errorf("payment_details.%s: %w", m, err)
		}
		out[k] = s
	}
	for _, f := range m.Fields() {
		if _, ok := out[f]; !ok {
			return nil, fmt.Errorf("payment_details.%s: missing %s", m, f)
		}
	}
	return out, nil
}
