package reporting

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/consigna/backoffice/internal/money"
)

const unknownMethod = "unspecified"

// PaymentMethodSummary is the payment volume of one method.
type PaymentMethodSummary struct {
	Method       string          `json:"method"`
	Transactions int             `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
	Average      decimal.Decimal `json:"average"`
	Share        decimal.Decimal `json:"share"`
	Change       decimal.Decimal `json:"change"`
}

// PaymentMethodAudit lists the methods observed in the window by volume.
type PaymentMethodAudit struct {
	StartDate    string                 `json:"startDate"`
	EndDate      string                 `json:"endDate"`
	Total        decimal.Decimal        `json:"total"`
	Transactions int                    `json:"transactions"`
	Methods      []PaymentMethodSummary `json:"methods"`
}

type methodTally struct {
	count int
	total decimal.Decimal
}

func auditPaymentMethods(q Query, current, previous Snapshot) PaymentMethodAudit {
	cur := tallyMethods(current.Payments)
	prev := tallyMethods(previous.Payments)

	audit := PaymentMethodAudit{
		StartDate: q.StartDate.Format(DateLayout),
		EndDate:   q.EndDate.Format(DateLayout),
		Methods:   make([]PaymentMethodSummary, 0, len(cur)),
	}
	for _, t := range cur {
		audit.Total = audit.Total.Add(t.total)
		audit.Transactions += t.count
	}
	for method, t := range cur {
		var before decimal.Decimal
		if p, ok := prev[method]; ok {
			before = p.total
		}
		audit.Methods = append(audit.Methods, PaymentMethodSummary{
			Method:       method,
			Transactions: t.count,
			Total:        t.total,
			Average:      money.Average(t.total, t.count),
			Share:        money.Percent(t.total, audit.Total),
			Change:       money.PercentChange(t.total, before),
		})
	}
	slices.SortFunc(audit.Methods, func(a, b PaymentMethodSummary) int {
		return cmp.Or(b.Total.Cmp(a.Total), strings.Compare(a.Method, b.Method))
	})
	return audit
}

func tallyMethods(payments []ClientPayment) map[string]*methodTally {
	out := make(map[string]*methodTally)
	for _, p := range payments {
		method := normalizeMethod(p.Method)
		t, ok := out[method]
		if !ok {
			t = &methodTally{}
			out[method] = t
		}
		t.count++
		t.total = t.total.Add(p.Amount)
	}
	return out
}

// normalizeMethod case-folds method so "Card" and "CARD" share a row.
// Casers are stateful, so each call takes its own.
func normalizeMethod(method string) string {
	method = cases.Fold().String(strings.TrimSpace(method))
	if method == "" {
		return unknownMethod
	}
	return method
}
