package common

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GenerateReferenceNo returns a human-readable reference such as "BNPL-3F9A1C7D2E".
func GenerateReferenceNo(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:10]
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PercentOf returns round2(amount * pct / 100).
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}

// IsMoney reports whether d has at most two decimal places.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
