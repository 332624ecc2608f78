// Package schedule splits a purchase into equally sized instalments with
// evenly spaced, end-of-day due dates.
package schedule

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dayMillis  int64 = 24 * 60 * 60 * 1000
	weekMillis       = 7 * dayMillis
)

var (
	ErrInvalidPrincipal = errors.New("principal must be a positive amount with at most two decimal places")
	ErrInvalidCount     = errors.New("number of instalments must be positive")
	ErrInvalidPeriod    = errors.New("time period must be at least one week")
	ErrPeriodTooShort   = errors.New("instalments must be at least one day apart")
)

type Instalment struct {
	Number    int
	AmountDue decimal.Decimal
	DueDate   time.Time
}

// Generate returns n instalments for principal spread over weeks, starting
// from purchase. Each instalment but the last is principal/n truncated to
// cents; the last absorbs the remainder so the amounts sum to principal
// exactly. The i-th due date is purchase + floor(weeks*7*i/n days), computed
// in whole milliseconds and moved to the end of that UTC day.
func Generate(principal decimal.Decimal, n int, weeks int, purchase time.Time) ([]Instalment, error) {
	if !principal.IsPositive() || !principal.Equal(principal.Truncate(2)) {
		return nil, ErrInvalidPrincipal
	}
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	// Every instalment must carry at least one cent.
	if principal.LessThan(decimal.New(int64(n), -2)) {
		return nil, ErrInvalidPrincipal
	}
	if weeks <= 0 {
		return nil, ErrInvalidPeriod
	}
	if n > weeks*7 {
		return nil, ErrPeriodTooShort
	}

	amounts := Split(principal, n)
	total := int64(weeks) * weekMillis
	start := purchase.UTC()

	out := make([]Instalment, n)
	for i := 1; i <= n; i++ {
		offset := total * int64(i) / int64(n)
		out[i-1] = Instalment{
			Number:    i,
			AmountDue: amounts[i-1],
			DueDate:   EndOfDay(start.Add(time.Duration(offset) * time.Millisecond)),
		}
	}
	return out, nil
}

// Split divides principal into n cent-exact parts; the last part takes the
// rounding remainder.
func Split(principal decimal.Decimal, n int) []decimal.Decimal {
	parts := make([]decimal.Decimal, n)
	base := principal.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	for i := 0; i < n-1; i++ {
		parts[i] = base
	}
	parts[n-1] = principal.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

// EndOfDay returns 23:59:59.999 of t's calendar day in UTC.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}
