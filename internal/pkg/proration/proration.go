// Package proration computes day-based partial amounts of a monthly price.
//
// All dates are reduced to their calendar day at midnight UTC before any
// arithmetic, so callers may pass timestamps with a time-of-day component.
package proration

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// Precision is the number of fractional digits kept on computed amounts.
	Precision int32 = 8

	// CurrencyPlaces is the number of fractional digits used when amounts are
	// displayed or compared as money.
	CurrencyPlaces int32 = 2

	// divisionPrecision is the scale used for the per-day rate so that
	// multiplying it back by the month length stays within Precision.
	divisionPrecision int32 = 16
)

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Tomorrow returns the calendar day after t.
func Tomorrow(t time.Time) time.Time {
	return Date(t).AddDate(0, 0, 1)
}

// BeginningOfMonth returns the first day of the month containing t.
func BeginningOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of calendar days in the month containing asOf.
func DaysInMonth(asOf time.Time) int {
	return EndOfMonth(asOf).Day()
}

// CompleteDaysIn returns end - start in whole days. The start day is not
// counted and the end day is: Jan 14 to Jan 31 is 17 days. The result is
// negative when end is before start.
func CompleteDaysIn(start, end time.Time) int {
	return int(Date(end).Sub(Date(start)).Round(time.Hour).Hours() / 24)
}

// DefaultPeriod returns the billing period that starts tomorrow and runs to
// the end of the current month. On the last day of a month tomorrow already
// lies past the end of the month; the period then collapses to the single
// day tomorrow, which bills zero days.
func DefaultPeriod(today time.Time) (start, end time.Time) {
	start, end = Tomorrow(today), EndOfMonth(today)
	if start.After(end) {
		end = start
	}
	return start, end
}

// PerDay returns the daily rate of a monthly price in the month containing asOf.
func PerDay(price decimal.Decimal, asOf time.Time) decimal.Decimal {
	return price.DivRound(decimal.NewFromInt(int64(DaysInMonth(asOf))), divisionPrecision)
}

// AmountForPeriod prorates a monthly price over CompleteDaysIn(start, end)
// days, using the length of the month containing asOf for the daily rate.
// A zero-day period is exactly zero. A reversed period yields a negative
// amount; rejecting it is up to the caller.
func AmountForPeriod(price decimal.Decimal, asOf, start, end time.Time) decimal.Decimal {
	days := CompleteDaysIn(start, end)
	if days == 0 {
		return decimal.Zero
	}
	return PerDay(price, asOf).Mul(decimal.NewFromInt(int64(days))).Round(Precision)
}

// AmountBetween is AmountForPeriod for ad-hoc ranges that need not match a
// billing period, such as pricing the rest of a cycle after a price change.
func AmountBetween(price decimal.Decimal, asOf, from, to time.Time) decimal.Decimal {
	return AmountForPeriod(price, asOf, from, to)
}

// RoundCurrency rounds an amount to CurrencyPlaces.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// Overlaps reports whether the closed ranges [aStart, aEnd] and [bStart, bEnd]
// share at least one calendar day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !Date(aStart).After(Date(bEnd)) && !Date(bStart).After(Date(aEnd))
}
