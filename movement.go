package walletgo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement is a single completed deposit or withdrawal. It is a passive
// value: the Account that creates it is responsible for validating amount.
type Movement struct {
	date      time.Time
	amount    decimal.Decimal
	isDeposit bool
}

func NewMovement(date time.Time, amount decimal.Decimal, isDeposit bool) Movement {
	return Movement{
		date:      dateOf(date),
		amount:    amount,
		isDeposit: isDeposit,
	}
}

func (m Movement) Date() time.Time         { return m.date }
func (m Movement) Amount() decimal.Decimal { return m.amount }
func (m Movement) IsDeposit() bool         { return m.isDeposit }

// Signed returns amount for deposits and -amount for withdrawals.
func (m Movement) Signed() decimal.Decimal {
	if m.isDeposit {
		return m.amount
	}
	return m.amount.Neg()
}

// dateOf drops the time of day, keeping the calendar date t falls on in its
// own location.
func dateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
