package walletgo

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInternalServer     = errors.New("internal server error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

type ErrBadRequest struct {
	Fields map[string]string `json:"fields"`
}

func (e ErrBadRequest) Error() string {
	return fmt.Sprintf("missing/invalid params: %v", e.Fields)
}

type ErrNotFound struct {
	ID int64 `json:"id"`
}

func (e ErrNotFound) Error() string {
	return "record not found"
}

//
// Business rule violations
//

type RuleCode string

const (
	RuleInvalidAmount        RuleCode = "invalid_amount"
	RuleTooManyDeposits      RuleCode = "too_many_deposits"
	RuleInsufficientBalance  RuleCode = "insufficient_balance"
	RuleDailyWithdrawalLimit RuleCode = "daily_withdrawal_limit"
)

// RuleViolation is implemented by every error an Account returns when it
// rejects an operation. The set of implementations is closed.
type RuleViolation interface {
	error
	Code() RuleCode
}

var (
	_ RuleViolation = ErrInvalidAmount{}
	_ RuleViolation = ErrTooManyDeposits{}
	_ RuleViolation = ErrInsufficientBalance{}
	_ RuleViolation = ErrDailyWithdrawalLimit{}
)

// RuleCodeOf returns the code of the rule violation wrapped in err, if any.
func RuleCodeOf(err error) (RuleCode, bool) {
	var rv RuleViolation
	if errors.As(err, &rv) {
		return rv.Code(), true
	}
	return "", false
}

type ErrInvalidAmount struct {
	Amount decimal.Decimal
}

func (e ErrInvalidAmount) Error() string {
	return fmt.Sprintf("%s: amount must be a positive value", e.Amount)
}

func (e ErrInvalidAmount) Code() RuleCode { return RuleInvalidAmount }

type ErrTooManyDeposits struct {
	Max int
}

func (e ErrTooManyDeposits) Error() string {
	return fmt.Sprintf("already reached the maximum of %d deposits", e.Max)
}

func (e ErrTooManyDeposits) Code() RuleCode { return RuleTooManyDeposits }

type ErrInsufficientBalance struct {
	Balance decimal.Decimal
	Amount  decimal.Decimal
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("cannot withdraw %s, no more than %s available", e.Amount, e.Balance)
}

func (e ErrInsufficientBalance) Code() RuleCode { return RuleInsufficientBalance }

type ErrDailyWithdrawalLimit struct {
	Limit     decimal.Decimal
	Remaining decimal.Decimal
	Amount    decimal.Decimal
}

func (e ErrDailyWithdrawalLimit) Error() string {
	return fmt.Sprintf("cannot withdraw more than %s per day, %s requested, remaining: %s",
		e.Limit, e.Amount, e.Remaining)
}

func (e ErrDailyWithdrawalLimit) Code() RuleCode { return RuleDailyWithdrawalLimit }
