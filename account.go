package walletgo

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxDeposits = 3
)

var (
	DefaultDailyWithdrawalLimit = decimal.NewFromInt(1000)
)

// Rules holds the limits an Account enforces. MaxDeposits caps deposits over
// the whole life of the account, not per day, while DailyWithdrawalLimit is
// scoped to a calendar date.
type Rules struct {
	MaxDeposits          int
	DailyWithdrawalLimit decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		MaxDeposits:          DefaultMaxDeposits,
		DailyWithdrawalLimit: DefaultDailyWithdrawalLimit,
	}
}

// Clock returns the current time. Movements are dated with its calendar date.
type Clock func() time.Time

type AccountOption func(*Account)

func WithInitialBalance(amount decimal.Decimal) AccountOption {
	return func(a *Account) {
		a.balance = amount
	}
}

func WithClock(clock Clock) AccountOption {
	return func(a *Account) {
		if clock != nil {
			a.now = clock
		}
	}
}

func WithRules(rules Rules) AccountOption {
	return func(a *Account) {
		a.rules = rules
	}
}

// Account holds a balance and the append-only history of movements that
// produced it. Deposit and Withdraw either fully apply or leave the account
// untouched.
type Account struct {
	mu        sync.Mutex
	balance   decimal.Decimal
	movements []Movement
	rules     Rules
	now       Clock
}

func NewAccount(opts ...AccountOption) *Account {
	a := &Account{
		balance: decimal.Zero,
		rules:   DefaultRules(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Account) Deposit(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !amount.IsPositive() {
		return ErrInvalidAmount{Amount: amount}
	}
	if a.depositCount() >= a.rules.MaxDeposits {
		return ErrTooManyDeposits{Max: a.rules.MaxDeposits}
	}

	a.record(NewMovement(a.now(), amount, true))
	return nil
}

// Withdraw checks amount, then balance, then the daily allowance, in that
// order, and reports the first rule that fails.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !amount.IsPositive() {
		return ErrInvalidAmount{Amount: amount}
	}
	if a.balance.Sub(amount).IsNegative() {
		return ErrInsufficientBalance{Balance: a.balance, Amount: amount}
	}
	now := a.now()
	remaining := a.rules.DailyWithdrawalLimit.Sub(a.totalWithdrawnOn(now))
	if amount.GreaterThan(remaining) {
		return ErrDailyWithdrawalLimit{
			Limit:     a.rules.DailyWithdrawalLimit,
			Remaining: remaining,
			Amount:    amount,
		}
	}

	a.record(NewMovement(now, amount, false))
	return nil
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Movements returns a copy of the history in insertion order.
func (a *Account) Movements() []Movement {
	_, out := a.state()
	return out
}

// state returns balance and history as observed under a single lock.
func (a *Account) state() (decimal.Decimal, []Movement) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Movement, len(a.movements))
	copy(out, a.movements)
	return a.balance, out
}

func (a *Account) DepositCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.depositCount()
}

func (a *Account) WithdrawnOn(date time.Time) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalWithdrawnOn(date)
}

// RemainingAllowance is what can still be withdrawn today, balance aside.
func (a *Account) RemainingAllowance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rules.DailyWithdrawalLimit.Sub(a.totalWithdrawnOn(a.now()))
}

// record appends m and applies it to the balance held before m.
func (a *Account) record(m Movement) {
	a.movements = append(a.movements, m)
	if m.IsDeposit() {
		a.balance = a.balance.Add(m.Amount())
	} else {
		a.balance = a.balance.Sub(m.Amount())
	}
}

func (a *Account) depositCount() int {
	n := 0
	for _, m := range a.movements {
		if m.IsDeposit() {
			n++
		}
	}
	return n
}

func (a *Account) totalWithdrawnOn(date time.Time) decimal.Decimal {
	day := dateOf(date)
	total := decimal.Zero
	for _, m := range a.movements {
		if !m.IsDeposit() && m.Date().Equal(day) {
			total = total.Add(m.Amount())
		}
	}
	return total
}
