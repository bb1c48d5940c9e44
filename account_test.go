package walletgo_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/walletgo"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestAccountDeposit(t *testing.T) {
	t.Run("increments balance and records a movement", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		clock := newFakeClock(time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC))
		acct := walletgo.NewAccount(walletgo.WithClock(clock.Now))

		reqrd.Nil(acct.Deposit(dec(1000)))
		as.True(dec(1000).Equal(acct.Balance()))

		mvs := acct.Movements()
		reqrd.Len(mvs, 1)
		as.True(mvs[0].IsDeposit())
		as.True(dec(1000).Equal(mvs[0].Amount()))
		as.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), mvs[0].Date())
	})

	t.Run("three deposits then the fourth is rejected", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(0)))

		reqrd.Nil(acct.Deposit(dec(1000)))
		as.True(dec(1000).Equal(acct.Balance()))
		as.Len(acct.Movements(), 1)
		reqrd.Nil(acct.Deposit(dec(500)))
		as.True(dec(1500).Equal(acct.Balance()))
		reqrd.Nil(acct.Deposit(dec(1500)))
		as.True(dec(3000).Equal(acct.Balance()))

		err := acct.Deposit(dec(200))
		as.ErrorAs(err, &walletgo.ErrTooManyDeposits{})
		as.True(dec(3000).Equal(acct.Balance()))
		as.Len(acct.Movements(), 3)
	})

	// The cap counts deposits over the account's whole life, so a new day
	// does not lift it.
	t.Run("deposit cap is not reset on a new day", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		clock := newFakeClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
		acct := walletgo.NewAccount(walletgo.WithClock(clock.Now))

		for i := 0; i < 3; i++ {
			reqrd.Nil(acct.Deposit(dec(10)))
			clock.Advance(24 * time.Hour)
		}
		err := acct.Deposit(dec(10))
		as.ErrorAs(err, &walletgo.ErrTooManyDeposits{})
		as.Equal(3, acct.DepositCount())
	})

	t.Run("withdrawals do not count against the deposit cap", func(tt *testing.T) {
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(500)))

		reqrd.Nil(acct.Withdraw(dec(100)))
		reqrd.Nil(acct.Withdraw(dec(100)))
		reqrd.Nil(acct.Deposit(dec(1)))
		reqrd.Nil(acct.Deposit(dec(1)))
		reqrd.Nil(acct.Deposit(dec(1)))
		reqrd.Len(acct.Movements(), 5)
	})

	t.Run("returns error on non-positive amount", func(tt *testing.T) {
		as := assert.New(tt)
		acct := walletgo.NewAccount()

		err := acct.Deposit(dec(-5))
		as.ErrorAs(err, &walletgo.ErrInvalidAmount{})
		as.Contains(err.Error(), "-5")
		as.ErrorAs(acct.Deposit(decimal.Zero), &walletgo.ErrInvalidAmount{})
		as.True(acct.Balance().IsZero())
		as.Empty(acct.Movements())
	})

	t.Run("amount check comes before the deposit cap", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount()
		for i := 0; i < 3; i++ {
			reqrd.Nil(acct.Deposit(dec(1)))
		}
		as.ErrorAs(acct.Deposit(dec(-1)), &walletgo.ErrInvalidAmount{})
	})

	t.Run("honors custom rules", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithRules(walletgo.Rules{
			MaxDeposits:          1,
			DailyWithdrawalLimit: dec(50),
		}))
		reqrd.Nil(acct.Deposit(dec(100)))
		var errtm walletgo.ErrTooManyDeposits
		reqrd.ErrorAs(acct.Deposit(dec(100)), &errtm)
		as.Equal(1, errtm.Max)
	})
}

func TestAccountWithdraw(t *testing.T) {
	t.Run("decrements balance and records a movement", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(800)))

		reqrd.Nil(acct.Withdraw(dec(300)))
		as.True(dec(500).Equal(acct.Balance()))
		mvs := acct.Movements()
		reqrd.Len(mvs, 1)
		as.False(mvs[0].IsDeposit())
		as.True(dec(-300).Equal(mvs[0].Signed()))
	})

	t.Run("returns error above the daily limit", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(5000)))

		err := acct.Withdraw(dec(1001))
		var errdl walletgo.ErrDailyWithdrawalLimit
		reqrd.ErrorAs(err, &errdl)
		as.True(dec(1000).Equal(errdl.Limit))
		as.True(dec(1000).Equal(errdl.Remaining))
		as.Contains(err.Error(), "1000")
		as.True(dec(5000).Equal(acct.Balance()))
		as.Empty(acct.Movements())
	})

	t.Run("allows exactly the daily limit", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(5000)))

		reqrd.Nil(acct.Withdraw(dec(1000)))
		as.True(acct.RemainingAllowance().IsZero())
		as.ErrorAs(acct.Withdraw(decimal.New(1, -2)), &walletgo.ErrDailyWithdrawalLimit{})
	})

	t.Run("returns error on insufficient balance", func(tt *testing.T) {
		as := assert.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(100)))

		err := acct.Withdraw(dec(200))
		var errib walletgo.ErrInsufficientBalance
		as.ErrorAs(err, &errib)
		as.True(dec(100).Equal(errib.Balance))
		as.True(dec(100).Equal(acct.Balance()))
		as.Empty(acct.Movements())
	})

	t.Run("allows withdrawing the whole balance", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(100)))

		reqrd.Nil(acct.Withdraw(dec(100)))
		as.True(acct.Balance().IsZero())
	})

	t.Run("returns error on non-positive amount", func(tt *testing.T) {
		as := assert.New(tt)
		acct := walletgo.NewAccount()

		as.ErrorAs(acct.Withdraw(dec(-1)), &walletgo.ErrInvalidAmount{})
		as.ErrorAs(acct.Withdraw(decimal.Zero), &walletgo.ErrInvalidAmount{})
	})

	t.Run("insufficient balance is reported before the daily limit", func(tt *testing.T) {
		as := assert.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(100)))

		code, ok := walletgo.RuleCodeOf(acct.Withdraw(dec(2000)))
		as.True(ok)
		as.Equal(walletgo.RuleInsufficientBalance, code)
	})

	t.Run("daily limit resets on a new calendar date", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		clock := newFakeClock(time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC))
		acct := walletgo.NewAccount(
			walletgo.WithInitialBalance(dec(5000)),
			walletgo.WithClock(clock.Now),
		)
		yesterday := clock.Now()

		reqrd.Nil(acct.Withdraw(dec(600)))
		clock.Advance(2 * time.Hour)
		reqrd.Nil(acct.Withdraw(dec(500)))

		err := acct.Withdraw(dec(501))
		var errdl walletgo.ErrDailyWithdrawalLimit
		reqrd.ErrorAs(err, &errdl)
		as.True(dec(500).Equal(errdl.Remaining))
		as.True(dec(3900).Equal(acct.Balance()))
		as.True(dec(600).Equal(acct.WithdrawnOn(yesterday)))
		as.True(dec(500).Equal(acct.WithdrawnOn(clock.Now())))
	})

	t.Run("deposits do not count toward the daily limit", func(tt *testing.T) {
		reqrd := require.New(tt)
		acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(5000)))

		reqrd.Nil(acct.Deposit(dec(900)))
		reqrd.Nil(acct.Withdraw(dec(1000)))
	})
}

func TestAccountMovements(t *testing.T) {
	t.Run("returns a copy of the history", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		acct := walletgo.NewAccount()
		reqrd.Nil(acct.Deposit(dec(10)))

		mvs := acct.Movements()
		mvs[0] = walletgo.NewMovement(time.Now(), dec(99999), true)

		fresh := acct.Movements()
		as.Len(fresh, 1)
		as.True(dec(10).Equal(fresh[0].Amount()))
	})

	t.Run("balance equals initial plus signed movements", func(tt *testing.T) {
		as := assert.New(tt)
		clock := newFakeClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
		initial := dec(250)
		acct := walletgo.NewAccount(
			walletgo.WithInitialBalance(initial),
			walletgo.WithClock(clock.Now),
		)
		ops := []struct {
			deposit bool
			amount  int64
		}{
			{true, 100}, {false, 300}, {false, 2000}, {true, 40}, {false, -3},
			{true, 5000}, {true, 1}, {false, 990}, {false, 20},
		}
		for _, op := range ops {
			if op.deposit {
				_ = acct.Deposit(dec(op.amount))
			} else {
				_ = acct.Withdraw(dec(op.amount))
			}
			clock.Advance(7 * time.Hour)
		}

		sum := initial
		for _, m := range acct.Movements() {
			as.True(m.Amount().IsPositive())
			sum = sum.Add(m.Signed())
		}
		as.True(sum.Equal(acct.Balance()), "sum %s balance %s", sum, acct.Balance())
	})
}

func TestAccountConcurrentWithdrawals(t *testing.T) {
	as := assert.New(t)
	acct := walletgo.NewAccount(walletgo.WithInitialBalance(dec(5000)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := acct.Withdraw(dec(30)); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 1000 / 30 leaves room for 33 withdrawals
	as.Equal(33, ok)
	as.True(dec(5000 - 33*30).Equal(acct.Balance()))
	as.Len(acct.Movements(), 33)
}
