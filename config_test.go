package walletgo_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhyth/walletgo"
)

func TestLoadConfig(t *testing.T) {
	t.Run("applies defaults to an empty config", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		cfg, err := walletgo.LoadConfig(bytes.NewBufferString(""))
		reqrd.Nil(err)

		as.Equal(":3000", cfg.Server.Addr)
		as.Equal(2*time.Second, cfg.Limits.AcquireTimeout)
		as.Equal(int64(100), cfg.Limits.Deposit)
		as.Equal(int64(10), cfg.Limits.Statement)
		rules := cfg.AccountRules()
		as.Equal(3, rules.MaxDeposits)
		as.True(decimal.NewFromInt(1000).Equal(rules.DailyWithdrawalLimit))
	})

	t.Run("reads rules and durations", func(tt *testing.T) {
		as := assert.New(tt)
		reqrd := require.New(tt)
		yml := `
server:
  addr: ":8080"
  node_id: 12
  shutdown_timeout: 3s
rules:
  max_deposits: 5
  daily_withdrawal_limit: 2500.50
limits:
  acquire_timeout: 250ms
  withdraw: 7
`
		cfg, err := walletgo.LoadConfig(bytes.NewBufferString(yml))
		reqrd.Nil(err)

		as.Equal(":8080", cfg.Server.Addr)
		as.Equal(int64(12), cfg.Server.NodeID)
		as.Equal(3*time.Second, cfg.Server.ShutdownTimeout)
		as.Equal(250*time.Millisecond, cfg.Limits.AcquireTimeout)
		as.Equal(int64(7), cfg.Limits.Withdraw)
		rules := cfg.AccountRules()
		as.Equal(5, rules.MaxDeposits)
		as.True(decimal.RequireFromString("2500.5").Equal(rules.DailyWithdrawalLimit))
	})

	t.Run("returns error on invalid values", func(tt *testing.T) {
		as := assert.New(tt)
		yml := `
server:
  node_id: 4096
rules:
  daily_withdrawal_limit: "-1"
`
		cfg, err := walletgo.LoadConfig(bytes.NewBufferString(yml))
		as.Nil(cfg)
		var errbr walletgo.ErrBadRequest
		as.ErrorAs(err, &errbr)
		as.Contains(errbr.Fields, "server.node_id")
		as.Contains(errbr.Fields, "rules.daily_withdrawal_limit")
	})

	t.Run("returns error on malformed yaml", func(tt *testing.T) {
		as := assert.New(tt)
		cfg, err := walletgo.LoadConfig(bytes.NewBufferString("server: [unclosed"))
		as.Nil(cfg)
		as.NotNil(err)
	})
}
