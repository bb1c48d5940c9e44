package walletgo

import (
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		NodeID          int64         `yaml:"node_id"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Rules struct {
		MaxDeposits          int              `yaml:"max_deposits"`
		DailyWithdrawalLimit *decimal.Decimal `yaml:"daily_withdrawal_limit"`
	} `yaml:"rules"`
	Limits struct {
		AcquireTimeout time.Duration `yaml:"acquire_timeout"`
		CreateAccount  int64         `yaml:"create_account"`
		Deposit        int64         `yaml:"deposit"`
		Withdraw       int64         `yaml:"withdraw"`
		Balance        int64         `yaml:"balance"`
		Movements      int64         `yaml:"movements"`
		Statement      int64         `yaml:"statement"`
	} `yaml:"limits"`
	Breaker struct {
		MaxRequests      uint32        `yaml:"max_requests"`
		Interval         time.Duration `yaml:"interval"`
		Timeout          time.Duration `yaml:"timeout"`
		ConsecutiveFails uint32        `yaml:"consecutive_failures"`
	} `yaml:"breaker"`
}

// LoadConfig decodes a yaml config from r and fills in defaults for
// anything left unset.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AccountRules converts the rules section into the limits accounts enforce.
func (c *Config) AccountRules() Rules {
	rules := DefaultRules()
	if c.Rules.MaxDeposits > 0 {
		rules.MaxDeposits = c.Rules.MaxDeposits
	}
	if c.Rules.DailyWithdrawalLimit != nil {
		rules.DailyWithdrawalLimit = *c.Rules.DailyWithdrawalLimit
	}
	return rules
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Limits.AcquireTimeout == 0 {
		c.Limits.AcquireTimeout = 2 * time.Second
	}
	for _, w := range []*int64{
		&c.Limits.CreateAccount,
		&c.Limits.Deposit,
		&c.Limits.Withdraw,
		&c.Limits.Balance,
		&c.Limits.Movements,
	} {
		if *w == 0 {
			*w = 100
		}
	}
	// rendering PDFs is the expensive path
	if c.Limits.Statement == 0 {
		c.Limits.Statement = 10
	}
	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 5
	}
	if c.Breaker.Interval == 0 {
		c.Breaker.Interval = time.Minute
	}
	if c.Breaker.Timeout == 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Breaker.ConsecutiveFails == 0 {
		c.Breaker.ConsecutiveFails = 5
	}
}

func (c *Config) validate() error {
	fields := map[string]string{}
	if c.Rules.MaxDeposits < 0 {
		fields["rules.max_deposits"] = "must not be negative"
	}
	if c.Rules.DailyWithdrawalLimit != nil && c.Rules.DailyWithdrawalLimit.IsNegative() {
		fields["rules.daily_withdrawal_limit"] = "must not be negative"
	}
	if c.Server.NodeID < 0 || c.Server.NodeID > 1023 {
		fields["server.node_id"] = "must be within [0, 1023]"
	}
	if len(fields) > 0 {
		return ErrBadRequest{Fields: fields}
	}
	return nil
}
