package walletgo

import (
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type CreateAccountReq struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type ChargeReq struct {
	Amount decimal.Decimal `json:"amount"`
	AcctID snowflake.ID    `json:"-"`
}

type BalanceReq struct {
	AcctID snowflake.ID
}

type MovementsReq struct {
	AcctID snowflake.ID
}

type StatementReq struct {
	AcctID snowflake.ID
}

// AccountSnapshot is a point-in-time copy of an account's state.
type AccountSnapshot struct {
	AcctID    snowflake.ID
	Balance   decimal.Decimal
	Movements []Movement
}

//go:generate mockgen -destination=mocks/service.go -package=mocks -source=service.go Service

type Service interface {
	CreateAccount(CreateAccountReq) (*AccountSnapshot, error)
	Deposit(ChargeReq) (*decimal.Decimal, error)
	Withdraw(ChargeReq) (*decimal.Decimal, error)
	Balance(BalanceReq) (*decimal.Decimal, error)
	Movements(MovementsReq) ([]Movement, error)
	Statement(io.Writer, StatementReq) error
}

type serviceImpl struct {
	repo  Repository
	node  *snowflake.Node
	rules Rules
	clock Clock
	log   *zerolog.Logger
}

var (
	_ Service = (*serviceImpl)(nil)
)

func NewService(repo Repository, node *snowflake.Node, rules Rules, clock Clock, log *zerolog.Logger) *serviceImpl {
	if clock == nil {
		clock = time.Now
	}
	return &serviceImpl{
		repo:  repo,
		node:  node,
		rules: rules,
		clock: clock,
		log:   log,
	}
}

func (s *serviceImpl) CreateAccount(req CreateAccountReq) (*AccountSnapshot, error) {
	acct := NewAccount(
		WithInitialBalance(req.InitialBalance),
		WithRules(s.rules),
		WithClock(s.clock),
	)
	id := s.node.Generate()
	if err := s.repo.CreateAccount(id, acct); err != nil {
		s.log.Err(err).Str("method", "create_account").Msg("error registering account")
		return nil, err
	}
	s.log.Info().
		Str("acct_id", id.String()).
		Str("initial_balance", req.InitialBalance.String()).
		Msg("account created")

	bal, mvs := acct.state()
	return &AccountSnapshot{
		AcctID:    id,
		Balance:   bal,
		Movements: mvs,
	}, nil
}

func (s *serviceImpl) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	acct, err := s.repo.GetAccount(req.AcctID)
	if err != nil {
		return nil, err
	}
	if err = acct.Deposit(req.Amount); err != nil {
		s.logRejection(err, "deposit", req)
		return nil, err
	}
	bal := acct.Balance()
	return &bal, nil
}

func (s *serviceImpl) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	acct, err := s.repo.GetAccount(req.AcctID)
	if err != nil {
		return nil, err
	}
	if err = acct.Withdraw(req.Amount); err != nil {
		s.logRejection(err, "withdraw", req)
		return nil, err
	}
	bal := acct.Balance()
	return &bal, nil
}

func (s *serviceImpl) Balance(req BalanceReq) (*decimal.Decimal, error) {
	acct, err := s.repo.GetAccount(req.AcctID)
	if err != nil {
		return nil, err
	}
	bal := acct.Balance()
	return &bal, nil
}

func (s *serviceImpl) Movements(req MovementsReq) ([]Movement, error) {
	acct, err := s.repo.GetAccount(req.AcctID)
	if err != nil {
		return nil, err
	}
	return acct.Movements(), nil
}

func (s *serviceImpl) Statement(w io.Writer, req StatementReq) error {
	acct, err := s.repo.GetAccount(req.AcctID)
	if err != nil {
		return err
	}
	bal, mvs := acct.state()
	stmt := statement{
		AcctID:    req.AcctID,
		Opening:   openingBalance(bal, mvs),
		Closing:   bal,
		Movements: mvs,
		IssuedAt:  s.clock(),
	}
	if err = stmt.render(w); err != nil {
		s.log.Err(err).
			Str("method", "statement").
			Str("acct_id", req.AcctID.String()).
			Msg("error rendering statement")
		return err
	}
	return nil
}

func (s *serviceImpl) logRejection(err error, method string, req ChargeReq) {
	code, ok := RuleCodeOf(err)
	if !ok {
		s.log.Err(err).Str("method", method).Msg("unexpected account error")
		return
	}
	s.log.Info().
		Str("method", method).
		Str("acct_id", req.AcctID.String()).
		Str("amount", req.Amount.String()).
		Str("rule", string(code)).
		Msg("operation rejected")
}
