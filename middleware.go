package walletgo

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
)

type Middleware func(Service) Service

// Chain wraps svc so that the first middleware is the outermost.
func Chain(svc Service, mws ...Middleware) Service {
	for i := len(mws) - 1; i >= 0; i-- {
		svc = mws[i](svc)
	}
	return svc
}

var (
	_ Service = (*validationMiddleware)(nil)
)

// validationMiddleware rejects malformed requests and unknown accounts
// before they reach the service. Amount positivity is left to Account so
// that it is reported as ErrInvalidAmount.
type validationMiddleware struct {
	next Service
	repo Repository
}

func NewValidationMiddleware(repo Repository) Middleware {
	return func(svc Service) Service {
		return &validationMiddleware{
			next: svc,
			repo: repo,
		}
	}
}

func (v *validationMiddleware) CreateAccount(req CreateAccountReq) (*AccountSnapshot, error) {
	if req.InitialBalance.IsNegative() {
		return nil, ErrBadRequest{Fields: map[string]string{"initial_balance": "must not be negative"}}
	}
	return v.next.CreateAccount(req)
}

func (v *validationMiddleware) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	if err := v.checkAccount(req.AcctID); err != nil {
		return nil, err
	}
	return v.next.Deposit(req)
}

func (v *validationMiddleware) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	if err := v.checkAccount(req.AcctID); err != nil {
		return nil, err
	}
	return v.next.Withdraw(req)
}

func (v *validationMiddleware) Balance(req BalanceReq) (*decimal.Decimal, error) {
	if err := v.checkAccount(req.AcctID); err != nil {
		return nil, err
	}
	return v.next.Balance(req)
}

func (v *validationMiddleware) Movements(req MovementsReq) ([]Movement, error) {
	if err := v.checkAccount(req.AcctID); err != nil {
		return nil, err
	}
	return v.next.Movements(req)
}

func (v *validationMiddleware) Statement(w io.Writer, req StatementReq) error {
	if err := v.checkAccount(req.AcctID); err != nil {
		return err
	}
	return v.next.Statement(w, req)
}

func (v *validationMiddleware) checkAccount(id snowflake.ID) error {
	if id <= 0 {
		return ErrBadRequest{Fields: map[string]string{"acctID": "missing or invalid"}}
	}
	_, err := v.repo.GetAccount(id)
	return err
}

//
// Rate limiting middlewares
//

// limitMiddleware limits the number of in-flight requests to the service by using
// a weighted semaphore, i.e., x/sync/semaphore.Semaphore with an acquisition timeout.
// As limits are static and servers may be deployed to a heterogeneous set of machines,
// hence, having to manually tune limits for each server, this solution is something
// likely implemented very differently in a real-world application, but it is a good
// example of load shedding.
type limitMiddleware struct {
	next    Service
	limits  *ServiceLimits
	timeout time.Duration
}

var (
	_ Service = (*limitMiddleware)(nil)
)

type ServiceLimits struct {
	CreateAccount *semaphore.Weighted
	Deposit       *semaphore.Weighted
	Withdraw      *semaphore.Weighted
	Balance       *semaphore.Weighted
	Movements     *semaphore.Weighted
	Statement     *semaphore.Weighted
}

func NewServiceLimits(cfg *Config) *ServiceLimits {
	return &ServiceLimits{
		CreateAccount: semaphore.NewWeighted(cfg.Limits.CreateAccount),
		Deposit:       semaphore.NewWeighted(cfg.Limits.Deposit),
		Withdraw:      semaphore.NewWeighted(cfg.Limits.Withdraw),
		Balance:       semaphore.NewWeighted(cfg.Limits.Balance),
		Movements:     semaphore.NewWeighted(cfg.Limits.Movements),
		Statement:     semaphore.NewWeighted(cfg.Limits.Statement),
	}
}

func NewLimitMiddleware(limits *ServiceLimits, timeout time.Duration) Middleware {
	return func(next Service) Service {
		return &limitMiddleware{
			next:    next,
			limits:  limits,
			timeout: timeout,
		}
	}
}

// acquire returns a release func on success, ErrServiceUnavailable if no
// token frees up within the timeout.
func (l *limitMiddleware) acquire(sem *semaphore.Weighted) (func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, ErrServiceUnavailable
	}
	return func() { sem.Release(1) }, nil
}

func (l *limitMiddleware) CreateAccount(req CreateAccountReq) (*AccountSnapshot, error) {
	release, err := l.acquire(l.limits.CreateAccount)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.CreateAccount(req)
}

func (l *limitMiddleware) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Deposit)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Deposit(req)
}

func (l *limitMiddleware) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Withdraw)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Withdraw(req)
}

func (l *limitMiddleware) Balance(req BalanceReq) (*decimal.Decimal, error) {
	release, err := l.acquire(l.limits.Balance)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Balance(req)
}

func (l *limitMiddleware) Movements(req MovementsReq) ([]Movement, error) {
	release, err := l.acquire(l.limits.Movements)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.Movements(req)
}

func (l *limitMiddleware) Statement(w io.Writer, req StatementReq) error {
	release, err := l.acquire(l.limits.Statement)
	if err != nil {
		return err
	}
	defer release()
	return l.next.Statement(w, req)
}

type ServiceBreaker struct {
	CreateAccount *gobreaker.TwoStepCircuitBreaker[*AccountSnapshot]
	Deposit       *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Withdraw      *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Balance       *gobreaker.TwoStepCircuitBreaker[*decimal.Decimal]
	Movements     *gobreaker.TwoStepCircuitBreaker[[]Movement]
	Statement     *gobreaker.TwoStepCircuitBreaker[interface{}]
}

func NewServiceBreaker(cfg *Config) *ServiceBreaker {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.Breaker.ConsecutiveFails
			},
		}
	}
	return &ServiceBreaker{
		CreateAccount: gobreaker.NewTwoStepCircuitBreaker[*AccountSnapshot](settings("create_account")),
		Deposit:       gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](settings("deposit")),
		Withdraw:      gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](settings("withdraw")),
		Balance:       gobreaker.NewTwoStepCircuitBreaker[*decimal.Decimal](settings("balance")),
		Movements:     gobreaker.NewTwoStepCircuitBreaker[[]Movement](settings("movements")),
		Statement:     gobreaker.NewTwoStepCircuitBreaker[interface{}](settings("statement")),
	}
}

// circuitBreakMiddleware is a middleware that implements the circuit breaker pattern.
// It works in conjunction with limitMiddleware to limit the number of in-flight
// requests to the service when the circuit is not in `closed` state, i.e., the service
// is experiencing heavy load and is struggling to release tokens from the limit
// semaphores within request deadline. Rejections by business rules, bad requests
// and unknown accounts are outcomes of a healthy service and never trip it.
type circuitBreakMiddleware struct {
	next  Service
	brkrs *ServiceBreaker
}

var (
	_ Service = (*circuitBreakMiddleware)(nil)
)

func NewCircuitBreakMiddleware(brkrs *ServiceBreaker) Middleware {
	return func(next Service) Service {
		return &circuitBreakMiddleware{
			next:  next,
			brkrs: brkrs,
		}
	}
}

func (c *circuitBreakMiddleware) CreateAccount(req CreateAccountReq) (*AccountSnapshot, error) {
	done, err := c.brkrs.CreateAccount.Allow()
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	snap, err := c.next.CreateAccount(req)
	done(isHealthy(err))
	return snap, err
}

func (c *circuitBreakMiddleware) Deposit(req ChargeReq) (*decimal.Decimal, error) {
	done, err := c.brkrs.Deposit.Allow()
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	bal, err := c.next.Deposit(req)
	done(isHealthy(err))
	return bal, err
}

func (c *circuitBreakMiddleware) Withdraw(req ChargeReq) (*decimal.Decimal, error) {
	done, err := c.brkrs.Withdraw.Allow()
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	bal, err := c.next.Withdraw(req)
	done(isHealthy(err))
	return bal, err
}

func (c *circuitBreakMiddleware) Balance(req BalanceReq) (*decimal.Decimal, error) {
	done, err := c.brkrs.Balance.Allow()
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	bal, err := c.next.Balance(req)
	done(isHealthy(err))
	return bal, err
}

func (c *circuitBreakMiddleware) Movements(req MovementsReq) ([]Movement, error) {
	done, err := c.brkrs.Movements.Allow()
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	mvs, err := c.next.Movements(req)
	done(isHealthy(err))
	return mvs, err
}

func (c *circuitBreakMiddleware) Statement(w io.Writer, req StatementReq) error {
	done, err := c.brkrs.Statement.Allow()
	if err != nil {
		return ErrServiceUnavailable
	}
	err = c.next.Statement(w, req)
	done(isHealthy(err))
	return err
}

// isHealthy reports whether err, if any, is one the service is expected to
// return while working correctly.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	if _, ok := RuleCodeOf(err); ok {
		return true
	}
	return errors.As(err, &ErrBadRequest{}) || errors.As(err, &ErrNotFound{})
}
