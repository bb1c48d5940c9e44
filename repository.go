package walletgo

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -destination=mocks/repository.go -package=mocks -source=repository.go Repository

// Repository indexes live accounts by ID. Accounts do not outlive the process.
type Repository interface {
	CreateAccount(id snowflake.ID, acct *Account) error
	GetAccount(id snowflake.ID) (*Account, error)
}

type memRepository struct {
	mu    sync.RWMutex
	accts map[snowflake.ID]*Account
}

var (
	_ Repository = (*memRepository)(nil)
)

func NewMemRepository() *memRepository {
	return &memRepository{
		accts: make(map[snowflake.ID]*Account),
	}
}

func (r *memRepository) CreateAccount(id snowflake.ID, acct *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accts[id]; exists {
		return ErrBadRequest{Fields: map[string]string{"acctID": "already exists"}}
	}
	r.accts[id] = acct
	return nil
}

func (r *memRepository) GetAccount(id snowflake.ID) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accts[id]
	if !ok {
		return nil, ErrNotFound{ID: id.Int64()}
	}
	return acct, nil
}
