package walletgo_test

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"

	"github.com/arhyth/walletgo"
)

func TestMemRepository(t *testing.T) {
	t.Run("returns the registered account", func(tt *testing.T) {
		as := assert.New(tt)
		repo := walletgo.NewMemRepository()
		acct := walletgo.NewAccount()
		id := snowflake.ParseInt64(7241722241547767808)

		as.Nil(repo.CreateAccount(id, acct))
		got, err := repo.GetAccount(id)
		as.Nil(err)
		as.Same(acct, got)
	})

	t.Run("returns error on duplicate ID", func(tt *testing.T) {
		as := assert.New(tt)
		repo := walletgo.NewMemRepository()
		id := snowflake.ParseInt64(1)

		as.Nil(repo.CreateAccount(id, walletgo.NewAccount()))
		as.ErrorAs(repo.CreateAccount(id, walletgo.NewAccount()), &walletgo.ErrBadRequest{})
	})

	t.Run("returns ErrNotFound on unknown ID", func(tt *testing.T) {
		as := assert.New(tt)
		repo := walletgo.NewMemRepository()

		acct, err := repo.GetAccount(snowflake.ParseInt64(99))
		as.Nil(acct)
		var errnf walletgo.ErrNotFound
		as.ErrorAs(err, &errnf)
		as.Equal(int64(99), errnf.ID)
	})
}
